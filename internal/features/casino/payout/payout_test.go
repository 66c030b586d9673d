package payout

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDouble(t *testing.T) {
	stakes := map[string]decimal.Decimal{"red": d("10"), "white": d("2.5")}

	if got := Double(stakes, "red", d("2")); !got.Equal(d("20")) {
		t.Errorf("red wins: got %s, want 20", got)
	}
	if got := Double(stakes, "white", d("14")); !got.Equal(d("35")) {
		t.Errorf("white wins: got %s, want 35", got)
	}
	if got := Double(stakes, "black", d("2")); !got.IsZero() {
		t.Errorf("black wins: got %s, want 0", got)
	}
}

func TestDiceMultiplier(t *testing.T) {
	tests := []struct {
		chance string
		want   string
	}{
		{"1", "99"},
		{"49.5", "2"},
		{"98", "1.01"},
	}
	for _, tt := range tests {
		got := DiceMultiplier(d("99"), d(tt.chance)).Round(2)
		if !got.Equal(d(tt.want)) {
			t.Errorf("DiceMultiplier(%s) = %s, want %s", tt.chance, got, tt.want)
		}
	}
}

func TestDice(t *testing.T) {
	tests := []struct {
		name                string
		stake, chance, roll string
		want                string
		win                 bool
	}{
		{"roll below chance", "10", "49.5", "10.00", "20", true},
		{"roll equals chance", "10", "49.5", "49.50", "0", false},
		{"roll above chance", "10", "49.5", "80.12", "0", false},
		{"exact division", "7", "7", "3", "99", true},
		{"floored", "3", "98", "0", "3", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, win := Dice(d(tt.stake), d(tt.chance), d(tt.roll), d("99"))
			if win != tt.win || !got.Equal(d(tt.want)) {
				t.Errorf("Dice = (%s, %v), want (%s, %v)", got, win, tt.want, tt.win)
			}
		})
	}
}

func TestMinesMultiplier(t *testing.T) {
	factor := d("0.95")

	if got := MinesMultiplier(25, 4, 0, factor); !got.Equal(d("1")) {
		t.Errorf("no reveals: got %s, want 1", got)
	}

	prev := d("0")
	for r := 0; r <= 21; r++ {
		m := MinesMultiplier(25, 4, r, factor)
		if m.LessThan(prev) {
			t.Fatalf("multiplier dropped at %d reveals: %s < %s", r, m, prev)
		}
		prev = m
	}

	if got := MinesMultiplier(25, 4, 3, factor).Round(3); !got.Equal(d("1.108")) {
		t.Errorf("3 reveals: got %s, want 1.108", got)
	}
	// Поле очищено: знаменатель держится на единице
	if got := MinesMultiplier(25, 4, 21, factor); !got.Equal(d("19.95")) {
		t.Errorf("cleared board: got %s, want 19.95", got)
	}
}

func TestMines(t *testing.T) {
	factor := d("0.95")
	if got := Mines(d("10"), 25, 4, 3, factor); !got.Equal(d("11")) {
		t.Errorf("stake 10, 4 bombs, 3 reveals: got %s, want 11", got)
	}
	if got := Mines(d("10"), 25, 4, 1, factor); !got.Equal(d("10")) {
		t.Errorf("multiplier below 1 returns the stake: got %s", got)
	}
	if got := Mines(d("100"), 25, 20, 3, factor); !got.Equal(d("237")) {
		t.Errorf("20 bombs, 3 reveals: got %s, want 237", got)
	}
}

func TestPlinkoBucket(t *testing.T) {
	low := []decimal.Decimal{d("5.6"), d("2.1"), d("1.1"), d("1"), d("0.5"), d("0.5"), d("1"), d("1.1"), d("2.1"), d("5.6")}
	high := []decimal.Decimal{d("1000"), d("130"), d("26"), d("9"), d("4"), d("2"), d("0.2"), d("0.2"), d("2"), d("4"), d("9"), d("26"), d("130"), d("1000")}
	fallback := d("0.2")

	tests := []struct {
		name   string
		table  []decimal.Decimal
		rows   int
		bucket int
		want   string
	}{
		{"low centre", low, 8, 4, "0.5"},
		{"low edge", low, 8, 0, "5.6"},
		{"low mirrored edge", low, 8, 8, "5.6"},
		{"high next to centre", high, 8, 5, "2"},
		{"high centre", high, 8, 4, "0.2"},
		{"beyond table", low, 16, 0, "0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlinkoBucket(tt.table, tt.rows, tt.bucket, fallback)
			if !got.Equal(d(tt.want)) {
				t.Errorf("PlinkoBucket(rows=%d, bucket=%d) = %s, want %s", tt.rows, tt.bucket, got, tt.want)
			}
		})
	}

	buckets := PlinkoBuckets(low, 8, fallback)
	if len(buckets) != 9 {
		t.Fatalf("PlinkoBuckets len = %d, want 9", len(buckets))
	}
	for i := range buckets {
		if !buckets[i].Equal(buckets[len(buckets)-1-i]) {
			t.Errorf("buckets not symmetric: %v", buckets)
			break
		}
	}
}

func TestPlinko(t *testing.T) {
	if got := Plinko(d("5"), d("0.5")); !got.Equal(d("2")) {
		t.Errorf("Plinko(5, 0.5) = %s, want 2", got)
	}
	if got := Plinko(d("8"), d("2")); !got.Equal(d("16")) {
		t.Errorf("Plinko(8, 2) = %s, want 16", got)
	}
}
