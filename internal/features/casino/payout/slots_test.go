package payout

import (
	"testing"

	"github.com/shopspring/decimal"
)

var (
	wild   = Symbol{ID: "wild", Icon: "🐯", Value: decimal.NewFromInt(250), Wild: true}
	bar    = Symbol{ID: "goldbar", Icon: "🍫", Value: decimal.NewFromInt(100)}
	orange = Symbol{ID: "orange", Icon: "🍊", Value: decimal.NewFromInt(3)}
	fish   = Symbol{ID: "fish", Icon: "🐠", Value: decimal.NewFromInt(50)}
	dragon = Symbol{ID: "dragon", Icon: "🐉", Value: decimal.NewFromInt(250), Wild: true, Bonus: true}
)

var fiveLines = [][3]int{{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, {0, 4, 8}, {2, 4, 6}}

func spin(grid [9]Symbol) SlotsSpin {
	return SlotsSpin{
		Stake:           decimal.NewFromInt(10),
		Grid:            grid,
		Paylines:        fiveLines,
		LineDivisor:     decimal.NewFromInt(10),
		BonusMultiplier: 2,
	}
}

func TestSlotsNoWin(t *testing.T) {
	res := Slots(spin([9]Symbol{
		bar, orange, fish,
		orange, fish, bar,
		bar, fish, orange,
	}))
	if len(res.Lines) != 0 || !res.Total.IsZero() {
		t.Fatalf("expected no lines, got %+v", res)
	}
	if res.Multiplier != 1 {
		t.Errorf("Multiplier = %d, want 1", res.Multiplier)
	}
}

func TestSlotsSingleLine(t *testing.T) {
	res := Slots(spin([9]Symbol{
		bar, bar, bar,
		orange, fish, orange,
		fish, orange, fish,
	}))
	if len(res.Lines) != 1 || res.Lines[0].Line != 0 {
		t.Fatalf("expected top line only, got %+v", res.Lines)
	}
	// 10 * 100 / 10
	if !res.Total.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Total = %s, want 100", res.Total)
	}
}

func TestSlotsWildSubstitutes(t *testing.T) {
	res := Slots(spin([9]Symbol{
		wild, orange, orange,
		fish, bar, fish,
		bar, fish, orange,
	}))
	if len(res.Lines) != 1 || res.Lines[0].Symbol.ID != "orange" {
		t.Fatalf("wild must play as orange, got %+v", res.Lines)
	}
	// 10 * 3 / 10
	if !res.Total.Equal(decimal.NewFromInt(3)) {
		t.Errorf("Total = %s, want 3", res.Total)
	}
}

func TestSlotsThreeWildsPayAsWild(t *testing.T) {
	res := Slots(spin([9]Symbol{
		orange, fish, wild,
		fish, wild, bar,
		wild, bar, fish,
	}))
	if len(res.Lines) != 1 || !res.Lines[0].Symbol.Wild {
		t.Fatalf("expected wild anti-diagonal, got %+v", res.Lines)
	}
	if !res.Total.Equal(decimal.NewFromInt(250)) {
		t.Errorf("Total = %s, want 250", res.Total)
	}
}

func TestSlotsMultipliers(t *testing.T) {
	grid := [9]Symbol{
		bar, bar, bar,
		orange, fish, orange,
		fish, orange, fish,
	}

	s := spin(grid)
	s.RandomMultiplier = 5
	if res := Slots(s); res.Multiplier != 5 || !res.Total.Equal(decimal.NewFromInt(500)) {
		t.Errorf("random x5: got multiplier %d total %s", res.Multiplier, res.Total)
	}

	s = spin(grid)
	s.BonusMode = true
	if res := Slots(s); res.Multiplier != 2 || !res.Total.Equal(decimal.NewFromInt(200)) {
		t.Errorf("bonus x2: got multiplier %d total %s", res.Multiplier, res.Total)
	}
}

func TestSlotsCountsBonusSymbols(t *testing.T) {
	res := Slots(spin([9]Symbol{
		dragon, orange, fish,
		fish, dragon, orange,
		orange, fish, dragon,
	}))
	if res.BonusSymbols != 3 {
		t.Errorf("BonusSymbols = %d, want 3", res.BonusSymbols)
	}
	// Диагональ из трёх драконов
	if len(res.Lines) != 1 || res.Lines[0].Line != 3 {
		t.Errorf("expected diagonal win, got %+v", res.Lines)
	}
}

func TestSlotsFloorsFractionalStake(t *testing.T) {
	s := spin([9]Symbol{
		orange, orange, orange,
		fish, bar, fish,
		bar, fish, bar,
	})
	s.Stake = decimal.RequireFromString("0.5")
	// 0.5 * 3 / 10 = 0.15 → 0
	if res := Slots(s); !res.Total.IsZero() || len(res.Lines) != 1 {
		t.Errorf("got total %s lines %d", res.Total, len(res.Lines))
	}
}
