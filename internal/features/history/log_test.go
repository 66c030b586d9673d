package history

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func record(result Result) Record {
	return Record{
		RoundID: uuid.New(),
		GameID:  "dice",
		Bet:     decimal.NewFromInt(10),
		Result:  result,
	}
}

func TestLogKeepsNewestWithinLimit(t *testing.T) {
	l := NewLog(3, nil, Stats{})
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		r := record(ResultLoss)
		ids = append(ids, r.RoundID)
		if err := l.Append(r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	if l.Len() != 3 {
		t.Fatalf("Len = %d, want 3", l.Len())
	}
	recent := l.Recent(0)
	want := []uuid.UUID{ids[4], ids[3], ids[2]}
	for i, r := range recent {
		if r.RoundID != want[i] {
			t.Fatalf("Recent[%d] = %s, want %s", i, r.RoundID, want[i])
		}
	}
	if got := l.Recent(2); len(got) != 2 || got[0].RoundID != ids[4] {
		t.Errorf("Recent(2) = %v", got)
	}

	// Счётчики считают все раунды, а не только хранимые
	if s := l.Stats(); s.Plays != 5 {
		t.Errorf("Plays = %d, want 5", s.Plays)
	}
}

func TestLogRejectsDuplicates(t *testing.T) {
	l := NewLog(10, nil, Stats{})
	r := record(ResultWin)
	if err := l.Append(r); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Append(r); !errors.Is(err, ErrDuplicateRecord) {
		t.Fatalf("second Append err = %v, want ErrDuplicateRecord", err)
	}
	if l.Len() != 1 {
		t.Errorf("Len = %d, want 1", l.Len())
	}
	if s := l.Stats(); s.Plays != 1 || s.Wins != 1 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestNewLogTrimsLoadedRecords(t *testing.T) {
	var loaded []Record
	for i := 0; i < 7; i++ {
		loaded = append(loaded, record(ResultLoss))
	}
	l := NewLog(5, loaded, Stats{Plays: 40, Wins: 12})

	if l.Len() != 5 {
		t.Fatalf("Len = %d, want 5", l.Len())
	}
	if got := l.Recent(1)[0].RoundID; got != loaded[6].RoundID {
		t.Errorf("newest = %s, want %s", got, loaded[6].RoundID)
	}

	// Вытесненная запись больше не считается дублем
	if err := l.Append(loaded[0]); err != nil {
		t.Errorf("Append of trimmed record: %v", err)
	}
	if s := l.Stats(); s.Plays != 41 || s.Wins != 12 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestNewLogDefaultLimit(t *testing.T) {
	l := NewLog(0, nil, Stats{})
	for i := 0; i < DefaultLimit+10; i++ {
		_ = l.Append(record(ResultLoss))
	}
	if l.Len() != DefaultLimit {
		t.Errorf("Len = %d, want %d", l.Len(), DefaultLimit)
	}
}

func TestStatsWinRate(t *testing.T) {
	if r := (Stats{}).WinRate(); r != 0 {
		t.Errorf("empty WinRate = %v", r)
	}
	if r := (Stats{Plays: 4, Wins: 1}).WinRate(); r != 25 {
		t.Errorf("WinRate = %v, want 25", r)
	}
}
