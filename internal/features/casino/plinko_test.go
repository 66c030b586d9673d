package casino

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"serotonyl.ru/minicasino/internal/common"
	"serotonyl.ru/minicasino/internal/features/casino/plinko"
	"serotonyl.ru/minicasino/internal/features/casino/rng"
	"serotonyl.ru/minicasino/internal/features/history"
)

func landIn(bucket int) func(*plinko.Board, rng.Source, func(plinko.Frame)) (int, error) {
	return func(*plinko.Board, rng.Source, func(plinko.Frame)) (int, error) {
		return bucket, nil
	}
}

func TestPlinkoPayouts(t *testing.T) {
	tests := []struct {
		name    string
		risk    string
		bucket  int
		stake   string
		payout  string
		result  history.Result
		histBet string
		balance string
	}{
		{"low centre returns half", "low", 4, "5", "2", history.ResultLoss, "-3", "97"},
		{"high next to centre doubles", "high", 5, "8", "16", history.ResultWin, "8", "108"},
		{"low edge", "low", 0, "10", "56", history.ResultWin, "10", "146"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 100)
			f.svc.drop = landIn(tt.bucket)

			st, err := f.svc.DropPlinko(context.Background(), 1, dec(tt.stake), tt.risk, 8, nil)
			if err != nil {
				t.Fatal(err)
			}
			if !st.Payout.Equal(dec(tt.payout)) || st.Result != tt.result {
				t.Fatalf("settlement = %+v", st)
			}
			if !f.balance(t, 1).Equal(dec(tt.balance)) {
				t.Errorf("balance = %s, want %s", f.balance(t, 1), tt.balance)
			}
			recs, _ := f.svc.History(context.Background(), 1, 1)
			if !recs[0].Bet.Equal(dec(tt.histBet)) {
				t.Errorf("history bet = %s, want %s", recs[0].Bet, tt.histBet)
			}
			out := st.Detail.(*PlinkoOutcome)
			if out.Bucket != tt.bucket || out.BallID != st.RoundID {
				t.Errorf("outcome = %+v", out)
			}
		})
	}
}

func TestPlinkoBallsFallConcurrently(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	started := make(chan struct{}, 3)
	release := make(chan struct{})
	f.svc.drop = func(*plinko.Board, rng.Source, func(plinko.Frame)) (int, error) {
		started <- struct{}{}
		<-release
		return 4, nil
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []*Settlement
	)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, err := f.svc.DropPlinko(ctx, 1, dec("5"), "low", 8, nil)
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			results = append(results, st)
			mu.Unlock()
		}()
	}
	for i := 0; i < 3; i++ {
		<-started
	}

	if n := f.svc.ballsInFlight(1); n != 3 {
		t.Errorf("balls in flight = %d, want 3", n)
	}
	if !f.svc.Busy(1) {
		t.Error("player with falling balls must be busy")
	}
	if _, err := f.svc.RollDice(ctx, 1, dec("1"), dec("50")); !errors.Is(err, common.ErrReentrantRound) {
		t.Errorf("dice while balls fall err = %v", err)
	}
	if !f.balance(t, 1).Equal(dec("85")) {
		t.Errorf("balance mid-flight = %s, want 85", f.balance(t, 1))
	}

	close(release)
	wg.Wait()

	if len(results) != 3 {
		t.Fatalf("settled %d balls", len(results))
	}
	if results[0].RoundID == results[1].RoundID || results[1].RoundID == results[2].RoundID {
		t.Error("each ball must be its own round")
	}
	if !f.balance(t, 1).Equal(dec("91")) {
		t.Errorf("balance = %s, want 100 - 15 + 6 = 91", f.balance(t, 1))
	}
	if f.svc.ballsInFlight(1) != 0 || f.svc.Busy(1) {
		t.Error("table not released after balls landed")
	}
}

func TestPlinkoStuckBallIsRefunded(t *testing.T) {
	f := newFixture(t, 100)
	f.svc.drop = func(*plinko.Board, rng.Source, func(plinko.Frame)) (int, error) {
		return 0, plinko.ErrStuck
	}

	st, err := f.svc.DropPlinko(context.Background(), 1, dec("25"), "medium", 12, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Refunded || st.Result != history.ResultRefund || !st.Payout.Equal(dec("25")) {
		t.Fatalf("settlement = %+v", st)
	}
	if !f.balance(t, 1).Equal(dec("100")) {
		t.Errorf("balance = %s, want 100", f.balance(t, 1))
	}
}

func TestPlinkoBucketOutOfRangeIsRefunded(t *testing.T) {
	f := newFixture(t, 100)
	f.svc.drop = landIn(9)

	st, err := f.svc.DropPlinko(context.Background(), 1, dec("10"), "low", 8, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Refunded || !f.balance(t, 1).Equal(dec("100")) {
		t.Errorf("settlement = %+v, balance %s", st, f.balance(t, 1))
	}
}

func TestPlinkoValidation(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	if _, err := f.svc.DropPlinko(ctx, 1, dec("1"), "extreme", 8, nil); !errors.Is(err, common.ErrInvalidConfiguration) {
		t.Errorf("unknown risk err = %v", err)
	}
	if _, err := f.svc.DropPlinko(ctx, 1, dec("1"), "low", 9, nil); !errors.Is(err, common.ErrInvalidConfiguration) {
		t.Errorf("odd rows err = %v", err)
	}
	if _, err := f.svc.DropPlinko(ctx, 1, dec("0.5"), "low", 8, nil); !errors.Is(err, common.ErrInvalidStake) {
		t.Errorf("fractional stake err = %v", err)
	}
}

func TestPlinkoBucketsTable(t *testing.T) {
	f := newFixture(t, 100)

	buckets, err := f.svc.PlinkoBuckets("high", 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(buckets) != 9 {
		t.Fatalf("buckets = %v", buckets)
	}
	want := []string{"26", "9", "4", "2", "0.2", "2", "4", "9", "26"}
	for i, w := range want {
		if !buckets[i].Equal(decimal.RequireFromString(w)) {
			t.Errorf("bucket %d = %s, want %s", i, buckets[i], w)
		}
	}
}

func TestPlinkoRealDropSettles(t *testing.T) {
	f := newFixture(t, 100)
	f.svc.src = rng.NewSeeded(99)

	frames := 0
	st, err := f.svc.DropPlinko(context.Background(), 1, dec("1"), "medium", 12, func(plinko.Frame) { frames++ })
	if err != nil {
		t.Fatal(err)
	}
	if frames == 0 {
		t.Error("observer saw no frames")
	}
	want := decimal.NewFromInt(99).Add(st.Payout)
	if !f.balance(t, 1).Equal(want) {
		t.Errorf("balance = %s, want %s", f.balance(t, 1), want)
	}
}
