package casino

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"serotonyl.ru/minicasino/internal/common"
	"serotonyl.ru/minicasino/internal/features/history"
)

// Индексы символов темы: 0 — вайлд, дальше по убыванию ценности.
// noWinGrid не собирает ни одной линии в любой теме.
var noWinGrid = []int{1, 2, 3, 4, 5, 6, 2, 3, 4}

func TestSpinSlotsLineWin(t *testing.T) {
	f := newFixture(t, 100)
	// Верхняя линия из золотых слитков, без случайного множителя
	f.src.ints = []int{1, 1, 1, 2, 3, 4, 5, 6, 2}
	f.src.floats = []float64{0.5}

	st, err := f.svc.SpinSlots(context.Background(), 1, "fortune-tiger", dec("10"))
	if err != nil {
		t.Fatal(err)
	}
	// 10 * 100 / 10
	if !st.Payout.Equal(dec("100")) || st.Result != history.ResultWin {
		t.Fatalf("settlement = %+v", st)
	}
	out := st.Detail.(*SlotsOutcome)
	if len(out.WinningLineIDs) != 1 || out.WinningLineIDs[0] != 1 || out.Multiplier != 1 {
		t.Errorf("outcome = %+v", out)
	}
	if !f.balance(t, 1).Equal(dec("190")) {
		t.Errorf("balance = %s, want 190", f.balance(t, 1))
	}
}

func TestSpinSlotsRandomMultiplier(t *testing.T) {
	f := newFixture(t, 100)
	// Сетка, затем выбор множителя: индекс 2 в [2, 3, 5, 10]
	f.src.ints = []int{1, 1, 1, 2, 3, 4, 5, 6, 2, 2}
	f.src.floats = []float64{0.05}

	st, err := f.svc.SpinSlots(context.Background(), 1, "fortune-tiger", dec("10"))
	if err != nil {
		t.Fatal(err)
	}
	if out := st.Detail.(*SlotsOutcome); out.Multiplier != 5 {
		t.Errorf("multiplier = %d, want 5", out.Multiplier)
	}
	if !st.Payout.Equal(dec("500")) {
		t.Errorf("payout = %s, want 500", st.Payout)
	}
}

func TestSpinSlotsFreeSpins(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	// Три дракона по диагонали: линия и запуск фриспинов
	f.src.ints = []int{0, 1, 2, 3, 0, 4, 5, 6, 0}
	st, err := f.svc.SpinSlots(ctx, 1, "fortune-dragon", dec("10"))
	if err != nil {
		t.Fatal(err)
	}
	out := st.Detail.(*SlotsOutcome)
	if out.FreeSpinsWon != 8 || out.BonusSymbols != 3 || !st.Payout.Equal(dec("250")) {
		t.Fatalf("outcome = %+v, payout %s", out, st.Payout)
	}
	if !f.balance(t, 1).Equal(dec("340")) {
		t.Errorf("balance = %s, want 340", f.balance(t, 1))
	}

	// Фриспин бесплатный и идёт по прошлой ставке, аргумент ставки не важен
	f.src.ints = append([]int(nil), noWinGrid...)
	st, err = f.svc.SpinSlots(ctx, 1, "fortune-dragon", dec("999999"))
	if err != nil {
		t.Fatal(err)
	}
	if !st.Stake.IsZero() || !st.Payout.IsZero() {
		t.Errorf("free spin settlement = %+v", st)
	}
	if !f.balance(t, 1).Equal(dec("340")) {
		t.Errorf("free spin changed balance to %s", f.balance(t, 1))
	}
	left, _ := f.svc.FreeSpins(ctx, 1, "fortune-dragon")
	if left != 7 {
		t.Errorf("free spins left = %d, want 7", left)
	}

	// Фриспины одной темы не действуют в другой
	if n, _ := f.svc.FreeSpins(ctx, 1, "fortune-ox"); n != 0 {
		t.Errorf("fortune-ox free spins = %d", n)
	}
}

func TestFreeSpinPaysDoubleOnLastBet(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	f.src.ints = []int{0, 1, 2, 3, 0, 4, 5, 6, 0}
	if _, err := f.svc.SpinSlots(ctx, 1, "fortune-ox", dec("2")); err != nil {
		t.Fatal(err)
	}
	// Верхняя линия из мешков золота в бонусном режиме: 2 * 100 / 10 * 2
	f.src.ints = []int{1, 1, 1, 2, 3, 4, 5, 6, 2}
	st, err := f.svc.SpinSlots(ctx, 1, "fortune-ox", dec("50"))
	if err != nil {
		t.Fatal(err)
	}
	if !st.Payout.Equal(dec("40")) || st.Detail.(*SlotsOutcome).Multiplier != 2 {
		t.Errorf("free spin payout = %s", st.Payout)
	}
}

func TestBetFrozenDuringFreeSpins(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	f.src.ints = []int{0, 1, 2, 3, 0, 4, 5, 6, 0}
	if _, err := f.svc.SpinSlots(ctx, 1, "fortune-ox", dec("1")); err != nil {
		t.Fatal(err)
	}
	for range 40 {
		if _, err := f.svc.AdjustBet(ctx, 1, "fortune-ox", true); !errors.Is(err, common.ErrInvalidStake) {
			t.Fatalf("AdjustBet during free spins: %v", err)
		}
	}
	if bet, _ := f.svc.Bet(ctx, 1, "fortune-ox"); !bet.Equal(dec("1")) {
		t.Errorf("bet = %s, want 1", bet)
	}

	// Фриспин платит от ставки запуска: 1 * 100 / 10 * 2
	f.src.ints = []int{1, 1, 1, 2, 3, 4, 5, 6, 2}
	st, err := f.svc.SpinSlots(ctx, 1, "fortune-ox", dec("100"))
	if err != nil {
		t.Fatal(err)
	}
	if !st.Payout.Equal(dec("20")) {
		t.Errorf("free spin payout = %s, want 20", st.Payout)
	}

	left, _ := f.svc.FreeSpins(ctx, 1, "fortune-ox")
	for range left {
		f.src.ints = append([]int(nil), noWinGrid...)
		if _, err := f.svc.SpinSlots(ctx, 1, "fortune-ox", dec("1")); err != nil {
			t.Fatal(err)
		}
	}
	bet, err := f.svc.AdjustBet(ctx, 1, "fortune-ox", true)
	if err != nil {
		t.Fatalf("AdjustBet after free spins: %v", err)
	}
	if !bet.GreaterThan(dec("1")) {
		t.Errorf("bet = %s after step up", bet)
	}
}

func TestSpinSlotsValidation(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	if _, err := f.svc.SpinSlots(ctx, 1, "fortune-cat", dec("1")); !errors.Is(err, common.ErrInvalidConfiguration) {
		t.Errorf("unknown theme err = %v", err)
	}
	if _, err := f.svc.SpinSlots(ctx, 1, "dice", dec("1")); !errors.Is(err, common.ErrInvalidConfiguration) {
		t.Errorf("non-slots game err = %v", err)
	}
	if _, err := f.svc.SpinSlots(ctx, 1, "fortune-tiger", dec("0.05")); !errors.Is(err, common.ErrInvalidStake) {
		t.Errorf("fractional stake err = %v", err)
	}
	if _, err := f.svc.SpinSlots(ctx, 1, "fortune-tiger", dec("101")); !errors.Is(err, common.ErrInsufficientFunds) {
		t.Errorf("over balance err = %v", err)
	}
}

func TestFractionalStakesWhenEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.CasinoFractionalStakes = true
	f := newFixtureWith(t, cfg, 1)
	f.src.loop = noWinGrid

	if _, err := f.svc.SpinSlots(context.Background(), 1, "fortune-tiger", dec("0.05")); err != nil {
		t.Fatalf("fractional slots stake: %v", err)
	}
	if !f.balance(t, 1).Equal(dec("0.95")) {
		t.Errorf("balance = %s, want 0.95", f.balance(t, 1))
	}
	// В дайсе дробные ставки всё равно запрещены
	if _, err := f.svc.RollDice(context.Background(), 1, dec("0.5"), dec("50")); !errors.Is(err, common.ErrInvalidStake) {
		t.Errorf("fractional dice err = %v", err)
	}
}

type autoResult struct {
	rounds int
	reason error
}

func startAuto(t *testing.T, f *fixture, stake string, onSpin func(*Settlement)) <-chan autoResult {
	t.Helper()
	done := make(chan autoResult, 1)
	err := f.svc.StartAutoPlay(context.Background(), 1, "fortune-tiger", dec(stake), AutoPlayHooks{
		OnSpin: onSpin,
		OnStop: func(rounds int, reason error) { done <- autoResult{rounds, reason} },
	})
	if err != nil {
		t.Fatalf("StartAutoPlay: %v", err)
	}
	return done
}

func waitAuto(t *testing.T, done <-chan autoResult) autoResult {
	t.Helper()
	select {
	case r := <-done:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("autoplay did not stop")
		return autoResult{}
	}
}

func TestAutoPlayStopsOnInsufficientFunds(t *testing.T) {
	f := newFixture(t, 3)
	f.src.loop = noWinGrid

	res := waitAuto(t, startAuto(t, f, "1", nil))
	if res.rounds != 3 {
		t.Errorf("rounds = %d, want 3", res.rounds)
	}
	if !errors.Is(res.reason, common.ErrInsufficientFunds) {
		t.Errorf("reason = %v, want ErrInsufficientFunds", res.reason)
	}
	if !f.balance(t, 1).IsZero() {
		t.Errorf("balance = %s, want 0", f.balance(t, 1))
	}
	if f.svc.Busy(1) {
		t.Error("table still owned by stopped autoplay")
	}
}

func TestAutoPlayStopsAfterMaxRounds(t *testing.T) {
	cfg := testConfig(t)
	cfg.AutoPlayMaxRounds = 5
	f := newFixtureWith(t, cfg, 100)
	f.src.loop = noWinGrid

	res := waitAuto(t, startAuto(t, f, "2", nil))
	if res.rounds != 5 || res.reason != nil {
		t.Errorf("result = %+v, want 5 rounds without error", res)
	}
	if !f.balance(t, 1).Equal(dec("90")) {
		t.Errorf("balance = %s, want 90", f.balance(t, 1))
	}
}

func TestAutoPlayStopCommand(t *testing.T) {
	cfg := testConfig(t)
	cfg.AutoPlayPause = 5 * time.Millisecond
	f := newFixtureWith(t, cfg, 1000)
	f.src.loop = noWinGrid
	ctx := context.Background()

	spun := make(chan struct{}, 1)
	done := startAuto(t, f, "1", func(*Settlement) {
		select {
		case spun <- struct{}{}:
		default:
		}
	})
	<-spun

	// Пока идёт автоигра, стол занят
	if _, err := f.svc.RollDice(ctx, 1, dec("1"), dec("50")); !errors.Is(err, common.ErrReentrantRound) {
		t.Errorf("dice during autoplay err = %v", err)
	}
	if err := f.svc.StartAutoPlay(ctx, 1, "fortune-tiger", dec("1"), AutoPlayHooks{}); !errors.Is(err, common.ErrReentrantRound) {
		t.Errorf("second autoplay err = %v", err)
	}

	stopped, err := f.svc.StopAutoPlay(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	res := waitAuto(t, done)
	<-stopped

	if res.rounds < 1 || res.reason != nil {
		t.Errorf("result = %+v", res)
	}
	want := decimal.NewFromInt(1000 - int64(res.rounds))
	if !f.balance(t, 1).Equal(want) {
		t.Errorf("balance = %s, want %s", f.balance(t, 1), want)
	}
	if _, err := f.svc.StopAutoPlay(ctx, 1); !errors.Is(err, common.ErrNoOpenRound) {
		t.Errorf("stop without autoplay err = %v", err)
	}
}

func TestStopAllEndsAutoPlays(t *testing.T) {
	cfg := testConfig(t)
	cfg.AutoPlayPause = 5 * time.Millisecond
	f := newFixtureWith(t, cfg, 1000)
	f.src.loop = noWinGrid

	done := startAuto(t, f, "1", nil)
	f.svc.StopAll(5 * time.Second)

	res := waitAuto(t, done)
	if res.reason != nil {
		t.Errorf("reason = %v", res.reason)
	}
	if f.svc.Busy(1) {
		t.Error("table still busy after StopAll")
	}
}

func TestBetSteps(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	bet, err := f.svc.Bet(ctx, 1, "dice")
	if err != nil || !bet.Equal(dec("1")) {
		t.Fatalf("default bet = %s, %v", bet, err)
	}

	steps := []struct {
		up   bool
		want string
	}{
		{false, "1"}, // не ниже минимума
		{true, "1.25"},
		{true, "1.5"},
		{false, "1.25"},
		{false, "1"},
	}
	for i, s := range steps {
		got, err := f.svc.AdjustBet(ctx, 1, "dice", s.up)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Equal(dec(s.want)) {
			t.Fatalf("step %d: bet = %s, want %s", i, got, s.want)
		}
	}

	// Ставка запоминается сыгранным раундом
	if _, err := f.svc.RollDice(ctx, 1, dec("10"), dec("50")); err != nil {
		t.Fatal(err)
	}
	if got, _ := f.svc.AdjustBet(ctx, 1, "dice", true); !got.Equal(dec("15")) {
		t.Errorf("10 up = %s, want 15", got)
	}
	if got, _ := f.svc.AdjustBet(ctx, 1, "dice", false); !got.Equal(dec("10")) {
		t.Errorf("15 down = %s, want 10", got)
	}

	if _, err := f.svc.AdjustBet(ctx, 1, "baccarat", true); !errors.Is(err, common.ErrInvalidConfiguration) {
		t.Errorf("unknown game err = %v", err)
	}
}

func TestStakeTableClampsToMax(t *testing.T) {
	f := newFixture(t, 100)
	r := f.svc.rules

	if got := r.stepUp(KindDice, dec("49000")); !got.Equal(dec("50000")) {
		t.Errorf("49000 up = %s, want 50000", got)
	}
	if got := r.step(dec("50000")); !got.Equal(dec("5000")) {
		t.Errorf("step at max = %s, want 5000", got)
	}
	if got := r.stepDown(KindDouble, dec("1")); !got.Equal(dec("1")) {
		t.Errorf("double 1 down without fractional = %s", got)
	}
}
