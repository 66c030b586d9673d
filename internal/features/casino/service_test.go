package casino

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"serotonyl.ru/minicasino/internal/common"
	"serotonyl.ru/minicasino/internal/config"
	"serotonyl.ru/minicasino/internal/features/economy"
	"serotonyl.ru/minicasino/internal/features/history"
)

// scriptedSource выдаёт заранее заданные исходы. Когда очередь пуста,
// IntN идёт по кругу по loop (или отдаёт 0), Float64 отдаёт floatDefault.
type scriptedSource struct {
	mu           sync.Mutex
	ints         []int
	floats       []float64
	loop         []int
	pos          int
	floatDefault float64
}

func (s *scriptedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ints) > 0 {
		v := s.ints[0]
		s.ints = s.ints[1:]
		return v
	}
	if len(s.loop) > 0 {
		v := s.loop[s.pos%len(s.loop)]
		s.pos++
		return v % n
	}
	return 0
}

func (s *scriptedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.floats) > 0 {
		v := s.floats[0]
		s.floats = s.floats[1:]
		return v
	}
	return s.floatDefault
}

// fakeAccounts — балансы без хранилища.
type fakeAccounts struct {
	mu       sync.Mutex
	starting decimal.Decimal
	ledgers  map[int64]*economy.Ledger
}

func (a *fakeAccounts) Ledger(_ context.Context, userID int64) (*economy.Ledger, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.ledgers[userID]
	if !ok {
		l = economy.NewLedger(userID, a.starting, nil, nil)
		a.ledgers[userID] = l
	}
	return l, nil
}

func (a *fakeAccounts) EvictIdle(_ time.Duration, busy func(int64) bool) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for id := range a.ledgers {
		if busy(id) {
			continue
		}
		delete(a.ledgers, id)
		n++
	}
	return n
}

// memRounds — история раундов в памяти.
type memRounds struct {
	mu      sync.Mutex
	rows    []RoundRow
	preload []history.Record
	stats   history.Stats
}

func (m *memRounds) LoadHistory(context.Context, int64, int) ([]history.Record, history.Stats, error) {
	return m.preload, m.stats, nil
}

func (m *memRounds) SaveRound(_ context.Context, row RoundRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
	return nil
}

func (m *memRounds) saved() []RoundRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RoundRow(nil), m.rows...)
}

type inlineWriter struct{}

func (inlineWriter) Enqueue(_ string, run func(ctx context.Context) error) {
	_ = run(context.Background())
}

type note struct {
	userID   int64
	category string
	title    string
}

type memNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (n *memNotifier) Notify(_ context.Context, userID int64, category, title, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note{userID, category, title})
}

func (n *memNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notes)
}

type openedGames struct {
	mu    sync.Mutex
	games []string
}

func (o *openedGames) GameOpened(_ context.Context, _ int64, gameID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.games = append(o.games, gameID)
}

type fixture struct {
	svc      *Service
	src      *scriptedSource
	accounts *fakeAccounts
	rounds   *memRounds
	notes    *memNotifier
	opened   *openedGames
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	games, err := config.LoadGames("")
	if err != nil {
		t.Fatalf("LoadGames: %v", err)
	}
	return &config.Config{
		Games:              games,
		CasinoHistoryLimit: 500,
		AutoPlayMaxRounds:  100,
	}
}

func newFixture(t *testing.T, balance int64) *fixture {
	t.Helper()
	return newFixtureWith(t, testConfig(t), balance)
}

func newFixtureWith(t *testing.T, cfg *config.Config, balance int64) *fixture {
	t.Helper()
	f := &fixture{
		src:      &scriptedSource{floatDefault: 0.5},
		accounts: &fakeAccounts{starting: decimal.NewFromInt(balance), ledgers: make(map[int64]*economy.Ledger)},
		rounds:   &memRounds{},
		notes:    &memNotifier{},
		opened:   &openedGames{},
	}
	f.svc = NewService(cfg, f.accounts, f.rounds, inlineWriter{}, f.src, f.notes)
	f.svc.Subscribe(f.opened)
	return f
}

func (f *fixture) balance(t *testing.T, userID int64) decimal.Decimal {
	t.Helper()
	l, err := f.accounts.Ledger(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	return l.Balance()
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRollDiceWin(t *testing.T) {
	f := newFixture(t, 100)
	f.src.floats = []float64{0.1} // бросок 10.00

	st, err := f.svc.RollDice(context.Background(), 1, dec("10"), dec("49.5"))
	if err != nil {
		t.Fatalf("RollDice: %v", err)
	}
	if !st.Payout.Equal(dec("20")) || st.Result != history.ResultWin {
		t.Fatalf("settlement = %+v", st)
	}
	if !st.BalanceAfter.Equal(dec("110")) || !f.balance(t, 1).Equal(dec("110")) {
		t.Errorf("balance = %s, want 110", f.balance(t, 1))
	}
	detail := st.Detail.(*DiceOutcome)
	if !detail.Roll.Equal(dec("10")) || !detail.Multiplier.Equal(dec("2")) {
		t.Errorf("detail = %+v", detail)
	}

	recs, _ := f.svc.History(context.Background(), 1, 10)
	if len(recs) != 1 || !recs[0].Bet.Equal(dec("10")) || recs[0].RoundID != st.RoundID {
		t.Errorf("history = %+v", recs)
	}
	if rows := f.rounds.saved(); len(rows) != 1 || rows[0].Kind != KindDice {
		t.Errorf("saved rounds = %+v", rows)
	}
	if f.notes.count() != 1 || f.notes.notes[0].category != "game" {
		t.Errorf("notifications = %+v", f.notes.notes)
	}
}

func TestRollDiceLoss(t *testing.T) {
	f := newFixture(t, 100)
	f.src.floats = []float64{0.6} // бросок 60.00

	st, err := f.svc.RollDice(context.Background(), 1, dec("10"), dec("49.5"))
	if err != nil {
		t.Fatal(err)
	}
	if !st.Payout.IsZero() || st.Result != history.ResultLoss {
		t.Fatalf("settlement = %+v", st)
	}
	if !f.balance(t, 1).Equal(dec("90")) {
		t.Errorf("balance = %s, want 90", f.balance(t, 1))
	}
	recs, _ := f.svc.History(context.Background(), 1, 1)
	if !recs[0].Bet.Equal(dec("-10")) {
		t.Errorf("history bet = %s, want -10", recs[0].Bet)
	}
	stats, _ := f.svc.Stats(context.Background(), 1)
	if stats.Plays != 1 || stats.Wins != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRollDiceRejectsBadInput(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	tests := []struct {
		name   string
		stake  string
		chance string
		want   error
	}{
		{"chance too high", "1", "99", common.ErrInvalidConfiguration},
		{"chance too low", "1", "0.5", common.ErrInvalidConfiguration},
		{"chance precision", "1", "10.555", common.ErrInvalidConfiguration},
		{"fractional stake", "0.5", "50", common.ErrInvalidStake},
		{"stake precision", "1.005", "50", common.ErrInvalidStake},
		{"above max", "50001", "50", common.ErrInvalidStake},
		{"insufficient", "10", "50", common.ErrInsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RollDice(ctx, 1, dec(tt.stake), dec(tt.chance))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if !f.balance(t, 1).Equal(dec("5")) {
		t.Errorf("rejected rounds changed balance to %s", f.balance(t, 1))
	}
	// Отклонённый раунд не держит стол
	if round, _ := f.svc.ActiveRound(ctx, 1); round != nil {
		t.Errorf("active round after rejection: %+v", round)
	}
	if f.notes.count() != 0 {
		t.Errorf("rejected rounds must not notify")
	}
}

func TestDoubleCumulativeStakes(t *testing.T) {
	f := newFixture(t, 20)
	ctx := context.Background()

	if _, err := f.svc.PlaceStake(ctx, 1, "double", "red", dec("10")); err != nil {
		t.Fatal(err)
	}
	slip, err := f.svc.PlaceStake(ctx, 1, "double", "black", dec("5"))
	if err != nil {
		t.Fatal(err)
	}
	if len(slip) != 2 {
		t.Errorf("slip = %v", slip)
	}
	if _, err := f.svc.PlaceStake(ctx, 1, "double", "white", dec("10")); !errors.Is(err, common.ErrInsufficientFunds) {
		t.Fatalf("over-balance stake err = %v", err)
	}
	if _, err := f.svc.PlaceStake(ctx, 1, "double", "green", dec("1")); !errors.Is(err, common.ErrInvalidConfiguration) {
		t.Errorf("unknown colour err = %v", err)
	}
	// Ставки копятся, но ещё не списаны
	if !f.balance(t, 1).Equal(dec("20")) {
		t.Errorf("balance before spin = %s", f.balance(t, 1))
	}

	f.src.ints = []int{3} // сектор 3 — красный
	st, err := f.svc.SpinDouble(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Stake.Equal(dec("15")) || !st.Payout.Equal(dec("20")) {
		t.Fatalf("settlement = %+v", st)
	}
	if !f.balance(t, 1).Equal(dec("25")) {
		t.Errorf("balance = %s, want 25", f.balance(t, 1))
	}
	if out := st.Detail.(*DoubleOutcome); out.Color != "red" || out.Pocket != 3 {
		t.Errorf("outcome = %+v", out)
	}

	if _, err := f.svc.SpinDouble(ctx, 1); !errors.Is(err, common.ErrNoOpenRound) {
		t.Errorf("spin without stakes err = %v", err)
	}
}

func TestDoubleZeroPaysFourteen(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	if _, err := f.svc.PlaceStake(ctx, 1, "fortune-double", "jade", dec("2")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.PlaceStake(ctx, 1, "fortune-double", "gold", dec("3")); err != nil {
		t.Fatal(err)
	}
	f.src.ints = []int{0}
	st, err := f.svc.SpinDouble(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Payout.Equal(dec("28")) || st.Result != history.ResultWin {
		t.Fatalf("settlement = %+v", st)
	}
	if !f.balance(t, 1).Equal(dec("123")) {
		t.Errorf("balance = %s, want 123", f.balance(t, 1))
	}
}

func TestDoubleClearStakes(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	if err := f.svc.ClearStakes(ctx, 1); !errors.Is(err, common.ErrNoOpenRound) {
		t.Errorf("clear without stakes err = %v", err)
	}
	if _, err := f.svc.PlaceStake(ctx, 1, "double", "black", dec("40")); err != nil {
		t.Fatal(err)
	}
	// Пока купон открыт, другие игры ждут
	if _, err := f.svc.RollDice(ctx, 1, dec("1"), dec("50")); !errors.Is(err, common.ErrReentrantRound) {
		t.Errorf("dice during double err = %v", err)
	}
	if err := f.svc.ClearStakes(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.RollDice(ctx, 1, dec("1"), dec("50")); err != nil {
		t.Errorf("dice after clear: %v", err)
	}
}

func TestSettleRefundsOnPanic(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	l, _ := f.accounts.Ledger(ctx, 1)
	tbl, err := f.svc.table(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}

	tbl.mu.Lock()
	sess, err := tbl.begin(KindDice, diceGameID, dec("10"), false)
	if err != nil {
		tbl.mu.Unlock()
		t.Fatal(err)
	}
	if err := f.svc.commit(tbl, l, sess, "Ставка: дайс"); err != nil {
		tbl.mu.Unlock()
		t.Fatal(err)
	}
	if !l.Balance().Equal(dec("90")) {
		t.Errorf("stake not debited: %s", l.Balance())
	}
	st := f.svc.settle(ctx, tbl, l, sess, func() (outcome, error) {
		panic("outcome table corrupted")
	})
	tbl.mu.Unlock()

	if !st.Refunded || st.Result != history.ResultRefund || !st.Payout.Equal(dec("10")) {
		t.Fatalf("settlement = %+v", st)
	}
	if !l.Balance().Equal(dec("100")) {
		t.Errorf("balance = %s, want 100", l.Balance())
	}
	if sess.State != StateSettled {
		t.Errorf("state = %s", sess.State)
	}
	recs, _ := f.svc.History(ctx, 1, 1)
	if len(recs) != 1 || recs[0].Result != history.ResultRefund {
		t.Errorf("history = %+v", recs)
	}
	if round, _ := f.svc.ActiveRound(ctx, 1); round != nil {
		t.Error("refunded round still on the table")
	}
}

func TestSettleRefundsNegativePayout(t *testing.T) {
	f := newFixture(t, 50)
	ctx := context.Background()

	l, _ := f.accounts.Ledger(ctx, 1)
	tbl, _ := f.svc.table(ctx, 1)

	tbl.mu.Lock()
	sess, _ := tbl.begin(KindDice, diceGameID, dec("5"), false)
	_ = f.svc.commit(tbl, l, sess, "Ставка: дайс")
	st := f.svc.settle(ctx, tbl, l, sess, func() (outcome, error) {
		return outcome{payout: dec("-1")}, nil
	})
	tbl.mu.Unlock()

	if !st.Refunded || !l.Balance().Equal(dec("50")) {
		t.Errorf("settlement = %+v, balance %s", st, l.Balance())
	}
}

func TestBalanceConservation(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()
	f.src.loop = []int{1, 2, 3, 4, 5, 6, 2, 3, 4, 7, 11, 0, 13}

	staked, paid := decimal.Zero, decimal.Zero
	record := func(st *Settlement, err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		staked = staked.Add(st.Stake)
		paid = paid.Add(st.Payout)
	}

	for i := 0; i < 20; i++ {
		f.src.floats = []float64{float64(i) / 20}
		record(f.svc.RollDice(ctx, 1, dec("3"), dec("40")))
		record(f.svc.SpinSlots(ctx, 1, "fortune-tiger", dec("2")))
	}

	want := dec("1000").Sub(staked).Add(paid)
	if got := f.balance(t, 1); !got.Equal(want) {
		t.Errorf("balance = %s, want 1000 - %s + %s = %s", got, staked, paid, want)
	}

	stats, _ := f.svc.Stats(ctx, 1)
	if stats.Plays != 40 {
		t.Errorf("plays = %d, want 40", stats.Plays)
	}
	if f.notes.count() != 40 || len(f.rounds.saved()) != 40 {
		t.Errorf("notes %d, saved %d, want 40 each", f.notes.count(), len(f.rounds.saved()))
	}
}

func TestRTPReport(t *testing.T) {
	f := newFixture(t, 100)
	f.src.floats = []float64{0.1}
	if _, err := f.svc.RollDice(context.Background(), 1, dec("10"), dec("49.5")); err != nil {
		t.Fatal(err)
	}

	report := f.svc.RTP().Report()
	if len(report) != 1 || report[0].Kind != KindDice || report[0].Percent != 200 {
		t.Errorf("report = %+v", report)
	}
	if CalculateRTP(decimal.Zero, dec("5")) != 0 {
		t.Error("RTP without wagers must be 0")
	}
}

func TestHistoryLoadedFromStore(t *testing.T) {
	f := newFixture(t, 100)
	f.rounds.stats = history.Stats{Plays: 12, Wins: 5}

	stats, err := f.svc.Stats(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Plays != 12 || stats.Wins != 5 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestListenersSeeOpenedGames(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	_, _ = f.svc.RollDice(ctx, 1, dec("1"), dec("50"))
	_, _ = f.svc.RollDice(ctx, 1, dec("1"), dec("99")) // отклонено до начала раунда

	if len(f.opened.games) != 1 || f.opened.games[0] != "dice" {
		t.Errorf("opened = %v", f.opened.games)
	}
}

func TestRejectedStakesDoNotOpenGames(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	if _, err := f.svc.RollDice(ctx, 1, dec("10"), dec("50")); !errors.Is(err, common.ErrInsufficientFunds) {
		t.Fatalf("RollDice: %v", err)
	}
	for range 5 {
		if _, err := f.svc.DropPlinko(ctx, 1, dec("1"), "low", 8, nil); !errors.Is(err, common.ErrInsufficientFunds) {
			t.Fatalf("DropPlinko: %v", err)
		}
	}
	if _, err := f.svc.StartMines(ctx, 1, dec("10"), 4); !errors.Is(err, common.ErrInsufficientFunds) {
		t.Fatalf("StartMines: %v", err)
	}
	if _, err := f.svc.SpinSlots(ctx, 1, "fortune-ox", dec("1")); !errors.Is(err, common.ErrInsufficientFunds) {
		t.Fatalf("SpinSlots: %v", err)
	}

	if len(f.opened.games) != 0 {
		t.Errorf("rejected stakes opened %v", f.opened.games)
	}
	if round, err := f.svc.ActiveRound(ctx, 1); err != nil || round != nil {
		t.Errorf("round left open after rejection: %+v, %v", round, err)
	}
}

func TestDoubleOpensOnSpin(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	if _, err := f.svc.PlaceStake(ctx, 1, "double", "red", dec("10")); err != nil {
		t.Fatal(err)
	}
	if len(f.opened.games) != 0 {
		t.Fatalf("stake without spin opened %v", f.opened.games)
	}
	if _, err := f.svc.SpinDouble(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if len(f.opened.games) != 1 || f.opened.games[0] != "double" {
		t.Errorf("opened = %v", f.opened.games)
	}
}

func TestEvictedTableIsReplaced(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	if _, err := f.svc.RollDice(ctx, 1, dec("1"), dec("50")); err != nil {
		t.Fatal(err)
	}
	stale, err := f.svc.table(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if n := f.svc.EvictIdle(0); n != 1 {
		t.Fatalf("evicted %d, want 1", n)
	}

	// Вызывающий, который успел взять стол до выгрузки, не начнёт на нём раунд
	stale.mu.Lock()
	_, err = stale.begin(KindDice, diceGameID, dec("1"), false)
	stale.mu.Unlock()
	if !errors.Is(err, errTableEvicted) {
		t.Fatalf("begin on evicted table: %v", err)
	}

	fresh, err := f.svc.lockTable(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	fresh.mu.Unlock()
	if fresh == stale {
		t.Fatal("lockTable returned the evicted table")
	}

	if _, err := f.svc.RollDice(ctx, 1, dec("1"), dec("50")); err != nil {
		t.Fatalf("RollDice after eviction: %v", err)
	}
	if _, err := f.svc.SpinSlots(ctx, 1, "fortune-ox", dec("1")); err != nil {
		t.Fatalf("SpinSlots after eviction: %v", err)
	}
	if stale.session != nil || len(stale.log.Recent(10)) != 1 {
		t.Error("rounds after eviction landed on the evicted table")
	}
}

func TestEvictIdleSkipsBusyPlayers(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	_, _ = f.svc.RollDice(ctx, 1, dec("1"), dec("50"))
	if _, err := f.svc.StartMines(ctx, 2, dec("1"), 3); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)

	if n := f.svc.EvictIdle(time.Millisecond); n != 1 {
		t.Errorf("evicted %d, want 1", n)
	}
	if !f.svc.Busy(2) {
		t.Error("player with open mines must stay busy")
	}
	if _, err := f.svc.MinesState(ctx, 2); err != nil {
		t.Errorf("mines round lost after eviction: %v", err)
	}
}
