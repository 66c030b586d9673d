package casino

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/minicasino/internal/common"
	"serotonyl.ru/minicasino/internal/config"
	"serotonyl.ru/minicasino/internal/features/casino/payout"
	"serotonyl.ru/minicasino/internal/features/casino/rng"
	"serotonyl.ru/minicasino/internal/features/economy"
)

// SpinSlots крутит слот gameID со ставкой stake. Пока есть фриспины,
// спин бесплатный и идёт по ставке спина, запустившего бонус; stake не смотрится.
func (s *Service) SpinSlots(ctx context.Context, userID int64, gameID string, stake decimal.Decimal) (*Settlement, error) {
	game, err := s.Game(gameID, KindSlots)
	if err != nil {
		return nil, err
	}
	l, err := s.accounts.Ledger(ctx, userID)
	if err != nil {
		return nil, err
	}
	for {
		t, err := s.table(ctx, userID)
		if err != nil {
			return nil, err
		}
		st, err := s.spinSlots(ctx, t, l, game, stake, false)
		if !errors.Is(err, errTableEvicted) {
			return st, err
		}
	}
}

// FreeSpins — сколько фриспинов осталось в теме.
func (s *Service) FreeSpins(ctx context.Context, userID int64, gameID string) (int, error) {
	t, err := s.table(ctx, userID)
	if err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.freeSpins[gameID], nil
}

func (s *Service) spinSlots(ctx context.Context, t *table, l *economy.Ledger, game config.CatalogEntry, stake decimal.Decimal, byAuto bool) (*Settlement, error) {
	symbols := s.rules.slotThemes[game.Theme]
	st := s.rules.games.Slots

	t.mu.Lock()
	free := t.freeSpins[game.ID] > 0
	debit := stake
	if free {
		stake = t.freeSpinStake[game.ID]
		debit = decimal.Zero
	} else if err := s.rules.validateStake(KindSlots, stake); err != nil {
		t.mu.Unlock()
		return nil, err
	}

	sess, err := t.begin(KindSlots, game.ID, debit, byAuto)
	if err != nil {
		t.mu.Unlock()
		return nil, err
	}
	if err := s.commit(t, l, sess, "Ставка: "+game.Title); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	s.open(ctx, t.userID, game.ID)
	if free {
		t.freeSpins[game.ID]--
		if t.freeSpins[game.ID] == 0 {
			delete(t.freeSpinStake, game.ID)
		}
	} else {
		t.bets[game.ID] = stake
	}

	grid := rng.Grid(s.src, len(symbols))
	randomMult := 1
	if !free && rng.Chance(s.src, st.RandomMultiplierChance) {
		randomMult = st.RandomMultipliers[s.src.IntN(len(st.RandomMultipliers))]
	}
	t.mu.Unlock()

	wait(ctx, s.cfg.SlotsSpinDelay)

	t.mu.Lock()
	defer t.mu.Unlock()
	return s.settle(ctx, t, l, sess, func() (outcome, error) {
		spin := payout.SlotsSpin{
			Stake:            stake,
			Paylines:         st.Paylines,
			LineDivisor:      s.rules.lineDivisor,
			BonusMode:        free,
			BonusMultiplier:  st.BonusMultiplier,
			RandomMultiplier: randomMult,
		}
		detail := &SlotsOutcome{Theme: game.Theme, FreeSpin: free}
		for i, idx := range grid {
			if idx < 0 || idx >= len(symbols) {
				return outcome{}, fmt.Errorf("%w: символ %d", common.ErrOutcomeGenerator, idx)
			}
			spin.Grid[i] = symbols[idx]
			detail.Grid[i] = symbols[idx].Icon
		}

		res := payout.Slots(spin)
		detail.Lines = res.Lines
		detail.Multiplier = res.Multiplier
		detail.BonusSymbols = res.BonusSymbols
		for _, line := range res.Lines {
			detail.WinningLineIDs = append(detail.WinningLineIDs, line.Line+1)
		}
		if !free && s.rules.slotBonus[game.Theme] && res.BonusSymbols >= st.BonusTrigger {
			detail.FreeSpinsWon = st.FreeSpins
			t.freeSpins[game.ID] += st.FreeSpins
			t.freeSpinStake[game.ID] = stake
		}
		detail.FreeSpinsLeft = t.freeSpins[game.ID]

		out := outcome{
			payout: res.Total,
			win:    res.Total.IsPositive(),
			detail: detail,
		}
		if out.win {
			out.bet = stake
			out.info = fmt.Sprintf("%s → +%s", slotLines(res), common.FormatAmount(res.Total))
		} else {
			out.bet = stake.Neg()
			out.info = "Без комбинации"
		}
		if free {
			out.info = "Фриспин • " + out.info
		}
		if detail.FreeSpinsWon > 0 {
			out.info += fmt.Sprintf(" • %d фриспинов", detail.FreeSpinsWon)
		}
		return out, nil
	}), nil
}

func slotLines(res payout.SlotsResult) string {
	parts := make([]string, 0, len(res.Lines))
	for _, line := range res.Lines {
		parts = append(parts, fmt.Sprintf("Линия %d %s", line.Line+1, strings.Repeat(line.Symbol.Icon, 3)))
	}
	s := strings.Join(parts, ", ")
	if res.Multiplier > 1 {
		s += fmt.Sprintf(" x%d", res.Multiplier)
	}
	return s
}

// autoRun — запущенная автоигра. Она владеет столом, пока не остановится.
type autoRun struct {
	gameID string
	stop   atomic.Bool
	done   chan struct{}
}

// AutoPlayHooks — куда автоигра сообщает о спинах и остановке.
type AutoPlayHooks struct {
	OnSpin func(st *Settlement)
	// OnStop получает число сыгранных спинов и причину: nil — остановлено
	// игроком или закончились раунды, иначе ошибка (например, нет кредитов).
	OnStop func(rounds int, reason error)
}

// StartAutoPlay запускает автоигру в слоте. Спины идут с паузой, каждый
// платный спин списывает stake заново. Автоигра заканчивается по !стоп на
// границе раундов, при нехватке кредитов, по отмене ctx или после
// CASINO_AUTOPLAY_MAX_ROUNDS спинов. Фриспины докручиваются, если не остановить.
func (s *Service) StartAutoPlay(ctx context.Context, userID int64, gameID string, stake decimal.Decimal, hooks AutoPlayHooks) error {
	game, err := s.Game(gameID, KindSlots)
	if err != nil {
		return err
	}
	if err := s.rules.validateStake(KindSlots, stake); err != nil {
		return err
	}
	l, err := s.accounts.Ledger(ctx, userID)
	if err != nil {
		return err
	}
	t, err := s.table(ctx, userID)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.busy() {
		t.mu.Unlock()
		return fmt.Errorf("%w: сначала дождитесь конца раунда", common.ErrReentrantRound)
	}
	run := &autoRun{gameID: gameID, done: make(chan struct{})}
	t.auto = run
	t.mu.Unlock()

	log.WithFields(log.Fields{"user_id": userID, "game": gameID}).Info("Автоигра запущена")
	go s.autoPlay(ctx, t, l, game, stake, run, hooks)
	return nil
}

func (s *Service) autoPlay(ctx context.Context, t *table, l *economy.Ledger, game config.CatalogEntry, stake decimal.Decimal, run *autoRun, hooks AutoPlayHooks) {
	rounds := 0
	var reason error

	defer func() {
		t.mu.Lock()
		if t.auto == run {
			t.auto = nil
		}
		t.mu.Unlock()
		close(run.done)

		log.WithFields(log.Fields{
			"user_id": t.userID,
			"game":    game.ID,
			"rounds":  rounds,
		}).Info("Автоигра остановлена")
		if hooks.OnStop != nil {
			hooks.OnStop(rounds, reason)
		}
	}()

	for {
		if run.stop.Load() {
			return
		}
		if err := ctx.Err(); err != nil {
			reason = err
			return
		}

		st, err := s.spinSlots(ctx, t, l, game, stake, true)
		if err != nil {
			reason = err
			return
		}
		rounds++
		if hooks.OnSpin != nil {
			hooks.OnSpin(st)
		}

		t.mu.Lock()
		left := t.freeSpins[game.ID]
		t.mu.Unlock()
		if rounds >= s.cfg.AutoPlayMaxRounds && left == 0 {
			return
		}
		wait(ctx, s.cfg.AutoPlayPause)
	}
}

// StopAutoPlay просит автоигру остановиться. Текущий спин доигрывается.
// Возвращает канал, который закроется после остановки.
func (s *Service) StopAutoPlay(ctx context.Context, userID int64) (<-chan struct{}, error) {
	t, err := s.table(ctx, userID)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.auto == nil {
		return nil, fmt.Errorf("%w: автоигра не запущена", common.ErrNoOpenRound)
	}
	t.auto.stop.Store(true)
	return t.auto.done, nil
}

// StopAll останавливает все автоигры и ждёт их не дольше timeout.
// Вызывается при остановке приложения до закрытия очереди записи.
func (s *Service) StopAll(timeout time.Duration) {
	s.mu.Lock()
	tables := make([]*table, 0, len(s.tables))
	for _, t := range s.tables {
		tables = append(tables, t)
	}
	s.mu.Unlock()

	var waits []<-chan struct{}
	for _, t := range tables {
		t.mu.Lock()
		if t.auto != nil {
			t.auto.stop.Store(true)
			waits = append(waits, t.auto.done)
		}
		t.mu.Unlock()
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for _, done := range waits {
		select {
		case <-done:
		case <-deadline.C:
			log.WithField("left", len(waits)).Warn("Автоигры не успели остановиться")
			return
		}
	}
}
