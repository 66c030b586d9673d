// Package casino — service.go держит столы игроков и проводит раунды
// от ставки до расчёта: проверка, списание, розыгрыш, выплата, история.
package casino

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"serotonyl.ru/minicasino/internal/common"
	"serotonyl.ru/minicasino/internal/config"
	"serotonyl.ru/minicasino/internal/features/casino/plinko"
	"serotonyl.ru/minicasino/internal/features/casino/rng"
	"serotonyl.ru/minicasino/internal/features/economy"
	"serotonyl.ru/minicasino/internal/features/history"
)

// Accounts — реестр балансов игроков.
type Accounts interface {
	Ledger(ctx context.Context, userID int64) (*economy.Ledger, error)
	EvictIdle(maxIdle time.Duration, busy func(userID int64) bool) int
}

// RoundStore — хранилище истории раундов.
type RoundStore interface {
	// LoadHistory возвращает последние limit записей (от старых к новым) и счётчики.
	LoadHistory(ctx context.Context, userID int64, limit int) ([]history.Record, history.Stats, error)
	// SaveRound пишет раунд и обновляет статистику игрока.
	SaveRound(ctx context.Context, row RoundRow) error
}

// Listener получает событие открытия игры (миссии считают плинко).
type Listener interface {
	GameOpened(ctx context.Context, userID int64, gameID string)
}

// Notifier — почта игрока. Вызывается один раз на каждый рассчитанный раунд.
type Notifier interface {
	Notify(ctx context.Context, userID int64, category, title, body string)
}

// Service — движок казино.
type Service struct {
	cfg      *config.Config
	rules    *rules
	accounts Accounts
	store    RoundStore
	writer   economy.Writer
	src      rng.Source
	notifier Notifier
	rtp      *RTPMeter

	listeners []Listener

	mu     sync.Mutex
	tables map[int64]*table
	loads  singleflight.Group

	// drop подменяется в тестах, чтобы выбрать лунку плинко
	drop func(b *plinko.Board, src rng.Source, observe func(plinko.Frame)) (int, error)
}

// NewService создаёт движок. store, writer и notifier могут быть nil.
func NewService(cfg *config.Config, accounts Accounts, store RoundStore, writer economy.Writer, src rng.Source, notifier Notifier) *Service {
	if src == nil {
		src = rng.Default()
	}
	return &Service{
		cfg:      cfg,
		rules:    newRules(cfg.Games, cfg.CasinoFractionalStakes),
		accounts: accounts,
		store:    store,
		writer:   writer,
		src:      src,
		notifier: notifier,
		rtp:      NewRTPMeter(),
		tables:   make(map[int64]*table),
		drop: func(b *plinko.Board, src rng.Source, observe func(plinko.Frame)) (int, error) {
			return b.Drop(src, observe)
		},
	}
}

// Subscribe добавляет слушателя событий. Вызывать до начала игры.
func (s *Service) Subscribe(l Listener) {
	s.listeners = append(s.listeners, l)
}

// RTP возвращает счётчик фактической отдачи по играм.
func (s *Service) RTP() *RTPMeter { return s.rtp }

// Catalog возвращает список игр лобби.
func (s *Service) Catalog() []config.CatalogEntry {
	return s.rules.games.Catalog
}

// Game ищет игру каталога нужного типа.
func (s *Service) Game(gameID string, kind GameKind) (config.CatalogEntry, error) {
	g, ok := s.rules.games.Game(gameID)
	if !ok || GameKind(g.Kind) != kind {
		return config.CatalogEntry{}, fmt.Errorf("%w: неизвестная игра %q", common.ErrInvalidConfiguration, gameID)
	}
	return g, nil
}

// MinStake — минимальная ставка игры.
func (s *Service) MinStake(kind GameKind) decimal.Decimal {
	return s.rules.minStakeFor(kind)
}

// History возвращает n последних раундов игрока, новые первыми.
func (s *Service) History(ctx context.Context, userID int64, n int) ([]history.Record, error) {
	t, err := s.table(ctx, userID)
	if err != nil {
		return nil, err
	}
	return t.log.Recent(n), nil
}

// Stats возвращает счётчики игр и побед игрока.
func (s *Service) Stats(ctx context.Context, userID int64) (history.Stats, error) {
	t, err := s.table(ctx, userID)
	if err != nil {
		return history.Stats{}, err
	}
	return t.log.Stats(), nil
}

// table возвращает стол игрока, загружая историю при первом обращении.
func (s *Service) table(ctx context.Context, userID int64) (*table, error) {
	s.mu.Lock()
	t, ok := s.tables[userID]
	s.mu.Unlock()
	if ok {
		return t, nil
	}

	v, err, _ := s.loads.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		s.mu.Lock()
		if t, ok := s.tables[userID]; ok {
			s.mu.Unlock()
			return t, nil
		}
		s.mu.Unlock()

		var (
			records []history.Record
			stats   history.Stats
		)
		if s.store != nil {
			var err error
			records, stats, err = s.store.LoadHistory(ctx, userID, s.cfg.CasinoHistoryLimit)
			if err != nil {
				return nil, fmt.Errorf("ошибка загрузки истории: %w", err)
			}
		}
		t := newTable(userID, history.NewLog(s.cfg.CasinoHistoryLimit, records, stats))

		s.mu.Lock()
		s.tables[userID] = t
		s.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*table), nil
}

// lockTable возвращает стол игрока под t.mu. Если стол выгрузили, пока
// вызывающий ждал блокировку, берётся свежий из реестра.
func (s *Service) lockTable(ctx context.Context, userID int64) (*table, error) {
	for {
		t, err := s.table(ctx, userID)
		if err != nil {
			return nil, err
		}
		t.mu.Lock()
		if !t.evicted {
			return t, nil
		}
		t.mu.Unlock()
	}
}

// open сообщает слушателям, что игрок открыл игру.
// Вызывается только после списания ставки.
func (s *Service) open(ctx context.Context, userID int64, gameID string) {
	for _, l := range s.listeners {
		l.GameOpened(ctx, userID, gameID)
	}
}

// outcome — итог розыгрыша, посчитанный конкретной игрой.
type outcome struct {
	payout decimal.Decimal
	win    bool
	bet    decimal.Decimal // Ставка для истории со знаком
	info   string
	detail any
}

// commit списывает ставку раунда и переводит его в Drawing.
// При ошибке раунд снимается со стола, баланс не меняется.
func (s *Service) commit(t *table, l *economy.Ledger, sess *RoundSession, description string) error {
	if sess.Stake.IsPositive() {
		if _, err := l.Debit(sess.Stake, economy.TxTypeCasinoBet, description); err != nil {
			t.release(sess)
			return err
		}
	}
	if err := sess.advance(StateDrawing); err != nil {
		// Ставка уже списана: раунд всё равно будет рассчитан с возвратом.
		log.WithError(err).WithField("round_id", sess.ID).Error("Ошибка перехода раунда")
		sess.State = StateDrawing
	}
	return nil
}

// settle рассчитывает раунд: выплата, запись в историю, уведомление.
// Ошибка или паника при расчёте возвращает игроку всю ставку.
// Вызывается под t.mu.
func (s *Service) settle(ctx context.Context, t *table, l *economy.Ledger, sess *RoundSession, compute func() (outcome, error)) *Settlement {
	out, err := safeCompute(compute)
	if err == nil && out.payout.IsNegative() {
		err = fmt.Errorf("отрицательная выплата %s", out.payout)
	}

	st := &Settlement{
		RoundID: sess.ID,
		GameID:  sess.GameID,
		Kind:    sess.Kind,
		Stake:   sess.Stake,
	}

	var balance decimal.Decimal
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id":  t.userID,
			"round_id": sess.ID,
			"game":     sess.GameID,
			"stake":    sess.Stake.StringFixed(2),
		}).Error("Ошибка расчёта раунда, ставка возвращена")

		balance, _ = l.Credit(sess.Stake, economy.TxTypeCasinoRefund, "Возврат ставки: "+sess.GameID)
		st.Payout = sess.Stake
		st.Result = history.ResultRefund
		st.Refunded = true
		st.Summary = "Раунд не удалось рассчитать, ставка возвращена"
		out = outcome{bet: sess.Stake, info: st.Summary}
	} else {
		balance, err = l.Credit(out.payout, economy.TxTypeCasinoWin, "Выигрыш: "+sess.GameID)
		if err != nil {
			log.WithError(err).WithField("round_id", sess.ID).Error("Ошибка начисления выигрыша")
		}
		st.Payout = out.payout
		st.Result = history.ResultLoss
		if out.win {
			st.Result = history.ResultWin
		}
		st.Summary = out.info
		st.Detail = out.detail
	}
	st.BalanceAfter = balance

	if sess.State != StateSettled {
		if err := sess.advance(StateSettled); err != nil {
			log.WithError(err).Warn("Раунд закрыт из недопустимого состояния")
			sess.State = StateSettled
		}
	}
	t.release(sess)

	rec := history.Record{
		RoundID:      sess.ID,
		GameID:       sess.GameID,
		Bet:          out.bet,
		Result:       st.Result,
		Info:         out.info,
		Time:         time.Now(),
		BalanceAfter: balance,
	}
	if err := t.log.Append(rec); err != nil {
		log.WithError(err).WithField("round_id", sess.ID).Error("Раунд не записан в историю")
	}
	s.rtp.Record(sess.Kind, sess.Stake, st.Payout)
	s.persistRound(t.userID, sess, rec, st)
	s.notifyRound(ctx, t.userID, st)

	log.WithFields(log.Fields{
		"user_id": t.userID,
		"game":    sess.GameID,
		"stake":   sess.Stake.StringFixed(2),
		"payout":  st.Payout.StringFixed(2),
		"result":  st.Result,
	}).Debug("Раунд рассчитан")
	return st
}

func (s *Service) persistRound(userID int64, sess *RoundSession, rec history.Record, st *Settlement) {
	if s.store == nil || s.writer == nil {
		return
	}
	row := RoundRow{
		UserID: userID,
		Kind:   sess.Kind,
		Record: rec,
		Stake:  st.Stake,
		Payout: st.Payout,
		Detail: st.Detail,
	}
	s.writer.Enqueue("casino_round", func(ctx context.Context) error {
		return s.store.SaveRound(ctx, row)
	})
}

func (s *Service) notifyRound(ctx context.Context, userID int64, st *Settlement) {
	if s.notifier == nil {
		return
	}
	title := "Проигрыш"
	switch st.Result {
	case history.ResultWin:
		title = "Выигрыш " + common.FormatBalance(st.Payout)
	case history.ResultRefund:
		title = "Возврат ставки"
	}
	s.notifier.Notify(ctx, userID, "game", fmt.Sprintf("%s: %s", st.GameID, title), st.Summary)
}

func safeCompute(compute func() (outcome, error)) (out outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника при расчёте: %v\n%s", r, debug.Stack())
		}
	}()
	return compute()
}

// wait — пауза анимации. Отмена ctx пропускает паузу, но не раунд:
// начатый раунд всё равно рассчитывается.
func wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// EvictIdle выгружает столы без раундов, простоявшие дольше maxIdle,
// и балансы таких игроков. Возвращает число выгруженных счетов.
func (s *Service) EvictIdle(maxIdle time.Duration) int {
	now := time.Now()

	s.mu.Lock()
	for userID, t := range s.tables {
		if t.evictIfIdle(now, maxIdle) {
			delete(s.tables, userID)
		}
	}
	s.mu.Unlock()

	evicted := s.accounts.EvictIdle(maxIdle, s.Busy)
	if evicted > 0 {
		log.WithField("count", evicted).Info("Выгружены неактивные счета")
	}
	return evicted
}

// Busy — есть ли у игрока раунд в полёте.
func (s *Service) Busy(userID int64) bool {
	s.mu.Lock()
	t, ok := s.tables[userID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.busy()
}

// ActiveRound возвращает текущий раунд игрока (кроме шариков плинко).
func (s *Service) ActiveRound(ctx context.Context, userID int64) (*RoundSession, error) {
	t, err := s.table(ctx, userID)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil {
		return nil, nil
	}
	cp := *t.session
	return &cp, nil
}

// ballsInFlight — сколько шариков плинко сейчас падает у игрока.
func (s *Service) ballsInFlight(userID int64) int {
	s.mu.Lock()
	t, ok := s.tables[userID]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.balls)
}
