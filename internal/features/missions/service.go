// Package missions — service.go считает открытия игр и выдаёт награды:
// миссию плинко, ежедневный бонус и бонус за первую ставку.
// Прогресс хранится в памяти и пишется в базу через очередь записи.
package missions

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"serotonyl.ru/minicasino/internal/common"
	"serotonyl.ru/minicasino/internal/config"
	"serotonyl.ru/minicasino/internal/features/economy"
)

// Store — хранилище прогресса.
type Store interface {
	// GetProgress возвращает прогресс игрока; нет записи — пустой прогресс.
	GetProgress(ctx context.Context, userID int64) (*Progress, error)
	SaveProgress(ctx context.Context, p Progress) error
}

// Accounts — реестр балансов.
type Accounts interface {
	Ledger(ctx context.Context, userID int64) (*economy.Ledger, error)
}

// Notifier — почта игрока.
type Notifier interface {
	Notify(ctx context.Context, userID int64, category, title, body string)
}

// Service — трекер миссий и бонусов.
type Service struct {
	cfg      *config.Config
	store    Store
	accounts Accounts
	writer   economy.Writer
	notifier Notifier

	mu      sync.Mutex
	entries map[int64]*entry
	loads   singleflight.Group

	now func() time.Time
}

// entry — прогресс одного игрока. Изменения идут под entry.mu,
// touched читается задачей выгрузки без этой блокировки.
type entry struct {
	mu      sync.Mutex
	p       Progress
	touched atomic.Int64
}

// NewService создаёт трекер. store, writer и notifier могут быть nil.
func NewService(cfg *config.Config, store Store, accounts Accounts, writer economy.Writer, notifier Notifier) *Service {
	return &Service{
		cfg:      cfg,
		store:    store,
		accounts: accounts,
		writer:   writer,
		notifier: notifier,
		entries:  make(map[int64]*entry),
		now:      time.Now,
	}
}

// load возвращает прогресс игрока из памяти или из хранилища.
func (s *Service) load(ctx context.Context, userID int64) (*entry, error) {
	s.mu.Lock()
	e, ok := s.entries[userID]
	s.mu.Unlock()
	if ok {
		return e, nil
	}

	v, err, _ := s.loads.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		s.mu.Lock()
		if e, ok := s.entries[userID]; ok {
			s.mu.Unlock()
			return e, nil
		}
		s.mu.Unlock()

		e := &entry{p: Progress{UserID: userID}}
		if s.store != nil {
			stored, err := s.store.GetProgress(ctx, userID)
			if err != nil {
				return nil, fmt.Errorf("ошибка загрузки миссий: %w", err)
			}
			e.p = *stored
		}
		e.touched.Store(s.now().UnixNano())

		s.mu.Lock()
		s.entries[userID] = e
		s.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entry), nil
}

// Progress возвращает копию прогресса игрока.
func (s *Service) Progress(ctx context.Context, userID int64) (Progress, error) {
	e, err := s.load(ctx, userID)
	if err != nil {
		return Progress{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.p, nil
}

// GameOpened учитывает начало раунда. Открытия плинко идут в миссию,
// пока она не выполнена; дальше миссия их не замечает.
func (s *Service) GameOpened(ctx context.Context, userID int64, gameID string) {
	e, err := s.load(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Открытие игры не учтено в миссиях")
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p := &e.p
	p.RoundsStarted++
	if gameID == MissionGameID && !p.Completed {
		p.PlinkoPlays++
		if p.PlinkoPlays >= s.cfg.RewardMissionPlays {
			p.Completed = true
			log.WithField("user_id", userID).Info("Миссия плинко выполнена")
		}
	}
	s.persist(e)
}

// ClaimMission выдаёт награду за миссию плинко. Один раз на игрока.
func (s *Service) ClaimMission(ctx context.Context, userID int64) (decimal.Decimal, error) {
	reward := decimal.NewFromInt(s.cfg.RewardMissionBonus)
	return s.award(ctx, userID, reward, economy.TxTypeMissionReward, "Миссия: плинко", func(p *Progress, _ time.Time) error {
		if p.Claimed {
			return fmt.Errorf("%w: миссия плинко", common.ErrMissionClaimed)
		}
		if !p.Completed {
			return fmt.Errorf("%w: сыграно %d из %d", common.ErrMissionIncomplete, p.PlinkoPlays, s.cfg.RewardMissionPlays)
		}
		p.Claimed = true
		return nil
	})
}

// ClaimDaily выдаёт ежедневный бонус. Окно скользящее: следующий бонус
// доступен через REWARD_DAILY_COOLDOWN после предыдущего.
func (s *Service) ClaimDaily(ctx context.Context, userID int64) (decimal.Decimal, error) {
	reward := decimal.NewFromInt(s.cfg.RewardDailyBonus)
	return s.award(ctx, userID, reward, economy.TxTypeDailyBonus, "Ежедневный бонус", func(p *Progress, now time.Time) error {
		if next := p.NextDaily(s.cfg.RewardDailyCooldown); now.Before(next) {
			return fmt.Errorf("%w: через %s", common.ErrBonusCooldown, common.FormatDuration(next.Sub(now)))
		}
		p.DailyClaimedAt = &now
		return nil
	})
}

// ClaimFirstBet выдаёт бонус за первую ставку. Нужен хотя бы один начатый раунд.
func (s *Service) ClaimFirstBet(ctx context.Context, userID int64) (decimal.Decimal, error) {
	reward := decimal.NewFromInt(s.cfg.RewardFirstBetBonus)
	return s.award(ctx, userID, reward, economy.TxTypeFirstBetBonus, "Бонус за первую ставку", func(p *Progress, _ time.Time) error {
		if p.FirstBetClaimed {
			return fmt.Errorf("%w: бонус за первую ставку", common.ErrBonusClaimed)
		}
		if p.RoundsStarted == 0 {
			return fmt.Errorf("%w: сначала сыграйте любой раунд", common.ErrMissionIncomplete)
		}
		p.FirstBetClaimed = true
		return nil
	})
}

// award проверяет условие, начисляет награду и отмечает её в прогрессе.
// Проверка и начисление идут под одной блокировкой: двойной выдачи нет.
func (s *Service) award(ctx context.Context, userID int64, reward decimal.Decimal, txType, title string, claim func(p *Progress, now time.Time) error) (decimal.Decimal, error) {
	e, err := s.load(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	l, err := s.accounts.Ledger(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	e.mu.Lock()
	before := e.p
	if err := claim(&e.p, s.now()); err != nil {
		e.mu.Unlock()
		return decimal.Zero, err
	}
	balance, err := l.Credit(reward, txType, title)
	if err != nil {
		e.p = before
		e.mu.Unlock()
		return decimal.Zero, err
	}
	s.persist(e)
	e.mu.Unlock()

	log.WithFields(log.Fields{
		"user_id": userID,
		"type":    txType,
		"amount":  reward.StringFixed(2),
	}).Info("Награда выдана")

	if s.notifier != nil {
		s.notifier.Notify(ctx, userID, "bonus", title, "+"+common.FormatBalance(reward))
	}
	return balance, nil
}

// persist ставит снимок прогресса в очередь записи. Вызывается под e.mu,
// поэтому снимки одного игрока пишутся в порядке изменений.
func (s *Service) persist(e *entry) {
	now := s.now()
	e.p.UpdatedAt = now
	e.touched.Store(now.UnixNano())
	if s.store == nil || s.writer == nil {
		return
	}
	snapshot := e.p
	s.writer.Enqueue("mission_progress", func(ctx context.Context) error {
		return s.store.SaveProgress(ctx, snapshot)
	})
}

// EvictIdle выгружает прогресс, не менявшийся дольше maxIdle.
// Выгрузка встаёт в очередь после уже поставленных записей; если прогресс
// за это время изменился, он остаётся в памяти.
func (s *Service) EvictIdle(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle).UnixNano()

	type idle struct {
		userID int64
		e      *entry
		seen   int64
	}
	var list []idle
	s.mu.Lock()
	for userID, e := range s.entries {
		if seen := e.touched.Load(); seen < cutoff {
			list = append(list, idle{userID: userID, e: e, seen: seen})
		}
	}
	s.mu.Unlock()

	for _, it := range list {
		drop := func(context.Context) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			if cur, ok := s.entries[it.userID]; ok && cur == it.e && it.e.touched.Load() == it.seen {
				delete(s.entries, it.userID)
			}
			return nil
		}
		if s.writer == nil {
			_ = drop(context.Background())
			continue
		}
		s.writer.Enqueue("evict_missions", drop)
	}
	return len(list)
}
