// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ежечасная выгрузка неактивных
// игроков из памяти и ночная очистка истории раундов и почты.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// IdleEvictor выгружает неактивных игроков из памяти.
type IdleEvictor interface {
	EvictIdle(maxIdle time.Duration) int
}

// HistoryPruner удаляет раунды сверх лимита на игрока.
type HistoryPruner interface {
	PruneHistory(ctx context.Context, limit int) (int64, error)
}

// InboxPruner удаляет старые уведомления.
type InboxPruner interface {
	Prune(ctx context.Context) (int64, error)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron         *cron.Cron
	evictors     []IdleEvictor
	history      HistoryPruner
	inbox        InboxPruner
	maxIdle      time.Duration
	historyLimit int
}

// NewScheduler создаёт планировщик задач в часовом поясе timezone.
// history и inbox могут быть nil.
func NewScheduler(timezone string, maxIdle time.Duration, historyLimit int, history HistoryPruner, inbox InboxPruner, evictors ...IdleEvictor) *Scheduler {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.WithError(err).Warnf("Не удалось загрузить %s, используем UTC+3", timezone)
		loc = time.FixedZone("MSK", 3*60*60)
	}

	return &Scheduler{
		cron:         cron.New(cron.WithLocation(loc)),
		evictors:     evictors,
		history:      history,
		inbox:        inbox,
		maxIdle:      maxIdle,
		historyLimit: historyLimit,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) error {
	// Выгрузка неактивных игроков каждый час
	if _, err := s.cron.AddFunc("0 * * * *", s.EvictIdle); err != nil {
		return err
	}

	// Очистка истории и почты в 04:00
	if _, err := s.cron.AddFunc("0 4 * * *", func() { s.Prune(ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	log.Info("Планировщик задач запущен")
	return nil
}

// EvictIdle выгружает игроков, простоявших дольше maxIdle.
func (s *Scheduler) EvictIdle() {
	total := 0
	for _, e := range s.evictors {
		total += e.EvictIdle(s.maxIdle)
	}
	log.WithField("count", total).Debug("[CRON] Выгрузка неактивных игроков")
}

// Prune чистит историю раундов и почту.
func (s *Scheduler) Prune(ctx context.Context) {
	if s.history != nil {
		n, err := s.history.PruneHistory(ctx, s.historyLimit)
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка очистки истории")
		} else {
			log.WithField("deleted", n).Info("[CRON] История раундов очищена")
		}
	}
	if s.inbox != nil {
		n, err := s.inbox.Prune(ctx)
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка очистки почты")
		} else {
			log.WithField("deleted", n).Info("[CRON] Почта очищена")
		}
	}
}

// Stop останавливает планировщик и ждёт запущенные задачи.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
