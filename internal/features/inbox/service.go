// Package inbox — service.go принимает уведомления от движка и трекера
// миссий и отдаёт почту игроку. Запись идёт через очередь, чтобы
// расчёт раунда не ждал базу.
package inbox

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/minicasino/internal/features/economy"
)

// Store — хранилище почты.
type Store interface {
	Insert(ctx context.Context, n Notification) error
	List(ctx context.Context, userID int64, limit int) ([]Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	Prune(ctx context.Context, keep int) (int64, error)
}

// Service — почта игроков.
type Service struct {
	store  Store
	writer economy.Writer
	limit  int
}

// NewService создаёт почту. limit — сколько уведомлений хранится на игрока.
func NewService(store Store, writer economy.Writer, limit int) *Service {
	return &Service{store: store, writer: writer, limit: limit}
}

// Notify кладёт уведомление в почту. Ошибки записи только логируются.
func (s *Service) Notify(ctx context.Context, userID int64, category, title, body string) {
	if s.store == nil {
		return
	}
	n := Notification{
		UserID:    userID,
		Category:  category,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if s.writer == nil {
		if err := s.store.Insert(ctx, n); err != nil {
			log.WithError(err).WithField("user_id", userID).Error("Уведомление не сохранено")
		}
		return
	}
	s.writer.Enqueue("inbox_notify", func(ctx context.Context) error {
		return s.store.Insert(ctx, n)
	})
}

// List возвращает последние limit уведомлений, новые первыми.
func (s *Service) List(ctx context.Context, userID int64, limit int) ([]Notification, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	return s.store.List(ctx, userID, limit)
}

// Unread — сколько непрочитанных уведомлений у игрока.
func (s *Service) Unread(ctx context.Context, userID int64) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

// MarkRead отмечает всю почту игрока прочитанной.
func (s *Service) MarkRead(ctx context.Context, userID int64) error {
	_, err := s.store.MarkAllRead(ctx, userID)
	return err
}

// Prune оставляет каждому игроку только последние limit уведомлений.
func (s *Service) Prune(ctx context.Context) (int64, error) {
	return s.store.Prune(ctx, s.limit)
}
