// Package economy — service.go держит загруженные счета игроков
// и реализует пополнение, вывод и историю транзакций.
package economy

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"serotonyl.ru/minicasino/internal/common"
)

// TransactionLister читает историю транзакций (репозиторий).
type TransactionLister interface {
	GetTransactions(ctx context.Context, userID int64, limit int) ([]*Transaction, error)
}

// UsernameStore сохраняет имя игрока для отображения.
type UsernameStore interface {
	SetUsername(ctx context.Context, userID int64, username string) error
}

// Service управляет счетами: лениво загружает их из хранилища
// и выгружает по простою.
type Service struct {
	store  Store
	writer Writer
	lister TransactionLister

	mu      sync.Mutex
	ledgers map[int64]*Ledger
	names   map[int64]string
	loads   singleflight.Group
}

// NewService создаёт сервис счетов. lister может быть nil.
func NewService(store Store, writer Writer, lister TransactionLister) *Service {
	return &Service{
		store:   store,
		writer:  writer,
		lister:  lister,
		ledgers: make(map[int64]*Ledger),
		names:   make(map[int64]string),
	}
}

// Ledger возвращает баланс игрока, загружая счёт при первом обращении.
// Одновременные загрузки одного счёта склеиваются в одну.
func (s *Service) Ledger(ctx context.Context, userID int64) (*Ledger, error) {
	s.mu.Lock()
	l, ok := s.ledgers[userID]
	s.mu.Unlock()
	if ok {
		return l, nil
	}

	v, err, _ := s.loads.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		s.mu.Lock()
		if l, ok := s.ledgers[userID]; ok {
			s.mu.Unlock()
			return l, nil
		}
		s.mu.Unlock()

		acc, err := s.store.GetAccount(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("ошибка загрузки счёта: %w", err)
		}
		l := NewLedger(userID, acc.Balance, s.store, s.writer)

		s.mu.Lock()
		s.ledgers[userID] = l
		s.mu.Unlock()

		log.WithFields(log.Fields{
			"user_id": userID,
			"balance": acc.Balance.StringFixed(2),
		}).Debug("Счёт загружен")
		return l, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Ledger), nil
}

// Balance возвращает текущий баланс игрока.
func (s *Service) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	l, err := s.Ledger(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return l.Balance(), nil
}

// PeekBalance возвращает баланс без загрузки счёта в память и без
// создания нового. Для чтения извне, например из HTTP API.
func (s *Service) PeekBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	s.mu.Lock()
	l, ok := s.ledgers[userID]
	s.mu.Unlock()
	if ok {
		return l.Balance(), nil
	}

	acc, err := s.store.FindAccount(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.Balance, nil
}

// Deposit пополняет счёт. Минимум — 1 кредит.
func (s *Service) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.LessThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("%w: минимальное пополнение 1 кредит", common.ErrInvalidAmount)
	}
	l, err := s.Ledger(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	balance, err := l.Credit(amount.Truncate(2), TxTypeDeposit, "Пополнение")
	if err != nil {
		return decimal.Zero, err
	}
	log.WithFields(log.Fields{"user_id": userID, "amount": amount.StringFixed(2)}).Info("Пополнение")
	return balance, nil
}

// Withdraw выводит кредиты. Сумма от 1 и не больше баланса.
func (s *Service) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.LessThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("%w: минимальный вывод 1 кредит", common.ErrInvalidAmount)
	}
	l, err := s.Ledger(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	balance, err := l.Debit(amount.Truncate(2), TxTypeWithdraw, "Вывод")
	if err != nil {
		return decimal.Zero, err
	}
	log.WithFields(log.Fields{"user_id": userID, "amount": amount.StringFixed(2)}).Info("Вывод")
	return balance, nil
}

// Evict выгружает счёт из памяти. Выгрузка встаёт в очередь записи после
// всех уже поставленных изменений, так что повторная загрузка прочитает
// актуальный баланс. Если счёт успел измениться, он остаётся в памяти.
func (s *Service) Evict(userID int64) {
	s.mu.Lock()
	l, ok := s.ledgers[userID]
	s.mu.Unlock()
	if !ok {
		return
	}
	seen := l.LastActive()

	drop := func(context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if cur, ok := s.ledgers[userID]; ok && cur == l && l.LastActive().Equal(seen) {
			delete(s.ledgers, userID)
			log.WithField("user_id", userID).Debug("Счёт выгружен из памяти")
		}
		return nil
	}
	if s.writer == nil {
		_ = drop(context.Background())
		return
	}
	s.writer.Enqueue("evict_account", drop)
}

// EvictIdle выгружает счета, не менявшиеся дольше maxIdle.
// busy отсекает игроков с раундом в полёте. Возвращает число счетов,
// поставленных на выгрузку.
func (s *Service) EvictIdle(maxIdle time.Duration, busy func(userID int64) bool) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	var idle []int64
	for userID, l := range s.ledgers {
		if l.LastActive().Before(cutoff) {
			idle = append(idle, userID)
		}
	}
	s.mu.Unlock()

	n := 0
	for _, userID := range idle {
		if busy != nil && busy(userID) {
			continue
		}
		s.Evict(userID)
		n++
	}
	return n
}

// RememberUsername записывает имя игрока, если оно изменилось.
func (s *Service) RememberUsername(userID int64, username string) {
	if username == "" {
		return
	}
	store, ok := s.store.(UsernameStore)
	if !ok || s.writer == nil {
		return
	}

	s.mu.Lock()
	if s.names[userID] == username {
		s.mu.Unlock()
		return
	}
	s.names[userID] = username
	s.mu.Unlock()

	s.writer.Enqueue("set_username", func(ctx context.Context) error {
		return store.SetUsername(ctx, userID, username)
	})
}

// Loaded — сколько счетов сейчас в памяти.
func (s *Service) Loaded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ledgers)
}

// GetTransactionHistory возвращает форматированную историю последних транзакций.
func (s *Service) GetTransactionHistory(ctx context.Context, userID int64) (string, error) {
	if s.lister == nil {
		return "📋 История транзакций недоступна", nil
	}
	transactions, err := s.lister.GetTransactions(ctx, userID, 10)
	if err != nil {
		return "", err
	}
	if len(transactions) == 0 {
		return "📋 У вас пока нет транзакций", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 Последние %d транзакций:\n\n", len(transactions)))
	for i, tx := range transactions {
		sb.WriteString(fmt.Sprintf("%d. %s | %s | %s\n",
			i+1,
			common.FormatDateTime(tx.CreatedAt),
			common.FormatCreditsDelta(tx.Amount),
			tx.Description,
		))
	}
	return sb.String(), nil
}
