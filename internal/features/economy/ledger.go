// Package economy — ledger.go реализует баланс игрока в памяти.
// Баланс в памяти — источник правды. Каждое изменение сразу ставится
// в очередь записи, пока удерживается блокировка счёта, поэтому порядок
// записей в базе совпадает с порядком изменений.
package economy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"serotonyl.ru/minicasino/internal/common"
)

// Writer — упорядоченная очередь записи в хранилище.
type Writer interface {
	Enqueue(name string, run func(ctx context.Context) error)
}

// Store — долговременное хранилище счетов.
type Store interface {
	// GetAccount возвращает счёт, создавая его со стартовым балансом при первом обращении.
	GetAccount(ctx context.Context, userID int64) (*Account, error)
	// FindAccount читает счёт без создания, нет счёта — common.ErrAccountNotFound.
	FindAccount(ctx context.Context, userID int64) (*Account, error)
	// ApplyDelta изменяет баланс на delta и пишет транзакцию.
	ApplyDelta(ctx context.Context, userID int64, delta decimal.Decimal, txType, description string) error
}

// Ledger — баланс одного игрока. Все изменения сериализуются мьютексом.
type Ledger struct {
	mu         sync.Mutex
	userID     int64
	balance    decimal.Decimal
	store      Store
	writer     Writer
	lastActive time.Time
}

// NewLedger создаёт баланс с начальным значением из хранилища.
func NewLedger(userID int64, balance decimal.Decimal, store Store, writer Writer) *Ledger {
	return &Ledger{
		userID:     userID,
		balance:    balance.Round(2),
		store:      store,
		writer:     writer,
		lastActive: time.Now(),
	}
}

// UserID — владелец счёта.
func (l *Ledger) UserID() int64 { return l.userID }

// Balance возвращает текущий баланс.
func (l *Ledger) Balance() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// LastActive — время последнего изменения или чтения для ставки.
func (l *Ledger) LastActive() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastActive
}

// Debit списывает amount. Если кредитов не хватает — ErrInsufficientFunds,
// баланс не меняется.
func (l *Ledger) Debit(amount decimal.Decimal, txType, description string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: списание %s", common.ErrInvalidAmount, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balance.LessThan(amount) {
		return l.balance, fmt.Errorf("%w: нужно %s, на счёте %s",
			common.ErrInsufficientFunds, amount.StringFixed(2), l.balance.StringFixed(2))
	}
	l.balance = l.balance.Sub(amount)
	l.persist(amount.Neg(), txType, description)
	return l.balance, nil
}

// Credit начисляет amount. Нулевая сумма ничего не меняет.
func (l *Ledger) Credit(amount decimal.Decimal, txType, description string) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: начисление %s", common.ErrInvalidAmount, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if amount.IsZero() {
		return l.balance, nil
	}
	l.balance = l.balance.Add(amount)
	l.persist(amount, txType, description)
	return l.balance, nil
}

// Covers проверяет, хватит ли баланса на amount.
func (l *Ledger) Covers(amount decimal.Decimal) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.balance.LessThan(amount)
}

// persist вызывается под l.mu.
func (l *Ledger) persist(delta decimal.Decimal, txType, description string) {
	l.lastActive = time.Now()
	if l.writer == nil || l.store == nil {
		return
	}
	userID := l.userID
	l.writer.Enqueue(txType, func(ctx context.Context) error {
		return l.store.ApplyDelta(ctx, userID, delta, txType, description)
	})
}
