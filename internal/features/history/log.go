// Package history — журнал сыгранных раундов игрока.
// Журнал только дополняется, хранит последние N записей (старые вытесняются)
// и ведёт счётчики игр и побед для статистики.
package history

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Result — итог раунда.
type Result string

const (
	ResultWin  Result = "WIN"
	ResultLoss Result = "LOSS"
	// ResultRefund — раунд не удалось рассчитать, ставка возвращена целиком
	ResultRefund Result = "REFUND"
)

// DefaultLimit — сколько записей хранится на игрока.
const DefaultLimit = 500

// ErrDuplicateRecord — раунд уже записан в журнал.
var ErrDuplicateRecord = errors.New("раунд уже есть в истории")

// Record — запись о рассчитанном раунде. После создания не меняется.
// Bet положительный при выигрыше и отрицательный (размер потери) при проигрыше.
type Record struct {
	RoundID      uuid.UUID       `json:"roundId"`
	GameID       string          `json:"game"`
	Bet          decimal.Decimal `json:"bet"`
	Result       Result          `json:"result"`
	Info         string          `json:"info"`
	Time         time.Time       `json:"time"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
}

// Stats — счётчики игрока.
type Stats struct {
	Plays int `json:"plays"`
	Wins  int `json:"wins"`
}

// WinRate — доля побед в процентах.
func (s Stats) WinRate() float64 {
	if s.Plays == 0 {
		return 0
	}
	return float64(s.Wins) * 100 / float64(s.Plays)
}

// Log — ограниченный журнал раундов одного игрока.
type Log struct {
	mu      sync.RWMutex
	limit   int
	records []Record // от старых к новым
	seen    map[uuid.UUID]struct{}
	stats   Stats
}

// NewLog создаёт журнал с уже сохранёнными записями (от старых к новым)
// и счётчиками из хранилища.
func NewLog(limit int, records []Record, stats Stats) *Log {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(records) > limit {
		records = records[len(records)-limit:]
	}
	l := &Log{
		limit:   limit,
		records: make([]Record, 0, len(records)),
		seen:    make(map[uuid.UUID]struct{}, len(records)),
		stats:   stats,
	}
	for _, r := range records {
		l.records = append(l.records, r)
		l.seen[r.RoundID] = struct{}{}
	}
	return l
}

// Append добавляет запись о раунде. Каждый раунд пишется ровно один раз.
func (l *Log) Append(r Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.seen[r.RoundID]; dup {
		return ErrDuplicateRecord
	}
	l.records = append(l.records, r)
	l.seen[r.RoundID] = struct{}{}

	if over := len(l.records) - l.limit; over > 0 {
		for _, old := range l.records[:over] {
			delete(l.seen, old.RoundID)
		}
		l.records = append(l.records[:0:0], l.records[over:]...)
	}

	l.stats.Plays++
	if r.Result == ResultWin {
		l.stats.Wins++
	}
	return nil
}

// Recent возвращает до n последних записей, новые первыми. n <= 0 — все.
func (l *Log) Recent(n int) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.records) {
		n = len(l.records)
	}
	out := make([]Record, 0, n)
	for i := len(l.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.records[i])
	}
	return out
}

// Len — сколько записей сейчас в журнале.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Stats возвращает счётчики игр и побед.
func (l *Log) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats
}
