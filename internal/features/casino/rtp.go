// Package casino — rtp.go считает фактическую отдачу игр (Return To Player).
// Счётчик только наблюдает: на исходы он не влияет, веса символов не меняются.
//
// RTP = (Всего выплачено / Всего поставлено) × 100%
package casino

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// RTPReport — отдача одного типа игры с момента запуска.
type RTPReport struct {
	Kind    GameKind        `json:"kind"`
	Rounds  int64           `json:"rounds"`
	Wagered decimal.Decimal `json:"wagered"`
	Paid    decimal.Decimal `json:"paid"`
	Percent float64         `json:"rtp"`
}

// RTPMeter копит ставки и выплаты по типам игр.
// Использует мьютекс, т.к. раунды рассчитываются одновременно.
type RTPMeter struct {
	mu      sync.RWMutex
	rounds  map[GameKind]int64
	wagered map[GameKind]decimal.Decimal
	paid    map[GameKind]decimal.Decimal
}

// NewRTPMeter создаёт пустой счётчик.
func NewRTPMeter() *RTPMeter {
	return &RTPMeter{
		rounds:  make(map[GameKind]int64),
		wagered: make(map[GameKind]decimal.Decimal),
		paid:    make(map[GameKind]decimal.Decimal),
	}
}

// Record учитывает рассчитанный раунд.
func (m *RTPMeter) Record(kind GameKind, stake, payout decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rounds[kind]++
	m.wagered[kind] = m.wagered[kind].Add(stake)
	m.paid[kind] = m.paid[kind].Add(payout)
}

// Report возвращает отдачу по всем играм, отсортированную по типу.
func (m *RTPMeter) Report() []RTPReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]RTPReport, 0, len(m.rounds))
	for kind, n := range m.rounds {
		out = append(out, RTPReport{
			Kind:    kind,
			Rounds:  n,
			Wagered: m.wagered[kind],
			Paid:    m.paid[kind],
			Percent: CalculateRTP(m.wagered[kind], m.paid[kind]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// CalculateRTP вычисляет отдачу в процентах.
// Если ставок ещё не было — возвращает 0.
func CalculateRTP(wagered, paid decimal.Decimal) float64 {
	if !wagered.IsPositive() {
		return 0
	}
	return paid.Div(wagered).Mul(decimal.NewFromInt(100)).InexactFloat64()
}
