package casino

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"serotonyl.ru/minicasino/internal/common"
	"serotonyl.ru/minicasino/internal/features/history"
)

// errTableEvicted — стол успели выгрузить, нужен свежий из реестра.
var errTableEvicted = errors.New("стол выгружен")

// table — всё, что движок знает об игроке между раундами.
// Один раунд в полёте (кроме шариков плинко); мьютекс сериализует
// переходы состояний, баланс сериализуется своим мьютексом.
type table struct {
	mu     sync.Mutex
	userID int64
	log    *history.Log

	session *RoundSession               // Текущий раунд не-плинко
	balls   map[uuid.UUID]*RoundSession // Падающие шарики
	double  *doubleSlip
	mines   *minesRound
	auto    *autoRun

	bets          map[string]decimal.Decimal // Выбранная ставка по играм
	freeSpins     map[string]int             // Оставшиеся фриспины по темам слотов
	freeSpinStake map[string]decimal.Decimal // Ставка спина, запустившего фриспины

	lastUsed time.Time
	evicted  bool // Стол выгружен из реестра, раунды на нём не начинаются
}

func newTable(userID int64, log *history.Log) *table {
	return &table{
		userID:        userID,
		log:           log,
		balls:         make(map[uuid.UUID]*RoundSession),
		bets:          make(map[string]decimal.Decimal),
		freeSpins:     make(map[string]int),
		freeSpinStake: make(map[string]decimal.Decimal),
		lastUsed:      time.Now(),
	}
}

// begin открывает раунд. Вызывается под t.mu.
// byAuto — раунд запускает сам автоспин, его владение столом не мешает.
func (t *table) begin(kind GameKind, gameID string, stake decimal.Decimal, byAuto bool) (*RoundSession, error) {
	if t.evicted {
		return nil, errTableEvicted
	}
	if t.auto != nil && !byAuto {
		return nil, fmt.Errorf("%w: идёт автоигра, остановите её командой !стоп", common.ErrReentrantRound)
	}
	if t.session != nil {
		return nil, fmt.Errorf("%w: %s ещё не закончен", common.ErrReentrantRound, t.session.GameID)
	}

	sess := newSession(kind, gameID, stake)
	if kind == KindPlinko {
		t.balls[sess.ID] = sess
	} else {
		if len(t.balls) > 0 {
			return nil, fmt.Errorf("%w: шарики плинко ещё падают", common.ErrReentrantRound)
		}
		t.session = sess
	}
	t.lastUsed = time.Now()
	return sess, nil
}

// release снимает раунд со стола. Вызывается под t.mu.
func (t *table) release(sess *RoundSession) {
	if sess.Kind == KindPlinko {
		delete(t.balls, sess.ID)
	} else if t.session == sess {
		t.session = nil
		t.double = nil
		t.mines = nil
	}
	t.lastUsed = time.Now()
}

// busy — есть ли что-то в полёте. Вызывается под t.mu.
func (t *table) busy() bool {
	return t.session != nil || len(t.balls) > 0 || t.auto != nil
}

// evictIfIdle помечает стол выгруженным, если он простаивает не меньше maxIdle.
func (t *table) evictIfIdle(now time.Time, maxIdle time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.busy() || now.Sub(t.lastUsed) < maxIdle {
		return false
	}
	t.evicted = true
	return true
}

// bet — выбранная ставка игры или минимальная.
func (t *table) bet(gameID string, fallback decimal.Decimal) decimal.Decimal {
	if b, ok := t.bets[gameID]; ok {
		return b
	}
	return fallback
}
