// Package casino — движок ставок: дабл, дайс, мины, плинко и слоты.
// models.go описывает типы игр, состояния раунда и итоги расчёта.
package casino

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"serotonyl.ru/minicasino/internal/features/casino/payout"
	"serotonyl.ru/minicasino/internal/features/history"
)

// GameKind — тип движка игры.
type GameKind string

const (
	KindDouble GameKind = "double"
	KindDice   GameKind = "dice"
	KindMines  GameKind = "mines"
	KindPlinko GameKind = "plinko"
	KindSlots  GameKind = "slots"
)

// Fractional — разрешены ли ставки меньше одного кредита в этой игре.
func (k GameKind) Fractional() bool {
	return k == KindDouble || k == KindSlots
}

// State — состояние раунда.
type State int

const (
	StateIdle State = iota
	StateStakeCommitted
	StateDrawing
	StateRevealing // только мины
	StateCashedOut // только мины
	StateLost      // только мины
	StateSettled
)

var stateNames = map[State]string{
	StateIdle:           "Idle",
	StateStakeCommitted: "StakeCommitted",
	StateDrawing:        "Drawing",
	StateRevealing:      "Revealing",
	StateCashedOut:      "CashedOut",
	StateLost:           "Lost",
	StateSettled:        "Settled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// transitions — разрешённые переходы. StakeCommitted → Idle только у дабла,
// пока ставки не списаны. Из Drawing отката нет: раунд всегда доходит до Settled.
var transitions = map[State][]State{
	StateIdle:           {StateStakeCommitted},
	StateStakeCommitted: {StateDrawing, StateIdle},
	StateDrawing:        {StateSettled, StateRevealing},
	StateRevealing:      {StateRevealing, StateCashedOut, StateLost},
	StateCashedOut:      {StateSettled},
	StateLost:           {StateSettled},
	StateSettled:        {StateIdle},
}

// RoundSession — раунд в полёте. Живёт от ставки до расчёта.
type RoundSession struct {
	ID        uuid.UUID
	GameID    string
	Kind      GameKind
	Stake     decimal.Decimal // Списано со счёта; ноль для фриспина
	State     State
	StartedAt time.Time
}

func newSession(kind GameKind, gameID string, stake decimal.Decimal) *RoundSession {
	return &RoundSession{
		ID:        uuid.New(),
		GameID:    gameID,
		Kind:      kind,
		Stake:     stake,
		State:     StateStakeCommitted,
		StartedAt: time.Now(),
	}
}

// advance переводит раунд в состояние to. Запрещённый переход — ошибка движка.
func (s *RoundSession) advance(to State) error {
	for _, next := range transitions[s.State] {
		if next == to {
			s.State = to
			return nil
		}
	}
	return fmt.Errorf("недопустимый переход %s → %s в раунде %s", s.State, to, s.ID)
}

// Settlement — итог раунда для игрока.
type Settlement struct {
	RoundID      uuid.UUID
	GameID       string
	Kind         GameKind
	Stake        decimal.Decimal // Списано за раунд
	Payout       decimal.Decimal // Начислено за раунд
	Result       history.Result
	Summary      string
	BalanceAfter decimal.Decimal
	Refunded     bool // Расчёт не удался, ставка возвращена
	Detail       any  // *DoubleOutcome, *DiceOutcome, *MinesView, *PlinkoOutcome, *SlotsOutcome
}

// Net — изменение баланса за раунд.
func (s *Settlement) Net() decimal.Decimal {
	return s.Payout.Sub(s.Stake)
}

// DoubleOutcome — исход дабла.
type DoubleOutcome struct {
	Pocket int                        `json:"pocket"`
	Color  string                     `json:"color"`
	Stakes map[string]decimal.Decimal `json:"stakes"`
}

// DiceOutcome — исход дайса.
type DiceOutcome struct {
	Chance     decimal.Decimal `json:"chance"`
	Roll       decimal.Decimal `json:"roll"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Win        bool            `json:"win"`
}

// MinesView — состояние поля мин для игрока. Бомбы видны только после конца раунда.
type MinesView struct {
	Bombs      int             `json:"bombs"`
	Revealed   []int           `json:"revealed"`
	BombCells  []int           `json:"bombCells,omitempty"`
	Hit        int             `json:"hit"` // Клетка с бомбой, -1 если не было
	Multiplier decimal.Decimal `json:"multiplier"`
	CashOut    decimal.Decimal `json:"cashOut"` // Сколько можно забрать сейчас
	Finished   bool            `json:"finished"`
}

// MinesStep — результат открытия клетки.
type MinesStep struct {
	View       MinesView
	Settlement *Settlement // Не nil, если раунд закончился
}

// PlinkoOutcome — куда упал шарик.
type PlinkoOutcome struct {
	BallID     uuid.UUID       `json:"ballId"`
	Risk       string          `json:"risk"`
	Rows       int             `json:"rows"`
	Bucket     int             `json:"bucket"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

// SlotsOutcome — исход спина.
type SlotsOutcome struct {
	Theme          string           `json:"theme"`
	Grid           [9]string        `json:"grid"` // Иконки по строкам
	Lines          []payout.LineWin `json:"-"`
	Multiplier     int              `json:"multiplier"`
	FreeSpin       bool             `json:"freeSpin"`
	FreeSpinsWon   int              `json:"freeSpinsWon"`
	FreeSpinsLeft  int              `json:"freeSpinsLeft"`
	BonusSymbols   int              `json:"bonusSymbols"`
	WinningLineIDs []int            `json:"lines"`
}

// GameData сериализует детали раунда для колонки game_data.
func GameData(detail any) json.RawMessage {
	if detail == nil {
		return json.RawMessage("{}")
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

// Stats — долгая статистика игрока из таблицы casino_stats.
type Stats struct {
	UserID       int64           `json:"userId"`
	TotalPlays   int             `json:"totalPlays"`
	TotalWins    int             `json:"totalWins"`
	TotalWagered decimal.Decimal `json:"totalWagered"`
	TotalWon     decimal.Decimal `json:"totalWon"`
	BiggestWin   decimal.Decimal `json:"biggestWin"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// RoundRow — строка casino_rounds вместе с суммами для статистики.
type RoundRow struct {
	UserID int64
	Kind   GameKind
	Record history.Record
	Stake  decimal.Decimal
	Payout decimal.Decimal
	Detail any
}
