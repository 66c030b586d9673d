package casino

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"serotonyl.ru/minicasino/internal/common"
	"serotonyl.ru/minicasino/internal/config"
	"serotonyl.ru/minicasino/internal/features/casino/payout"
	"serotonyl.ru/minicasino/internal/features/casino/plinko"
)

// rules — игровые таблицы, переведённые в decimal один раз при старте.
type rules struct {
	games      *config.Games
	fractional bool

	minStake     decimal.Decimal
	fracMinStake decimal.Decimal
	maxStake     decimal.Decimal
	steps        []stakeStep
	lastStep     decimal.Decimal

	colorMult decimal.Decimal
	zeroMult  decimal.Decimal

	minChance decimal.Decimal
	maxChance decimal.Decimal
	diceNum   decimal.Decimal

	minesCells  int
	minesFactor decimal.Decimal

	plinkoRisks    map[string][]decimal.Decimal
	plinkoFallback decimal.Decimal
	boards         map[int]*plinko.Board

	slotThemes  map[string][]payout.Symbol
	slotBonus   map[string]bool // Тема умеет запускать фриспины
	lineDivisor decimal.Decimal
}

type stakeStep struct {
	below decimal.Decimal
	step  decimal.Decimal
}

func newRules(g *config.Games, fractional bool) *rules {
	r := &rules{
		games:          g,
		fractional:     fractional,
		minStake:       decimal.NewFromFloat(g.Stakes.Min),
		fracMinStake:   decimal.NewFromFloat(g.Stakes.FractionalMin),
		maxStake:       decimal.NewFromFloat(g.Stakes.Max),
		lastStep:       decimal.NewFromFloat(g.Stakes.LastStep),
		colorMult:      decimal.NewFromFloat(g.Double.ColorMultiplier),
		zeroMult:       decimal.NewFromFloat(g.Double.ZeroMultiplier),
		minChance:      decimal.NewFromFloat(g.Dice.MinChance),
		maxChance:      decimal.NewFromFloat(g.Dice.MaxChance),
		diceNum:        decimal.NewFromFloat(g.Dice.PayoutNumerator),
		minesCells:     g.Mines.GridSize * g.Mines.GridSize,
		minesFactor:    decimal.NewFromFloat(g.Mines.HouseFactor),
		plinkoRisks:    make(map[string][]decimal.Decimal, len(g.Plinko.Risks)),
		plinkoFallback: decimal.NewFromFloat(g.Plinko.FallbackMultiplier),
		boards:         make(map[int]*plinko.Board, len(g.Plinko.Rows)),
		slotThemes:     make(map[string][]payout.Symbol, len(g.Slots.Themes)),
		slotBonus:      make(map[string]bool, len(g.Slots.Themes)),
		lineDivisor:    decimal.NewFromFloat(g.Slots.LineDivisor),
	}
	for _, s := range g.Stakes.Steps {
		r.steps = append(r.steps, stakeStep{
			below: decimal.NewFromFloat(s.Below),
			step:  decimal.NewFromFloat(s.Step),
		})
	}
	for risk, table := range g.Plinko.Risks {
		values := make([]decimal.Decimal, len(table))
		for i, v := range table {
			values[i] = decimal.NewFromFloat(v)
		}
		r.plinkoRisks[risk] = values
	}
	for _, rows := range g.Plinko.Rows {
		r.boards[rows] = plinko.NewBoard(rows)
	}
	for id, theme := range g.Slots.Themes {
		symbols := make([]payout.Symbol, len(theme.Symbols))
		for i, s := range theme.Symbols {
			symbols[i] = payout.Symbol{
				ID:    s.ID,
				Icon:  s.Icon,
				Value: decimal.NewFromFloat(s.Value),
				Wild:  s.Wild,
				Bonus: s.Bonus,
			}
			if s.Bonus {
				r.slotBonus[id] = true
			}
		}
		r.slotThemes[id] = symbols
	}
	return r
}

// minStakeFor — минимальная ставка игры.
func (r *rules) minStakeFor(kind GameKind) decimal.Decimal {
	if r.fractional && kind.Fractional() {
		return r.fracMinStake
	}
	return r.minStake
}

// validateStake проверяет границы ставки. Баланс здесь не смотрится.
func (r *rules) validateStake(kind GameKind, stake decimal.Decimal) error {
	if !stake.Equal(stake.Truncate(2)) {
		return fmt.Errorf("%w: не больше двух знаков после точки", common.ErrInvalidStake)
	}
	if lo := r.minStakeFor(kind); stake.LessThan(lo) {
		return fmt.Errorf("%w: минимальная ставка %s", common.ErrInvalidStake, common.FormatBalance(lo))
	}
	if stake.GreaterThan(r.maxStake) {
		return fmt.Errorf("%w: максимальная ставка %s", common.ErrInvalidStake, common.FormatBalance(r.maxStake))
	}
	return nil
}

// step возвращает шаг кнопок +/- для ставки bet: шаг первой ступени,
// порог которой больше bet.
func (r *rules) step(bet decimal.Decimal) decimal.Decimal {
	for _, s := range r.steps {
		if bet.LessThan(s.below) {
			return s.step
		}
	}
	return r.lastStep
}

// stepUp увеличивает ставку на шаг текущей ступени.
func (r *rules) stepUp(kind GameKind, bet decimal.Decimal) decimal.Decimal {
	return r.clampStake(kind, bet.Add(r.step(bet)))
}

// stepDown уменьшает ставку на шаг предыдущей ступени,
// чтобы +/- возвращали ставку на те же значения.
func (r *rules) stepDown(kind GameKind, bet decimal.Decimal) decimal.Decimal {
	probe := decimal.Max(decimal.Zero, bet.Sub(decimal.New(1, -2)))
	return r.clampStake(kind, bet.Sub(r.step(probe)))
}

func (r *rules) clampStake(kind GameKind, bet decimal.Decimal) decimal.Decimal {
	bet = bet.Round(2)
	if lo := r.minStakeFor(kind); bet.LessThan(lo) {
		return lo
	}
	if bet.GreaterThan(r.maxStake) {
		return r.maxStake
	}
	return bet
}

// doubleColor возвращает цвет сектора колеса в теме.
func (r *rules) doubleColor(theme config.DoubleTheme, pocket int) string {
	switch {
	case pocket == 0:
		return theme.Zero
	case pocket <= (r.games.Double.Pockets-1)/2:
		return theme.Low
	default:
		return theme.High
	}
}

// wheelStrip рисует колесо дабла цветами секторов в порядке на колесе.
func (r *rules) wheelStrip(theme config.DoubleTheme) string {
	var sb strings.Builder
	for _, pocket := range r.games.Double.Wheel {
		sb.WriteString(colorIcons[r.doubleColor(theme, pocket)])
	}
	return sb.String()
}

// doubleMultiplier — множитель цвета: обычный x2, нулевой x14.
func (r *rules) doubleMultiplier(theme config.DoubleTheme, color string) decimal.Decimal {
	if color == theme.Zero {
		return r.zeroMult
	}
	return r.colorMult
}
