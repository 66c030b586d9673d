package payout

import "github.com/shopspring/decimal"

// Symbol — символ слота для расчёта линий.
type Symbol struct {
	ID    string
	Icon  string
	Value decimal.Decimal
	Wild  bool
	Bonus bool
}

// LineWin — сыгравшая линия.
type LineWin struct {
	Line   int             // Номер линии в таблице
	Symbol Symbol          // Символ, по которому сыграла линия
	Amount decimal.Decimal // Выигрыш линии до множителей
}

// SlotsSpin — параметры одного спина.
type SlotsSpin struct {
	Stake            decimal.Decimal
	Grid             [9]Symbol
	Paylines         [][3]int
	LineDivisor      decimal.Decimal
	BonusMode        bool // Спин во время фриспинов
	BonusMultiplier  int  // Множитель фриспинов (x2)
	RandomMultiplier int  // Случайный множитель обычного спина, 1 — нет
}

// SlotsResult — итог спина.
type SlotsResult struct {
	Lines        []LineWin
	Multiplier   int             // Итоговый множитель к сумме линий
	Total        decimal.Decimal // Выплата, округлённая вниз
	BonusSymbols int             // Сколько бонусных символов на сетке
}

// Slots считает линии 3x3. Линия играет, если все три позиции — её базовый
// символ (первый не-вайлд) или вайлд. Три вайлда платят как вайлд.
func Slots(spin SlotsSpin) SlotsResult {
	res := SlotsResult{Multiplier: 1}
	raw := decimal.Zero

	for i, line := range spin.Paylines {
		base, ok := lineBase(spin.Grid, line)
		if !ok {
			continue
		}
		win := spin.Stake.Mul(base.Value).Div(spin.LineDivisor)
		raw = raw.Add(win)
		res.Lines = append(res.Lines, LineWin{Line: i, Symbol: base, Amount: win})
	}

	for _, s := range spin.Grid {
		if s.Bonus {
			res.BonusSymbols++
		}
	}

	if spin.BonusMode && spin.BonusMultiplier > 1 {
		res.Multiplier *= spin.BonusMultiplier
	}
	if spin.RandomMultiplier > 1 {
		res.Multiplier *= spin.RandomMultiplier
	}
	res.Total = raw.Mul(decimal.NewFromInt(int64(res.Multiplier))).Floor()
	return res
}

func lineBase(grid [9]Symbol, line [3]int) (Symbol, bool) {
	base := grid[line[0]]
	for _, idx := range line {
		if !grid[idx].Wild {
			base = grid[idx]
			break
		}
	}
	for _, idx := range line {
		s := grid[idx]
		if s.ID != base.ID && !s.Wild {
			return Symbol{}, false
		}
	}
	return base, true
}
