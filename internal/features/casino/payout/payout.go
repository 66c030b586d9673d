// Package payout — калькулятор выплат. Чистые функции без состояния:
// одинаковые ставка, параметры и исход всегда дают одинаковую выплату.
// Все выплаты округляются вниз до целого кредита.
package payout

import (
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Double считает выплату дабла: ставка на выпавший цвет умножается на его множитель.
// Ставки на остальные цвета сгорают.
func Double(stakes map[string]decimal.Decimal, winning string, multiplier decimal.Decimal) decimal.Decimal {
	return stakes[winning].Mul(multiplier).Floor()
}

// DiceMultiplier — множитель дайса: numerator / chance (99 / шанс).
func DiceMultiplier(numerator, chance decimal.Decimal) decimal.Decimal {
	return numerator.Div(chance)
}

// Dice возвращает выплату и признак выигрыша.
// Выигрыш, если бросок строго меньше шанса. Сначала умножаем, потом делим,
// чтобы 7 * 99 / 7 давало ровно 99.
func Dice(stake, chance, roll, numerator decimal.Decimal) (decimal.Decimal, bool) {
	if !roll.LessThan(chance) {
		return decimal.Zero, false
	}
	return stake.Mul(numerator).Div(chance).Floor(), true
}

// MinesMultiplier — множитель мин после revealed безопасных клеток:
// max(1, safe / (safe - revealed) * factor). Когда поле очищено полностью,
// знаменатель держится на единице.
func MinesMultiplier(cells, bombs, revealed int, factor decimal.Decimal) decimal.Decimal {
	safe, left := minesSafeLeft(cells, bombs, revealed)
	m := decimal.NewFromInt(int64(safe)).Mul(factor).Div(decimal.NewFromInt(int64(left)))
	if m.LessThan(one) {
		return one
	}
	return m
}

// Mines — выплата при выводе после revealed безопасных клеток.
func Mines(stake decimal.Decimal, cells, bombs, revealed int, factor decimal.Decimal) decimal.Decimal {
	safe, left := minesSafeLeft(cells, bombs, revealed)
	num := decimal.NewFromInt(int64(safe)).Mul(factor)
	den := decimal.NewFromInt(int64(left))
	if num.LessThan(den) {
		return stake.Floor()
	}
	return stake.Mul(num).Div(den).Floor()
}

func minesSafeLeft(cells, bombs, revealed int) (int, int) {
	safe := cells - bombs
	left := safe - revealed
	if left < 1 {
		left = 1
	}
	return safe, left
}

// PlinkoBucket возвращает множитель лунки bucket при rows линиях.
// Лунки симметричны: значение берётся от центра таблицы риска наружу,
// а если таблица короче — зеркальное значение или fallback.
func PlinkoBucket(table []decimal.Decimal, rows, bucket int, fallback decimal.Decimal) decimal.Decimal {
	mid := len(table) / 2
	off := bucket - (rows+1)/2
	if off < 0 {
		off = -off
	}
	if i := mid + off; i < len(table) {
		return table[i]
	}
	if i := mid - off; i >= 0 {
		return table[i]
	}
	return fallback
}

// PlinkoBuckets раскладывает таблицу риска на rows+1 лунок.
func PlinkoBuckets(table []decimal.Decimal, rows int, fallback decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, rows+1)
	for i := range out {
		out[i] = PlinkoBucket(table, rows, i, fallback)
	}
	return out
}

// Plinko — выплата за попадание в лунку с множителем multiplier.
// Множитель меньше 1 означает проигрыш с частичным возвратом.
func Plinko(stake, multiplier decimal.Decimal) decimal.Decimal {
	return stake.Mul(multiplier).Floor()
}
