// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование сумм, разбор ставок, время.
package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PluralizeCredits возвращает правильную форму слова «кредит» для суммы.
//
// Правила русского языка:
//   - дробная сумма → "кредита" (1.5 кредита, 0.05 кредита)
//   - n%10==1 И n%100!=11 → "кредит" (1, 21, 101)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → "кредита" (2, 3, 24)
//   - остальные случаи → "кредитов" (0, 5-20, 100)
func PluralizeCredits(amount decimal.Decimal) string {
	abs := amount.Abs()
	if !abs.Equal(abs.Truncate(0)) {
		return "кредита"
	}

	n := abs.IntPart()
	lastDigit := n % 10
	lastTwoDigits := n % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "кредит"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "кредита"
	}
	return "кредитов"
}

// FormatBalance форматирует сумму в читабельную строку.
// Пример: FormatBalance(2350) → "2 350 кредитов", FormatBalance(0.5) → "0.50 кредита"
func FormatBalance(amount decimal.Decimal) string {
	return fmt.Sprintf("%s %s", FormatAmount(amount), PluralizeCredits(amount))
}

// FormatAmount печатает сумму с разделителями тысяч.
// Копейки выводятся только если они есть.
func FormatAmount(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "-" + FormatAmount(amount.Neg())
	}
	whole := FormatNumber(amount.IntPart())
	if amount.Equal(amount.Truncate(0)) {
		return whole
	}
	frac := amount.Sub(amount.Truncate(0)).StringFixed(2)
	return whole + strings.TrimPrefix(frac, "0")
}

// ParseAmount разбирает сумму из аргумента команды.
// Принимает "10", "10.5" и "10,5"; больше двух знаков после точки отбрасывается.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: пустая сумма", ErrInvalidStake)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q не число", ErrInvalidStake, s)
	}
	return d.Truncate(2), nil
}

// GetMoscowTime возвращает текущее время в часовом поясе Москвы (Europe/Moscow).
func GetMoscowTime() time.Time {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		// Если не удалось загрузить — используем UTC+3 вручную
		loc = time.FixedZone("MSK", 3*60*60)
	}
	return time.Now().In(loc)
}

// FormatDateTime форматирует время как "02.01.2006 15:04" по Москве.
// Используется в истории раундов и во входящих.
func FormatDateTime(t time.Time) string {
	return t.In(GetMoscowTime().Location()).Format("02.01.2006 15:04")
}

// FormatDuration печатает остаток времени как "5 ч 12 мин".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return "меньше минуты"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%d мин", m)
	}
	return fmt.Sprintf("%d ч %d мин", h, m)
}
