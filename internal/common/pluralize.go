// Package common — pluralize.go содержит вспомогательные функции
// для подписанных сумм и склонения числительных.
package common

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormatCreditsDelta создаёт строку вида "+100 кредитов" или "-50 кредитов".
//
// Примеры:
//
//	FormatCreditsDelta(100)  → "+100 кредитов"
//	FormatCreditsDelta(-50)  → "-50 кредитов"
//	FormatCreditsDelta(1)    → "+1 кредит"
func FormatCreditsDelta(amount decimal.Decimal) string {
	if amount.Sign() >= 0 {
		return "+" + FormatBalance(amount)
	}
	return FormatBalance(amount)
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}

// PluralizeSpins возвращает форму слова «спин».
func PluralizeSpins(n int) string {
	if n < 0 {
		n = -n
	}
	lastDigit := n % 10
	lastTwoDigits := n % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "спин"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "спина"
	}
	return "спинов"
}
