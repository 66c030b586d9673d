// Package economy управляет кредитами игроков.
// models.go описывает счёт и движения кредитов.
package economy

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account — счёт игрока. Каждый игрок имеет ровно одну запись в таблице accounts.
type Account struct {
	UserID      int64           // Telegram user ID
	Username    string          // Для отображения
	Balance     decimal.Decimal // Текущий баланс, не отрицательный, две цифры после точки
	TotalEarned decimal.Decimal // Сколько всего начислено
	TotalSpent  decimal.Decimal // Сколько всего списано
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Transaction — одно движение кредитов. Amount со знаком: плюс — начисление.
type Transaction struct {
	ID              int64
	UserID          int64
	Amount          decimal.Decimal
	TransactionType string
	Description     string
	CreatedAt       time.Time
}

// Типы транзакций
const (
	TxTypeStartingBalance = "starting_balance" // Стартовые кредиты нового счёта
	TxTypeCasinoBet       = "casino_bet"       // Ставка
	TxTypeCasinoWin       = "casino_win"       // Выплата
	TxTypeCasinoRefund    = "casino_refund"    // Возврат ставки после сбоя расчёта
	TxTypeDeposit         = "deposit"          // Пополнение
	TxTypeWithdraw        = "withdraw"         // Вывод
	TxTypeDailyBonus      = "daily_bonus"      // Ежедневный бонус
	TxTypeFirstBetBonus   = "first_bet_bonus"  // Бонус за первую ставку
	TxTypeMissionReward   = "mission_reward"   // Награда за миссию
)
