// Package economy — handlers.go обрабатывает команды:
// !баланс, !депозит, !вывод, !транзакции.
package economy

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/minicasino/internal/common"
)

// Handler обрабатывает команды экономики.
type Handler struct {
	service *Service
	bot     common.Sender
}

// NewHandler создаёт обработчик экономических команд.
func NewHandler(service *Service, bot common.Sender) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleBalance — !баланс.
//
// Формат ответа:
//
//	💰 Баланс: 500 кредитов
func (h *Handler) HandleBalance(ctx context.Context, chatID, userID int64) {
	balance, err := h.service.Balance(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения баланса")
		h.sendMessage(ctx, chatID, "❌ Ошибка получения баланса")
		return
	}
	h.sendMessage(ctx, chatID, fmt.Sprintf("💰 Баланс: %s", common.FormatBalance(balance)))
}

// HandleDeposit — !депозит 100.
func (h *Handler) HandleDeposit(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(ctx, chatID, "❌ Формат: !депозит сумма")
		return
	}
	amount, err := common.ParseAmount(args[0])
	if err != nil {
		h.sendMessage(ctx, chatID, "❌ Сумма должна быть числом")
		return
	}

	balance, err := h.service.Deposit(ctx, userID, amount)
	if err != nil {
		h.replyError(ctx, chatID, userID, err)
		return
	}
	h.sendMessage(ctx, chatID, fmt.Sprintf("✅ Зачислено %s\nБаланс: %s",
		common.FormatBalance(amount.Truncate(2)), common.FormatBalance(balance)))
}

// HandleWithdraw — !вывод 100.
func (h *Handler) HandleWithdraw(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(ctx, chatID, "❌ Формат: !вывод сумма")
		return
	}
	amount, err := common.ParseAmount(args[0])
	if err != nil {
		h.sendMessage(ctx, chatID, "❌ Сумма должна быть числом")
		return
	}

	balance, err := h.service.Withdraw(ctx, userID, amount)
	if err != nil {
		h.replyError(ctx, chatID, userID, err)
		return
	}
	h.sendMessage(ctx, chatID, fmt.Sprintf("✅ Выведено %s\nБаланс: %s",
		common.FormatBalance(amount.Truncate(2)), common.FormatBalance(balance)))
}

// HandleTransactions — !транзакции.
func (h *Handler) HandleTransactions(ctx context.Context, chatID, userID int64) {
	history, err := h.service.GetTransactionHistory(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения транзакций")
		h.sendMessage(ctx, chatID, "❌ Ошибка получения истории транзакций")
		return
	}
	h.sendMessage(ctx, chatID, history)
}

func (h *Handler) replyError(ctx context.Context, chatID, userID int64, err error) {
	switch {
	case errors.Is(err, common.ErrInsufficientFunds):
		h.sendMessage(ctx, chatID, "❌ Недостаточно кредитов на счёте")
	case errors.Is(err, common.ErrInvalidAmount):
		h.sendMessage(ctx, chatID, "❌ Минимальная сумма: 1 кредит")
	default:
		log.WithError(err).WithField("user_id", userID).Error("Ошибка операции со счётом")
		h.sendMessage(ctx, chatID, "❌ Ошибка выполнения операции")
	}
}

func (h *Handler) sendMessage(ctx context.Context, chatID int64, text string) {
	common.SendText(ctx, h.bot, chatID, text)
}
