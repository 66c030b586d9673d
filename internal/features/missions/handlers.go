// Package missions — handlers.go обрабатывает команды !миссия, !бонус, !первыйбонус.
package missions

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/minicasino/internal/common"
)

// Handler обрабатывает команды миссий и бонусов.
type Handler struct {
	service *Service
	bot     common.Sender
}

// NewHandler создаёт обработчик миссий.
func NewHandler(service *Service, bot common.Sender) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleMission — !миссия. Выполненная миссия сразу забирается.
//
// Формат ответа (в процессе):
//
//	🎯 Миссия: сыграть в плинко
//	Прогресс: 3/5
//	Награда: 50 кредитов
func (h *Handler) HandleMission(ctx context.Context, chatID, userID int64) {
	p, err := h.service.Progress(ctx, userID)
	if err != nil {
		h.replyError(ctx, chatID, userID, err)
		return
	}
	need := h.service.cfg.RewardMissionPlays
	reward := decimal.NewFromInt(h.service.cfg.RewardMissionBonus)

	if p.Completed && !p.Claimed {
		balance, err := h.service.ClaimMission(ctx, userID)
		if err != nil {
			h.replyError(ctx, chatID, userID, err)
			return
		}
		h.sendMessage(ctx, chatID, fmt.Sprintf("🎯 Миссия выполнена! +%s\n📊 Баланс: %s",
			common.FormatBalance(reward), common.FormatBalance(balance)))
		return
	}

	status := fmt.Sprintf("Прогресс: %d/%d\nНаграда: %s", min(p.PlinkoPlays, need), need, common.FormatBalance(reward))
	if p.Claimed {
		status = "✅ Награда получена"
	}
	h.sendMessage(ctx, chatID, "🎯 Миссия: сыграть в плинко\n\n"+status)
}

// HandleDaily — !бонус.
func (h *Handler) HandleDaily(ctx context.Context, chatID, userID int64) {
	balance, err := h.service.ClaimDaily(ctx, userID)
	if err != nil {
		h.replyError(ctx, chatID, userID, err)
		return
	}
	h.sendMessage(ctx, chatID, fmt.Sprintf("🎁 Ежедневный бонус: +%s\n📊 Баланс: %s",
		common.FormatBalance(decimal.NewFromInt(h.service.cfg.RewardDailyBonus)), common.FormatBalance(balance)))
}

// HandleFirstBet — !первыйбонус.
func (h *Handler) HandleFirstBet(ctx context.Context, chatID, userID int64) {
	balance, err := h.service.ClaimFirstBet(ctx, userID)
	if err != nil {
		h.replyError(ctx, chatID, userID, err)
		return
	}
	h.sendMessage(ctx, chatID, fmt.Sprintf("🎉 Бонус за первую ставку: +%s\n📊 Баланс: %s",
		common.FormatBalance(decimal.NewFromInt(h.service.cfg.RewardFirstBetBonus)), common.FormatBalance(balance)))
}

func (h *Handler) replyError(ctx context.Context, chatID, userID int64, err error) {
	switch {
	case errors.Is(err, common.ErrMissionIncomplete),
		errors.Is(err, common.ErrMissionClaimed),
		errors.Is(err, common.ErrBonusCooldown),
		errors.Is(err, common.ErrBonusClaimed):
		h.sendMessage(ctx, chatID, "⏳ "+err.Error())
	default:
		log.WithError(err).WithField("user_id", userID).Error("Ошибка миссий")
		h.sendMessage(ctx, chatID, "❌ Ошибка, попробуйте позже")
	}
}

func (h *Handler) sendMessage(ctx context.Context, chatID int64, text string) {
	common.SendText(ctx, h.bot, chatID, text)
}
