// Package inbox — handlers.go обрабатывает команду !почта.
package inbox

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/minicasino/internal/common"
)

// Handler обрабатывает команды почты.
type Handler struct {
	service *Service
	bot     common.Sender
}

// NewHandler создаёт обработчик почты.
func NewHandler(service *Service, bot common.Sender) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleInbox — !почта: последние 10 уведомлений, после показа почта прочитана.
func (h *Handler) HandleInbox(ctx context.Context, chatID, userID int64) {
	list, err := h.service.List(ctx, userID, 10)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения почты")
		common.SendText(ctx, h.bot, chatID, "❌ Почта недоступна, попробуйте позже")
		return
	}
	if len(list) == 0 {
		common.SendText(ctx, h.bot, chatID, "📭 Почта пуста")
		return
	}

	var sb strings.Builder
	sb.WriteString("📬 Почта:\n\n")
	for _, n := range list {
		mark := "  "
		if !n.Read {
			mark = "🆕"
		}
		icon := "🎮"
		if n.Category == CategoryBonus {
			icon = "🎁"
		}
		sb.WriteString(fmt.Sprintf("%s%s %s | %s\n", mark, icon, common.FormatDateTime(n.CreatedAt), n.Title))
		if n.Body != "" {
			sb.WriteString("    " + n.Body + "\n")
		}
	}
	common.SendText(ctx, h.bot, chatID, sb.String())

	if err := h.service.MarkRead(ctx, userID); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Почта не отмечена прочитанной")
	}
}
