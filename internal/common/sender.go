package common

import (
	"context"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

// Sender — то, чем обработчики отвечают в Telegram. *telego.Bot подходит.
type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// SendText отправляет простой текст в чат и логирует ошибку отправки.
func SendText(ctx context.Context, s Sender, chatID int64, text string) {
	if s == nil {
		return
	}
	if _, err := s.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
