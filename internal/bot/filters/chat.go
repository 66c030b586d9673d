// Package filters решает, какие сообщения бот обрабатывает.
package filters

import (
	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

// ChatFilter пропускает личные сообщения и сообщения из разрешённых чатов.
// Пустой список чатов разрешает любые группы.
type ChatFilter struct {
	allowed map[int64]struct{}
}

// NewChatFilter создаёт фильтр по списку разрешённых групп.
func NewChatFilter(allowedChats []int64) *ChatFilter {
	allowed := make(map[int64]struct{}, len(allowedChats))
	for _, id := range allowedChats {
		allowed[id] = struct{}{}
	}
	return &ChatFilter{allowed: allowed}
}

// CheckAccess проверяет, можно ли обработать сообщение.
func (f *ChatFilter) CheckAccess(message *telego.Message) bool {
	if message == nil {
		return false
	}
	if message.From == nil || message.From.IsBot {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Debug("skip: сообщение не от игрока")
		return false
	}

	if message.Chat.Type == telego.ChatTypePrivate || len(f.allowed) == 0 {
		return true
	}
	if _, ok := f.allowed[message.Chat.ID]; ok {
		return true
	}

	log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   message.Chat.ID,
		"user_id":   message.From.ID,
	}).Debug("deny: чат не в списке")
	return false
}
