// Package inbox — почта игрока: уведомления о раундах и наградах.
// models.go описывает уведомление.
package inbox

import "time"

// Категории уведомлений
const (
	CategoryGame  = "game"
	CategoryBonus = "bonus"
)

// Notification — одно уведомление в почте игрока.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Category  string    `json:"category"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}
