// Package missions управляет миссиями и бонусами игроков.
// models.go описывает прогресс игрока.
package missions

import "time"

// MissionGameID — игра, открытия которой считает миссия.
const MissionGameID = "plinko"

// Progress — прогресс миссии и отметки о бонусах одного игрока.
type Progress struct {
	UserID          int64      `json:"userId"`
	PlinkoPlays     int        `json:"plinkoPlays"`     // Сколько раз открыто плинко, до выполнения миссии
	RoundsStarted   int        `json:"roundsStarted"`   // Сколько раундов начато во всех играх
	Completed       bool       `json:"completed"`       // Условие миссии выполнено
	Claimed         bool       `json:"claimed"`         // Награда за миссию получена
	DailyClaimedAt  *time.Time `json:"dailyClaimedAt"`  // Когда последний раз забран ежедневный бонус
	FirstBetClaimed bool       `json:"firstBetClaimed"` // Бонус за первую ставку получен
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// NextDaily — когда снова можно забрать ежедневный бонус.
// Нулевое время — бонус доступен сразу.
func (p *Progress) NextDaily(cooldown time.Duration) time.Time {
	if p.DailyClaimedAt == nil {
		return time.Time{}
	}
	return p.DailyClaimedAt.Add(cooldown)
}
