// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях казино.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять игроку понятные сообщения.
package common

import "errors"

// Ошибки ставок и баланса
var (
	// ErrInvalidStake — ставка меньше минимума, больше максимума или не число
	ErrInvalidStake = errors.New("некорректная ставка")
	// ErrInsufficientFunds — на счёте не хватает кредитов на ставку
	ErrInsufficientFunds = errors.New("недостаточно кредитов на счёте")
	// ErrInvalidAmount — сумма пополнения или вывода вне допустимых границ
	ErrInvalidAmount = errors.New("некорректная сумма")
	// ErrAccountNotFound — счёт игрока не найден в хранилище
	ErrAccountNotFound = errors.New("счёт не найден")
)

// Ошибки раундов
var (
	// ErrInvalidConfiguration — параметры игры вне допустимых значений
	// (число бомб, шанс в дайсе, риск и линии в плинко, тема слотов)
	ErrInvalidConfiguration = errors.New("некорректные параметры игры")
	// ErrReentrantRound — у игрока уже идёт раунд, новую ставку принять нельзя
	ErrReentrantRound = errors.New("раунд уже идёт, дождитесь результата")
	// ErrNoOpenRound — действие требует открытого раунда (открыть клетку, забрать, крутить)
	ErrNoOpenRound = errors.New("нет активного раунда")
	// ErrOutcomeGenerator — генератор исходов не смог выдать результат.
	// При корректной конфигурации не возникает; ставка в этом случае возвращается.
	ErrOutcomeGenerator = errors.New("ошибка генератора исходов")
)

// Ошибки миссий и бонусов
var (
	// ErrMissionIncomplete — условия миссии ещё не выполнены
	ErrMissionIncomplete = errors.New("миссия ещё не выполнена")
	// ErrMissionClaimed — награда за миссию уже получена
	ErrMissionClaimed = errors.New("награда за миссию уже получена")
	// ErrBonusCooldown — ежедневный бонус уже забран, нужно подождать
	ErrBonusCooldown = errors.New("бонус уже получен, попробуйте позже")
	// ErrBonusClaimed — одноразовый бонус уже был выдан
	ErrBonusClaimed = errors.New("бонус уже получен")
)
