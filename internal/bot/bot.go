// Package bot содержит главный модуль бота — приём апдейтов, фильтры и маршрутизацию.
// bot.go получает апдейты long polling и раздаёт команды обработчикам.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/minicasino/internal/bot/filters"
	"serotonyl.ru/minicasino/internal/bot/middleware"
	"serotonyl.ru/minicasino/internal/common"
	"serotonyl.ru/minicasino/internal/config"
	"serotonyl.ru/minicasino/internal/features/casino"
	"serotonyl.ru/minicasino/internal/features/economy"
	"serotonyl.ru/minicasino/internal/features/inbox"
	"serotonyl.ru/minicasino/internal/features/missions"
)

const helpText = `🎰 Мини-казино

💰 !баланс • !депозит N • !вывод N • !транзакции
🎮 !игры • !история • !стат
🎡 !дабл • !ставка цвет N • !крутить • !сброс
🎲 !дайс N шанс
💣 !мины N бомбы • !открыть 1–25 • !забрать
🔴 !плинко N риск линии
🎰 !слоты игра N • !авто игра N • !стоп • !ставка+ • !ставка-
🎯 !миссия • !бонус • !первыйбонус • !почта`

// Usernames запоминает имена игроков.
type Usernames interface {
	RememberUsername(userID int64, username string)
}

// Handlers — обработчики команд. Missions и Inbox могут быть nil.
type Handlers struct {
	Economy  *economy.Handler
	Casino   *casino.Handler
	Missions *missions.Handler
	Inbox    *inbox.Handler
}

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *telego.Bot
	cfg *config.Config

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter
	handlers    Handlers
	usernames   Usernames
	parser      *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
	wg       sync.WaitGroup
}

// New создаёт бота со всеми обработчиками.
// usernames может быть nil.
func New(api *telego.Bot, cfg *config.Config, handlers Handlers, usernames Usernames) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:         api,
		cfg:         cfg,
		chatFilter:  filters.NewChatFilter(cfg.BotAllowedChats),
		rateLimiter: middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		handlers:    handlers,
		usernames:   usernames,
		parser:      NewCommandParser(),
		inflight:    make(chan struct{}, maxInFlight),
	}
}

// Start получает апдейты до отмены ctx, затем ждёт обработчики в полёте.
func (b *Bot) Start(ctx context.Context) error {
	updates, err := b.api.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: b.cfg.BotUpdateTimeoutSeconds,
	})
	if err != nil {
		return fmt.Errorf("ошибка запуска long polling: %w", err)
	}

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	defer func() {
		b.wg.Wait()
		b.rateLimiter.Close()
		log.Info("Бот остановлен")
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			return nil

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return nil
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			b.wg.Add(1)
			go func(upd telego.Update) {
				defer func() {
					<-b.inflight
					b.wg.Done()
				}()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update telego.Update) {
	defer middleware.RecoverFromPanic()

	message := update.Message
	if message == nil || message.Text == "" {
		return
	}

	middleware.LogMessage(message)

	if !b.chatFilter.CheckAccess(message) {
		return
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if !isCommand {
		return
	}

	if !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	if b.usernames != nil {
		b.usernames.RememberUsername(message.From.ID, message.From.Username)
	}

	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debug("routing command")
	b.routeCommand(ctx, message.Chat.ID, message.From.ID, cmd, args)
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, chatID, userID int64, cmd string, args []string) {
	h := b.handlers

	switch cmd {
	case "start", "help", "помощь":
		b.sendMessage(ctx, chatID, helpText)

	case "баланс":
		h.Economy.HandleBalance(ctx, chatID, userID)
	case "депозит":
		h.Economy.HandleDeposit(ctx, chatID, userID, args)
	case "вывод":
		h.Economy.HandleWithdraw(ctx, chatID, userID, args)
	case "транзакции":
		h.Economy.HandleTransactions(ctx, chatID, userID)

	case "миссия", "бонус", "первыйбонус":
		if !b.cfg.FeatureMissionsEnabled || h.Missions == nil {
			b.sendMessage(ctx, chatID, "🎯 Миссии временно отключены")
			return
		}
		switch cmd {
		case "миссия":
			h.Missions.HandleMission(ctx, chatID, userID)
		case "бонус":
			h.Missions.HandleDaily(ctx, chatID, userID)
		default:
			h.Missions.HandleFirstBet(ctx, chatID, userID)
		}

	case "почта":
		if h.Inbox != nil {
			h.Inbox.HandleInbox(ctx, chatID, userID)
		}

	default:
		if !isCasinoCommand(cmd) {
			return
		}
		if !b.cfg.FeatureCasinoEnabled {
			b.sendMessage(ctx, chatID, "🎰 Казино временно отключено")
			return
		}
		b.routeCasino(ctx, chatID, userID, cmd, args)
	}
}

var casinoCommands = map[string]struct{}{
	"игры": {}, "дабл": {}, "ставка": {}, "крутить": {}, "сброс": {},
	"дайс": {}, "мины": {}, "открыть": {}, "забрать": {}, "плинко": {},
	"слоты": {}, "авто": {}, "стоп": {}, "ставка+": {}, "ставка-": {},
	"история": {}, "стат": {},
}

func isCasinoCommand(cmd string) bool {
	_, ok := casinoCommands[cmd]
	return ok
}

func (b *Bot) routeCasino(ctx context.Context, chatID, userID int64, cmd string, args []string) {
	h := b.handlers.Casino

	switch cmd {
	case "игры":
		h.HandleGames(ctx, chatID)
	case "дабл":
		h.HandleDouble(ctx, chatID, userID, args)
	case "ставка":
		h.HandlePlaceStake(ctx, chatID, userID, args)
	case "крутить":
		h.HandleSpin(ctx, chatID, userID)
	case "сброс":
		h.HandleClear(ctx, chatID, userID)
	case "дайс":
		h.HandleDice(ctx, chatID, userID, args)
	case "мины":
		h.HandleMines(ctx, chatID, userID, args)
	case "открыть":
		h.HandleReveal(ctx, chatID, userID, args)
	case "забрать":
		h.HandleCashOut(ctx, chatID, userID)
	case "плинко":
		h.HandlePlinko(ctx, chatID, userID, args)
	case "слоты":
		h.HandleSlots(ctx, chatID, userID, args)
	case "авто":
		h.HandleAuto(ctx, chatID, userID, args)
	case "стоп":
		h.HandleStop(ctx, chatID, userID)
	case "ставка+":
		h.HandleBetStep(ctx, chatID, userID, args, true)
	case "ставка-":
		h.HandleBetStep(ctx, chatID, userID, args, false)
	case "история":
		h.HandleHistory(ctx, chatID, userID)
	case "стат":
		h.HandleStats(ctx, chatID, userID)
	}
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) {
	common.SendText(ctx, b.api, chatID, text)
}

// CommandParser парсит русские команды с префиксами !, . и /.
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"!", ".", "/"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
// Суффикс @имя_бота у команд вида /start@bot отбрасывается.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}
	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	if at := strings.IndexByte(command, '@'); at > 0 {
		command = command[:at]
	}
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	return command, args, true
}
