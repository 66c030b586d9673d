// Package casino — handlers.go обрабатывает игровые команды:
// !игры, !дабл, !ставка, !крутить, !сброс, !дайс, !мины, !открыть, !забрать,
// !плинко, !слоты, !авто, !стоп, !ставка+, !ставка-, !история, !стат.
package casino

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/minicasino/internal/common"
)

// StatsReader читает долгую статистику игрока.
type StatsReader interface {
	GetStats(ctx context.Context, userID int64) (*Stats, error)
}

// Handler обрабатывает команды казино.
type Handler struct {
	service *Service
	stats   StatsReader
	bot     common.Sender
}

// NewHandler создаёт обработчик казино. stats может быть nil.
func NewHandler(service *Service, stats StatsReader, bot common.Sender) *Handler {
	return &Handler{service: service, stats: stats, bot: bot}
}

// Короткие имена игр в командах
var gameAliases = map[string]string{
	"тигр":    "fortune-tiger",
	"дракон":  "fortune-dragon",
	"бык":     "fortune-ox",
	"кролик":  "fortune-rabbit",
	"фортуна": "fortune-double",
	"дабл":    "double",
	"дайс":    "dice",
	"мины":    "mines",
	"плинко":  "plinko",
}

func resolveGame(arg, fallback string) string {
	arg = strings.ToLower(strings.TrimSpace(arg))
	if arg == "" {
		return fallback
	}
	if id, ok := gameAliases[arg]; ok {
		return id
	}
	return arg
}

// HandleGames — !игры.
func (h *Handler) HandleGames(ctx context.Context, chatID int64) {
	var sb strings.Builder
	sb.WriteString("🎮 Игры казино:\n\n")
	for _, g := range h.service.Catalog() {
		sb.WriteString(fmt.Sprintf("• %s (%s) — %s\n", g.Title, g.ID, g.Description))
	}
	sb.WriteString("\nКоманды: !ставка, !крутить, !дайс, !мины, !плинко, !слоты, !авто")
	h.sendMessage(ctx, chatID, sb.String())
}

// HandleDouble — !дабл [фортуна]: цвета и текущий купон.
func (h *Handler) HandleDouble(ctx context.Context, chatID, userID int64, args []string) {
	gameID := resolveGame(argAt(args, 0), "double")
	game, err := h.service.Game(gameID, KindDouble)
	if err != nil {
		h.replyError(ctx, chatID, userID, err)
		return
	}
	theme := h.service.rules.games.Double.Themes[game.Theme]
	h.sendMessage(ctx, chatID, fmt.Sprintf(
		"🎡 %s\n%s\n\n%s %s x2 • %s %s x2 • %s %s x14\n\nСтавка: !ставка цвет сумма\nСпин: !крутить • Сбросить: !сброс",
		game.Title,
		h.service.rules.wheelStrip(theme),
		colorIcons[theme.Low], theme.Low,
		colorIcons[theme.High], theme.High,
		colorIcons[theme.Zero], theme.Zero,
	))
}

// HandlePlaceStake — !ставка красное 10 [фортуна].
func (h *Handler) HandlePlaceStake(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(ctx, chatID, "❌ Формат: !ставка цвет [сумма] [фортуна]")
		return
	}
	gameID := resolveGame(argAt(args, 2), "double")
	amount, ok := h.stake(ctx, chatID, userID, gameID, argAt(args, 1))
	if !ok {
		return
	}

	slip, err := h.service.PlaceStake(ctx, userID, gameID, normalizeColor(args[0]), amount)
	if err != nil {
		h.replyError(ctx, chatID, userID, err)
		return
	}

	var sb strings.Builder
	sb.WriteString("🧾 Ваши ставки:\n")
	total := decimal.Zero
	for color, v := range slip {
		sb.WriteString(fmt.Sprintf("%s %s: %s\n", colorIcons[color], color, common.FormatBalance(v)))
		total = total.Add(v)
	}
	sb.WriteString(fmt.Sprintf("Всего: %s\nКрутить: !крутить", common.FormatBalance(total)))
	h.sendMessage(ctx, chatID, sb.String())
}

// HandleSpin — !крутить.
func (h *Handler) HandleSpin(ctx context.Context, chatID, userID int64) {
	st, err := h.service.SpinDouble(ctx, userID)
	if err != nil {
		h.replyError(ctx, chatID, userID, err)
		return
	}
	h.sendMessage(ctx, chatID, FormatSettlement(st))
}

// HandleClear — !сброс.
func (h *Handler) HandleClear(ctx context.Context, chatID, userID int64) {
	if err := h.service.ClearStakes(ctx, userID); err != nil {
		h.replyError(ctx, chatID, userID, err)
		return
	}
	h.sendMessage(ctx, chatID, "🧹 Ставки сняты")
}

// HandleDice — !дайс [сумма] [шанс].
func (h *Handler) HandleDice(ctx context.Context, chatID, userID int64, args []string) {
	amount, ok := h.stake(ctx, chatID, userID, diceGameID, argAt(args, 0))
	if !ok {
		return
	}
	chance := decimal.NewFromInt(50)
	if raw := argAt(args, 1); raw != "" {
		c, err := common.ParseAmount(strings.TrimSuffix(raw, "%"))
		if err != nil {
			h.sendMessage(ctx, chatID, "❌ Шанс должен быть числом от 1 до 98")
			return
		}
		chance = c
	}

	st, err := h.service.RollDice(ctx, userID, amount, chance)
	if err != nil {
		h.replyError(ctx, chatID, userID, err)
		return
	}
	h.sendMessage(ctx, chatID, FormatSettlement(st))
}

// HandleMines — !мины [сумма] [бомбы]. Число бомб подрезается до 1–24.
func (h *Handler) HandleMines(ctx context.Context, chatID, userID int64, args []string) {
	amount, ok := h.stake(ctx, chatID, userID, minesGameID, argAt(args, 0))
	if !ok {
		return
	}
	mt := h.service.rules.games.Mines
	bombs := mt.DefaultBombs
	if raw := argAt(args, 1); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.sendMessage(ctx, chatID, "❌ Число бомб должно быть целым")
			return
		}
		bombs = min(max(n, mt.MinBombs), mt.MaxBombs)
	}

	view, err := h.service.StartMines(ctx, userID, amount, bombs)
	if err != nil {
		h.replyError(ctx, chatID, userID, err)
		return
	}
	h.sendMessage(ctx, chatID, "💣 Мины\n\n"+FormatMines(view)+"\n\nОткрыть клетку: !открыть 1–25 • Забрать: !забрать")
}

// HandleReveal — !открыть N (1–25).
func (h *Handler) HandleReveal(ctx context.Context, chatID, userID int64, args []string) {
	n, err := strconv.Atoi(argAt(args, 0))
	if err != nil {
		h.sendMessage(ctx, chatID, "❌ Формат: !открыть номер клетки от 1 до 25")
		return
	}

	step, err := h.service.RevealCell(ctx, userID, n-1)
	if err != nil {
		h.replyError(ctx, chatID, userID, err)
		return
	}
	if step.Settlement != nil {
		h.sendMessage(ctx, chatID, FormatSettlement(step.Settlement))
		return
	}
	h.sendMessage(ctx, chatID, FormatMines(&step.View))
}

// HandleCashOut — !забрать.
func (h *Handler) HandleCashOut(ctx context.Context, chatID, userID int64) {
	st, err := h.service.CashOutMines(ctx, userID)
	if err != nil {
		h.replyError(ctx, chatID, userID, err)
		return
	}
	h.sendMessage(ctx, chatID, FormatSettlement(st))
}

// HandlePlinko — !плинко [сумма] [риск] [линии].
func (h *Handler) HandlePlinko(ctx context.Context, chatID, userID int64, args []string) {
	amount, ok := h.stake(ctx, chatID, userID, plinkoGameID, argAt(args, 0))
	if !ok {
		return
	}
	pt := h.service.rules.games.Plinko
	risk := pt.DefaultRisk
	if raw := argAt(args, 1); raw != "" {
		risk = plinkoRisk(raw)
	}
	rows := pt.DefaultRows
	if raw := argAt(args, 2); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.sendMessage(ctx, chatID, "❌ Число линий: 8, 10, 12, 14 или 16")
			return
		}
		rows = n
	}

	st, err := h.service.DropPlinko(ctx, userID, amount, risk, rows, nil)
	if err != nil {
		h.replyError(ctx, chatID, userID, err)
		return
	}
	h.sendMessage(ctx, chatID, FormatSettlement(st))
}

func plinkoRisk(s string) string {
	switch strings.ToLower(s) {
	case "низкий", "л", "low":
		return "low"
	case "высокий", "в", "high":
		return "high"
	case "средний", "с", "medium":
		return "medium"
	}
	return strings.ToLower(s)
}

// HandleSlots — !слоты [игра] [сумма].
func (h *Handler) HandleSlots(ctx context.Context, chatID, userID int64, args []string) {
	gameID := resolveGame(argAt(args, 0), "fortune-tiger")
	amount, ok := h.stake(ctx, chatID, userID, gameID, argAt(args, 1))
	if !ok {
		return
	}

	st, err := h.service.SpinSlots(ctx, userID, gameID, amount)
	if err != nil {
		h.replyError(ctx, chatID, userID, err)
		return
	}
	h.sendMessage(ctx, chatID, "🎰 "+gameID+"\n\n"+FormatSettlement(st))
}

// HandleAuto — !авто [игра] [сумма]. Каждый спин приходит отдельным сообщением.
func (h *Handler) HandleAuto(ctx context.Context, chatID, userID int64, args []string) {
	gameID := resolveGame(argAt(args, 0), "fortune-tiger")
	amount, ok := h.stake(ctx, chatID, userID, gameID, argAt(args, 1))
	if !ok {
		return
	}

	// Автоигра переживает обработку апдейта, поэтому отвязана от его таймаута
	autoCtx := context.WithoutCancel(ctx)
	err := h.service.StartAutoPlay(autoCtx, userID, gameID, amount, AutoPlayHooks{
		OnSpin: func(st *Settlement) {
			h.sendMessage(autoCtx, chatID, FormatSettlement(st))
		},
		OnStop: func(rounds int, reason error) {
			text := fmt.Sprintf("⏹ Автоигра остановлена: %d %s", rounds, common.PluralizeSpins(rounds))
			if errors.Is(reason, common.ErrInsufficientFunds) {
				text += "\n❌ Недостаточно кредитов"
			}
			h.sendMessage(autoCtx, chatID, text)
		},
	})
	if err != nil {
		h.replyError(ctx, chatID, userID, err)
		return
	}
	h.sendMessage(ctx, chatID, fmt.Sprintf("▶️ Автоигра %s по %s. Остановить: !стоп", gameID, common.FormatBalance(amount)))
}

// HandleStop — !стоп.
func (h *Handler) HandleStop(ctx context.Context, chatID, userID int64) {
	if _, err := h.service.StopAutoPlay(ctx, userID); err != nil {
		h.replyError(ctx, chatID, userID, err)
		return
	}
	h.sendMessage(ctx, chatID, "⏸ Автоигра остановится после текущего спина")
}

// HandleBetStep — !ставка+ [игра] и !ставка- [игра].
func (h *Handler) HandleBetStep(ctx context.Context, chatID, userID int64, args []string, up bool) {
	gameID := resolveGame(argAt(args, 0), "fortune-tiger")
	bet, err := h.service.AdjustBet(ctx, userID, gameID, up)
	if err != nil {
		h.replyError(ctx, chatID, userID, err)
		return
	}
	h.sendMessage(ctx, chatID, fmt.Sprintf("🎚 Ставка в %s: %s", gameID, common.FormatBalance(bet)))
}

// HandleHistory — !история.
func (h *Handler) HandleHistory(ctx context.Context, chatID, userID int64) {
	records, err := h.service.History(ctx, userID, 10)
	if err != nil {
		h.replyError(ctx, chatID, userID, err)
		return
	}
	h.sendMessage(ctx, chatID, FormatHistory(records))
}

// HandleStats — !стат.
//
// Формат ответа:
//
//	📊 СТАТИСТИКА
//	Раундов: 47 • побед: 20 (42.55%)
//	Поставлено: 2 350 кредитов
//	Выиграно: 2 120 кредитов
//	💎 Лучший выигрыш: 1 500 кредитов
func (h *Handler) HandleStats(ctx context.Context, chatID, userID int64) {
	counters, err := h.service.Stats(ctx, userID)
	if err != nil {
		h.replyError(ctx, chatID, userID, err)
		return
	}
	if counters.Plays == 0 {
		h.sendMessage(ctx, chatID, "📊 У вас пока нет статистики. Сыграйте первый раунд!")
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 СТАТИСТИКА\n\n")
	sb.WriteString(fmt.Sprintf("Раундов: %d • побед: %d (%.2f%%)\n", counters.Plays, counters.Wins, counters.WinRate()))
	if h.stats != nil {
		stats, err := h.stats.GetStats(ctx, userID)
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("Статистика казино недоступна")
		} else {
			sb.WriteString(fmt.Sprintf("Поставлено: %s\nВыиграно: %s\n💎 Лучший выигрыш: %s\n📈 RTP: %.2f%%",
				common.FormatBalance(stats.TotalWagered),
				common.FormatBalance(stats.TotalWon),
				common.FormatBalance(stats.BiggestWin),
				CalculateRTP(stats.TotalWagered, stats.TotalWon),
			))
		}
	}
	h.sendMessage(ctx, chatID, sb.String())
}

// stake разбирает сумму ставки или берёт выбранную ставку игры.
func (h *Handler) stake(ctx context.Context, chatID, userID int64, gameID, raw string) (decimal.Decimal, bool) {
	if raw == "" {
		bet, err := h.service.Bet(ctx, userID, gameID)
		if err != nil {
			h.replyError(ctx, chatID, userID, err)
			return decimal.Zero, false
		}
		return bet, true
	}
	amount, err := common.ParseAmount(raw)
	if err != nil {
		h.sendMessage(ctx, chatID, "❌ Ставка должна быть числом")
		return decimal.Zero, false
	}
	return amount, true
}

func (h *Handler) replyError(ctx context.Context, chatID, userID int64, err error) {
	switch {
	case errors.Is(err, common.ErrInsufficientFunds):
		h.sendMessage(ctx, chatID, "❌ Недостаточно кредитов на счёте")
	case errors.Is(err, common.ErrInvalidStake),
		errors.Is(err, common.ErrInvalidConfiguration),
		errors.Is(err, common.ErrReentrantRound),
		errors.Is(err, common.ErrNoOpenRound):
		h.sendMessage(ctx, chatID, "❌ "+err.Error())
	default:
		log.WithError(err).WithField("user_id", userID).Error("Ошибка казино")
		h.sendMessage(ctx, chatID, "❌ Ошибка казино, попробуйте позже")
	}
}

func (h *Handler) sendMessage(ctx context.Context, chatID int64, text string) {
	common.SendText(ctx, h.bot, chatID, text)
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
