package casino

import (
	"fmt"
	"slices"
	"strings"

	"serotonyl.ru/minicasino/internal/common"
	"serotonyl.ru/minicasino/internal/features/history"
)

// Эмодзи цветов дабла
var colorIcons = map[string]string{
	"red":   "🟥",
	"black": "⬛",
	"white": "⬜",
	"gold":  "🟨",
	"jade":  "🟩",
}

// Русские названия цветов → цвета колеса
var colorAliases = map[string]string{
	"красное": "red", "красный": "red", "к": "red",
	"черное": "black", "чёрное": "black", "черный": "black", "ч": "black",
	"белое": "white", "белый": "white", "б": "white",
	"золото": "gold", "золотое": "gold", "з": "gold",
	"нефрит": "jade", "зелёное": "jade", "зеленое": "jade", "н": "jade",
}

// normalizeColor переводит цвет из команды в название колеса.
func normalizeColor(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := colorAliases[s]; ok {
		return c
	}
	return s
}

// FormatSettlement печатает итог раунда для чата.
func FormatSettlement(st *Settlement) string {
	var sb strings.Builder

	switch d := st.Detail.(type) {
	case *DoubleOutcome:
		sb.WriteString(fmt.Sprintf("🎡 Выпало: %s %d\n", colorIcons[d.Color], d.Pocket))
	case *DiceOutcome:
		sb.WriteString(fmt.Sprintf("🎲 Бросок: %s (нужно меньше %s, x%s)\n",
			d.Roll.StringFixed(2), d.Chance.StringFixed(2), d.Multiplier.StringFixed(2)))
	case *MinesView:
		sb.WriteString(FormatMines(d))
		sb.WriteString("\n")
	case *PlinkoOutcome:
		sb.WriteString(fmt.Sprintf("🔴 Шарик в лунке %d из %d: x%s\n", d.Bucket+1, d.Rows+1, d.Multiplier.String()))
	case *SlotsOutcome:
		sb.WriteString(FormatSlotsGrid(d))
		if d.Multiplier > 1 {
			sb.WriteString(fmt.Sprintf("✨ Множитель x%d\n", d.Multiplier))
		}
		if d.FreeSpinsWon > 0 {
			sb.WriteString(fmt.Sprintf("🎁 Бонус! %d %s\n", d.FreeSpinsWon, common.PluralizeSpins(d.FreeSpinsWon)))
		}
		if d.FreeSpinsLeft > 0 {
			sb.WriteString(fmt.Sprintf("🎁 Осталось фриспинов: %d\n", d.FreeSpinsLeft))
		}
	}

	switch st.Result {
	case history.ResultWin:
		sb.WriteString(fmt.Sprintf("💰 Выигрыш: %s\n", common.FormatBalance(st.Payout)))
	case history.ResultRefund:
		sb.WriteString(fmt.Sprintf("↩️ %s\n", st.Summary))
	default:
		if st.Payout.IsPositive() {
			sb.WriteString(fmt.Sprintf("💸 Вернулось %s\n", common.FormatBalance(st.Payout)))
		} else {
			sb.WriteString("💸 Нет выигрыша\n")
		}
	}
	sb.WriteString(fmt.Sprintf("📊 Баланс: %s", common.FormatBalance(st.BalanceAfter)))
	return sb.String()
}

// FormatSlotsGrid печатает сетку 3x3 по строкам.
func FormatSlotsGrid(d *SlotsOutcome) string {
	var sb strings.Builder
	for row := 0; row < 3; row++ {
		sb.WriteString(strings.Join(d.Grid[row*3:row*3+3], " "))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatMines печатает поле 5x5: открытые клетки, бомбы в конце раунда.
func FormatMines(v *MinesView) string {
	var sb strings.Builder
	for cell := 0; cell < 25; cell++ {
		switch {
		case cell == v.Hit:
			sb.WriteString("💥")
		case slices.Contains(v.Revealed, cell):
			sb.WriteString("💎")
		case slices.Contains(v.BombCells, cell):
			sb.WriteString("💣")
		default:
			sb.WriteString("⬜")
		}
		if cell%5 == 4 {
			sb.WriteString("\n")
		}
	}
	sb.WriteString(fmt.Sprintf("Бомб: %d • x%s", v.Bombs, v.Multiplier.StringFixed(2)))
	if v.CashOut.IsPositive() && !v.Finished {
		sb.WriteString(fmt.Sprintf(" • забрать %s", common.FormatBalance(v.CashOut)))
	}
	return sb.String()
}

// FormatHistory печатает последние раунды.
func FormatHistory(records []history.Record) string {
	if len(records) == 0 {
		return "📋 Вы ещё не играли"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 Последние %d раундов:\n\n", len(records)))
	for _, r := range records {
		icon := "🔴"
		switch r.Result {
		case history.ResultWin:
			icon = "🟢"
		case history.ResultRefund:
			icon = "⚪"
		}
		sb.WriteString(fmt.Sprintf("%s %s | %s | %s | %s\n",
			icon, common.FormatDateTime(r.Time), r.GameID, common.FormatAmount(r.Bet), r.Info))
	}
	return sb.String()
}
