// Package config — games.go описывает игровые таблицы из games.yaml:
// каталог игр, шаги ставок, множители дабла и плинко, темы слотов.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed games.yaml
var defaultGames []byte

// Games — все игровые таблицы.
type Games struct {
	Catalog []CatalogEntry `yaml:"catalog"`
	Stakes  StakeTable     `yaml:"stakes"`
	Double  DoubleTable    `yaml:"double"`
	Dice    DiceTable      `yaml:"dice"`
	Mines   MinesTable     `yaml:"mines"`
	Plinko  PlinkoTable    `yaml:"plinko"`
	Slots   SlotsTable     `yaml:"slots"`
}

// CatalogEntry — одна игра в лобби.
type CatalogEntry struct {
	ID          string `yaml:"id"`          // Идентификатор игры (double, fortune-tiger, ...)
	Kind        string `yaml:"kind"`        // Тип движка: double, dice, mines, plinko, slots
	Theme       string `yaml:"theme"`       // Тема для дабла и слотов
	Title       string `yaml:"title"`       // Название для игрока
	Description string `yaml:"description"` // Короткое описание
}

// StakeStep — ступень таблицы шагов ставки.
type StakeStep struct {
	Below float64 `yaml:"below"` // Ставка строго меньше этого порога
	Step  float64 `yaml:"step"`  // Шаг изменения
}

// StakeTable — границы ставок и нелинейная таблица шагов.
type StakeTable struct {
	Min           float64     `yaml:"min"`
	FractionalMin float64     `yaml:"fractional_min"`
	Max           float64     `yaml:"max"`
	Steps         []StakeStep `yaml:"steps"`
	LastStep      float64     `yaml:"last_step"`
}

// DoubleTheme — названия цветов колеса в теме.
type DoubleTheme struct {
	Low  string `yaml:"low"`  // Сектора 1–7
	High string `yaml:"high"` // Сектора 8–14
	Zero string `yaml:"zero"` // Сектор 0
}

// DoubleTable — колесо дабла.
type DoubleTable struct {
	Pockets         int                    `yaml:"pockets"`
	Wheel           []int                  `yaml:"wheel"` // Порядок секторов на колесе, рисуется в !дабл
	ColorMultiplier float64                `yaml:"color_multiplier"`
	ZeroMultiplier  float64                `yaml:"zero_multiplier"`
	Themes          map[string]DoubleTheme `yaml:"themes"`
}

// DiceTable — границы шанса и числитель множителя (99 / шанс).
type DiceTable struct {
	MinChance       float64 `yaml:"min_chance"`
	MaxChance       float64 `yaml:"max_chance"`
	PayoutNumerator float64 `yaml:"payout_numerator"`
}

// MinesTable — поле мин.
type MinesTable struct {
	GridSize     int     `yaml:"grid_size"`
	MinBombs     int     `yaml:"min_bombs"`
	MaxBombs     int     `yaml:"max_bombs"`
	DefaultBombs int     `yaml:"default_bombs"`
	HouseFactor  float64 `yaml:"house_factor"`
}

// PlinkoTable — таблицы множителей плинко по уровням риска.
type PlinkoTable struct {
	Rows               []int                `yaml:"rows"`
	DefaultRows        int                  `yaml:"default_rows"`
	DefaultRisk        string               `yaml:"default_risk"`
	FallbackMultiplier float64              `yaml:"fallback_multiplier"`
	Risks              map[string][]float64 `yaml:"risks"`
}

// SlotSymbol — символ барабана.
type SlotSymbol struct {
	ID    string  `yaml:"id"`
	Icon  string  `yaml:"icon"`
	Value float64 `yaml:"value"`
	Wild  bool    `yaml:"wild"`  // Заменяет любой символ на линии
	Bonus bool    `yaml:"bonus"` // Считается для запуска фриспинов
}

// SlotTheme — набор символов одной темы.
type SlotTheme struct {
	Symbols []SlotSymbol `yaml:"symbols"`
}

// SlotsTable — линии, бонусный режим и темы слотов.
type SlotsTable struct {
	Paylines               [][3]int             `yaml:"paylines"`
	LineDivisor            float64              `yaml:"line_divisor"`
	FreeSpins              int                  `yaml:"free_spins"`
	BonusTrigger           int                  `yaml:"bonus_trigger"`
	BonusMultiplier        int                  `yaml:"bonus_multiplier"`
	RandomMultiplierChance float64              `yaml:"random_multiplier_chance"`
	RandomMultipliers      []int                `yaml:"random_multipliers"`
	Themes                 map[string]SlotTheme `yaml:"themes"`
}

// LoadGames читает игровые таблицы из файла или из встроенного games.yaml.
func LoadGames(path string) (*Games, error) {
	data := defaultGames
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("не удалось прочитать %s: %w", path, err)
		}
		data = raw
	}
	return ParseGames(data)
}

// ParseGames разбирает и проверяет YAML с игровыми таблицами.
func ParseGames(data []byte) (*Games, error) {
	var g Games
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("ошибка разбора игровых таблиц: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("игровые таблицы: %w", err)
	}
	return &g, nil
}

// Game возвращает запись каталога по идентификатору игры.
func (g *Games) Game(id string) (CatalogEntry, bool) {
	for _, e := range g.Catalog {
		if e.ID == id {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

// Validate проверяет согласованность таблиц.
func (g *Games) Validate() error {
	if len(g.Catalog) == 0 {
		return fmt.Errorf("каталог игр пуст")
	}
	for _, e := range g.Catalog {
		switch e.Kind {
		case "double":
			if _, ok := g.Double.Themes[e.Theme]; !ok {
				return fmt.Errorf("игра %s: нет темы дабла %q", e.ID, e.Theme)
			}
		case "slots":
			if _, ok := g.Slots.Themes[e.Theme]; !ok {
				return fmt.Errorf("игра %s: нет темы слотов %q", e.ID, e.Theme)
			}
		case "dice", "mines", "plinko":
		default:
			return fmt.Errorf("игра %s: неизвестный тип %q", e.ID, e.Kind)
		}
	}

	s := g.Stakes
	if s.Min <= 0 || s.FractionalMin <= 0 || s.FractionalMin > s.Min || s.Max < s.Min {
		return fmt.Errorf("некорректные границы ставок")
	}
	for i, st := range s.Steps {
		if st.Step <= 0 || (i > 0 && st.Below <= s.Steps[i-1].Below) {
			return fmt.Errorf("шаги ставок должны расти, ступень %d", i)
		}
	}
	if s.LastStep <= 0 {
		return fmt.Errorf("last_step должен быть > 0")
	}

	if g.Double.Pockets != 15 || len(g.Double.Wheel) != g.Double.Pockets {
		return fmt.Errorf("колесо дабла должно иметь 15 секторов")
	}
	if g.Double.ColorMultiplier <= 0 || g.Double.ZeroMultiplier <= 0 {
		return fmt.Errorf("множители дабла должны быть > 0")
	}

	if g.Dice.MinChance <= 0 || g.Dice.MaxChance >= 100 || g.Dice.MinChance > g.Dice.MaxChance || g.Dice.PayoutNumerator <= 0 {
		return fmt.Errorf("некорректные границы дайса")
	}

	m := g.Mines
	cells := m.GridSize * m.GridSize
	if m.GridSize <= 1 || m.MinBombs < 1 || m.MaxBombs >= cells || m.MinBombs > m.MaxBombs {
		return fmt.Errorf("некорректное поле мин")
	}
	if m.DefaultBombs < m.MinBombs || m.DefaultBombs > m.MaxBombs || m.HouseFactor <= 0 {
		return fmt.Errorf("некорректные параметры мин по умолчанию")
	}

	p := g.Plinko
	for _, r := range p.Rows {
		if r < 2 || r%2 != 0 {
			return fmt.Errorf("плинко: число линий %d должно быть чётным", r)
		}
	}
	if !slices.Contains(p.Rows, p.DefaultRows) {
		return fmt.Errorf("плинко: default_rows %d не в списке", p.DefaultRows)
	}
	if _, ok := p.Risks[p.DefaultRisk]; !ok {
		return fmt.Errorf("плинко: нет уровня риска %q", p.DefaultRisk)
	}
	for name, table := range p.Risks {
		if len(table) == 0 {
			return fmt.Errorf("плинко: пустая таблица риска %q", name)
		}
	}
	if p.FallbackMultiplier <= 0 {
		return fmt.Errorf("плинко: fallback_multiplier должен быть > 0")
	}

	sl := g.Slots
	if len(sl.Paylines) == 0 || sl.LineDivisor <= 0 {
		return fmt.Errorf("слоты: нет линий выплат")
	}
	for _, line := range sl.Paylines {
		for _, idx := range line {
			if idx < 0 || idx > 8 {
				return fmt.Errorf("слоты: позиция %d вне сетки 3x3", idx)
			}
		}
	}
	if sl.FreeSpins <= 0 || sl.BonusTrigger <= 0 || sl.BonusMultiplier <= 0 {
		return fmt.Errorf("слоты: некорректный бонусный режим")
	}
	if sl.RandomMultiplierChance < 0 || sl.RandomMultiplierChance > 1 {
		return fmt.Errorf("слоты: шанс множителя вне [0,1]")
	}
	if sl.RandomMultiplierChance > 0 && len(sl.RandomMultipliers) == 0 {
		return fmt.Errorf("слоты: нет значений случайного множителя")
	}
	for name, theme := range sl.Themes {
		if err := theme.validate(); err != nil {
			return fmt.Errorf("слоты %s: %w", name, err)
		}
	}
	return nil
}

func (t SlotTheme) validate() error {
	if len(t.Symbols) < 2 {
		return fmt.Errorf("нужно минимум два символа")
	}
	seen := make(map[string]bool, len(t.Symbols))
	wilds := 0
	for _, s := range t.Symbols {
		if seen[s.ID] {
			return fmt.Errorf("символ %q повторяется", s.ID)
		}
		seen[s.ID] = true
		if s.Value <= 0 {
			return fmt.Errorf("символ %q без выплаты", s.ID)
		}
		if s.Wild {
			wilds++
		}
	}
	if wilds != 1 {
		return fmt.Errorf("нужен ровно один вайлд, найдено %d", wilds)
	}
	return nil
}
