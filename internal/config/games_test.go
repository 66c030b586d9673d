package config

import (
	"strings"
	"testing"
)

func TestLoadGamesDefault(t *testing.T) {
	g, err := LoadGames("")
	if err != nil {
		t.Fatalf("LoadGames: %v", err)
	}

	for _, id := range []string{"double", "fortune-double", "dice", "mines", "plinko", "fortune-tiger", "fortune-dragon", "fortune-ox", "fortune-rabbit"} {
		if _, ok := g.Game(id); !ok {
			t.Errorf("game %q missing from catalog", id)
		}
	}
	if _, ok := g.Game("roulette"); ok {
		t.Error("unknown game must not be found")
	}

	if g.Double.Pockets != 15 || g.Double.ZeroMultiplier != 14 {
		t.Errorf("double table = %+v", g.Double)
	}
	if g.Dice.MinChance != 1 || g.Dice.MaxChance != 98 || g.Dice.PayoutNumerator != 99 {
		t.Errorf("dice table = %+v", g.Dice)
	}
	if g.Mines.GridSize != 5 || g.Mines.DefaultBombs != 4 || g.Mines.HouseFactor != 0.95 {
		t.Errorf("mines table = %+v", g.Mines)
	}
	if g.Slots.FreeSpins != 8 || len(g.Slots.Paylines) != 5 {
		t.Errorf("slots table = %+v", g.Slots)
	}
}

func TestLoadGamesMissingFile(t *testing.T) {
	if _, err := LoadGames("/nonexistent/games.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseGamesRejectsBrokenTables(t *testing.T) {
	base, err := LoadGames("")
	if err != nil {
		t.Fatalf("LoadGames: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(g *Games)
		wantMsg string
	}{
		{"empty catalog", func(g *Games) { g.Catalog = nil }, "каталог"},
		{"unknown kind", func(g *Games) { g.Catalog[0].Kind = "poker" }, "неизвестный тип"},
		{"wheel size", func(g *Games) { g.Double.Wheel = g.Double.Wheel[:3] }, "15 секторов"},
		{"dice bounds", func(g *Games) { g.Dice.MaxChance = 100 }, "дайса"},
		{"too many bombs", func(g *Games) { g.Mines.MaxBombs = 25 }, "поле мин"},
		{"odd plinko rows", func(g *Games) { g.Plinko.Rows = append(g.Plinko.Rows, 9) }, "чётным"},
		{"payline out of grid", func(g *Games) { g.Slots.Paylines = [][3]int{{0, 1, 9}} }, "вне сетки"},
		{"multiplier chance", func(g *Games) { g.Slots.RandomMultiplierChance = 1.5 }, "шанс"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := LoadGames("")
			tt.mutate(g)
			err := g.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}

	if err := base.Validate(); err != nil {
		t.Errorf("default tables must stay valid: %v", err)
	}
}

func TestParseGamesBadYAML(t *testing.T) {
	if _, err := ParseGames([]byte("catalog: [")); err == nil {
		t.Fatal("expected parse error")
	}
}
