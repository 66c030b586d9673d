// Package config загружает конфигурацию казино из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры,
// .env подхватывается через godotenv, игровые таблицы — из games.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`

	// --- Database ---
	// Дефолт "postgres" — имя сервиса в docker-compose, для локалки DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"casino"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"minicasino"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`
	// Группы, где бот отвечает. Пусто — любые группы; личка разрешена всегда.
	BotAllowedChats []int64 `envconfig:"BOT_ALLOWED_CHATS"`

	// --- HTTP API (только чтение) ---
	HTTPAddr           string   `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPAllowedOrigins []string `envconfig:"HTTP_ALLOWED_ORIGINS" default:"*"`

	// --- Casino ---
	CasinoStartingBalance  int64  `envconfig:"CASINO_STARTING_BALANCE" default:"500"`
	CasinoFractionalStakes bool   `envconfig:"CASINO_FRACTIONAL_STAKES" default:"false"`
	CasinoHistoryLimit     int    `envconfig:"CASINO_HISTORY_LIMIT" default:"500"`
	CasinoInboxLimit       int    `envconfig:"CASINO_INBOX_LIMIT" default:"100"`
	CasinoGamesFile        string `envconfig:"CASINO_GAMES_FILE" default:""`
	// Через сколько простоя счёт выгружается из памяти
	CasinoIdleEvict time.Duration `envconfig:"CASINO_IDLE_EVICT" default:"2h"`

	// --- Casino timing ---
	// Паузы анимаций на стороне движка: раунд остаётся в Drawing на это время.
	DoubleSpinDelay   time.Duration `envconfig:"CASINO_DOUBLE_SPIN_DELAY" default:"5500ms"`
	DiceRollDelay     time.Duration `envconfig:"CASINO_DICE_ROLL_DELAY" default:"500ms"`
	SlotsSpinDelay    time.Duration `envconfig:"CASINO_SLOTS_SPIN_DELAY" default:"1s"`
	AutoPlayPause     time.Duration `envconfig:"CASINO_AUTOPLAY_PAUSE" default:"500ms"`
	PlinkoFrameTick   time.Duration `envconfig:"CASINO_PLINKO_FRAME_TICK" default:"16ms"`
	AutoPlayMaxRounds int           `envconfig:"CASINO_AUTOPLAY_MAX_ROUNDS" default:"100"`

	// --- Write queue ---
	WriteQueueSize    int           `envconfig:"WRITE_QUEUE_SIZE" default:"1024"`
	WriteQueueRetries int           `envconfig:"WRITE_QUEUE_RETRIES" default:"3"`
	WriteQueueBackoff time.Duration `envconfig:"WRITE_QUEUE_BACKOFF" default:"200ms"`

	// --- Rewards ---
	RewardDailyBonus    int64         `envconfig:"REWARD_DAILY_BONUS" default:"100"`
	RewardDailyCooldown time.Duration `envconfig:"REWARD_DAILY_COOLDOWN" default:"24h"`
	RewardFirstBetBonus int64         `envconfig:"REWARD_FIRST_BET_BONUS" default:"50"`
	RewardMissionPlays  int           `envconfig:"REWARD_MISSION_PLAYS" default:"5"`
	RewardMissionBonus  int64         `envconfig:"REWARD_MISSION_BONUS" default:"50"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"20"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Feature Flags ---
	FeatureCasinoEnabled   bool `envconfig:"FEATURE_CASINO_ENABLED" default:"true"`
	FeatureMissionsEnabled bool `envconfig:"FEATURE_MISSIONS_ENABLED" default:"true"`
	FeatureHTTPAPIEnabled  bool `envconfig:"FEATURE_HTTP_API_ENABLED" default:"true"`

	// Игровые таблицы: множители, темы слотов, шаги ставок
	Games *Games `envconfig:"-"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Validate проверяет значения, которые envconfig пропускает без вопросов.
func (c *Config) Validate() error {
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.CasinoStartingBalance < 0 {
		return fmt.Errorf("CASINO_STARTING_BALANCE не может быть отрицательным")
	}
	if c.CasinoHistoryLimit <= 0 || c.CasinoInboxLimit <= 0 {
		return fmt.Errorf("CASINO_HISTORY_LIMIT и CASINO_INBOX_LIMIT должны быть > 0")
	}
	if c.WriteQueueSize <= 0 {
		return fmt.Errorf("WRITE_QUEUE_SIZE должен быть > 0")
	}
	if c.RewardMissionPlays <= 0 {
		return fmt.Errorf("REWARD_MISSION_PLAYS должен быть > 0")
	}
	if c.RewardDailyBonus < 0 || c.RewardFirstBetBonus < 0 || c.RewardMissionBonus < 0 {
		return fmt.Errorf("награды не могут быть отрицательными")
	}
	if c.AutoPlayMaxRounds <= 0 {
		return fmt.Errorf("CASINO_AUTOPLAY_MAX_ROUNDS должен быть > 0")
	}
	return nil
}

// Load читает .env (если есть), переменные окружения и игровые таблицы.
func Load() (*Config, error) {
	// .env не обязателен: в docker переменные приходят из compose
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("не удалось прочитать .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	games, err := LoadGames(cfg.CasinoGamesFile)
	if err != nil {
		return nil, err
	}
	cfg.Games = games

	return &cfg, nil
}
