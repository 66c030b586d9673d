// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, очередь записи, репозитории,
// сервисы, обработчики и собирает всё в бота, HTTP API и планировщик.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mymmrac/telego"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/minicasino/internal/api"
	"serotonyl.ru/minicasino/internal/bot"
	"serotonyl.ru/minicasino/internal/config"
	"serotonyl.ru/minicasino/internal/db/postgres"
	"serotonyl.ru/minicasino/internal/features/casino"
	"serotonyl.ru/minicasino/internal/features/casino/rng"
	"serotonyl.ru/minicasino/internal/features/economy"
	"serotonyl.ru/minicasino/internal/features/inbox"
	"serotonyl.ru/minicasino/internal/features/missions"
	"serotonyl.ru/minicasino/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	API       *api.Server // nil, если HTTP API выключен
	Scheduler *jobs.Scheduler
	Queue     *postgres.WriteQueue
	Casino    *casino.Service
	DB        *pgxpool.Pool
	BotAPI    *telego.Bot
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен: компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool, migrations); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	tm, err := postgres.NewTxManager(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	queue := postgres.NewWriteQueue(cfg.WriteQueueSize, cfg.WriteQueueRetries, cfg.WriteQueueBackoff)

	// === 2. Telegram Bot API ===
	botAPI, err := telego.NewBot(cfg.TelegramBotToken)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	me, err := botAPI.GetMe(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка авторизации в Telegram: %w", err)
	}
	log.Infof("Авторизован как @%s", me.Username)

	// === 3. Репозитории ===
	economyRepo := economy.NewRepository(pool, tm, decimal.NewFromInt(cfg.CasinoStartingBalance))
	casinoRepo := casino.NewRepository(pool, tm)
	missionsRepo := missions.NewRepository(pool)
	inboxRepo := inbox.NewRepository(pool)

	// === 4. Сервисы ===
	economyService := economy.NewService(economyRepo, queue, economyRepo)
	inboxService := inbox.NewService(inboxRepo, queue, cfg.CasinoInboxLimit)
	casinoService := casino.NewService(cfg, economyService, casinoRepo, queue, rng.Default(), inboxService)
	missionsService := missions.NewService(cfg, missionsRepo, economyService, queue, inboxService)
	if cfg.FeatureMissionsEnabled {
		casinoService.Subscribe(missionsService)
	}

	// === 5. Обработчики ===
	handlers := bot.Handlers{
		Economy: economy.NewHandler(economyService, botAPI),
		Casino:  casino.NewHandler(casinoService, casinoRepo, botAPI),
		Inbox:   inbox.NewHandler(inboxService, botAPI),
	}
	if cfg.FeatureMissionsEnabled {
		handlers.Missions = missions.NewHandler(missionsService, botAPI)
	}

	// === 6. Собираем бота ===
	b := bot.New(botAPI, cfg, handlers, economyService)

	// === 7. HTTP API ===
	var server *api.Server
	if cfg.FeatureHTTPAPIEnabled {
		server = api.NewServer(api.Deps{
			Balances:       economyService,
			Rounds:         casinoService,
			RTP:            casinoService.RTP(),
			Missions:       missionsService,
			Inbox:          inboxService,
			AllowedOrigins: cfg.HTTPAllowedOrigins,
		})
	}

	// === 8. Планировщик задач ===
	scheduler := jobs.NewScheduler(
		cfg.AppTimezone, cfg.CasinoIdleEvict, cfg.CasinoHistoryLimit,
		casinoRepo, inboxService,
		casinoService, missionsService,
	)

	return &App{
		Bot:       b,
		API:       server,
		Scheduler: scheduler,
		Queue:     queue,
		Casino:    casinoService,
		DB:        pool,
		BotAPI:    botAPI,
	}, nil
}
