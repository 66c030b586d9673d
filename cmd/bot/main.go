// Package main — точка входа казино-бота.
// Загружает конфигурацию, инициализирует приложение и запускает.
// Поддерживает graceful shutdown по SIGINT/SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"serotonyl.ru/minicasino/internal/app"
	"serotonyl.ru/minicasino/internal/config"
)

func main() {
	// Настраиваем логирование
	setupLogging()

	log.Info("=== Казино запускается ===")

	// Загружаем конфигурацию из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Не удалось загрузить конфигурацию")
	}

	// Устанавливаем уровень логирования из конфига
	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil {
		log.SetLevel(level)
	}

	// Контекст отменяется по Ctrl+C и docker stop
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Инициализируем приложение (БД, бот, сервисы, обработчики)
	application, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Не удалось инициализировать приложение")
	}
	defer application.DB.Close()

	// Очередь записи живёт дольше бота: её закрываем последней
	var writer errgroup.Group
	writer.Go(func() error { return application.Queue.Run(ctx) })

	// Запускаем планировщик задач (cron)
	if err := application.Scheduler.Start(ctx); err != nil {
		log.WithError(err).Fatal("Не удалось запустить планировщик")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return application.Bot.Start(gctx) })
	if application.API != nil {
		g.Go(func() error { return application.API.Run(gctx, cfg.HTTPAddr) })
	}

	log.Info("=== Казино готово к работе ===")

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Компонент остановился с ошибкой")
	}
	log.Info("Останавливаемся...")

	application.Scheduler.Stop()
	application.Casino.StopAll(10 * time.Second)

	// Всё поставленное в очередь дописывается в базу
	application.Queue.Close()
	if err := writer.Wait(); err != nil {
		log.WithError(err).Error("Ошибка очереди записи")
	}

	log.Info("=== Казино остановлено ===")
}

// setupLogging настраивает формат логов.
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}
