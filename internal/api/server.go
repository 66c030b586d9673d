// Package api — HTTP API только для чтения: баланс, история, миссии, почта.
// Ставок через API нет, играют в Telegram.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/minicasino/internal/features/casino"
	"serotonyl.ru/minicasino/internal/features/history"
	"serotonyl.ru/minicasino/internal/features/inbox"
	"serotonyl.ru/minicasino/internal/features/missions"
)

// Balances — балансы игроков. PeekBalance не создаёт счёт,
// для неизвестного игрока возвращает common.ErrAccountNotFound.
type Balances interface {
	PeekBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
}

// Rounds — история и счётчики игрока.
type Rounds interface {
	History(ctx context.Context, userID int64, n int) ([]history.Record, error)
	Stats(ctx context.Context, userID int64) (history.Stats, error)
}

// RTPReporter — фактическая отдача игр.
type RTPReporter interface {
	Report() []casino.RTPReport
}

// Missions — прогресс миссий.
type Missions interface {
	Progress(ctx context.Context, userID int64) (missions.Progress, error)
}

// Inbox — почта игрока.
type Inbox interface {
	List(ctx context.Context, userID int64, limit int) ([]inbox.Notification, error)
	Unread(ctx context.Context, userID int64) (int, error)
}

// Deps — зависимости API. Missions и Inbox могут быть nil.
type Deps struct {
	Balances       Balances
	Rounds         Rounds
	RTP            RTPReporter
	Missions       Missions
	Inbox          Inbox
	AllowedOrigins []string
}

// Server — HTTP сервер API.
type Server struct {
	deps   Deps
	router chi.Router
}

// NewServer создаёт сервер и его маршруты.
func NewServer(deps Deps) *Server {
	s := &Server{deps: deps}
	s.router = s.routes()
	return s
}

// Handler возвращает корневой обработчик (для тестов и встраивания).
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           60 * 15,
	}))

	r.Get("/healthz", s.health)
	r.Get("/rtp", s.rtp)
	r.Route("/accounts/{id}", func(rr chi.Router) {
		rr.Get("/", s.account)
		rr.Get("/history", s.history)
		rr.Get("/missions", s.missions)
		rr.Get("/inbox", s.inbox)
	})
	return r
}

// Run слушает addr до отмены ctx, затем мягко останавливается.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("HTTP API запущен")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("HTTP API остановлен")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Ошибка записи ответа API")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
