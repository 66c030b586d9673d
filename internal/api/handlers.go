package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/minicasino/internal/common"
	"serotonyl.ru/minicasino/internal/features/history"
	"serotonyl.ru/minicasino/internal/features/inbox"
)

const defaultHistoryLimit = 50

type accountResponse struct {
	UserID  int64           `json:"userId"`
	Balance decimal.Decimal `json:"balance"`
	Plays   int             `json:"plays"`
	Wins    int             `json:"wins"`
	WinRate float64         `json:"winRate"`
}

type historyResponse struct {
	UserID  int64            `json:"userId"`
	Records []history.Record `json:"records"`
}

type inboxResponse struct {
	UserID        int64                `json:"userId"`
	Unread        int                  `json:"unread"`
	Notifications []inbox.Notification `json:"notifications"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) rtp(w http.ResponseWriter, _ *http.Request) {
	if s.deps.RTP == nil {
		writeError(w, http.StatusNotFound, "rtp disabled")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.RTP.Report())
}

// GET /accounts/{id}
func (s *Server) account(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	balance, err := s.deps.Balances.PeekBalance(r.Context(), userID)
	if errors.Is(err, common.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	if err != nil {
		internalError(w, err, userID)
		return
	}
	stats, err := s.deps.Rounds.Stats(r.Context(), userID)
	if err != nil {
		internalError(w, err, userID)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{
		UserID:  userID,
		Balance: balance,
		Plays:   stats.Plays,
		Wins:    stats.Wins,
		WinRate: stats.WinRate(),
	})
}

// GET /accounts/{id}/history?limit=N
func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > history.DefaultLimit {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	records, err := s.deps.Rounds.History(r.Context(), userID, limit)
	if err != nil {
		internalError(w, err, userID)
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, historyResponse{UserID: userID, Records: records})
}

// GET /accounts/{id}/missions
func (s *Server) missions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Missions == nil {
		writeError(w, http.StatusNotFound, "missions disabled")
		return
	}
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	p, err := s.deps.Missions.Progress(r.Context(), userID)
	if err != nil {
		internalError(w, err, userID)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GET /accounts/{id}/inbox
func (s *Server) inbox(w http.ResponseWriter, r *http.Request) {
	if s.deps.Inbox == nil {
		writeError(w, http.StatusNotFound, "inbox disabled")
		return
	}
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	list, err := s.deps.Inbox.List(r.Context(), userID, 0)
	if err != nil {
		internalError(w, err, userID)
		return
	}
	unread, err := s.deps.Inbox.Unread(r.Context(), userID)
	if err != nil {
		internalError(w, err, userID)
		return
	}
	if list == nil {
		list = []inbox.Notification{}
	}
	writeJSON(w, http.StatusOK, inboxResponse{UserID: userID, Unread: unread, Notifications: list})
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return 0, false
	}
	return id, true
}

func internalError(w http.ResponseWriter, err error, userID int64) {
	log.WithError(err).WithField("user_id", userID).Error("Ошибка API")
	writeError(w, http.StatusInternalServerError, "internal error")
}
