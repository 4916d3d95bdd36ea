package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"quizmaster/internal/app"
	"quizmaster/internal/domain"

	"github.com/sirupsen/logrus"
)

// StatsHandler serves read-only views of a user's progress.
type StatsHandler struct {
	service *app.QuizService
	log     logrus.FieldLogger
}

func NewStatsHandler(service *app.QuizService, log logrus.FieldLogger) *StatsHandler {
	return &StatsHandler{service: service, log: log}
}

type statsResponse struct {
	UserID string         `json:"userId"`
	Stats  domain.Stats   `json:"stats"`
	Badges []domain.Badge `json:"badges"`
}

// ServeStats handles GET /stats?userId=.
func (h *StatsHandler) ServeStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}
	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("stats failed")
		http.Error(w, "stats unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, statsResponse{UserID: userID, Stats: stats, Badges: h.service.BadgeInfo(stats.Badges)})
}

// ServeHistory handles GET /history?userId=.
func (h *StatsHandler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}
	history, err := h.service.History(r.Context(), userID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("history failed")
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []domain.Attempt{}
	}
	writeJSON(w, history)
}

// ServeErrors handles GET /errors?userId=&quizId= and reports whether an
// errors-mode session can start.
func (h *StatsHandler) ServeErrors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	quizID := r.URL.Query().Get("quizId")
	if userID == "" || quizID == "" {
		http.Error(w, "missing userId or quizId", http.StatusBadRequest)
		return
	}
	available, err := h.service.HasErrors(r.Context(), userID, quizID)
	if errors.Is(err, domain.ErrQuizNotFound) {
		http.Error(w, "quiz not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "quiz_id": quizID}).Error("errors lookup failed")
		http.Error(w, "errors lookup unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"userId": userID, "quizId": quizID, "available": available})
}

// ServeSession handles GET /session?sessionId= with the latest progress snapshot.
func (h *StatsHandler) ServeSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}
	snap, err := h.service.Progress(r.Context(), sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("session_id", sessionID).Error("session lookup failed")
		http.Error(w, "session lookup unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, snap)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
