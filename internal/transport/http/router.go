package http

import (
	"net/http"

	"quizmaster/internal/app"

	"github.com/sirupsen/logrus"
)

// NewRouter mounts the websocket session endpoint and the read-only REST views.
func NewRouter(service *app.QuizService, log logrus.FieldLogger) http.Handler {
	ws := NewWSHandler(service, log)
	stats := NewStatsHandler(service, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", ws.ServeWS)
	mux.HandleFunc("/stats", stats.ServeStats)
	mux.HandleFunc("/history", stats.ServeHistory)
	mux.HandleFunc("/errors", stats.ServeErrors)
	mux.HandleFunc("/session", stats.ServeSession)
	return mux
}
