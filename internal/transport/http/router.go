package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lexicon-quiz-service/internal/app"
)

// NewRouter wires middleware, REST routes, the websocket endpoint, health and metrics.
func NewRouter(games *app.GameService, users *app.UserService) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(instrument)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", NewWSHandler(games).ServeWS)

	// /ws stays outside the timeout
	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(15 * time.Second))
		NewAPIHandler(games, users).Mount(r)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Message: r.URL.Path})
	})
	return r
}
