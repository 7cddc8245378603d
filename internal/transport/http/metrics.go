package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"lexicon-quiz-service/internal/domain"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	gamesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "games_started_total",
		Help: "Total number of game sessions started",
	})

	gameAnswers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_answers_total",
			Help: "Total number of submitted answers",
		},
		[]string{"correct"},
	)

	configurationUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "configuration_updates_total",
			Help: "Total number of configuration update attempts",
		},
		[]string{"result"},
	)
)

// instrument records request metrics and writes one access log line per request.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)

		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

		log.Info().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("request")
	})
}

func recordAnswer(correct bool) {
	gameAnswers.WithLabelValues(strconv.FormatBool(correct)).Inc()
}

func recordConfigurationUpdate(err error) {
	switch {
	case err == nil:
		configurationUpdates.WithLabelValues("ok").Inc()
	case errors.Is(err, domain.ErrInvalidConfiguration):
		configurationUpdates.WithLabelValues("rejected").Inc()
	default:
		configurationUpdates.WithLabelValues("error").Inc()
	}
}
