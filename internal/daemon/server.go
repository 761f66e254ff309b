package daemon

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Health is served on /healthz
type Health struct {
	Status     string    `json:"status"`
	User       string    `json:"user"`
	InFlight   bool      `json:"in_flight"`
	LastRun    time.Time `json:"last_run,omitempty"`
	LastStatus string    `json:"last_status,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
}

// NewRouter serves /metrics from gatherer and /healthz from health.
// When METRICS_USER is set, /metrics requires basic auth.
func NewRouter(gatherer prometheus.Gatherer, health func() Health, l *log.Logger) http.Handler {
	r := mux.NewRouter()

	metrics := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	if os.Getenv("METRICS_USER") != "" {
		metrics = basicAuth(metrics, os.Getenv("METRICS_USER"), os.Getenv("METRICS_PASS"))
	}
	r.Handle("/metrics", metrics).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(health()); err != nil {
			l.Warn("failed to encode health response", "error", err)
		}
	}).Methods(http.MethodGet)

	access := l.StandardLog(log.StandardLogOptions{ForceLevel: log.DebugLevel}).Writer()
	recovery := l.StandardLog(log.StandardLogOptions{ForceLevel: log.ErrorLevel})
	return handlers.RecoveryHandler(handlers.RecoveryLogger(recovery), handlers.PrintRecoveryStack(true))(
		handlers.CombinedLoggingHandler(access, r),
	)
}

func basicAuth(next http.Handler, user, pass string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="Metrics"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
