package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerLogger is satisfied by *logging.Logger.
type ServerLogger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Handler serves /metrics from gatherer and a plain /health probe.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// Serve starts an HTTP server for Handler(gatherer) on addr. Stop it with
// Shutdown.
func Serve(addr string, gatherer prometheus.Gatherer, logger ServerLogger) *http.Server {
	srv := &http.Server{Addr: addr, Handler: Handler(gatherer)}

	go func() {
		logger.Info("metrics server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	return srv
}
