package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type errorLogger struct {
	log *slog.Logger
}

func (l errorLogger) Println(v ...interface{}) {
	l.log.Warn("metrics handler error", "err", v)
}

// NewMetricsHandler exposes the registry in the Prometheus text format.
func NewMetricsHandler(m Metrics, log *slog.Logger) http.Handler {
	return promhttp.HandlerFor(m.GetRegistry(), promhttp.HandlerOpts{
		ErrorLog: errorLogger{log: log},
	})
}
