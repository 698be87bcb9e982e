package metrics

import "github.com/prometheus/client_golang/prometheus"

type noopMetrics struct {
	registry *prometheus.Registry
}

// NewNoop returns Metrics that record nothing. Its registry is empty.
func NewNoop() Metrics {
	return &noopMetrics{registry: prometheus.NewRegistry()}
}

func (n *noopMetrics) GetRegistry() *prometheus.Registry { return n.registry }
func (n *noopMetrics) ObserveHTTPRequest(route, method, status string, elapsed float64) {}
func (n *noopMetrics) ObserveEmbedDuration(model string, elapsed float64) {}
func (n *noopMetrics) IncrementEmbedInflight() {}
func (n *noopMetrics) DecrementEmbedInflight() {}
func (n *noopMetrics) ObserveEmbedError(model string) {}
func (n *noopMetrics) ObserveCacheResult(hit bool) {}
