package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscout_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "logscout_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Reasoning agent metrics
	agentInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscout_agent_invocations_total",
			Help: "Total number of reasoning agent invocations",
		},
		[]string{"outcome"},
	)

	agentInvocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "logscout_agent_invocation_duration_seconds",
			Help:    "Reasoning agent invocation duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"outcome"},
	)

	// Query engine metrics
	queryExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscout_query_executions_total",
			Help: "Total number of query plan executions",
		},
		[]string{"result_type"},
	)

	semanticSearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logscout_semantic_searches_total",
			Help: "Total number of semantic retriever searches",
		},
		[]string{"status"},
	)

	// Session metrics
	pendingHumanInput = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "logscout_pending_human_input",
			Help: "Number of conversation turns awaiting human input",
		},
	)

	sessionResetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "logscout_session_resets_total",
			Help: "Total number of conversation resets",
		},
	)

	initOnce sync.Once
)

// InitMetrics initializes Prometheus metrics
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			agentInvocationsTotal,
			agentInvocationDuration,
			queryExecutionsTotal,
			semanticSearchesTotal,
			pendingHumanInput,
			sessionResetsTotal,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAgentInvocation records one reasoning agent turn. The outcome label is
// "resolved", "awaiting_input" or "error".
func RecordAgentInvocation(outcome string, duration time.Duration) {
	agentInvocationsTotal.WithLabelValues(outcome).Inc()
	agentInvocationDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordQueryExecution records a query plan execution by result type
func RecordQueryExecution(resultType string) {
	queryExecutionsTotal.WithLabelValues(resultType).Inc()
}

// RecordSemanticSearch records a semantic retriever search
func RecordSemanticSearch(status string) {
	semanticSearchesTotal.WithLabelValues(status).Inc()
}

// SetPendingHumanInput sets the pending human-input gauge
func SetPendingHumanInput(count int) {
	pendingHumanInput.Set(float64(count))
}

// RecordSessionReset records a conversation reset
func RecordSessionReset() {
	sessionResetsTotal.Inc()
}
