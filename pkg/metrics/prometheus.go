package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the process-wide metrics container for the four core
// operations (plan, apply, run_stimuli, evaluate).
type Metrics struct {
	// Operation metrics — one series per external operation.
	OperationsTotal    *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	OperationsInFlight prometheus.Gauge

	// Planner metrics.
	SolveDuration *prometheus.HistogramVec
	CutSize       *prometheus.HistogramVec
	GraphNodes    *prometheus.HistogramVec
	GraphEdges    *prometheus.HistogramVec

	// Simulation metrics.
	StimuliPathsFound *prometheus.HistogramVec

	// Approval metrics.
	ApprovalsTotal *prometheus.CounterVec

	// System metrics.
	MemoryUsage *prometheus.GaugeVec
	Goroutines  prometheus.Gauge

	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics builds and registers the metric collectors.
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		OperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operations_total",
				Help:      "Total number of plan/apply/run_stimuli/evaluate calls",
			},
			[]string{"operation", "status"},
		),

		OperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operation_duration_seconds",
				Help:      "Duration of plan/apply/run_stimuli/evaluate calls",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),

		OperationsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operations_in_flight",
				Help:      "Current number of core operations being processed",
			},
		),

		SolveDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_duration_seconds",
				Help:      "Duration of the min-cut solve per energy domain",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"domain"},
		),

		CutSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cut_size_points",
				Help:      "Number of isolation points in a computed cut",
				Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
			},
			[]string{"domain"},
		),

		GraphNodes: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "graph_nodes_total",
				Help:      "Number of nodes in processed graphs",
				Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000},
			},
			[]string{"operation"},
		),

		GraphEdges: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "graph_edges_total",
				Help:      "Number of edges in processed graphs",
				Buckets:   []float64{20, 100, 500, 1000, 5000, 10000, 50000},
			},
			[]string{"operation"},
		),

		StimuliPathsFound: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stimuli_paths_found",
				Help:      "Number of open simple paths found per stimulus run",
				Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
			},
			[]string{"stimulus"},
		),

		ApprovalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "approvals_total",
				Help:      "Total number of approval decisions recorded",
			},
			[]string{"outcome"},
		),

		MemoryUsage: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "memory_usage_bytes",
				Help:      "Current memory usage",
			},
			[]string{"type"},
		),

		Goroutines: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "goroutines",
				Help:      "Current number of goroutines",
			},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the process-wide metrics, initializing with defaults on first use.
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("loto", "")
	}
	return defaultMetrics
}

// RecordOperation records the outcome and duration of one of the four core operations.
func (m *Metrics) RecordOperation(operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSolve records the min-cut solve time and resulting cut size for one domain graph.
func (m *Metrics) RecordSolve(domain string, duration time.Duration, cutSize int) {
	m.SolveDuration.WithLabelValues(domain).Observe(duration.Seconds())
	m.CutSize.WithLabelValues(domain).Observe(float64(cutSize))
}

// RecordGraphSize records the node/edge count of a graph passed into an operation.
func (m *Metrics) RecordGraphSize(operation string, nodes, edges int) {
	m.GraphNodes.WithLabelValues(operation).Observe(float64(nodes))
	m.GraphEdges.WithLabelValues(operation).Observe(float64(edges))
}

// RecordStimuliPaths records how many open paths a stimulus run discovered.
func (m *Metrics) RecordStimuliPaths(stimulus string, count int) {
	m.StimuliPathsFound.WithLabelValues(stimulus).Observe(float64(count))
}

// RecordApproval records an approval-gate decision (e.g. "approved", "rejected", "pending").
func (m *Metrics) RecordApproval(outcome string) {
	m.ApprovalsTotal.WithLabelValues(outcome).Inc()
}

// SetServiceInfo sets the service info gauge, labeled with version/environment.
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler returns the HTTP handler serving /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer starts an HTTP server exposing /metrics and /health.
func StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
