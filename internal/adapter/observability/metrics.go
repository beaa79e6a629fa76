package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)
	AITokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Total tokens exchanged with the AI provider",
		},
		[]string{"operation", "direction"},
	)

	BatchesEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batches_enqueued_total",
			Help: "Total number of batches enqueued",
		},
		[]string{"path"},
	)
	BatchesProcessing = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "batches_processing",
			Help: "Number of batches currently processing",
		},
	)
	BatchesCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batches_completed_total",
			Help: "Total number of batches reaching a terminal state",
		},
		[]string{"status"},
	)

	ItemsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "items_processed_total",
			Help: "Total number of CV items processed by outcome",
		},
		[]string{"outcome", "stage"},
	)
	ItemDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "item_processing_duration_seconds",
			Help:    "Per-item pipeline duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	// Score distribution of completed compatibility computations.
	MatchScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_overall_score",
			Help:    "Distribution of overall compatibility scores ([0,100])",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(AITokensTotal)
	prometheus.MustRegister(BatchesEnqueuedTotal)
	prometheus.MustRegister(BatchesProcessing)
	prometheus.MustRegister(BatchesCompletedTotal)
	prometheus.MustRegister(ItemsProcessedTotal)
	prometheus.MustRegister(ItemDuration)
	prometheus.MustRegister(MatchScoreHistogram)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// ObserveItem records a finished pipeline item.
func ObserveItem(success bool, stage string, elapsed time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	ItemsProcessedTotal.WithLabelValues(outcome, stage).Inc()
	ItemDuration.Observe(elapsed.Seconds())
}

// ObserveMatchScore records the resulting overall score of a completed
// compatibility computation.
func ObserveMatchScore(score int) {
	if score >= 0 && score <= 100 {
		MatchScoreHistogram.Observe(float64(score))
	}
}
