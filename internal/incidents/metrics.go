package incidents

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "incidenttriage"

var (
	incidentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incidents",
			Name:      "created_total",
			Help:      "Total incidents created",
		},
		[]string{"severity"},
	)

	analysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Time spent on the AI analysis call",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	analysisFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "fallback_total",
			Help:      "Total analyses that degraded to the deterministic fallback",
		},
	)

	analysisTokens = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "tokens_used_total",
			Help:      "Total tokens consumed by successful analyses",
		},
	)
)

func recordIncidentCreated(severity string) {
	incidentsCreated.WithLabelValues(severity).Inc()
}

func recordAnalysisDuration(d time.Duration) {
	analysisDuration.Observe(d.Seconds())
}

func recordAnalysisFallback() {
	analysisFallbacks.Inc()
}

func recordAnalysisTokens(tokens int) {
	analysisTokens.Add(float64(tokens))
}
