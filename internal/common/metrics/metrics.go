// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorecard_analyses_completed_total",
			Help: "Total number of menu analyses that produced a scorecard",
		},
		[]string{"analyzer", "confidence"},
	)

	AnalysesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorecard_analyses_failed_total",
			Help: "Total number of menu analyses that failed",
		},
		[]string{"analyzer", "error_code"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scorecard_analysis_duration_seconds",
			Help:    "Duration of the model call in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"analyzer"},
	)

	OverallScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scorecard_overall_score",
			Help:    "Distribution of overall menu scores",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
	)

	CapturesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorecard_captures_received_total",
			Help: "Menu captures received by source and media type",
		},
		[]string{"source", "media_type"},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scorecard_sessions_active",
			Help: "Number of live scoring sessions",
		},
	)

	AnalysesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scorecard_analyses_in_flight",
			Help: "Number of analyses currently waiting on the model",
		},
	)

	LeadSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorecard_lead_submissions_total",
			Help: "Lead deliveries by sink and outcome",
		},
		[]string{"sink", "outcome"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorecard_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)
)
