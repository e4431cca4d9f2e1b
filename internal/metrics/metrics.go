package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Rankings            *prometheus.CounterVec
	RankingSeconds      *prometheus.HistogramVec
	RankedFamilies      prometheus.Histogram
	InvariantViolations prometheus.Counter
	HTTPRequests        *prometheus.CounterVec
	FeedDisasters       *prometheus.CounterVec
	JobErrors           prometheus.Counter
	StreamSubscribers   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Rankings: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "evac_rankings_total",
			Help: "Total number of ranking runs by strategy and outcome.",
		}, []string{"strategy", "status"}),
		RankingSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evac_ranking_duration_seconds",
			Help:    "Duration of ranking runs.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"strategy"}),
		RankedFamilies: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "evac_ranked_families",
			Help:    "Number of families per ranking run.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		InvariantViolations: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "evac_graph_invariant_violations_total",
			Help: "Dependency orderings that fell back to proximity order.",
		}),
		HTTPRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "evac_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		FeedDisasters: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "evac_feed_disasters_total",
			Help: "New disasters stored from each feed.",
		}, []string{"source"}),
		JobErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "evac_worker_job_errors_total",
			Help: "Ingestion jobs that returned an error.",
		}),
		StreamSubscribers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "evac_stream_subscribers",
			Help: "Current number of live snapshot stream subscribers.",
		}),
	}
}

// ObserveRanking records one ranking run.
func (m *Metrics) ObserveRanking(strategy string, families int, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "invalid_input"
	}
	m.Rankings.WithLabelValues(strategy, status).Inc()
	m.RankingSeconds.WithLabelValues(strategy).Observe(elapsed.Seconds())
	if err == nil {
		m.RankedFamilies.Observe(float64(families))
	}
}

func (m *Metrics) ObserveInvariantViolation(string) {
	m.InvariantViolations.Inc()
}
