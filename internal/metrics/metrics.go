package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	CyclesTotal            *prometheus.CounterVec
	CandidatesFetchedTotal *prometheus.CounterVec
	CandidatesSkippedTotal *prometheus.CounterVec
	RepliesPostedTotal     *prometheus.CounterVec
	PostFailuresTotal      *prometheus.CounterVec
	SearchFailuresTotal    prometheus.Counter
	DedupLookupErrorsTotal prometheus.Counter
	CycleDuration          *prometheus.HistogramVec
	CursorPosition         prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mentionbot_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mentionbot_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mentionbot_cycles_total",
				Help: "Total number of interaction cycles run.",
			},
			[]string{"kind"},
		),
		CandidatesFetchedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mentionbot_candidates_fetched_total",
				Help: "Total number of candidate posts returned by search.",
			},
			[]string{"kind"},
		),
		CandidatesSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mentionbot_candidates_skipped_total",
				Help: "Total number of candidate posts filtered out, by reason.",
			},
			[]string{"reason"},
		),
		RepliesPostedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mentionbot_replies_posted_total",
				Help: "Total number of posts published.",
			},
			[]string{"kind"},
		),
		PostFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mentionbot_post_failures_total",
				Help: "Total number of failed generate or post attempts.",
			},
			[]string{"stage"},
		),
		SearchFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mentionbot_search_failures_total",
				Help: "Total number of failed platform searches.",
			},
		),
		DedupLookupErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mentionbot_dedup_lookup_errors_total",
				Help: "Total number of response lookups that failed and were treated as not responded.",
			},
		),
		CycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mentionbot_cycle_duration_seconds",
				Help:    "Interaction cycle duration in seconds.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"kind"},
		),
		CursorPosition: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mentionbot_cursor_last_checked_id",
				Help: "Last checked post id persisted in the cursor.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CyclesTotal,
		m.CandidatesFetchedTotal,
		m.CandidatesSkippedTotal,
		m.RepliesPostedTotal,
		m.PostFailuresTotal,
		m.SearchFailuresTotal,
		m.DedupLookupErrorsTotal,
		m.CycleDuration,
		m.CursorPosition,
	)
	return m
}
