package obs

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rateplans"

// Metrics records HTTP, bus and pricing outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	httpDuration *prometheus.HistogramVec
	messages     *prometheus.CounterVec
	msgDuration  *prometheus.HistogramVec
	searches     *prometheus.CounterVec
	searchTime   prometheus.Histogram
	skipped      prometheus.Counter
	deletions    *prometheus.CounterVec
	refunds      *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg. A nil registerer yields a no-op.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	m := &Metrics{
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_messages_total",
			Help:      "Commands and queries dispatched, by outcome.",
		}, []string{"kind", "key", "outcome"}),
		msgDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bus_message_duration_seconds",
			Help:      "Command and query handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "key"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_searches_total",
			Help:      "Rate searches by outcome.",
		}, []string{"outcome"}),
		searchTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rate_search_duration_seconds",
			Help:      "Rate search latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_plans_skipped_total",
			Help:      "Rate plans left out of search results because they could not be priced.",
		}),
		deletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_plan_deletions_total",
			Help:      "Rate plan deletion decisions by outcome.",
		}, []string{"outcome"}),
		refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refund_calculations_total",
			Help:      "Refund calculations by whether a policy tier applied.",
		}, []string{"policy"}),
	}
	reg.MustRegister(m.httpDuration, m.messages, m.msgDuration, m.searches, m.searchTime, m.skipped, m.deletions, m.refunds)
	return m
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil || m.httpDuration == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// ObserveMessage implements middleware.BusObserver.
func (m *Metrics) ObserveMessage(kind, key string, err error, elapsed time.Duration) {
	if m == nil || m.messages == nil {
		return
	}
	m.messages.WithLabelValues(kind, normalizeLabel(key), outcomeOf(err)).Inc()
	m.msgDuration.WithLabelValues(kind, normalizeLabel(key)).Observe(elapsed.Seconds())
}

func (m *Metrics) SearchCompleted(outcome string, quotes, skipped int, elapsed time.Duration) {
	if m == nil || m.searches == nil {
		return
	}
	m.searches.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.searchTime.Observe(elapsed.Seconds())
	if skipped > 0 {
		m.skipped.Add(float64(skipped))
	}
}

func (m *Metrics) DeletionDecided(kind string) {
	if m == nil || m.deletions == nil {
		return
	}
	m.deletions.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *Metrics) RefundCalculated(tierMatched bool) {
	if m == nil || m.refunds == nil {
		return
	}
	label := "none"
	if tierMatched {
		label = "tier"
	}
	m.refunds.WithLabelValues(label).Inc()
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
