package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetrics tracks fan-out volume and delivery channel health.
type DispatchMetrics struct {
	results  *prometheus.CounterVec
	calls    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	recorded *prometheus.CounterVec
}

// NewDispatchMetrics registers the dispatch metrics on the provided registerer.
// A nil registerer yields a no-op instance.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "push_dispatch_results_total",
		Help: "Per-token dispatch results by target kind and outcome.",
	}, []string{"target", "outcome"})
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "push_channel_calls_total",
		Help: "Calls made to the delivery channel.",
	}, []string{"kind", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "push_channel_latency_seconds",
		Help:    "Latency of delivery channel calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	recorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "push_notifications_recorded_total",
		Help: "Sent notification audit rows written, by result.",
	}, []string{"result"})
	reg.MustRegister(results, calls, latency, recorded)
	return &DispatchMetrics{
		results:  results,
		calls:    calls,
		latency:  latency,
		recorded: recorded,
	}
}

// ObserveResults adds the success and failure counts of one send.
func (d *DispatchMetrics) ObserveResults(target string, sent, failed int) {
	if d == nil || d.results == nil {
		return
	}
	label := normalizeLabel(target)
	d.results.WithLabelValues(label, "sent").Add(float64(sent))
	d.results.WithLabelValues(label, "failed").Add(float64(failed))
}

// ObserveChannelCall records one delivery channel round trip.
func (d *DispatchMetrics) ObserveChannelCall(kind string, duration time.Duration, err error) {
	if d == nil || d.calls == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	label := normalizeLabel(kind)
	d.calls.WithLabelValues(label, outcome).Inc()
	d.latency.WithLabelValues(label).Observe(duration.Seconds())
}

// IncRecorded counts audit rows by persistence result ("ok" or "error").
func (d *DispatchMetrics) IncRecorded(result string) {
	if d == nil || d.recorded == nil {
		return
	}
	d.recorded.WithLabelValues(normalizeLabel(result)).Inc()
}
