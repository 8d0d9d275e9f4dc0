package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	requests         *prom.CounterVec
	requestDuration  *prom.HistogramVec
	statesRecorded   *prom.CounterVec
	statesRejected   *prom.CounterVec
	queueEnqueued    *prom.CounterVec
	queueDrained     *prom.CounterVec
	watchdogResets   prom.Counter
	forwardFailures  prom.Counter
	playbackOutcomes *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.requests = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "voicebus",
			Name:      "http_requests_total",
			Help:      "Broker HTTP requests by route and status",
		}, []string{"route", "status"})
		pr.requestDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "voicebus",
			Name:      "http_request_duration_seconds",
			Help:      "Broker HTTP request handling duration",
			Buckets:   prom.DefBuckets,
		}, []string{"route"})
		pr.statesRecorded = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "voicebus",
			Name:      "states_recorded_total",
			Help:      "Accepted state records by session state",
		}, []string{"state"})
		pr.statesRejected = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "voicebus",
			Name:      "states_rejected_total",
			Help:      "Rejected state submissions by reason",
		}, []string{"reason"})
		pr.queueEnqueued = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "voicebus",
			Name:      "queue_enqueued_total",
			Help:      "Entries enqueued by queue name",
		}, []string{"queue"})
		pr.queueDrained = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "voicebus",
			Name:      "queue_drained_total",
			Help:      "Entries drained by queue name",
		}, []string{"queue"})
		pr.watchdogResets = prom.NewCounter(prom.CounterOpts{
			Namespace: "voicebus",
			Name:      "watchdog_resets_total",
			Help:      "Watchdog-triggered resets to idle",
		})
		pr.forwardFailures = prom.NewCounter(prom.CounterOpts{
			Namespace: "voicebus",
			Name:      "forward_failures_total",
			Help:      "Failed fire-and-forget forwards to the durable event log",
		})
		pr.playbackOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "voicebus",
			Name:      "playback_outcomes_total",
			Help:      "Playback results by provider and result",
		}, []string{"provider", "result"})
		reg.MustRegister(pr.requests, pr.requestDuration, pr.statesRecorded,
			pr.statesRejected, pr.queueEnqueued, pr.queueDrained,
			pr.watchdogResets, pr.forwardFailures, pr.playbackOutcomes)
	})
	return pr
}

func (p *PrometheusRecorder) IncRequest(route string, status int) {
	if p == nil || p.requests == nil {
		return
	}
	p.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func (p *PrometheusRecorder) ObserveRequestDuration(route string, d time.Duration) {
	if p == nil || p.requestDuration == nil {
		return
	}
	p.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStateRecorded(state string) {
	if p == nil || p.statesRecorded == nil {
		return
	}
	p.statesRecorded.WithLabelValues(state).Inc()
}

func (p *PrometheusRecorder) IncStateRejected(reason string) {
	if p == nil || p.statesRejected == nil {
		return
	}
	p.statesRejected.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) IncQueueEnqueued(queue string) {
	if p == nil || p.queueEnqueued == nil {
		return
	}
	p.queueEnqueued.WithLabelValues(queue).Inc()
}

func (p *PrometheusRecorder) AddQueueDrained(queue string, n int) {
	if p == nil || p.queueDrained == nil || n <= 0 {
		return
	}
	p.queueDrained.WithLabelValues(queue).Add(float64(n))
}

func (p *PrometheusRecorder) IncWatchdogReset() {
	if p == nil || p.watchdogResets == nil {
		return
	}
	p.watchdogResets.Inc()
}

func (p *PrometheusRecorder) IncForwardFailure() {
	if p == nil || p.forwardFailures == nil {
		return
	}
	p.forwardFailures.Inc()
}

func (p *PrometheusRecorder) IncPlaybackOutcome(provider, result string) {
	if p == nil || p.playbackOutcomes == nil {
		return
	}
	p.playbackOutcomes.WithLabelValues(provider, result).Inc()
}

// HTTPHandler returns an http.Handler serving Prometheus metrics for the registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
