package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline Prometheus metrics.
var (
	HandlerInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attachments",
			Name:      "handler_invocations_total",
			Help:      "Total number of handler invocations",
		},
		[]string{"stage", "verb", "status"},
	)

	HandlerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "attachments",
			Name:      "handler_duration_seconds",
			Help:      "Handler duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"stage"},
	)

	DispatchNoMatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attachments",
			Name:      "dispatch_nomatch_total",
			Help:      "Dispatch points where no handler matched",
		},
		[]string{"stage"},
	)

	ReductionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attachments",
			Name:      "reductions_total",
			Help:      "Total number of collection reductions",
		},
		[]string{"status"},
	)

	AdaptationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attachments",
			Name:      "adaptations_total",
			Help:      "Total number of adaptations",
		},
		[]string{"adapter", "status"},
	)

	FetchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attachments",
			Name:      "fetch_cache_total",
			Help:      "Fetch cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	FetchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attachments",
			Name:      "fetch_requests_total",
			Help:      "Remote fetches by outcome",
		},
		[]string{"status"}, // "ok" / "error"
	)

	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "attachments",
			Name:      "fetch_duration_seconds",
			Help:      "Remote fetch duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

var pipelineMetricsRegistered bool

func pipelineCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		HandlerInvocationsTotal,
		HandlerDuration,
		DispatchNoMatchTotal,
		ReductionsTotal,
		AdaptationsTotal,
		FetchCacheTotal,
		FetchRequestsTotal,
		FetchDuration,
	}
}

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(pipelineCollectors()...)
	pipelineMetricsRegistered = true
}

// RegisterPipelineMetricsOn registers the pipeline metrics on reg.
// Collectors already registered on reg are left as they are.
func RegisterPipelineMetricsOn(reg prometheus.Registerer) error {
	for _, c := range pipelineCollectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return fmt.Errorf("register pipeline metric: %w", err)
		}
	}
	return nil
}

// Recorder feeds dispatch events into the pipeline metrics.
// A nil *Recorder records nothing.
type Recorder struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	noMatch     *prometheus.CounterVec
	reductions  *prometheus.CounterVec
	adaptations *prometheus.CounterVec
}

// NewRecorder returns a recorder over the package-level pipeline metrics.
func NewRecorder() *Recorder {
	return &Recorder{
		invocations: HandlerInvocationsTotal,
		duration:    HandlerDuration,
		noMatch:     DispatchNoMatchTotal,
		reductions:  ReductionsTotal,
		adaptations: AdaptationsTotal,
	}
}

// Handler records one handler invocation.
func (r *Recorder) Handler(stage, verb string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.invocations.WithLabelValues(stage, verb, status(err)).Inc()
	r.duration.WithLabelValues(stage).Observe(d.Seconds())
}

// NoMatch records a dispatch point where nothing matched.
func (r *Recorder) NoMatch(stage string) {
	if r == nil {
		return
	}
	r.noMatch.WithLabelValues(stage).Inc()
}

// Reduction records one reducer run.
func (r *Recorder) Reduction(err error) {
	if r == nil {
		return
	}
	r.reductions.WithLabelValues(status(err)).Inc()
}

// Adaptation records one adaptation attempt.
func (r *Recorder) Adaptation(adapter string, err error) {
	if r == nil {
		return
	}
	r.adaptations.WithLabelValues(adapter, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
