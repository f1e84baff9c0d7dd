// ABOUTME: Prometheus metrics for conversation transitions, background tasks and inbound updates
// ABOUTME: Each Recorder owns its registry so tests and multiple bots never collide

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joey-c/stickertaggerbot/internal/conversation"
)

const namespace = "stickertagger"

// Recorder records bot metrics into its own prometheus.Registry.
type Recorder struct {
	registry *prometheus.Registry

	transitions     *prometheus.CounterVec
	taskOutcomes    *prometheus.CounterVec
	updates         *prometheus.CounterVec
	duplicates      prometheus.Counter
	handlerDuration *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with Go runtime and process collectors registered.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Conversation state changes by source state, target state and result",
			},
			[]string{"from", "to", "result"},
		),
		taskOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "task_outcomes_total",
				Help:      "Awaited background task outcomes by task name",
			},
			[]string{"task", "outcome"},
		),
		updates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "updates_total",
				Help:      "Telegram updates dispatched by kind",
			},
			[]string{"kind"},
		),
		duplicates: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "duplicate_updates_total",
				Help:      "Telegram updates dropped because they were already handled",
			},
		),
		handlerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "handler_duration_seconds",
				Help:      "Time spent handling an update by kind",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"kind"},
		),
	}
}

// ObserveTransition implements conversation.Observer.
func (r *Recorder) ObserveTransition(from, to conversation.State, result string) {
	r.transitions.WithLabelValues(from.String(), to.String(), result).Inc()
}

// ObserveTaskOutcome counts the outcome of an awaited task.
func (r *Recorder) ObserveTaskOutcome(task string, outcome conversation.Outcome) {
	r.taskOutcomes.WithLabelValues(task, outcome.String()).Inc()
}

// ObserveUpdate counts a dispatched update and how long its handler ran.
func (r *Recorder) ObserveUpdate(kind string, duration time.Duration) {
	r.updates.WithLabelValues(kind).Inc()
	r.handlerDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveDuplicate counts a dropped redelivery.
func (r *Recorder) ObserveDuplicate() {
	r.duplicates.Inc()
}

// TrackConversations exposes a gauge whose value is read from count on scrape.
func (r *Recorder) TrackConversations(count func() int) {
	promauto.With(r.registry).NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "conversations",
			Help:      "Conversations held in memory",
		},
		func() float64 { return float64(count()) },
	)
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

var _ conversation.Observer = (*Recorder)(nil)
