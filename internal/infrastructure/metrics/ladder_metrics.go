// Package metrics exposes Prometheus instruments for command execution,
// page navigation and reply delivery.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lllypuk/ladder/internal/infrastructure/replyboard"
)

// Failure labels for CommandFailures.
const (
	FailureDefect      = "defect"
	FailureReplyFailed = "reply_failed"
)

// Navigation result labels.
const (
	NavigationEdited   = "edited"
	NavigationExpired  = "expired"
	NavigationNotOwner = "not_owner"
	NavigationFailed   = "failed"
)

// LadderMetrics holds the application instruments. A nil *LadderMetrics is a
// valid no-op.
type LadderMetrics struct {
	CommandsTotal    *prometheus.CounterVec
	CommandDuration  *prometheus.HistogramVec
	CommandFailures  *prometheus.CounterVec
	NavigationsTotal *prometheus.CounterVec
	RepliesPublished *prometheus.CounterVec

	registerer prometheus.Registerer
}

// NewLadderMetrics creates and registers the instruments with registerer.
func NewLadderMetrics(registerer prometheus.Registerer) *LadderMetrics {
	m := &LadderMetrics{
		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ladder_commands_total",
				Help: "Commands executed, by command and outcome status",
			},
			[]string{"command", "status"},
		),
		CommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ladder_command_duration_seconds",
				Help:    "Time to run the command pipeline including the reply",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"command"},
		),
		CommandFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ladder_command_failures_total",
				Help: "Pipeline runs that hit a defect or could not deliver the reply",
			},
			[]string{"command", "kind"},
		),
		NavigationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ladder_navigations_total",
				Help: "Page control presses, by result",
			},
			[]string{"result"},
		),
		RepliesPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ladder_replies_published_total",
				Help: "Reply events pushed to subscribers, by event type",
			},
			[]string{"type"},
		),
		registerer: registerer,
	}

	registerer.MustRegister(
		m.CommandsTotal,
		m.CommandDuration,
		m.CommandFailures,
		m.NavigationsTotal,
		m.RepliesPublished,
	)

	return m
}

// ObserveCommand records one pipeline run. failure is "" or one of the
// Failure labels.
func (m *LadderMetrics) ObserveCommand(command, status, failure string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(command, status).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
	if failure != "" {
		m.CommandFailures.WithLabelValues(command, failure).Inc()
	}
}

// ObserveNavigation records one navigation with a Navigation result label.
func (m *LadderMetrics) ObserveNavigation(result string) {
	if m == nil {
		return
	}
	m.NavigationsTotal.WithLabelValues(result).Inc()
}

// RegisterGauge registers a gauge sampled from fn at scrape time.
func (m *LadderMetrics) RegisterGauge(name, help string, fn func() float64) {
	if m == nil {
		return
	}
	m.registerer.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn))
}

// InstrumentPublisher counts reply events before handing them to next.
func (m *LadderMetrics) InstrumentPublisher(next replyboard.Publisher) replyboard.Publisher {
	if m == nil {
		return next
	}
	return publisherFunc(func(ctx context.Context, evt replyboard.Event) {
		m.RepliesPublished.WithLabelValues(evt.Type).Inc()
		if next != nil {
			next.Publish(ctx, evt)
		}
	})
}

type publisherFunc func(ctx context.Context, evt replyboard.Event)

func (f publisherFunc) Publish(ctx context.Context, evt replyboard.Event) {
	f(ctx, evt)
}
