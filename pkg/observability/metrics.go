package observability

import (
	"errors"
	"log/slog"

	"github.com/aretw0/swimlane/pkg/domain"
	"github.com/aretw0/swimlane/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the board collectors.
type Metrics struct {
	Applied    *prometheus.CounterVec
	Rejected   *prometheus.CounterVec
	Duration   prometheus.Histogram
	BoardsOpen prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg.
// Pass prometheus.DefaultRegisterer to expose them on promhttp.Handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Applied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "swimlane",
				Name:      "events_applied_total",
				Help:      "Events accepted by a board and appended to its log.",
			},
			[]string{"type"},
		),
		Rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "swimlane",
				Name:      "events_rejected_total",
				Help:      "Events that did not reach the log.",
			},
			[]string{"type", "reason"},
		),
		Duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "swimlane",
				Name:      "apply_duration_seconds",
				Help:      "Time to apply and append one event, lock wait included.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		BoardsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "swimlane",
				Name:      "boards_open",
				Help:      "Boards currently held in memory.",
			},
		),
	}
	reg.MustRegister(m.Applied, m.Rejected, m.Duration, m.BoardsOpen)
	return m
}

// Hooks records manager activity into the collectors.
func (m *Metrics) Hooks() session.Hooks {
	return session.Hooks{
		OnApplied: func(a session.Applied) {
			m.Applied.WithLabelValues(eventType(a.Event)).Inc()
			m.Duration.Observe(a.Duration.Seconds())
		},
		OnRejected: func(r session.Rejected) {
			m.Rejected.WithLabelValues(eventType(r.Event), Reason(r.Err)).Inc()
			m.Duration.Observe(r.Duration.Seconds())
		},
		OnOpened: func(string) { m.BoardsOpen.Inc() },
		OnClosed: func(string) { m.BoardsOpen.Dec() },
	}
}

// Reason maps an apply error to a low-cardinality label.
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, domain.ErrUnknownNode):
		return "unknown_node"
	case errors.Is(err, domain.ErrUnknownCursor):
		return "unknown_cursor"
	case errors.Is(err, domain.ErrDuplicateID):
		return "duplicate_id"
	case errors.Is(err, domain.ErrUnknownNodeType):
		return "unknown_node_type"
	case errors.Is(err, domain.ErrUnknownEventType):
		return "unknown_event_type"
	default:
		return "internal"
	}
}

// LogHooks logs manager activity.
func LogHooks(logger *slog.Logger) session.Hooks {
	return session.Hooks{
		OnApplied: func(a session.Applied) {
			logger.Info("event_applied",
				"board", a.Board,
				"type", eventType(a.Event),
				"seq", a.Seq,
				"duration", a.Duration,
			)
		},
		OnRejected: func(r session.Rejected) {
			logger.Warn("event_rejected",
				"board", r.Board,
				"type", eventType(r.Event),
				"reason", Reason(r.Err),
				"err", r.Err,
			)
		},
		OnOpened: func(board string) { logger.Debug("board_opened", "board", board) },
		OnClosed: func(board string) { logger.Debug("board_closed", "board", board) },
	}
}

func eventType(e domain.Event) string {
	if e == nil {
		return "unknown"
	}
	return string(e.Type())
}
