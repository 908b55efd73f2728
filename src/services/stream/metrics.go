package stream

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts stream activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	sessions    *prometheus.CounterVec
	events      *prometheus.CounterVec
	parseErrors prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg when reg is
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "difychat",
			Subsystem: "stream",
			Name:      "sessions_total",
			Help:      "Streaming sessions by terminal state.",
		}, []string{"state"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "difychat",
			Subsystem: "stream",
			Name:      "events_total",
			Help:      "Parsed stream events by kind.",
		}, []string{"kind"}),
		parseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "difychat",
			Subsystem: "stream",
			Name:      "parse_errors_total",
			Help:      "Data lines dropped because the payload was not valid JSON.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.sessions, m.events, m.parseErrors)
	}
	return m
}

func (m *Metrics) session(s State) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(s.String()).Inc()
}

func (m *Metrics) event(k EventKind) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(k.String()).Inc()
}

func (m *Metrics) parseError() {
	if m == nil {
		return
	}
	m.parseErrors.Inc()
}
