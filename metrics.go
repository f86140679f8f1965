package governance

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts decisions and transitions. A nil *Metrics records nothing.
type Metrics struct {
	decisions            *prometheus.CounterVec
	stepTransitions      *prometheus.CounterVec
	workflowsFinalized   *prometheus.CounterVec
	sessionTransitions   *prometheus.CounterVec
	auditFailures        prometheus.Counter
	notificationFailures prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "governance",
				Name:      "authorization_decisions_total",
				Help:      "Authorization decisions by outcome and deny reason.",
			},
			[]string{"allowed", "reason"},
		),
		stepTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "governance",
				Name:      "workflow_step_transitions_total",
				Help:      "Workflow step transitions by decision.",
			},
			[]string{"decision"},
		),
		workflowsFinalized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "governance",
				Name:      "workflows_finalized_total",
				Help:      "Workflows that reached a terminal status.",
			},
			[]string{"status"},
		),
		sessionTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "governance",
				Name:      "signature_session_transitions_total",
				Help:      "Signature sessions moved to a terminal status.",
			},
			[]string{"status"},
		),
		auditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "governance",
			Name:      "audit_write_failures_total",
			Help:      "Audit entries that could not be written.",
		}),
		notificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "governance",
			Name:      "notification_failures_total",
			Help:      "Notifications that could not be delivered.",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.decisions, m.stepTransitions, m.workflowsFinalized,
		m.sessionTransitions, m.auditFailures, m.notificationFailures,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeDecision(d Decision) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(strconv.FormatBool(d.Allowed), string(d.Reason)).Inc()
}

func (m *Metrics) observeStep(action ProcessAction) {
	if m == nil {
		return
	}
	m.stepTransitions.WithLabelValues(string(action)).Inc()
}

func (m *Metrics) observeFinalized(status WorkflowStatus) {
	if m == nil {
		return
	}
	m.workflowsFinalized.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) observeSession(status SessionStatus) {
	if m == nil {
		return
	}
	m.sessionTransitions.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) auditFailed() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}

func (m *Metrics) notificationFailed() {
	if m == nil {
		return
	}
	m.notificationFailures.Inc()
}
