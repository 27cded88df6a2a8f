package observability

import (
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the editor's Prometheus collectors.
type Metrics struct {
	Mutations   *prometheus.CounterVec
	Elements    *prometheus.CounterVec
	Imports     *prometheus.CounterVec
	Pruned      prometheus.Counter
	Sessions    prometheus.Gauge
	ActionCalls *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// Passing a fresh prometheus.NewRegistry() keeps tests isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arbor_tree_mutations_total",
			Help: "Structural mutations applied to dialogue trees, labelled by operation.",
		}, []string{"op"}),
		Elements: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arbor_tree_elements_total",
			Help: "Nodes and links created or destroyed, labelled by operation.",
		}, []string{"op"}),
		Imports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arbor_imports_total",
			Help: "Document imports, labelled by result (ok, invalid, error).",
		}, []string{"result"}),
		Pruned: f.NewCounter(prometheus.CounterOpts{
			Name: "arbor_pruned_nodes_total",
			Help: "Elements removed because their node had no content.",
		}),
		Sessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "arbor_open_sessions",
			Help: "Editor sessions currently open.",
		}),
		ActionCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arbor_actions_invoked_total",
			Help: "Node actions dispatched on visit, labelled by action and status.",
		}, []string{"action", "status"}),
	}
}

// Observer counts every mutation event.
func (m *Metrics) Observer() tree.Observer {
	return func(e tree.Event) {
		op := string(e.Op)
		m.Mutations.WithLabelValues(op).Inc()
		if e.Count > 0 {
			m.Elements.WithLabelValues(op).Add(float64(e.Count))
		}
		if e.Op == tree.OpPrune {
			m.Pruned.Add(float64(e.Count))
		}
	}
}

// Import result labels.
const (
	ImportOK      = "ok"
	ImportInvalid = "invalid"
	ImportError   = "error"
)

// ObserveImport records the outcome of an import and the records it pruned.
func (m *Metrics) ObserveImport(result string, pruned int) {
	m.Imports.WithLabelValues(result).Inc()
	if pruned > 0 {
		m.Pruned.Add(float64(pruned))
	}
}

// ObserveAction records one action dispatch.
func (m *Metrics) ObserveAction(name string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ActionCalls.WithLabelValues(name, status).Inc()
}
