package observability_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observer(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	tr := tree.New(nil, tree.WithObserver(m.Observer()))

	a, err := tr.AddNode(tr.Root(), domain.NodeTypeLine)
	require.NoError(t, err)
	b, err := tr.AddNode(a, domain.NodeTypeChoice)
	require.NoError(t, err)
	_, err = tr.AddLink(tr.Root(), b)
	require.NoError(t, err)
	require.NoError(t, tr.Remove(a))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Mutations.WithLabelValues("add_node")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues("add_link")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues("remove")))
	// a, b and the link aliasing b.
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Elements.WithLabelValues("remove")))
}

func TestMetrics_Prune(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	tr := tree.New(nil, tree.WithObserver(m.Observer()))
	a, err := tr.AddNode(tr.Root(), domain.NodeTypeLine)
	require.NoError(t, err)
	_, err = tr.AddNode(a, domain.NodeTypeLine)
	require.NoError(t, err)
	require.NoError(t, tr.ClearData(a))

	assert.Equal(t, 2, tr.Prune())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Pruned))

	m.ObserveImport(observability.ImportOK, 3)
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Pruned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Imports.WithLabelValues("ok")))
}

func TestMetrics_ObserveAction(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())
	m.ObserveAction("give", nil)
	m.ObserveAction("give", errors.New("x"))
	m.ObserveAction("give", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActionCalls.WithLabelValues("give", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionCalls.WithLabelValues("give", "error")))
}

func TestMetrics_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.NewMetrics(reg)
	assert.Panics(t, func() { observability.NewMetrics(reg) })
}

func TestChain(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var seen []tree.Op
	obs := observability.Chain(nil, func(e tree.Event) { seen = append(seen, e.Op) }, observability.LogObserver(logger))

	tr := tree.New(nil, tree.WithObserver(obs))
	_, err := tr.AddNode(tr.Root(), domain.NodeTypeLine)
	require.NoError(t, err)

	assert.Equal(t, []tree.Op{tree.OpAddNode}, seen)
	assert.Contains(t, buf.String(), "op=add_node")
}
