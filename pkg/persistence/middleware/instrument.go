package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type instrumented struct {
	next     ports.TreeStore
	duration *prometheus.HistogramVec
	logger   *slog.Logger
}

// NewInstrumentation times every store call into arbor_store_operation_duration_seconds
// and logs it at debug level. A missing tree counts as result "not_found", not "error".
// A nil reg leaves the histogram unregistered.
func NewInstrumentation(reg prometheus.Registerer, logger *slog.Logger) Middleware {
	duration := promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arbor_store_operation_duration_seconds",
		Help:    "Latency of tree store operations.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"op", "result"})
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(next ports.TreeStore) ports.TreeStore {
		return &instrumented{next: next, duration: duration, logger: logger}
	}
}

func (m *instrumented) observe(op, name string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, domain.ErrTreeNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	elapsed := time.Since(start)
	m.duration.WithLabelValues(op, result).Observe(elapsed.Seconds())
	m.logger.Debug("store call", "op", op, "tree", name, "result", result, "duration", elapsed)
}

func (m *instrumented) Save(ctx context.Context, name string, doc *schema.Document) error {
	start := time.Now()
	err := m.next.Save(ctx, name, doc)
	m.observe("save", name, start, err)
	return err
}

func (m *instrumented) Load(ctx context.Context, name string) (*schema.Document, error) {
	start := time.Now()
	doc, err := m.next.Load(ctx, name)
	m.observe("load", name, start, err)
	return doc, err
}

func (m *instrumented) Delete(ctx context.Context, name string) error {
	start := time.Now()
	err := m.next.Delete(ctx, name)
	m.observe("delete", name, start, err)
	return err
}

func (m *instrumented) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	names, err := m.next.List(ctx)
	m.observe("list", "", start, err)
	return names, err
}
