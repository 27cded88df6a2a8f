package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentation_Contract(t *testing.T) {
	mw := middleware.NewInstrumentation(prometheus.NewRegistry(), nil)
	ports.RunTreeStoreContract(t, mw(memory.NewStore()))
}

func TestInstrumentation_RecordsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := middleware.NewInstrumentation(reg, nil)(memory.NewStore())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "vault", secretDocument("hi")))
	_, err := store.Load(ctx, "vault")
	require.NoError(t, err)
	_, err = store.Load(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrTreeNotFound)

	// one series per op/result pair
	n, err := testutil.GatherAndCount(reg, "arbor_store_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestChain_Order(t *testing.T) {
	var calls []string
	tag := func(name string) middleware.Middleware {
		return func(next ports.TreeStore) ports.TreeStore {
			calls = append(calls, name)
			return next
		}
	}

	middleware.Chain(memory.NewStore(), tag("outer"), tag("inner"))
	assert.Equal(t, []string{"inner", "outer"}, calls, "inner wraps the store first")
}
