package action_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/aretw0/arbor/pkg/action"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.ActionInvoker = (*action.Registry)(nil)

type giveItem struct {
	Item  string `mapstructure:"item"`
	Count int    `mapstructure:"count"`
}

func TestRegistry_InvokeSync(t *testing.T) {
	reg := action.NewRegistry()
	var got giveItem
	reg.Register("give_item", action.Typed(func(_ context.Context, args giveItem) error {
		got = args
		return nil
	}))

	err := reg.Invoke(context.Background(), domain.Action{
		Name: "give_item",
		Args: map[string]any{"item": "key", "count": "2"},
	})
	require.NoError(t, err)
	assert.Equal(t, giveItem{Item: "key", Count: 2}, got)
}

func TestRegistry_Errors(t *testing.T) {
	reg := action.NewRegistry()
	boom := errors.New("boom")
	reg.Register("fail", func(context.Context, map[string]any) error { return boom })
	reg.Register("give_item", action.Typed(func(context.Context, giveItem) error { return nil }))

	err := reg.Invoke(context.Background(), domain.Action{Name: "missing"})
	assert.ErrorContains(t, err, "action not found")

	err = reg.Invoke(context.Background(), domain.Action{Name: "fail"})
	assert.ErrorIs(t, err, boom)

	err = reg.Invoke(context.Background(), domain.Action{
		Name: "give_item",
		Args: map[string]any{"item": "key", "colour": "red"},
	})
	assert.ErrorContains(t, err, "invalid action arguments")
}

func TestRegistry_Async(t *testing.T) {
	reg := action.NewRegistry(action.WithAsync())
	var calls atomic.Int32
	release := make(chan struct{})
	reg.Register("slow", func(context.Context, map[string]any) error {
		<-release
		calls.Add(1)
		return errors.New("logged, not returned")
	})

	require.NoError(t, reg.Invoke(context.Background(), domain.Action{Name: "slow"}))
	assert.Equal(t, int32(0), calls.Load(), "Invoke must not wait for the handler")

	close(release)
	reg.Wait()
	assert.Equal(t, int32(1), calls.Load())

	assert.Error(t, reg.Invoke(context.Background(), domain.Action{Name: "unknown"}))
}

func TestRegistry_Names(t *testing.T) {
	reg := action.NewRegistry()
	reg.Register("b", nil)
	reg.Register("a", nil)
	assert.Equal(t, []string{"a", "b"}, reg.Names())
	assert.True(t, reg.Has("a"))
	assert.False(t, reg.Has("c"))
}
