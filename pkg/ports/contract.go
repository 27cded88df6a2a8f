package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractDocument(text string) *schema.Document {
	zero := 0
	return &schema.Document{
		Version: schema.CurrentVersion,
		Records: map[int]*schema.Record{
			0: {ID: 0, ChildIDs: []int{1}, Data: &schema.RecordData{Type: domain.NodeTypeLine, Text: "root"}},
			1: {ID: 1, ParentID: &zero, Data: &schema.RecordData{
				Type:      domain.NodeTypeChoice,
				Text:      text,
				Condition: &domain.Condition{Expression: "gold > 1"},
			}},
		},
	}
}

// RunTreeStoreContract runs a suite of tests to verify that a TreeStore implementation
// adheres to the defined interface contract.
func RunTreeStoreContract(t *testing.T, store TreeStore) {
	ctx := context.Background()
	name := "contract-tree-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		doc := contractDocument("hello")
		require.NoError(t, store.Save(ctx, name, doc), "Save should not return error")

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err, "Load should not return error")
		require.Len(t, loaded.Records, 2)
		assert.Equal(t, "hello", loaded.Records[1].Data.Text)
		assert.Equal(t, domain.NodeTypeChoice, loaded.Records[1].Data.Type)
		assert.Equal(t, "gold > 1", loaded.Records[1].Data.Condition.Expression)
		require.NotNil(t, loaded.Records[1].ParentID)
		assert.Equal(t, 0, *loaded.Records[1].ParentID)

		_, err = schema.Import(loaded)
		assert.NoError(t, err, "a loaded document must still import")
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, name, contractDocument("first")))
		require.NoError(t, store.Save(ctx, name, contractDocument("second")))

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, "second", loaded.Records[1].Data.Text)
	})

	t.Run("Load Is Isolated", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, name, contractDocument("stable")))
		loaded, err := store.Load(ctx, name)
		require.NoError(t, err)
		loaded.Records[1].Data.Text = "mutated by caller"

		again, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, "stable", again.Records[1].Data.Text)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+name)
		assert.ErrorIs(t, err, domain.ErrTreeNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, name, contractDocument("doomed")))
		require.NoError(t, store.Delete(ctx, name), "Delete should not return error")

		_, err := store.Load(ctx, name)
		assert.ErrorIs(t, err, domain.ErrTreeNotFound, "Load after Delete should return ErrTreeNotFound")

		assert.NoError(t, store.Delete(ctx, name), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		n1 := name + "-1"
		n2 := name + "-2"
		require.NoError(t, store.Save(ctx, n1, contractDocument("one")))
		require.NoError(t, store.Save(ctx, n2, contractDocument("two")))
		defer func() {
			_ = store.Delete(ctx, n1)
			_ = store.Delete(ctx, n2)
		}()

		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, n1)
		assert.Contains(t, names, n2)
		assert.IsNonDecreasing(t, names)
	})
}

// RunLockerContract verifies that a Locker grants exclusive access per key.
func RunLockerContract(t *testing.T, locker Locker) {
	ctx := context.Background()
	key := "contract-lock-" + time.Now().Format("20060102150405")

	lease, err := locker.Lock(ctx, key, time.Minute)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	_, err = locker.Lock(short, key, time.Minute)
	cancel()
	assert.Error(t, err, "second Lock on a held key must not succeed")

	other, err := locker.Lock(ctx, key+"-other", time.Minute)
	require.NoError(t, err, "different keys do not contend")
	require.NoError(t, other.Unlock(ctx))

	require.NoError(t, lease.Renew(ctx, time.Minute), "a held lease can be renewed")

	require.NoError(t, lease.Unlock(ctx))
	assert.NoError(t, lease.Unlock(ctx), "unlocking twice is not an error")
	assert.ErrorIs(t, lease.Renew(ctx, time.Minute), domain.ErrLockLost, "a released lease cannot be renewed")

	again, err := locker.Lock(ctx, key, time.Minute)
	require.NoError(t, err, "lock is available after unlock")
	require.NoError(t, again.Unlock(ctx))
}
