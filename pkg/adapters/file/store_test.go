package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/arbor/internal/testutils"
	"github.com/aretw0/arbor/pkg/adapters/file"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		ports.RunTreeStoreContract(t, file.New(t.TempDir()))
	})
	t.Run("json", func(t *testing.T) {
		ports.RunTreeStoreContract(t, file.New(t.TempDir(), file.WithFormat(schema.FormatJSON)))
	})
}

func TestFileStore_WritesReadableFile(t *testing.T) {
	dir, store := testutils.SetupFileStore(t)
	require.NoError(t, store.Save(context.Background(), "tavern", testutils.SampleDocument(t)))

	raw, err := os.ReadFile(filepath.Join(dir, "tavern.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "type: choice")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp file may be left behind")
}

func TestFileStore_ListIgnoresForeignFiles(t *testing.T) {
	dir, store := testutils.SetupFileStore(t)
	require.NoError(t, store.Save(context.Background(), "a", testutils.SampleDocument(t)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-b-123.yaml"), []byte("x"), 0644))

	names, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names)
}

func TestFileStore_RejectsPathNames(t *testing.T) {
	store := file.New(t.TempDir())
	assert.Error(t, store.Save(context.Background(), "../escape", testutils.SampleDocument(t)))
	_, err := store.Load(context.Background(), "")
	assert.Error(t, err)
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("records: [unclosed"), 0644))

	_, err := file.New(dir).Load(context.Background(), "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrTreeNotFound)
}

func TestFileStore_Watch(t *testing.T) {
	_, store := testutils.SetupFileStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := store.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, "watched", testutils.SampleDocument(t)))

	select {
	case name := <-events:
		assert.Equal(t, "watched", name)
	case <-time.After(5 * time.Second):
		t.Fatal("expected a change notification")
	}

	cancel()
	assert.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-events:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, 2*time.Second, 10*time.Millisecond)
}
