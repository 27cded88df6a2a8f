// Package testutils holds fixtures shared by the store tests.
package testutils

import (
	"path/filepath"
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/file"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/stretchr/testify/require"
)

// SampleDocument exports a minimal tree: the root line with one default choice under it.
func SampleDocument(t *testing.T) *schema.Document {
	t.Helper()
	tr := tree.New(nil)
	_, err := tr.AddNode(tr.Root(), domain.NodeTypeChoice)
	require.NoError(t, err)
	doc, err := schema.Export(tr)
	require.NoError(t, err, "Failed to export sample tree")
	return doc
}

// SetupFileStore creates a temporary directory and a file store rooted in it.
// It returns the absolute path to the temp dir and the store.
func SetupFileStore(t *testing.T, opts ...file.Option) (string, *file.Store) {
	t.Helper()

	absPath, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	return absPath, file.New(absPath, opts...)
}
