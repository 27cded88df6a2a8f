package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/schema"
)

// TreeStore persists dialogue documents as whole units. There is no partial update and
// no conflict detection: the last Save wins.
type TreeStore interface {
	// Save persists the document under name, overwriting any previous version.
	Save(ctx context.Context, name string, doc *schema.Document) error

	// Load retrieves a document.
	// Returns domain.ErrTreeNotFound if no document is stored under name.
	Load(ctx context.Context, name string) (*schema.Document, error)

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the stored tree names in ascending order.
	List(ctx context.Context) ([]string, error)
}

// Watchable defines an interface for stores that can notify about backend changes.
type Watchable interface {
	// Watch returns a channel that receives the name of every tree changed externally.
	Watch(ctx context.Context) (<-chan string, error)
}
