package observability

import (
	"log/slog"

	"github.com/aretw0/arbor/pkg/tree"
)

// Chain fans an event out to each non-nil observer in order.
func Chain(observers ...tree.Observer) tree.Observer {
	var live []tree.Observer
	for _, o := range observers {
		if o != nil {
			live = append(live, o)
		}
	}
	return func(e tree.Event) {
		for _, o := range live {
			o(e)
		}
	}
}

// LogObserver logs each mutation at debug level.
func LogObserver(logger *slog.Logger) tree.Observer {
	return func(e tree.Event) {
		logger.Debug("tree mutated",
			"op", e.Op,
			"handle", e.Handle.String(),
			"parent", e.Parent.String(),
			"count", e.Count,
		)
	}
}
