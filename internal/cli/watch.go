package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/arbor/pkg/ports"
)

// settleDelay lets an atomic rename land before the tree is read back.
const settleDelay = 100 * time.Millisecond

// WatchTree calls onChange whenever the named tree changes in the store, until ctx is done.
// Bursts of events within settleDelay collapse into one call. A failing onChange is logged
// and watching goes on.
func WatchTree(ctx context.Context, w ports.Watchable, name string, logger *slog.Logger, onChange func(context.Context) error) error {
	events, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	logger.Info("watching tree", "tree", name)

	timer := time.NewTimer(settleDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case changed, ok := <-events:
			if !ok {
				return nil
			}
			if changed != name {
				continue
			}
			logger.Debug("change detected", "tree", name)
			timer.Reset(settleDelay)
		case <-timer.C:
			if err := onChange(ctx); err != nil {
				logger.Error("reload failed", "tree", name, "err", err)
			}
		}
	}
}
