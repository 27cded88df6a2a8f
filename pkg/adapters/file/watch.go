package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch implements ports.Watchable. It emits the name of every tree whose file is written,
// created, renamed into place or removed. The channel closes when ctx is done.
func (s *Store) Watch(ctx context.Context) (<-chan string, error) {
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to ensure tree directory: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("tree watcher: %w", err)
	}
	if err := w.Add(s.BasePath); err != nil {
		w.Close()
		return nil, fmt.Errorf("tree watcher add %s: %w", s.BasePath, err)
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
					continue
				}
				name, ok := s.treeName(filepath.Base(ev.Name))
				if !ok {
					continue
				}
				select {
				case out <- name:
				case <-ctx.Done():
					return
				}
			case _, ok := <-w.Errors:
				// Watcher errors are transient; keep going.
				if !ok {
					return
				}
			}
		}
	}()
	return out, nil
}
