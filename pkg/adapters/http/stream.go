package http

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/arbor/pkg/tree"
)

// Change is the SSE payload for one tree mutation or reload.
type Change struct {
	Op     string `json:"op"`
	Handle string `json:"handle,omitempty"`
	Parent string `json:"parent,omitempty"`
	Count  int    `json:"count,omitempty"`
}

// OpReload is broadcast after the tree was replaced by its stored version.
const OpReload = "reload"

// StreamManager fans change messages out to connected SSE clients.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan<- string]struct{}
	logger      *slog.Logger
}

// NewStreamManager creates a manager without subscribers.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &StreamManager{
		subscribers: make(map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a client. The returned func unregisters it and closes the channel.
func (sm *StreamManager) Subscribe() (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	sm.subscribers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			delete(sm.subscribers, ch)
			close(ch)
		})
	}
}

// Broadcast sends msg to every subscriber. Slow clients miss messages.
func (sm *StreamManager) Broadcast(msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for ch := range sm.subscribers {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("sse client buffer full, dropping message")
		}
	}
}

// Publish encodes c and broadcasts it.
func (sm *StreamManager) Publish(c Change) {
	data, err := json.Marshal(c)
	if err != nil {
		sm.logger.Error("failed to encode change", "err", err)
		return
	}
	sm.Broadcast(string(data))
}

// Observer publishes every tree mutation. Pass it to arbor.WithObserver.
func (sm *StreamManager) Observer() tree.Observer {
	return func(e tree.Event) {
		c := Change{Op: string(e.Op), Count: e.Count}
		if !e.Handle.IsZero() {
			c.Handle = e.Handle.String()
		}
		if !e.Parent.IsZero() {
			c.Parent = e.Parent.String()
		}
		sm.Publish(c)
	}
}
