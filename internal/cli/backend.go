package cli

import (
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/pkg/adapters/file"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/schema"
)

// Backend is the store and optional locker selected by configuration.
type Backend struct {
	Store  ports.TreeStore
	Locker ports.Locker
	raw    ports.TreeStore
	close  func() error
}

// NewBackend builds the backend described by cfg, wrapping the store in mws.
// Encryption, when configured, is applied innermost so every other middleware sees plain trees.
// Locking with the file or memory store only guards sessions of one process.
func NewBackend(cfg config.Config, mws ...middleware.Middleware) (*Backend, error) {
	b := &Backend{close: func() error { return nil }}
	switch cfg.Store {
	case "", "file":
		b.Store = file.New(cfg.Dir, file.WithFormat(schema.Format(cfg.Format)))
		if cfg.Lock.Enabled {
			b.Locker = memory.NewLocker()
		}
	case "memory":
		b.Store = memory.NewStore()
		if cfg.Lock.Enabled {
			b.Locker = memory.NewLocker()
		}
	case "redis":
		opts := []redis.Option{redis.WithTTL(cfg.Redis.TTL)}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		b.Store = store
		b.close = store.Close
		if cfg.Lock.Enabled {
			b.Locker = redis.NewLocker(store.Client(), cfg.Redis.Prefix)
		}
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
	b.raw = b.Store

	if cfg.Encryption.Enabled() {
		enc, err := encryption(cfg.Encryption)
		if err != nil {
			_ = b.close()
			return nil, err
		}
		mws = append(mws, enc)
	}
	b.Store = middleware.Chain(b.Store, mws...)
	return b, nil
}

func encryption(cfg config.EncryptionConfig) (middleware.Middleware, error) {
	active, err := base64.StdEncoding.DecodeString(cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("encryption.key: %w", err)
	}
	enc := middleware.EncryptionConfig{ActiveKey: active}
	for i, raw := range cfg.FallbackKeys {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("encryption.fallback_keys[%d]: %w", i, err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	return middleware.NewEncryptionMiddleware(enc)
}

// Watchable returns the underlying store's change feed, if it has one.
func (b *Backend) Watchable() (ports.Watchable, bool) {
	w, ok := b.raw.(ports.Watchable)
	return w, ok
}

// Close releases backend connections.
func (b *Backend) Close() error {
	return b.close()
}

// EditorOptions wires the backend and the lock settings of cfg into editor options.
func (b *Backend) EditorOptions(cfg config.Config, logger *slog.Logger) []arbor.Option {
	opts := []arbor.Option{
		arbor.WithStore(b.Store),
		arbor.WithLogger(logger),
	}
	if b.Locker != nil {
		opts = append(opts,
			arbor.WithLocker(b.Locker),
			arbor.WithLockTTL(cfg.Lock.TTL),
			arbor.WithLockWait(cfg.Lock.Wait),
		)
	}
	return opts
}
