package arbor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/condition"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/google/uuid"
)

const defaultLockTTL = 30 * time.Second

// Editor opens editing sessions over the trees of one store.
type Editor struct {
	store       ports.TreeStore
	locker      ports.Locker
	lockTTL     time.Duration
	lockWait    time.Duration
	evaluator   ports.ConditionEvaluator
	invoker     ports.ActionInvoker
	logger      *slog.Logger
	metrics     *observability.Metrics
	defaultTree func() (*tree.Tree, error)
	observer    tree.Observer
}

// Option configures an Editor.
type Option func(*Editor)

// WithStore sets where trees are persisted. The default is an in-memory store.
func WithStore(s ports.TreeStore) Option {
	return func(e *Editor) {
		e.store = s
	}
}

// WithLocker enforces a single open session per tree name.
func WithLocker(l ports.Locker) Option {
	return func(e *Editor) {
		e.locker = l
	}
}

// WithLockTTL bounds how long a crashed session keeps its tree locked.
// Open sessions renew their lock every third of the TTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Editor) {
		if ttl > 0 {
			e.lockTTL = ttl
		}
	}
}

// WithLockWait sets how long Open waits for a held lock before failing with ErrLockHeld.
// Zero waits until the context is done.
func WithLockWait(d time.Duration) Option {
	return func(e *Editor) {
		e.lockWait = d
	}
}

// WithEvaluator replaces the condition evaluator used by Session.Options.
func WithEvaluator(ev ports.ConditionEvaluator) Option {
	return func(e *Editor) {
		e.evaluator = ev
	}
}

// WithInvoker sets the capability that runs node actions on Session.Visit.
func WithInvoker(inv ports.ActionInvoker) Option {
	return func(e *Editor) {
		e.invoker = inv
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// WithMetrics records mutations, imports and actions.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Editor) {
		e.metrics = m
	}
}

// WithDefaultTree replaces the tree a session falls back to when its document is missing or invalid.
func WithDefaultTree(fn func() (*tree.Tree, error)) Option {
	return func(e *Editor) {
		e.defaultTree = fn
	}
}

// WithObserver receives the mutation events of every session, after metrics and logging.
func WithObserver(o tree.Observer) Option {
	return func(e *Editor) {
		e.observer = o
	}
}

// New creates an Editor.
func New(opts ...Option) *Editor {
	e := &Editor{
		store:       memory.NewStore(),
		lockTTL:     defaultLockTTL,
		evaluator:   condition.NewEvaluator(),
		logger:      slog.New(slog.DiscardHandler),
		defaultTree: DefaultTree,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the underlying store.
func (e *Editor) Store() ports.TreeStore {
	return e.store
}

// List returns the names of the stored trees.
func (e *Editor) List(ctx context.Context) ([]string, error) {
	return e.store.List(ctx)
}

// Load reads and validates a stored tree without opening a session.
func (e *Editor) Load(ctx context.Context, name string) (*tree.Tree, error) {
	doc, err := e.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return e.importDoc(doc)
}

// Create stores t under a new name. It fails with ErrTreeExists if the name is taken.
func (e *Editor) Create(ctx context.Context, name string, t *tree.Tree) error {
	if _, err := e.store.Load(ctx, name); err == nil {
		return fmt.Errorf("%w: %s", domain.ErrTreeExists, name)
	} else if !errors.Is(err, domain.ErrTreeNotFound) {
		return err
	}
	doc, err := schema.Export(t)
	if err != nil {
		return err
	}
	doc.Name = name
	return e.store.Save(ctx, name, doc)
}

// Open starts an editing session on name.
//
// When a locker is configured the tree stays locked until Session.Close; the session renews
// the lock in the background. A missing tree, or one whose document fails validation, opens
// on the default tree with Recovered set; any other load failure is returned.
func (e *Editor) Open(ctx context.Context, name string) (*Session, error) {
	if name == "" {
		return nil, fmt.Errorf("tree name cannot be empty")
	}
	logger := e.logger.With("tree", name)

	lease, err := e.lock(ctx, name)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:     uuid.NewString(),
		Name:   name,
		editor: e,
		lease:  lease,
		logger: logger,
	}

	t, loadErr := e.Load(ctx, name)
	switch {
	case loadErr == nil:
		t.SetObserver(e.observe(logger))
		if s.stored, err = s.fingerprintTree(t); err != nil {
			s.release(ctx)
			return nil, fmt.Errorf("failed to open %s: %w", name, err)
		}
		s.synced = true
	case errors.Is(loadErr, domain.ErrTreeNotFound), errors.Is(loadErr, domain.ErrValidation):
		logger.Warn("opening default tree", "err", loadErr)
		t, err = e.defaultTree()
		if err != nil {
			s.release(ctx)
			return nil, fmt.Errorf("default tree: %w", err)
		}
		t.SetObserver(e.observe(logger))
		s.Recovered = true
		s.LoadErr = loadErr
	default:
		s.release(ctx)
		return nil, fmt.Errorf("failed to open %s: %w", name, loadErr)
	}

	s.Tree = t
	if lease != nil {
		s.keepAlive(e.lockTTL)
	}
	if e.metrics != nil {
		e.metrics.Sessions.Inc()
	}
	logger.Info("session opened", "session_id", s.ID, "elements", t.Len(), "recovered", s.Recovered)
	return s, nil
}

func (e *Editor) lock(ctx context.Context, name string) (ports.Lease, error) {
	if e.locker == nil {
		return nil, nil
	}
	lctx := ctx
	if e.lockWait > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, e.lockWait)
		defer cancel()
	}
	lease, err := e.locker.Lock(lctx, name, e.lockTTL)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", domain.ErrLockHeld, name)
		}
		return nil, fmt.Errorf("failed to lock %s: %w", name, err)
	}
	return lease, nil
}

func (e *Editor) importDoc(doc *schema.Document) (*tree.Tree, error) {
	t, err := schema.Import(doc, schema.WithLogger(e.logger))
	if e.metrics != nil {
		switch {
		case err == nil:
			e.metrics.ObserveImport(observability.ImportOK, len(doc.Records)-t.Len())
		case errors.Is(err, domain.ErrValidation):
			e.metrics.ObserveImport(observability.ImportInvalid, 0)
		default:
			e.metrics.ObserveImport(observability.ImportError, 0)
		}
	}
	return t, err
}

func (e *Editor) observe(logger *slog.Logger) tree.Observer {
	var counted tree.Observer
	if e.metrics != nil {
		counted = e.metrics.Observer()
	}
	return observability.Chain(counted, observability.LogObserver(logger), e.observer)
}
