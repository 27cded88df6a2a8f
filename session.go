package arbor

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/aretw0/arbor/pkg/tree"
)

// ErrClipboardEmpty is returned by MoveHere and PasteLink before anything was copied.
var ErrClipboardEmpty = errors.New("clipboard is empty")

// ErrSessionClosed is returned by Save after Close.
var ErrSessionClosed = errors.New("session is closed")

// Branch is one option offered from a node. Handle is the child itself, which may be a link;
// Target is the node it resolves to.
type Branch struct {
	Handle tree.Handle
	Target tree.Handle
	Data   *domain.NodeData
}

// Session is one author's view of a tree. It is not safe for concurrent use;
// callers serving several clients must serialize access.
type Session struct {
	ID   string
	Name string
	Tree *tree.Tree
	// Recovered is set when the stored tree was missing or invalid and the
	// session started from the default tree. LoadErr holds the cause.
	Recovered bool
	LoadErr   error

	editor    *Editor
	lease     ports.Lease
	stopRenew context.CancelFunc
	renewDone chan struct{}
	lockLost  atomic.Bool
	// stored fingerprints the document last saved or loaded; synced is false until one was.
	stored [sha256.Size]byte
	synced bool
	logger    *slog.Logger
	clipboard tree.Handle
	closed    bool
}

// Export returns the flat form of the current tree.
func (s *Session) Export() (*schema.Document, error) {
	doc, err := schema.Export(s.Tree)
	if err != nil {
		return nil, err
	}
	doc.Name = s.Name
	return doc, nil
}

// Save persists the tree under the session name. A recovered session overwrites
// whatever broken document was stored.
func (s *Session) Save(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.lockLost.Load() {
		return fmt.Errorf("failed to save %s: %w", s.Name, domain.ErrLockLost)
	}
	doc, err := s.Export()
	if err != nil {
		return fmt.Errorf("failed to export %s: %w", s.Name, err)
	}
	sum, err := fingerprint(doc)
	if err != nil {
		return fmt.Errorf("failed to export %s: %w", s.Name, err)
	}
	if err := s.editor.store.Save(ctx, s.Name, doc); err != nil {
		return fmt.Errorf("failed to save %s: %w", s.Name, err)
	}
	s.stored, s.synced = sum, true
	s.Recovered = false
	s.LoadErr = nil
	s.logger.Info("tree saved", "session_id", s.ID, "records", len(doc.Records))
	return nil
}

// Reload replaces the tree with the stored version, discarding unsaved edits and the clipboard.
func (s *Session) Reload(ctx context.Context) error {
	_, err := s.reload(ctx, true)
	return err
}

// Sync reloads the tree only when the stored document differs from the one this session
// last saved or loaded, and reports whether it did. Store watchers call it so that the
// session's own saves do not discard edits made after them.
func (s *Session) Sync(ctx context.Context) (bool, error) {
	return s.reload(ctx, false)
}

func (s *Session) reload(ctx context.Context, force bool) (bool, error) {
	if s.closed {
		return false, ErrSessionClosed
	}
	t, err := s.editor.Load(ctx, s.Name)
	if err != nil {
		return false, fmt.Errorf("failed to reload %s: %w", s.Name, err)
	}
	sum, err := s.fingerprintTree(t)
	if err != nil {
		return false, fmt.Errorf("failed to reload %s: %w", s.Name, err)
	}
	if !force && s.synced && sum == s.stored {
		s.logger.Debug("stored tree unchanged, keeping session tree", "session_id", s.ID)
		return false, nil
	}
	t.SetObserver(s.editor.observe(s.logger))
	s.Tree = t
	s.clipboard = tree.Handle{}
	s.stored, s.synced = sum, true
	s.Recovered = false
	s.LoadErr = nil
	return true, nil
}

func (s *Session) fingerprintTree(t *tree.Tree) ([sha256.Size]byte, error) {
	doc, err := schema.Export(t)
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	doc.Name = s.Name
	return fingerprint(doc)
}

// fingerprint hashes the canonical JSON form of doc. Export output is deterministic,
// so a tree and its store round trip fingerprint the same.
func fingerprint(doc *schema.Document) ([sha256.Size]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// Close releases the session lock. Closing twice is a no-op.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.editor.metrics != nil {
		s.editor.metrics.Sessions.Dec()
	}
	s.logger.Info("session closed", "session_id", s.ID)
	return s.release(ctx)
}

// keepAlive renews the lease every ttl/3 until release stops it. A lease that cannot be
// renewed marks the session so Save refuses to overwrite another editor's work.
func (s *Session) keepAlive(ttl time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopRenew = cancel
	s.renewDone = make(chan struct{})
	lease, logger, done := s.lease, s.logger, s.renewDone

	go func() {
		defer close(done)
		ticker := time.NewTicker(ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			err := lease.Renew(ctx, ttl)
			switch {
			case err == nil, ctx.Err() != nil:
			case errors.Is(err, domain.ErrLockLost):
				logger.Error("tree lock lost", "session_id", s.ID, "err", err)
				s.lockLost.Store(true)
				return
			default:
				logger.Warn("lock renewal failed, retrying", "session_id", s.ID, "err", err)
			}
		}
	}()
}

// LockLost reports whether the session's lock expired while it was open.
func (s *Session) LockLost() bool {
	return s.lockLost.Load()
}

func (s *Session) release(ctx context.Context) error {
	if s.stopRenew != nil {
		s.stopRenew()
		<-s.renewDone
		s.stopRenew = nil
	}
	if s.lease == nil {
		return nil
	}
	lease := s.lease
	s.lease = nil
	if err := lease.Unlock(ctx); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", s.Name, err)
	}
	return nil
}

// Copy puts node h on the clipboard. Links cannot be copied; copy their original instead.
func (s *Session) Copy(h tree.Handle) error {
	kind, err := s.Tree.Kind(h)
	if err != nil {
		return err
	}
	if kind == tree.KindLink {
		return domain.Violation("copy", "links cannot be copied")
	}
	s.clipboard = h
	return nil
}

// Clipboard returns the copied node, if it still exists.
func (s *Session) Clipboard() (tree.Handle, bool) {
	if s.clipboard.IsZero() || !s.Tree.Contains(s.clipboard) {
		return tree.Handle{}, false
	}
	return s.clipboard, true
}

func (s *Session) copied() (tree.Handle, error) {
	if s.clipboard.IsZero() {
		return tree.Handle{}, ErrClipboardEmpty
	}
	return s.clipboard, nil
}

// MoveHere reparents the copied node under target. The clipboard keeps the node.
func (s *Session) MoveHere(target tree.Handle) error {
	h, err := s.copied()
	if err != nil {
		return err
	}
	return s.Tree.Move(h, target)
}

// PasteLink appends a link to the copied node under target.
func (s *Session) PasteLink(target tree.Handle) (tree.Handle, error) {
	h, err := s.copied()
	if err != nil {
		return tree.Handle{}, err
	}
	return s.Tree.AddLink(target, h)
}

// PasteCopy appends a deep copy of the copied node under target.
func (s *Session) PasteCopy(target tree.Handle) (tree.Handle, error) {
	h, err := s.copied()
	if err != nil {
		return tree.Handle{}, err
	}
	return s.Tree.Copy(h, target)
}

// Options returns the children of h whose condition holds for state, in order.
// A link h offers the children of its original. Children that are links resolve to their
// original's content. A condition that fails to evaluate is logged and counts as false.
func (s *Session) Options(ctx context.Context, h tree.Handle, state domain.GameState) ([]Branch, error) {
	from, err := s.Tree.Resolve(h)
	if err != nil {
		return nil, err
	}
	children, err := s.Tree.Children(from)
	if err != nil {
		return nil, err
	}

	var out []Branch
	for _, c := range children {
		target, err := s.Tree.Resolve(c)
		if err != nil {
			return nil, err
		}
		data, err := s.Tree.Data(target)
		if err != nil {
			return nil, err
		}
		if data == nil {
			continue
		}
		if data.Condition != nil && !data.Condition.Always() {
			ok, err := s.editor.evaluator.Evaluate(ctx, *data.Condition, state)
			if err != nil {
				s.logger.Warn("condition evaluation failed",
					"node", c.String(),
					"condition", data.Condition.Expression,
					"err", err,
				)
				continue
			}
			if !ok {
				continue
			}
		}
		out = append(out, Branch{Handle: c, Target: target, Data: data.Clone()})
	}
	return out, nil
}

// Visit fires the action of h, or of its original when h is a link. Nodes without an action,
// or an editor without an invoker, do nothing.
func (s *Session) Visit(ctx context.Context, h tree.Handle) error {
	target, err := s.Tree.Resolve(h)
	if err != nil {
		return err
	}
	data, err := s.Tree.Data(target)
	if err != nil {
		return err
	}
	if data == nil || data.Action == nil || s.editor.invoker == nil {
		return nil
	}
	err = s.editor.invoker.Invoke(ctx, *data.Action)
	if s.editor.metrics != nil {
		s.editor.metrics.ObserveAction(data.Action.Name, err)
	}
	if err != nil {
		return fmt.Errorf("visit %s: %w", h, err)
	}
	return nil
}
