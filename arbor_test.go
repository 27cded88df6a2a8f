package arbor_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/action"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// find returns the node (never a link) whose text is text.
func find(t *testing.T, tr *tree.Tree, text string) tree.Handle {
	t.Helper()
	var found tree.Handle
	_ = tr.Walk(func(h tree.Handle, _ int) error {
		if tr.IsLink(h) || !found.IsZero() {
			return nil
		}
		d, err := tr.Data(h)
		if err == nil && d != nil && d.Text == text {
			found = h
		}
		return nil
	})
	require.False(t, found.IsZero(), "no node with text %q", text)
	return found
}

func TestDefaultTree(t *testing.T) {
	tr, err := arbor.DefaultTree()
	require.NoError(t, err)
	assert.Equal(t, 12, tr.Len())
}

func TestEditor_OpenMissingRecovers(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ed := arbor.New(arbor.WithStore(store))

	s, err := ed.Open(ctx, "tavern")
	require.NoError(t, err)
	assert.True(t, s.Recovered)
	assert.ErrorIs(t, s.LoadErr, domain.ErrTreeNotFound)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 12, s.Tree.Len())

	_, err = s.Tree.AddNode(s.Tree.Root(), domain.NodeTypeChoice)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx))
	assert.False(t, s.Recovered)
	require.NoError(t, s.Close(ctx))

	again, err := ed.Open(ctx, "tavern")
	require.NoError(t, err)
	assert.False(t, again.Recovered)
	assert.Equal(t, 13, again.Tree.Len())

	doc, err := store.Load(ctx, "tavern")
	require.NoError(t, err)
	assert.Equal(t, "tavern", doc.Name)
}

func TestEditor_OpenInvalidRecovers(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	broken := &schema.Document{Version: schema.CurrentVersion, Records: map[int]*schema.Record{
		0: {ID: 0, ChildIDs: []int{9}, Data: &schema.RecordData{Type: domain.NodeTypeLine, Text: "root"}},
	}}
	require.NoError(t, store.Save(ctx, "broken", broken))

	s, err := arbor.New(arbor.WithStore(store)).Open(ctx, "broken")
	require.NoError(t, err)
	assert.True(t, s.Recovered)
	assert.ErrorIs(t, s.LoadErr, domain.ErrValidation)
}

type failingStore struct {
	ports.TreeStore
}

func (failingStore) Load(context.Context, string) (*schema.Document, error) {
	return nil, errors.New("disk on fire")
}

func TestEditor_OpenStoreFailure(t *testing.T) {
	locker := memory.NewLocker()
	ed := arbor.New(arbor.WithStore(failingStore{}), arbor.WithLocker(locker), arbor.WithLockWait(100*time.Millisecond))

	_, err := ed.Open(context.Background(), "tavern")
	assert.ErrorContains(t, err, "disk on fire")

	// The failed open must not leave the tree locked.
	_, err = ed.Open(context.Background(), "tavern")
	assert.ErrorContains(t, err, "disk on fire")
}

func TestEditor_SingleSessionPerTree(t *testing.T) {
	ctx := context.Background()
	ed := arbor.New(arbor.WithLocker(memory.NewLocker()), arbor.WithLockWait(100*time.Millisecond))

	first, err := ed.Open(ctx, "tavern")
	require.NoError(t, err)

	_, err = ed.Open(ctx, "tavern")
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	other, err := ed.Open(ctx, "market")
	require.NoError(t, err)
	require.NoError(t, other.Close(ctx))

	require.NoError(t, first.Close(ctx))
	require.NoError(t, first.Close(ctx), "closing twice is a no-op")
	assert.ErrorIs(t, first.Save(ctx), arbor.ErrSessionClosed)

	second, err := ed.Open(ctx, "tavern")
	require.NoError(t, err)
	require.NoError(t, second.Close(ctx))
}

func TestEditor_LockOutlivesTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	ed := arbor.New(
		arbor.WithLocker(redis.NewLocker(client, "test:")),
		arbor.WithLockTTL(3*time.Second),
		arbor.WithLockWait(200*time.Millisecond),
	)

	first, err := ed.Open(ctx, "tavern")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	assert.Eventually(t, func() bool {
		return mr.TTL("test:lock:tavern") > 2*time.Second
	}, 3*time.Second, 50*time.Millisecond, "the open session renews its lock")

	mr.FastForward(2 * time.Second)
	_, err = ed.Open(ctx, "tavern")
	assert.ErrorIs(t, err, domain.ErrLockHeld, "the tree stays locked past the original TTL")
	assert.False(t, first.LockLost())

	require.NoError(t, first.Close(ctx))
	assert.False(t, mr.Exists("test:lock:tavern"))
}

type lostLocker struct {
	renewals atomic.Int32
}

func (l *lostLocker) Lock(context.Context, string, time.Duration) (ports.Lease, error) {
	return l, nil
}

func (l *lostLocker) Renew(context.Context, time.Duration) error {
	l.renewals.Add(1)
	return domain.ErrLockLost
}

func (l *lostLocker) Unlock(context.Context) error { return nil }

func TestSession_LockLostBlocksSave(t *testing.T) {
	ctx := context.Background()
	locker := &lostLocker{}
	ed := arbor.New(arbor.WithLocker(locker), arbor.WithLockTTL(30*time.Millisecond))

	s, err := ed.Open(ctx, "tavern")
	require.NoError(t, err)

	assert.Eventually(t, s.LockLost, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, s.Save(ctx), domain.ErrLockLost)
	assert.Equal(t, int32(1), locker.renewals.Load(), "renewal stops once the lock is lost")
	require.NoError(t, s.Close(ctx))
}

func TestEditor_Create(t *testing.T) {
	ctx := context.Background()
	ed := arbor.New()
	tr, err := arbor.DefaultTree()
	require.NoError(t, err)

	require.NoError(t, ed.Create(ctx, "tavern", tr))
	assert.ErrorIs(t, ed.Create(ctx, "tavern", tr), domain.ErrTreeExists)

	names, err := ed.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tavern"}, names)

	loaded, err := ed.Load(ctx, "tavern")
	require.NoError(t, err)
	assert.Equal(t, tr.Len(), loaded.Len())
}

func TestSession_Clipboard(t *testing.T) {
	ctx := context.Background()
	s, err := arbor.New().Open(ctx, "tavern")
	require.NoError(t, err)
	tr := s.Tree

	_, err = s.PasteLink(tr.Root())
	assert.ErrorIs(t, err, arbor.ErrClipboardEmpty)
	assert.ErrorIs(t, s.MoveHere(tr.Root()), arbor.ErrClipboardEmpty)

	farewell := find(t, tr, "Safe travels.")
	links, err := tr.Links(farewell)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.ErrorIs(t, s.Copy(links[0]), domain.ErrStructuralViolation, "links cannot be copied")

	require.NoError(t, s.Copy(farewell))
	got, ok := s.Clipboard()
	require.True(t, ok)
	assert.Equal(t, farewell, got)

	// Paste a link at the root.
	link, err := s.PasteLink(tr.Root())
	require.NoError(t, err)
	orig, err := tr.Original(link)
	require.NoError(t, err)
	assert.Equal(t, farewell, orig)

	// A link below the copied node would close a cycle.
	_, err = s.PasteLink(farewell)
	assert.ErrorIs(t, err, domain.ErrStructuralViolation)

	// Move the copied node under the greeting.
	greet := find(t, tr, "Evening. What can I get you?")
	require.NoError(t, s.MoveHere(greet))
	parent, err := tr.Parent(farewell)
	require.NoError(t, err)
	assert.Equal(t, greet, parent)

	// A deep copy gets fresh handles.
	dup, err := s.PasteCopy(tr.Root())
	require.NoError(t, err)
	assert.NotEqual(t, farewell, dup)

	// Removing the copied node empties the clipboard view.
	require.NoError(t, tr.Remove(farewell))
	_, ok = s.Clipboard()
	assert.False(t, ok)
	assert.ErrorIs(t, s.MoveHere(tr.Root()), domain.ErrStaleHandle)
}

func texts(branches []arbor.Branch) []string {
	out := make([]string, len(branches))
	for i, b := range branches {
		out[i] = b.Data.Text
	}
	return out
}

func TestSession_Options(t *testing.T) {
	ctx := context.Background()
	s, err := arbor.New().Open(ctx, "tavern")
	require.NoError(t, err)
	tr := s.Tree
	greet := find(t, tr, "Evening. What can I get you?")

	rich, err := s.Options(ctx, greet, domain.GameState{"gold": 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"A room for the night.", "Heard any rumors?", "Goodbye."}, texts(rich))

	poor, err := s.Options(ctx, greet, domain.GameState{"gold": 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"Heard any rumors?", "Goodbye."}, texts(poor))

	// Missing variable in a comparison is an evaluation error: logged and skipped.
	unknown, err := s.Options(ctx, greet, nil)
	require.NoError(t, err)
	assert.Len(t, unknown, 2)

	// A link child resolves to its original.
	rumor := find(t, tr, "Folk say the old mill is haunted.")
	choices, err := tr.Children(rumor)
	require.NoError(t, err)
	viaLink, err := s.Options(ctx, choices[1], nil)
	require.NoError(t, err)
	require.Len(t, viaLink, 1)
	assert.True(t, tr.IsLink(viaLink[0].Handle))
	assert.Equal(t, find(t, tr, "Safe travels."), viaLink[0].Target)
	assert.Equal(t, "Safe travels.", viaLink[0].Data.Text)

	// Branch data is a copy.
	viaLink[0].Data.Text = "edited"
	d, err := tr.Data(viaLink[0].Target)
	require.NoError(t, err)
	assert.Equal(t, "Safe travels.", d.Text)
}

func TestSession_OptionsCustomEvaluator(t *testing.T) {
	ctx := context.Background()
	eval := ports.ConditionFunc(func(_ context.Context, c domain.Condition, _ domain.GameState) (bool, error) {
		if c.Expression == "gold >= 5" {
			return false, errors.New("boom")
		}
		return true, nil
	})
	s, err := arbor.New(arbor.WithEvaluator(eval)).Open(ctx, "tavern")
	require.NoError(t, err)

	greet := find(t, s.Tree, "Evening. What can I get you?")
	got, err := s.Options(ctx, greet, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Heard any rumors?", "Goodbye."}, texts(got))
}

func TestSession_Visit(t *testing.T) {
	ctx := context.Background()
	reg := action.NewRegistry()
	var paid int
	reg.Register("pay", action.Typed(func(_ context.Context, args struct{ Amount int }) error {
		paid += args.Amount
		return nil
	}))

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	s, err := arbor.New(arbor.WithInvoker(reg), arbor.WithMetrics(metrics)).Open(ctx, "tavern")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Sessions))

	require.NoError(t, s.Visit(ctx, find(t, s.Tree, "A room for the night.")))
	assert.Equal(t, 5, paid)

	// No action: nothing happens.
	require.NoError(t, s.Visit(ctx, s.Tree.Root()))

	// Unregistered action surfaces the dispatch error.
	err = s.Visit(ctx, find(t, s.Tree, "Tell me more."))
	assert.ErrorContains(t, err, "action not found: set_flag")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ActionCalls.WithLabelValues("pay", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ActionCalls.WithLabelValues("set_flag", "error")))

	_, err = s.Tree.AddNode(s.Tree.Root(), domain.NodeTypeLine)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Mutations.WithLabelValues("add_node")))

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Sessions))
}

func TestSession_Reload(t *testing.T) {
	ctx := context.Background()
	ed := arbor.New()
	s, err := ed.Open(ctx, "tavern")
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx))

	_, err = s.Tree.AddNode(s.Tree.Root(), domain.NodeTypeLine)
	require.NoError(t, err)
	require.NoError(t, s.Copy(s.Tree.Root()))

	require.NoError(t, s.Reload(ctx))
	assert.Equal(t, 12, s.Tree.Len())
	_, ok := s.Clipboard()
	assert.False(t, ok)
}
