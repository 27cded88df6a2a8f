package tree

import (
	"errors"

	"github.com/aretw0/arbor/pkg/domain"
)

// SkipChildren is returned by a WalkFunc to skip the children of the visited element.
var SkipChildren = errors.New("skip children")

// WalkFunc is called for every element in depth-first, child order.
type WalkFunc func(h Handle, depth int) error

// Tree is an editable dialogue tree rooted at a single Node.
type Tree struct {
	slots []slot
	free  []uint32
	count int
	root  Handle

	// links indexes target Node -> Links aliasing it.
	links map[Handle]map[Handle]struct{}

	observer Observer
}

// Option configures a Tree.
type Option func(*Tree)

// WithObserver registers a mutation observer.
func WithObserver(o Observer) Option {
	return func(t *Tree) {
		t.observer = o
	}
}

// New creates a tree whose root carries the given content.
// A nil root gets default Line content.
func New(root *domain.NodeData, opts ...Option) *Tree {
	t := &Tree{
		links: make(map[Handle]map[Handle]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if root == nil {
		root = domain.NewNodeData(domain.NodeTypeLine)
	}
	t.root = t.alloc(KindNode, Handle{})
	t.slots[t.root.index].data = root
	return t
}

// SetObserver replaces the mutation observer. A nil observer disables events.
func (t *Tree) SetObserver(o Observer) {
	t.observer = o
}

// Root returns the root Node.
func (t *Tree) Root() Handle {
	return t.root
}

// Len returns the number of live elements (nodes and links).
func (t *Tree) Len() int {
	return t.count
}

// Contains reports whether h refers to a live element.
func (t *Tree) Contains(h Handle) bool {
	_, ok := t.lookup(h)
	return ok
}

// Kind returns the variant of h.
func (t *Tree) Kind(h Handle) (Kind, error) {
	s, err := t.get("kind", h)
	if err != nil {
		return 0, err
	}
	return s.kind, nil
}

// IsLink reports whether h is a live Link.
func (t *Tree) IsLink(h Handle) bool {
	s, ok := t.lookup(h)
	return ok && s.kind == KindLink
}

// Parent returns the Node owning h. The root has a zero parent.
func (t *Tree) Parent(h Handle) (Handle, error) {
	s, err := t.get("parent", h)
	if err != nil {
		return Handle{}, err
	}
	return s.parent, nil
}

// Children returns a copy of the ordered children of a Node. Links have no children.
func (t *Tree) Children(h Handle) ([]Handle, error) {
	s, err := t.get("children", h)
	if err != nil {
		return nil, err
	}
	if s.kind == KindLink {
		return nil, nil
	}
	out := make([]Handle, len(s.children))
	copy(out, s.children)
	return out, nil
}

// Original returns the Node a Link aliases.
func (t *Tree) Original(h Handle) (Handle, error) {
	s, err := t.get("original", h)
	if err != nil {
		return Handle{}, err
	}
	if s.kind != KindLink {
		return Handle{}, domain.Violation("original", "%s is not a link", h)
	}
	return s.target, nil
}

// Resolve returns h itself for a Node, or the target for a Link.
func (t *Tree) Resolve(h Handle) (Handle, error) {
	s, err := t.get("resolve", h)
	if err != nil {
		return Handle{}, err
	}
	if s.kind == KindLink {
		return s.target, nil
	}
	return h, nil
}

// Data returns the content of a Node, which the caller may edit in place.
// For a Link it returns a copy of the target's content: links are read-only views.
// A node whose content was cleared yields nil.
func (t *Tree) Data(h Handle) (*domain.NodeData, error) {
	s, err := t.get("data", h)
	if err != nil {
		return nil, err
	}
	if s.kind == KindLink {
		target, ok := t.lookup(s.target)
		if !ok {
			return nil, nil
		}
		return target.data.Clone(), nil
	}
	return s.data, nil
}

// Links returns the Links aliasing the given Node.
func (t *Tree) Links(h Handle) ([]Handle, error) {
	if _, err := t.node("links", h, false); err != nil {
		return nil, err
	}
	out := make([]Handle, 0, len(t.links[h]))
	for l := range t.links[h] {
		out = append(out, l)
	}
	return out, nil
}

// Ancestors returns the chain of Nodes above h, root first.
func (t *Tree) Ancestors(h Handle) ([]Handle, error) {
	s, err := t.get("ancestors", h)
	if err != nil {
		return nil, err
	}
	var chain []Handle
	for p := s.parent; !p.IsZero(); p = t.slots[p.index].parent {
		chain = append(chain, p)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Index returns the position of h among its siblings, or -1 for the root.
func (t *Tree) Index(h Handle) (int, error) {
	s, err := t.get("index", h)
	if err != nil {
		return 0, err
	}
	if s.parent.IsZero() {
		return -1, nil
	}
	return indexOf(t.slots[s.parent.index].children, h), nil
}

// Walk visits every element from the root in depth-first, child order.
// Link targets are not followed.
func (t *Tree) Walk(fn WalkFunc) error {
	return t.walk(t.root, 0, fn)
}

// WalkFrom visits h and its descendants.
func (t *Tree) WalkFrom(h Handle, fn WalkFunc) error {
	if _, err := t.get("walk", h); err != nil {
		return err
	}
	return t.walk(h, 0, fn)
}

func (t *Tree) walk(h Handle, depth int, fn WalkFunc) error {
	if err := fn(h, depth); err != nil {
		if errors.Is(err, SkipChildren) {
			return nil
		}
		return err
	}
	s := &t.slots[h.index]
	if s.kind == KindLink {
		return nil
	}
	// fn may not mutate the tree, but copy anyway so a misbehaving callback cannot corrupt iteration.
	children := append([]Handle(nil), s.children...)
	for _, c := range children {
		if err := t.walk(c, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// reachable reports whether to can be reached from from through child or link-target edges.
func (t *Tree) reachable(from, to Handle) bool {
	seen := make(map[Handle]bool)
	stack := []Handle{from}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if h == to {
			return true
		}
		if seen[h] {
			continue
		}
		seen[h] = true
		s, ok := t.lookup(h)
		if !ok {
			continue
		}
		if s.kind == KindLink {
			stack = append(stack, s.target)
			continue
		}
		stack = append(stack, s.children...)
	}
	return false
}

// subtree collects h and its descendants in preorder.
func (t *Tree) subtree(h Handle) []Handle {
	var out []Handle
	stack := []Handle{h}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur)
		children := t.slots[cur.index].children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return out
}

func indexOf(list []Handle, h Handle) int {
	for i, c := range list {
		if c == h {
			return i
		}
	}
	return -1
}
