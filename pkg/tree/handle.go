package tree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// Handle is a stable reference to an element of a Tree.
// The zero Handle never refers to a live element.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool {
	return h.gen == 0
}

// String renders the handle as "index.generation".
func (h Handle) String() string {
	return fmt.Sprintf("%d.%d", h.index, h.gen)
}

// ParseHandle parses the output of Handle.String.
func ParseHandle(s string) (Handle, error) {
	idx, gen, ok := strings.Cut(s, ".")
	if !ok {
		return Handle{}, fmt.Errorf("invalid handle %q", s)
	}
	i, err := strconv.ParseUint(idx, 10, 32)
	if err != nil {
		return Handle{}, fmt.Errorf("invalid handle %q: %w", s, err)
	}
	g, err := strconv.ParseUint(gen, 10, 32)
	if err != nil || g == 0 {
		return Handle{}, fmt.Errorf("invalid handle %q", s)
	}
	return Handle{index: uint32(i), gen: uint32(g)}, nil
}

// Kind discriminates the two element variants.
type Kind uint8

const (
	KindNode Kind = iota + 1
	KindLink
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindLink:
		return "link"
	default:
		return "unknown"
	}
}

// slot is one arena cell. Node payload: children, data. Link payload: target.
type slot struct {
	gen    uint32
	alive  bool
	kind   Kind
	parent Handle

	children []Handle
	data     *domain.NodeData

	target Handle
}

// alloc reserves a cell. Callers must not hold *slot pointers across alloc.
func (t *Tree) alloc(kind Kind, parent Handle) Handle {
	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		t.slots = append(t.slots, slot{})
		idx = uint32(len(t.slots) - 1)
	}
	s := &t.slots[idx]
	s.gen++
	s.alive = true
	s.kind = kind
	s.parent = parent
	t.count++
	return Handle{index: idx, gen: s.gen}
}

// release frees a cell; bumping the generation happens on the next alloc.
func (t *Tree) release(h Handle) {
	s := &t.slots[h.index]
	*s = slot{gen: s.gen}
	t.free = append(t.free, h.index)
	t.count--
}

func (t *Tree) lookup(h Handle) (*slot, bool) {
	if h.IsZero() || int(h.index) >= len(t.slots) {
		return nil, false
	}
	s := &t.slots[h.index]
	if !s.alive || s.gen != h.gen {
		return nil, false
	}
	return s, true
}

func (t *Tree) get(op string, h Handle) (*slot, error) {
	s, ok := t.lookup(h)
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", op, h, domain.ErrStaleHandle)
	}
	return s, nil
}

// node resolves h to a live Node. When withData is set, a content-less node is rejected.
func (t *Tree) node(op string, h Handle, withData bool) (*slot, error) {
	s, err := t.get(op, h)
	if err != nil {
		return nil, err
	}
	if s.kind != KindNode {
		return nil, domain.Violation(op, "%s is a link", h)
	}
	if withData && s.data == nil {
		return nil, domain.Violation(op, "node %s has no content", h)
	}
	return s, nil
}
