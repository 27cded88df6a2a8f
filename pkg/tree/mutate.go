package tree

import (
	"slices"

	"github.com/aretw0/arbor/pkg/domain"
)

// AddNode appends a new Node with default content of the given type under parent.
func (t *Tree) AddNode(parent Handle, typ domain.NodeType) (Handle, error) {
	if !typ.Valid() {
		return Handle{}, domain.Violation("add node", "unknown node type %q", typ)
	}
	if _, err := t.node("add node", parent, true); err != nil {
		return Handle{}, err
	}
	h := t.alloc(KindNode, parent)
	t.slots[h.index].data = domain.NewNodeData(typ)
	p := &t.slots[parent.index]
	p.children = append(p.children, h)

	t.emit(Event{Op: OpAddNode, Handle: h, Parent: parent, Count: 1})
	return h, nil
}

// AddLink appends a Link aliasing target under parent.
// The target must be a Node with content, and parent must not be reachable from it:
// otherwise traversal through the link would never terminate.
func (t *Tree) AddLink(parent, target Handle) (Handle, error) {
	const op = "add link"
	if _, err := t.node(op, parent, true); err != nil {
		return Handle{}, err
	}
	if _, err := t.node(op, target, true); err != nil {
		return Handle{}, err
	}
	if target == parent {
		return Handle{}, domain.Violation(op, "node %s cannot link to itself", target)
	}
	if t.reachable(target, parent) {
		return Handle{}, domain.Violation(op, "linking %s under %s would create a cycle", target, parent)
	}

	h := t.alloc(KindLink, parent)
	t.slots[h.index].target = target
	p := &t.slots[parent.index]
	p.children = append(p.children, h)
	t.index(target, h)

	t.emit(Event{Op: OpAddLink, Handle: h, Parent: parent, Count: 1})
	return h, nil
}

// ChangePosition moves h by delta places among its siblings (-1 = up, +1 = down).
// Positions are clamped at either end; reordering the root is a no-op.
func (t *Tree) ChangePosition(h Handle, delta int) error {
	s, err := t.get("change position", h)
	if err != nil {
		return err
	}
	if s.parent.IsZero() || delta == 0 {
		return nil
	}
	siblings := t.slots[s.parent.index].children
	from := indexOf(siblings, h)
	to := max(0, min(len(siblings)-1, from+delta))
	if to == from {
		return nil
	}
	siblings = slices.Delete(siblings, from, from+1)
	siblings = slices.Insert(siblings, to, h)
	t.slots[s.parent.index].children = siblings

	t.emit(Event{Op: OpReorder, Handle: h, Parent: s.parent})
	return nil
}

// Move detaches h from its parent and appends it to newParent's children.
// Moving an element under itself, a descendant, or anything reachable from it is rejected.
func (t *Tree) Move(h, newParent Handle) error {
	const op = "move"
	s, err := t.get(op, h)
	if err != nil {
		return err
	}
	if s.parent.IsZero() {
		return domain.Violation(op, "the root cannot be moved")
	}
	if _, err := t.node(op, newParent, true); err != nil {
		return err
	}
	if h == newParent {
		return domain.Violation(op, "%s cannot become its own parent", h)
	}
	if t.reachable(h, newParent) {
		return domain.Violation(op, "%s is reachable from %s", newParent, h)
	}

	old := s.parent
	t.detach(old, h)
	t.slots[h.index].parent = newParent
	np := &t.slots[newParent.index]
	np.children = append(np.children, h)

	t.emit(Event{Op: OpMove, Handle: h, Parent: newParent})
	return nil
}

// Remove destroys h. For a Node the whole subtree goes, together with every Link,
// anywhere in the tree, that aliases a destroyed Node.
func (t *Tree) Remove(h Handle) error {
	const op = "remove"
	s, err := t.get(op, h)
	if err != nil {
		return err
	}
	if s.parent.IsZero() {
		return domain.Violation(op, "the root cannot be removed")
	}
	parent := s.parent
	n := t.destroy(h)
	t.emit(Event{Op: OpRemove, Handle: h, Parent: parent, Count: n})
	return nil
}

// destroy removes h and everything hanging off it. h must be live and not the root.
func (t *Tree) destroy(h Handle) int {
	t.detach(t.slots[h.index].parent, h)

	doomed := t.subtree(h)
	dead := make(map[Handle]bool, len(doomed))
	for _, d := range doomed {
		dead[d] = true
	}

	// Links elsewhere in the tree that alias a doomed node.
	var aliases []Handle
	for _, d := range doomed {
		s := &t.slots[d.index]
		if s.kind == KindLink {
			t.unindex(s.target, d)
			continue
		}
		for l := range t.links[d] {
			if !dead[l] {
				aliases = append(aliases, l)
			}
		}
		delete(t.links, d)
	}
	for _, l := range aliases {
		if _, ok := t.lookup(l); !ok {
			continue
		}
		ls := &t.slots[l.index]
		t.detach(ls.parent, l)
		t.unindex(ls.target, l)
		t.release(l)
	}
	for _, d := range doomed {
		t.release(d)
	}
	return len(doomed) + len(aliases)
}

// SetData replaces the content of a Node. Passing nil clears it, which marks the node
// dead until Prune collects it. The node type of existing content cannot change.
func (t *Tree) SetData(h Handle, data *domain.NodeData) error {
	const op = "set data"
	s, err := t.node(op, h, false)
	if err != nil {
		return err
	}
	if data == nil && h == t.root {
		return domain.Violation(op, "the root content cannot be cleared")
	}
	if data != nil && !data.Type().Valid() {
		return domain.Violation(op, "unknown node type %q", data.Type())
	}
	if data != nil && s.data != nil && s.data.Type() != data.Type() {
		return domain.Violation(op, "node type is %s, got %s", s.data.Type(), data.Type())
	}
	s.data = data
	t.emit(Event{Op: OpSetData, Handle: h, Parent: s.parent})
	return nil
}

// ClearData removes the content of a Node.
func (t *Tree) ClearData(h Handle) error {
	return t.SetData(h, nil)
}

// Prune removes every Node that has lost its content, applying Remove semantics.
// It returns the number of elements destroyed.
func (t *Tree) Prune() int {
	var dead []Handle
	_ = t.Walk(func(h Handle, _ int) error {
		s := &t.slots[h.index]
		if s.kind == KindNode && s.data == nil {
			dead = append(dead, h)
			return SkipChildren
		}
		return nil
	})

	total := 0
	for _, h := range dead {
		// An earlier removal may already have taken this one through a link cascade.
		if _, ok := t.lookup(h); !ok {
			continue
		}
		parent := t.slots[h.index].parent
		n := t.destroy(h)
		total += n
		t.emit(Event{Op: OpPrune, Handle: h, Parent: parent, Count: n})
	}
	return total
}

func (t *Tree) detach(parent, h Handle) {
	p := &t.slots[parent.index]
	if i := indexOf(p.children, h); i >= 0 {
		p.children = slices.Delete(p.children, i, i+1)
	}
}

func (t *Tree) index(target, link Handle) {
	set, ok := t.links[target]
	if !ok {
		set = make(map[Handle]struct{})
		t.links[target] = set
	}
	set[link] = struct{}{}
}

func (t *Tree) unindex(target, link Handle) {
	set, ok := t.links[target]
	if !ok {
		return
	}
	delete(set, link)
	if len(set) == 0 {
		delete(t.links, target)
	}
}
