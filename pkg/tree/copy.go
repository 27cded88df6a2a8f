package tree

import "github.com/aretw0/arbor/pkg/domain"

// Copy duplicates h and its subtree under newParent and returns the copy.
// Links inside the subtree that alias a node of the same subtree are re-pointed at the
// corresponding copy; links to outside nodes keep their target. The copy is rejected,
// leaving the tree untouched, if any copied link would close a cycle.
// Copying a link yields a new link to the same target, subject to the AddLink rules.
func (t *Tree) Copy(h, newParent Handle) (Handle, error) {
	const op = "copy"
	s, err := t.get(op, h)
	if err != nil {
		return Handle{}, err
	}
	if s.kind == KindLink {
		return t.AddLink(newParent, s.target)
	}
	if s.data == nil {
		return Handle{}, domain.Violation(op, "node %s has no content", h)
	}
	if _, err := t.node(op, newParent, true); err != nil {
		return Handle{}, err
	}

	source := t.subtree(h)
	inside := make(map[Handle]bool, len(source))
	for _, e := range source {
		inside[e] = true
	}
	for _, e := range source {
		es := &t.slots[e.index]
		if es.kind != KindLink || inside[es.target] {
			continue
		}
		if es.target == newParent || t.reachable(es.target, newParent) {
			return Handle{}, domain.Violation(op, "copied link to %s would create a cycle under %s", es.target, newParent)
		}
	}

	// Allocate every copy first so link targets inside the subtree can be mapped.
	copies := make(map[Handle]Handle, len(source))
	for _, e := range source {
		kind := t.slots[e.index].kind
		copies[e] = t.alloc(kind, Handle{})
	}
	for _, e := range source {
		orig := t.slots[e.index]
		c := &t.slots[copies[e].index]
		if e == h {
			c.parent = newParent
		} else {
			c.parent = copies[orig.parent]
		}
		if orig.kind == KindLink {
			target := orig.target
			if inside[target] {
				target = copies[target]
			}
			c.target = target
			t.index(target, copies[e])
			continue
		}
		c.data = orig.data.Clone()
		if len(orig.children) > 0 {
			c.children = make([]Handle, len(orig.children))
			for i, child := range orig.children {
				c.children[i] = copies[child]
			}
		}
	}
	root := copies[h]
	np := &t.slots[newParent.index]
	np.children = append(np.children, root)

	t.emit(Event{Op: OpCopy, Handle: root, Parent: newParent, Count: len(source)})
	return root, nil
}
