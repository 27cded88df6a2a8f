package schema

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tree"
)

// Assign numbers every element of t in depth-first child order, starting at 0 for the root.
// Export uses the same numbering, so IDs shown to an author map back to handles.
func Assign(t *tree.Tree) (map[tree.Handle]int, []tree.Handle) {
	ids := make(map[tree.Handle]int, t.Len())
	order := make([]tree.Handle, 0, t.Len())
	_ = t.Walk(func(h tree.Handle, _ int) error {
		ids[h] = len(order)
		order = append(order, h)
		return nil
	})
	return ids, order
}

// Lookup returns the element that Export would number id.
func Lookup(t *tree.Tree, id int) (tree.Handle, error) {
	_, order := Assign(t)
	if id < 0 || id >= len(order) {
		return tree.Handle{}, fmt.Errorf("element %d: %w", id, domain.ErrStaleHandle)
	}
	return order[id], nil
}

// Export flattens t into a Document.
func Export(t *tree.Tree) (*Document, error) {
	ids, order := Assign(t)
	doc := &Document{
		Version: CurrentVersion,
		Records: make(map[int]*Record, len(order)),
	}

	for _, h := range order {
		id := ids[h]
		rec := &Record{ID: id}

		parent, err := t.Parent(h)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", h, err)
		}
		if !parent.IsZero() {
			rec.ParentID = intPtr(ids[parent])
		}

		if t.IsLink(h) {
			target, err := t.Original(h)
			if err != nil {
				return nil, fmt.Errorf("export %s: %w", h, err)
			}
			tid, ok := ids[target]
			if !ok {
				return nil, fmt.Errorf("export %s: link target %s is not reachable from the root", h, target)
			}
			rec.IsLink = true
			rec.LinkTargetID = intPtr(tid)
			doc.Records[id] = rec
			continue
		}

		data, err := t.Data(h)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", h, err)
		}
		rec.Data = fromNodeData(data)

		children, err := t.Children(h)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", h, err)
		}
		if len(children) > 0 {
			rec.ChildIDs = make([]int, len(children))
			for i, c := range children {
				rec.ChildIDs[i] = ids[c]
			}
		}
		doc.Records[id] = rec
	}

	if err := Validate(doc); err != nil {
		return nil, fmt.Errorf("export produced an inconsistent document: %w", err)
	}
	return doc, nil
}
