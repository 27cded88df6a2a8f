package schema

// Validate checks the structural consistency of a document without building a tree:
// exactly one root, every referenced ID resolves, parent and child lists agree, links
// point at non-link records other than themselves, and every record hangs off the root.
// Link cycles are only detected by Import, which needs the wired graph.
func Validate(doc *Document) error {
	c := &collector{}
	if doc == nil || len(doc.Records) == 0 {
		c.add(-1, "", "no records")
		return c.err()
	}

	ids := doc.IDs()
	var roots []int
	for _, id := range ids {
		r := doc.Records[id]
		if r == nil {
			c.add(id, "", "record is null")
			continue
		}
		if r.ID != id {
			c.add(id, "id", "record is stored under key %d but carries id %d", id, r.ID)
		}
		validateRecord(c, doc, id, r)
		if r.ParentID == nil {
			roots = append(roots, id)
		}
	}

	switch {
	case len(roots) == 0:
		c.add(-1, "", "no root record")
	case len(roots) > 1:
		c.add(-1, "", "multiple root records %v", roots)
	default:
		root := doc.Records[roots[0]]
		if root.IsLink {
			c.add(root.ID, "isLink", "the root cannot be a link")
		}
		if len(c.errs) == 0 {
			for _, id := range unreachable(doc, roots[0]) {
				c.add(id, "parentId", "record is not reachable from the root")
			}
		}
	}
	return c.err()
}

func validateRecord(c *collector, doc *Document, id int, r *Record) {
	if r.ParentID != nil {
		parent, ok := doc.Records[*r.ParentID]
		switch {
		case !ok || parent == nil:
			c.add(id, "parentId", "unknown parent %d", *r.ParentID)
		case parent.IsLink:
			c.add(id, "parentId", "parent %d is a link", *r.ParentID)
		case countOf(parent.ChildIDs, id) != 1:
			c.add(id, "parentId", "parent %d lists this record %d times", *r.ParentID, countOf(parent.ChildIDs, id))
		}
	}

	seen := make(map[int]bool, len(r.ChildIDs))
	for _, cid := range r.ChildIDs {
		if seen[cid] {
			continue
		}
		seen[cid] = true
		child, ok := doc.Records[cid]
		if !ok || child == nil {
			c.add(id, "childIds", "unknown child %d", cid)
			continue
		}
		if child.ParentID == nil || *child.ParentID != id {
			c.add(id, "childIds", "child %d does not name this record as its parent", cid)
		}
	}

	if r.IsLink {
		if len(r.ChildIDs) > 0 {
			c.add(id, "childIds", "a link cannot have children")
		}
		if r.LinkTargetID == nil {
			c.add(id, "linkTargetId", "missing link target")
			return
		}
		target, ok := doc.Records[*r.LinkTargetID]
		switch {
		case !ok || target == nil:
			c.add(id, "linkTargetId", "unknown link target %d", *r.LinkTargetID)
		case *r.LinkTargetID == id:
			c.add(id, "linkTargetId", "a link cannot target itself")
		case target.IsLink:
			c.add(id, "linkTargetId", "link target %d is a link", *r.LinkTargetID)
		}
		return
	}

	if r.LinkTargetID != nil {
		c.add(id, "linkTargetId", "only links carry a link target")
	}
	if r.Data != nil && !r.Data.Type.Valid() {
		c.add(id, "data.type", "unknown node type %q", r.Data.Type)
	}
}

// unreachable returns the records that cannot be reached from the root through childIds.
func unreachable(doc *Document, root int) []int {
	seen := map[int]bool{}
	stack := []int{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		stack = append(stack, doc.Records[id].ChildIDs...)
	}
	var out []int
	for _, id := range doc.IDs() {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}

func countOf(list []int, v int) int {
	n := 0
	for _, x := range list {
		if x == v {
			n++
		}
	}
	return n
}
