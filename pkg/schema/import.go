package schema

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/arbor/pkg/tree"
)

type importer struct {
	logger   *slog.Logger
	treeOpts []tree.Option
}

// ImportOption configures Import.
type ImportOption func(*importer)

// WithLogger reports pruned records to logger.
func WithLogger(logger *slog.Logger) ImportOption {
	return func(i *importer) {
		i.logger = logger
	}
}

// WithTreeOptions applies options to the imported tree once it is fully built,
// so observers do not see the construction itself.
func WithTreeOptions(opts ...tree.Option) ImportOption {
	return func(i *importer) {
		i.treeOpts = append(i.treeOpts, opts...)
	}
}

// Import validates doc and materializes it as an editable tree. The document is never
// modified. On failure no tree is returned.
func Import(doc *Document, opts ...ImportOption) (*tree.Tree, error) {
	imp := &importer{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(imp)
	}

	if err := Validate(doc); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root.Data == nil {
		c := &collector{}
		c.add(root.ID, "data", "the root has no content")
		return nil, c.err()
	}

	dead := deadRecords(doc)
	t := tree.New(root.Data.toNodeData())
	handles := map[int]tree.Handle{root.ID: t.Root()}

	// Pass 1: nodes, breadth-first, each parent in child order.
	nodes := []int{root.ID}
	for i := 0; i < len(nodes); i++ {
		parent := doc.Records[nodes[i]]
		for _, cid := range parent.ChildIDs {
			child := doc.Records[cid]
			if dead[cid] || child.IsLink {
				continue
			}
			h, err := t.AddNode(handles[parent.ID], child.Data.Type)
			if err != nil {
				return nil, fmt.Errorf("import record %d: %w", cid, err)
			}
			if err := t.SetData(h, child.Data.toNodeData()); err != nil {
				return nil, fmt.Errorf("import record %d: %w", cid, err)
			}
			handles[cid] = h
			nodes = append(nodes, cid)
		}
	}

	// Pass 2: links, slotted back into their recorded position.
	c := &collector{}
	for _, id := range nodes {
		parent := doc.Records[id]
		ph := handles[id]
		pos := 0
		for _, cid := range parent.ChildIDs {
			if dead[cid] {
				continue
			}
			child := doc.Records[cid]
			if !child.IsLink {
				pos++
				continue
			}
			l, err := t.AddLink(ph, handles[*child.LinkTargetID])
			if err != nil {
				c.add(cid, "linkTargetId", "link to %d: %v", *child.LinkTargetID, err)
				continue
			}
			siblings, err := t.Children(ph)
			if err != nil {
				return nil, fmt.Errorf("import record %d: %w", cid, err)
			}
			if err := t.ChangePosition(l, pos-(len(siblings)-1)); err != nil {
				return nil, fmt.Errorf("import record %d: %w", cid, err)
			}
			pos++
		}
	}
	if err := c.err(); err != nil {
		return nil, err
	}

	if len(dead) > 0 {
		imp.logger.Warn("pruned records without content", "count", len(dead))
	}
	for _, opt := range imp.treeOpts {
		opt(t)
	}
	return t, nil
}

// deadRecords marks content-less nodes, their subtrees and every link aliasing any of them.
func deadRecords(doc *Document) map[int]bool {
	dead := make(map[int]bool)
	var mark func(id int)
	mark = func(id int) {
		if dead[id] {
			return
		}
		dead[id] = true
		for _, cid := range doc.Records[id].ChildIDs {
			mark(cid)
		}
	}
	for _, id := range doc.IDs() {
		r := doc.Records[id]
		if !r.IsLink && r.Data == nil {
			mark(id)
		}
	}
	for _, id := range doc.IDs() {
		r := doc.Records[id]
		if r.IsLink && dead[*r.LinkTargetID] {
			dead[id] = true
		}
	}
	return dead
}
