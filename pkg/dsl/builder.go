package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/aretw0/arbor/pkg/tree"
)

// Builder accumulates a tree description. Mistakes made while chaining are
// collected and reported by Build.
type Builder struct {
	name   string
	root   *NodeBuilder
	labels map[string]*NodeBuilder
	errs   []error
}

// New starts a tree whose root is a line with the given text.
func New(rootText string) *Builder {
	b := &Builder{labels: make(map[string]*NodeBuilder)}
	b.root = b.newNode(domain.NodeTypeLine, rootText)
	return b
}

// Named sets the document name.
func (b *Builder) Named(name string) *Builder {
	b.name = name
	return b
}

// Root returns the builder of the root line.
func (b *Builder) Root() *NodeBuilder {
	return b.root
}

func (b *Builder) newNode(t domain.NodeType, text string) *NodeBuilder {
	data := domain.NewNodeData(t)
	data.Text = text
	return &NodeBuilder{builder: b, data: data}
}

func (b *Builder) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}

// Build numbers the nodes in preorder and returns the flat document.
// Link targets are resolved by label; an unknown label is an error.
func (b *Builder) Build() (*schema.Document, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("dsl: %w", errors.Join(b.errs...))
	}

	ids := make(map[*NodeBuilder]int)
	var order []*NodeBuilder
	var number func(n *NodeBuilder)
	number = func(n *NodeBuilder) {
		ids[n] = len(order)
		order = append(order, n)
		for _, c := range n.children {
			number(c)
		}
	}
	number(b.root)

	doc := &schema.Document{
		Version: schema.CurrentVersion,
		Name:    b.name,
		Records: make(map[int]*schema.Record, len(order)),
	}
	var errs []error
	for _, n := range order {
		id := ids[n]
		rec := &schema.Record{ID: id}
		if n.parent != nil {
			pid := ids[n.parent]
			rec.ParentID = &pid
		}
		for _, c := range n.children {
			rec.ChildIDs = append(rec.ChildIDs, ids[c])
		}
		if n.target != "" {
			target, ok := b.labels[n.target]
			if !ok {
				errs = append(errs, fmt.Errorf("link to unknown label %q", n.target))
				continue
			}
			tid := ids[target]
			rec.IsLink = true
			rec.LinkTargetID = &tid
		} else {
			rec.Data = &schema.RecordData{
				Type:      n.data.Type(),
				Speaker:   n.data.Speaker,
				Text:      n.data.Text,
				Condition: n.data.Condition,
				Action:    n.data.Action,
				Notes:     n.data.Notes,
			}
		}
		doc.Records[id] = rec
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("dsl: %w", errors.Join(errs...))
	}
	return doc.Clone(), nil
}

// Tree builds the document and imports it, so the full structural validation applies
// (a link that would close a cycle is rejected here).
func (b *Builder) Tree(opts ...schema.ImportOption) (*tree.Tree, error) {
	doc, err := b.Build()
	if err != nil {
		return nil, err
	}
	return schema.Import(doc, opts...)
}

// MustTree is like Tree but panics on error. Intended for fixtures.
func (b *Builder) MustTree(opts ...schema.ImportOption) *tree.Tree {
	t, err := b.Tree(opts...)
	if err != nil {
		panic(err)
	}
	return t
}
