package dsl

import (
	"maps"

	"github.com/aretw0/arbor/pkg/domain"
)

// NodeBuilder configures one node. Line and Choice descend into a new child;
// the content setters return the same builder.
type NodeBuilder struct {
	builder  *Builder
	parent   *NodeBuilder
	data     *domain.NodeData
	children []*NodeBuilder
	target   string // label of the link target; empty for nodes
}

func (n *NodeBuilder) add(t domain.NodeType, text string) *NodeBuilder {
	if n.target != "" {
		n.builder.fail("cannot add children to a link to %q", n.target)
	}
	child := n.builder.newNode(t, text)
	child.parent = n
	n.children = append(n.children, child)
	return child
}

// Line appends a spoken line as the last child and returns its builder.
func (n *NodeBuilder) Line(text string) *NodeBuilder {
	return n.add(domain.NodeTypeLine, text)
}

// Choice appends a player choice as the last child and returns its builder.
func (n *NodeBuilder) Choice(text string) *NodeBuilder {
	return n.add(domain.NodeTypeChoice, text)
}

// LinkTo appends a link to the node labelled label. It returns n, not the link.
func (n *NodeBuilder) LinkTo(label string) *NodeBuilder {
	if label == "" {
		n.builder.fail("link target label cannot be empty")
		return n
	}
	if n.target != "" {
		n.builder.fail("cannot add children to a link to %q", n.target)
		return n
	}
	n.children = append(n.children, &NodeBuilder{builder: n.builder, parent: n, target: label})
	return n
}

// Label names the node so links can target it. Labels are builder-only and not persisted.
func (n *NodeBuilder) Label(label string) *NodeBuilder {
	if prev, ok := n.builder.labels[label]; ok && prev != n {
		n.builder.fail("duplicate label %q", label)
		return n
	}
	n.builder.labels[label] = n
	return n
}

// Text replaces the node text.
func (n *NodeBuilder) Text(text string) *NodeBuilder {
	if n.data != nil {
		n.data.Text = text
	}
	return n
}

// Speaker sets who says the line.
func (n *NodeBuilder) Speaker(speaker string) *NodeBuilder {
	if n.data != nil {
		n.data.Speaker = speaker
	}
	return n
}

// When sets the condition expression.
func (n *NodeBuilder) When(expr string) *NodeBuilder {
	if n.data != nil {
		n.data.Condition = &domain.Condition{Expression: expr}
	}
	return n
}

// Do sets the action fired when the node is visited.
func (n *NodeBuilder) Do(name string, args map[string]any) *NodeBuilder {
	if n.data != nil {
		n.data.Action = &domain.Action{Name: name, Args: maps.Clone(args)}
	}
	return n
}

// Notes sets the author notes.
func (n *NodeBuilder) Notes(notes string) *NodeBuilder {
	if n.data != nil {
		n.data.Notes = notes
	}
	return n
}

// Up returns the parent builder, or n itself at the root.
func (n *NodeBuilder) Up() *NodeBuilder {
	if n.parent == nil {
		return n
	}
	return n.parent
}
