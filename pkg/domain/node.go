package domain

import (
	"fmt"
	"maps"
	"strings"
)

// NodeType distinguishes spoken lines from player choices.
type NodeType string

const (
	// NodeTypeLine is a line spoken by an actor.
	NodeTypeLine NodeType = "line"
	// NodeTypeChoice is an option presented to the player.
	NodeTypeChoice NodeType = "choice"
)

// DefaultText is the placeholder text of freshly created nodes.
const DefaultText = "Add text here"

// EmptyText is what presentation layers show for a node whose text is blank.
const EmptyText = "<empty>"

// ParseNodeType converts a raw string into a NodeType.
func ParseNodeType(raw string) (NodeType, error) {
	switch t := NodeType(raw); t {
	case NodeTypeLine, NodeTypeChoice:
		return t, nil
	default:
		return "", fmt.Errorf("unknown node type %q", raw)
	}
}

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	return t == NodeTypeLine || t == NodeTypeChoice
}

// Condition is an opaque predicate evaluated by the host at traversal time.
// An empty Expression always holds.
type Condition struct {
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// Always reports whether the condition is trivially true.
func (c *Condition) Always() bool {
	return c == nil || strings.TrimSpace(c.Expression) == ""
}

// Action is an opaque side effect invoked when a node is visited.
type Action struct {
	Name string         `json:"name" yaml:"name"`
	Args map[string]any `json:"args,omitempty" yaml:"args,omitempty"`
}

// NodeData holds the content of one dialogue unit.
// The type is fixed at creation; everything else is editable by the author.
type NodeData struct {
	nodeType NodeType

	Speaker   string
	Text      string
	Condition *Condition
	Action    *Action
	Notes     string
}

// NewNodeData returns default content for a node of the given type.
func NewNodeData(t NodeType) *NodeData {
	return &NodeData{
		nodeType:  t,
		Text:      DefaultText,
		Condition: &Condition{},
	}
}

// Type returns the immutable node type.
func (d *NodeData) Type() NodeType {
	return d.nodeType
}

// DisplayText returns the text, or EmptyText when blank.
func (d *NodeData) DisplayText() string {
	if d.Text == "" {
		return EmptyText
	}
	return d.Text
}

// Clone returns a deep copy of the content.
func (d *NodeData) Clone() *NodeData {
	if d == nil {
		return nil
	}
	c := *d
	if d.Condition != nil {
		cond := *d.Condition
		c.Condition = &cond
	}
	if d.Action != nil {
		act := Action{Name: d.Action.Name, Args: maps.Clone(d.Action.Args)}
		c.Action = &act
	}
	return &c
}
