package schema

import (
	"maps"
	"slices"

	"github.com/aretw0/arbor/pkg/domain"
)

// CurrentVersion is the document format version written by Export.
const CurrentVersion = 1

// Document is the flat, ID-addressed form of a dialogue tree.
type Document struct {
	Version int             `json:"version" yaml:"version"`
	Name    string          `json:"name,omitempty" yaml:"name,omitempty"`
	Records map[int]*Record `json:"records" yaml:"records"`
}

// Record is one persisted node or link.
type Record struct {
	ID           int         `json:"id" yaml:"id"`
	ParentID     *int        `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	ChildIDs     []int       `json:"childIds,omitempty" yaml:"childIds,omitempty"`
	IsLink       bool        `json:"isLink,omitempty" yaml:"isLink,omitempty"`
	LinkTargetID *int        `json:"linkTargetId,omitempty" yaml:"linkTargetId,omitempty"`
	Data         *RecordData `json:"data,omitempty" yaml:"data,omitempty"`
}

// RecordData is the persisted content of a node. A node record without data is dead.
type RecordData struct {
	Type      domain.NodeType   `json:"type" yaml:"type"`
	Speaker   string            `json:"speaker,omitempty" yaml:"speaker,omitempty"`
	Text      string            `json:"text" yaml:"text"`
	Condition *domain.Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
	Action    *domain.Action    `json:"action,omitempty" yaml:"action,omitempty"`
	Notes     string            `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// IDs returns the record IDs in ascending order.
func (d *Document) IDs() []int {
	return slices.Sorted(maps.Keys(d.Records))
}

// Root returns the record without a parent, or nil if there is not exactly one.
func (d *Document) Root() *Record {
	var root *Record
	for _, r := range d.Records {
		if r == nil || r.ParentID != nil {
			continue
		}
		if root != nil {
			return nil
		}
		root = r
	}
	return root
}

// Clone returns a deep copy, so stores can hand out documents without sharing state.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{Version: d.Version, Name: d.Name, Records: make(map[int]*Record, len(d.Records))}
	for id, r := range d.Records {
		if r == nil {
			out.Records[id] = nil
			continue
		}
		c := *r
		c.ParentID = cloneInt(r.ParentID)
		c.LinkTargetID = cloneInt(r.LinkTargetID)
		c.ChildIDs = slices.Clone(r.ChildIDs)
		if r.Data != nil {
			c.Data = fromNodeData(r.Data.toNodeData())
		}
		out.Records[id] = &c
	}
	return out
}

func fromNodeData(d *domain.NodeData) *RecordData {
	if d == nil {
		return nil
	}
	d = d.Clone()
	return &RecordData{
		Type:      d.Type(),
		Speaker:   d.Speaker,
		Text:      d.Text,
		Condition: d.Condition,
		Action:    d.Action,
		Notes:     d.Notes,
	}
}

func (r *RecordData) toNodeData() *domain.NodeData {
	d := domain.NewNodeData(r.Type)
	d.Speaker = r.Speaker
	d.Text = r.Text
	d.Condition = r.Condition
	d.Action = r.Action
	d.Notes = r.Notes
	return d.Clone()
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func intPtr(v int) *int {
	return &v
}
