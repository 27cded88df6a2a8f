package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/muesli/termenv"
)

// Outline renders a document as an indented tree, one record per line, prefixed with the
// record ID so commands can address it.
type Outline struct {
	Profile termenv.Profile
	// Details adds conditions and actions after the text.
	Details bool
}

// NewOutline detects the color profile of the terminal.
func NewOutline() *Outline {
	return &Outline{Profile: termenv.ColorProfile(), Details: true}
}

func (o *Outline) style(s, color string) string {
	return o.Profile.String(s).Foreground(o.Profile.Color(color)).String()
}

// Render writes doc to w. Records that cannot be reached from the root are not shown.
func (o *Outline) Render(w io.Writer, doc *schema.Document) error {
	if doc == nil {
		return fmt.Errorf("nothing to render")
	}
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("document has no single root")
	}

	var sb strings.Builder
	sb.WriteString(o.line(doc, root))
	sb.WriteByte('\n')
	o.children(&sb, doc, root, "", map[int]bool{root.ID: true})
	_, err := io.WriteString(w, sb.String())
	return err
}

func (o *Outline) children(sb *strings.Builder, doc *schema.Document, r *schema.Record, indent string, seen map[int]bool) {
	for i, cid := range r.ChildIDs {
		child, ok := doc.Records[cid]
		if !ok || child == nil || seen[cid] {
			continue
		}
		seen[cid] = true

		branch, next := "├─ ", "│  "
		if i == len(r.ChildIDs)-1 {
			branch, next = "└─ ", "   "
		}
		sb.WriteString(indent)
		sb.WriteString(o.style(branch, "#6b7280"))
		sb.WriteString(o.line(doc, child))
		sb.WriteByte('\n')
		o.children(sb, doc, child, indent+next, seen)
	}
}

func (o *Outline) line(doc *schema.Document, r *schema.Record) string {
	id := o.style(fmt.Sprintf("#%d", r.ID), "#9ca3af")

	if r.IsLink {
		target := "?"
		if r.LinkTargetID != nil {
			target = fmt.Sprintf("#%d", *r.LinkTargetID)
			if t, ok := doc.Records[*r.LinkTargetID]; ok && t != nil && t.Data != nil {
				target += " " + quote(t.Data.Text)
			}
		}
		return fmt.Sprintf("%s %s", id, o.style("↪ "+target, "#22d3ee"))
	}
	if r.Data == nil {
		return fmt.Sprintf("%s %s", id, o.style("(dead)", "#ef4444"))
	}

	var sb strings.Builder
	sb.WriteString(id)
	sb.WriteByte(' ')
	if r.Data.Type == domain.NodeTypeChoice {
		sb.WriteString(o.style("> ", "#f59e0b"))
	}
	if r.Data.Speaker != "" {
		sb.WriteString(o.Profile.String(r.Data.Speaker + ": ").Bold().String())
	}
	text := r.Data.Text
	if text == "" {
		text = domain.EmptyText
	}
	sb.WriteString(text)

	if o.Details {
		if !r.Data.Condition.Always() {
			sb.WriteString(o.style(fmt.Sprintf("  [if %s]", r.Data.Condition.Expression), "#eab308"))
		}
		if r.Data.Action != nil {
			sb.WriteString(o.style(fmt.Sprintf("  [do %s]", r.Data.Action.Name), "#a78bfa"))
		}
	}
	return sb.String()
}

func quote(s string) string {
	if s == "" {
		return domain.EmptyText
	}
	if r := []rune(s); len(r) > 24 {
		s = string(r[:23]) + "…"
	}
	return fmt.Sprintf("%q", s)
}
