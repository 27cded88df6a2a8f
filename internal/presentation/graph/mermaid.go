package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/schema"
)

// Overlay marks records to highlight on the graph.
type Overlay struct {
	Selected []int
	Current  *int
}

const maxLabel = 40

// GenerateMermaid renders a document as a Mermaid flowchart.
// Shapes follow the node kind:
// - Root: ((Circle))
// - Choice: [/Parallelogram/]
// - Line: [Rectangle]
// - Dead node: [(Cylinder)], styled as dead
// Child edges are solid and carry the child's condition as a label. A link record is not
// drawn as a node; it becomes a dashed edge from its parent to its target.
func GenerateMermaid(doc *schema.Document, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if doc == nil {
		return sb.String()
	}

	var dead []int
	for _, id := range doc.IDs() {
		r := doc.Records[id]
		if r == nil || r.IsLink {
			continue
		}

		opener, closer := "[", "]"
		switch {
		case r.Data == nil:
			opener, closer = "[(", ")]"
			dead = append(dead, id)
		case r.ParentID == nil:
			opener, closer = "((", "))"
		case r.Data.Type == domain.NodeTypeChoice:
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", nodeID(id), opener, label(r), closer)

		for _, cid := range r.ChildIDs {
			child, ok := doc.Records[cid]
			if !ok || child == nil {
				continue
			}
			if child.IsLink {
				if child.LinkTargetID != nil {
					fmt.Fprintf(&sb, "    %s -.-> %s\n", nodeID(id), nodeID(*child.LinkTargetID))
				}
				continue
			}
			arrow := "-->"
			if child.Data != nil && !child.Data.Condition.Always() {
				arrow = fmt.Sprintf("-- \"%s\" -->", escape(child.Data.Condition.Expression))
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", nodeID(id), arrow, nodeID(cid))
		}
	}

	if len(dead) > 0 {
		sb.WriteString("    classDef dead fill:#eeeeee,stroke:#9e9e9e,stroke-dasharray:3 3,color:#616161;\n")
		for _, id := range dead {
			fmt.Fprintf(&sb, "    class %s dead;\n", nodeID(id))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on light fills in both themes.
		sb.WriteString("    classDef selected fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		seen := make(map[int]bool)
		for _, id := range overlay.Selected {
			if !seen[id] {
				seen[id] = true
				fmt.Fprintf(&sb, "    class %s selected;\n", nodeID(id))
			}
		}
		if overlay.Current != nil {
			fmt.Fprintf(&sb, "    class %s current;\n", nodeID(*overlay.Current))
		}
	}
	return sb.String()
}

func nodeID(id int) string {
	return fmt.Sprintf("n%d", id)
}

func label(r *schema.Record) string {
	if r.Data == nil {
		return fmt.Sprintf("#%d (dead)", r.ID)
	}
	text := r.Data.Text
	if text == "" {
		text = domain.EmptyText
	}
	if runes := []rune(text); len(runes) > maxLabel {
		text = string(runes[:maxLabel-1]) + "…"
	}
	if r.Data.Speaker != "" {
		text = r.Data.Speaker + ": " + text
	}
	return fmt.Sprintf("#%d %s", r.ID, escape(text))
}

// escape swaps characters Mermaid would read as syntax inside a quoted label.
func escape(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
