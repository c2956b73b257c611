package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	taskgraph "github.com/aretw0/arbor/pkg/graph"
)

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	Visited []int
	// Failed is the task that aborted the run, if any.
	Failed *int
}

// Actions drawn as subroutines because they run user code.
var scriptedActions = map[string]bool{"lua": true}

// GenerateMermaid produces a Mermaid flowchart of the task tree.
// It applies semantic styling:
// - Entry point: ((Circle))
// - Scripted actions: [[Subroutine]]
// - Default: [Rectangle]
// Tasks the executor can never reach are drawn dashed, and the overlay marks
// visited and failed tasks when provided.
func GenerateMermaid(g *taskgraph.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	entryID := -1
	if entry, err := g.Entry(); err == nil {
		entryID, _ = entry.TaskID()
	}

	drawn := make(map[int]bool)
	edges := make(map[[2]int]bool)
	for _, d := range g.Descriptors() {
		id, _ := d.TaskID()
		if !drawn[id] {
			drawn[id] = true
			// Duplicate ids collapse onto the descriptor the executor would run.
			indexed, _ := g.Lookup(id)
			sb.WriteString(nodeLine(indexed, id == entryID))
		}

		parent, ok := d.ParentID()
		if !ok || edges[[2]int{parent, id}] {
			continue
		}
		edges[[2]int{parent, id}] = true
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", nodeID(parent), nodeID(id)))
	}

	if unreachable := g.Unreachable(); len(unreachable) > 0 {
		sb.WriteString("\n    classDef unreachable stroke-dasharray: 5 5,color:#888;\n")
		for _, id := range unreachable {
			sb.WriteString(fmt.Sprintf("    class %s unreachable;\n", nodeID(id)))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:4px,color:#000;\n")

		seen := make(map[int]bool)
		for _, id := range overlay.Visited {
			if seen[id] || (overlay.Failed != nil && *overlay.Failed == id) {
				continue
			}
			seen[id] = true
			sb.WriteString(fmt.Sprintf("    class %s visited;\n", nodeID(id)))
		}
		if overlay.Failed != nil {
			sb.WriteString(fmt.Sprintf("    class %s failed;\n", nodeID(*overlay.Failed)))
		}
	}

	return sb.String()
}

func nodeLine(d domain.TaskDescriptor, entry bool) string {
	id, _ := d.TaskID()

	opener, closer := "[", "]"
	switch {
	case entry:
		opener, closer = "((", "))"
	case scriptedActions[d.Action]:
		opener, closer = "[[", "]]"
	}

	label := fmt.Sprintf("%d. %s <br/> %s", id, escapeLabel(d.Name), escapeLabel(d.Action))
	return fmt.Sprintf("    %s%s\"%s\"%s\n", nodeID(id), opener, label, closer)
}

// nodeID maps a task id to a Mermaid-safe identifier. Negative ids are valid tasks too.
func nodeID(id int) string {
	if id < 0 {
		return fmt.Sprintf("tn%d", -id)
	}
	return fmt.Sprintf("t%d", id)
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
