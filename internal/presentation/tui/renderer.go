package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/pipeline"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// If the renderer cannot be built the markdown is returned as is.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// DescribeMarkdown lists the tasks of p as a markdown table, in input order.
func DescribeMarkdown(p *pipeline.Pipeline) string {
	var sb strings.Builder
	title := p.Name
	if title == "" {
		title = "pipeline"
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "apiVersion %d, %d tasks\n\n", p.APIVersion, len(p.Tasks))

	if len(p.Tasks) == 0 {
		sb.WriteString("_No tasks parsed yet_\n")
		return sb.String()
	}

	sb.WriteString("| id | parent | action | name | params |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, t := range p.Tasks {
		id, parent := "-", "-"
		if v, ok := t.TaskID(); ok {
			id = fmt.Sprint(v)
		}
		if v, ok := t.ParentID(); ok {
			parent = fmt.Sprint(v)
		}
		fmt.Fprintf(&sb, "| %s | %s | `%s` | %s | %s |\n",
			id, parent, t.Action, escapeCell(t.Name), escapeCell(fmt.Sprint(t.Params)))
	}
	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
