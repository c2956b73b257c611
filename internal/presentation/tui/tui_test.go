package tui

import (
	"bytes"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeMarkdown(t *testing.T) {
	p, err := pipeline.Parse([]byte(`apiVersion: 2
name: demo
tasks:
  - {id: 1, name: populate, action: push_values, config: {elements: [1]}}
  - {id: 2, parent: 1, name: "a|b", action: print_list}
`), pipeline.FormatYAML)
	require.NoError(t, err)

	md := DescribeMarkdown(p)

	assert.Contains(t, md, "# demo")
	assert.Contains(t, md, "| 1 | - | `push_values` | populate | map[elements:[1]] |")
	assert.Contains(t, md, "| 2 | 1 | `print_list` | a\\|b | map[] |")
}

func TestDescribeMarkdown_Empty(t *testing.T) {
	md := DescribeMarkdown(&pipeline.Pipeline{})
	assert.Contains(t, md, "No tasks parsed yet")
}

func TestNewRenderer(t *testing.T) {
	out, err := NewRenderer()("# title")
	require.NoError(t, err)
	assert.Contains(t, out, "title")
}

func TestRenderSummary(t *testing.T) {
	failed := 3
	start := time.Now()
	out := RenderSummary(&domain.RunRecord{
		ID:          "run-1",
		Pipeline:    "demo",
		Status:      domain.RunStatusFailed,
		Visited:     []int{1, 2, 3},
		Unreachable: []int{9},
		FailedTask:  &failed,
		Error:       "task 3 (x): boom",
		StartedAt:   start,
		FinishedAt:  start.Add(time.Second),
	})

	for _, want := range []string{"demo", "run-1", "1 → 2 → 3", "unreachable: 9", "failed at task 3", "boom", "took 1s"} {
		assert.Contains(t, out, want)
	}
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "v1.2.3")
	assert.Contains(t, buf.String(), "v1.2.3")
}
