package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const linearYAML = `apiVersion: 1
tasks:
  - name: populate
    action: push_values
    config:
      elements: [1, 2, 3]
  - name: show
    action: print_list
  - name: flip
    action: reverse_list
`

const treeYAML = `apiVersion: 2
name: branches
tasks:
  - id: 1
    name: populate
    action: push_values
    config:
      elements: [1, 2, 3]
  - id: 2
    parent: 1
    name: show
    action: print_list
  - id: 3
    parent: 1
    name: flip
    action: reverse_list
`

func TestParse_LinearBecomesChain(t *testing.T) {
	p, err := Parse([]byte(linearYAML), FormatYAML)
	require.NoError(t, err)

	require.Len(t, p.Tasks, 3)
	assert.Equal(t, APIVersionLinear, p.APIVersion)

	for i, task := range p.Tasks {
		id, ok := task.TaskID()
		require.True(t, ok)
		assert.Equal(t, i+1, id)
		if i == 0 {
			assert.True(t, task.IsRoot())
			continue
		}
		parent, ok := task.ParentID()
		require.True(t, ok)
		assert.Equal(t, i, parent)
	}
	assert.Equal(t, []any{1, 2, 3}, p.Tasks[0].Params["elements"])
}

func TestParse_Tree(t *testing.T) {
	p, err := Parse([]byte(treeYAML), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "branches", p.Name)
	want := []domain.TaskDescriptor{
		{ID: domain.Ref(1), Name: "populate", Action: "push_values"},
		{ID: domain.Ref(2), Parent: domain.Ref(1), Name: "show", Action: "print_list"},
		{ID: domain.Ref(3), Parent: domain.Ref(1), Name: "flip", Action: "reverse_list"},
	}
	tests.DescriptorSourceContractTest(t, p, want)
}

func TestParse_JSONNumbersBecomeInts(t *testing.T) {
	doc := `{"apiVersion": 2, "tasks": [
		{"id": 1, "name": "populate", "action": "push_values", "config": {"elements": [4, 5], "scale": 1.5}}
	]}`

	p, err := Parse([]byte(doc), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, []any{4, 5}, p.Tasks[0].Params["elements"])
	assert.Equal(t, 1.5, p.Tasks[0].Params["scale"])
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{name: "Missing Version", doc: "tasks: []"},
		{name: "Unknown Version", doc: "apiVersion: 3\ntasks:\n  - {name: a, action: b}"},
		{name: "Missing Tasks", doc: "apiVersion: 2"},
		{name: "Missing Name", doc: "apiVersion: 1\ntasks:\n  - {action: b}"},
		{name: "Missing Action", doc: "apiVersion: 1\ntasks:\n  - {name: a}"},
		{name: "Tree Without Id", doc: "apiVersion: 2\ntasks:\n  - {name: a, action: b}"},
		{name: "Not YAML", doc: "apiVersion: [1"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), FormatYAML)
			assert.ErrorIs(t, err, ErrInvalidPipeline)
		})
	}
}

func TestDescribe(t *testing.T) {
	p, err := Parse([]byte(treeYAML), FormatYAML)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.Describe(&buf))

	assert.Equal(t,
		"~~ Tasks that will execute ~~\n"+
			"push_values - populate - map[elements:[1 2 3]]\n"+
			"print_list - show - map[]\n"+
			"reverse_list - flip - map[]\n",
		buf.String())

	buf.Reset()
	require.NoError(t, (&Pipeline{}).Describe(&buf))
	assert.Equal(t, "No tasks parsed yet\n", buf.String())
}

func TestLoad_DefaultsNameToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nightly.yaml")
	require.NoError(t, os.WriteFile(path, []byte(linearYAML), 0644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nightly", p.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFileSource_ReloadsAndWatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(linearYAML), 0644))

	source := NewFileSource(path)
	descs, err := source.Descriptors(context.Background())
	require.NoError(t, err)
	assert.Len(t, descs, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := source.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(treeYAML), 0644))

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a change notification")
	}

	descs, err = source.Descriptors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "populate", descs[0].Name)
	assert.Len(t, descs, 3)

	cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-changes:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("watch channel not closed after cancel")
		}
	}
}
