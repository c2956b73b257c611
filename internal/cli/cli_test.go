package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/arbor/internal/testutils"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const treeYAML = `apiVersion: 2
name: demo
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
  - id: 4
    parent: 3
    name: show flipped
    action: print_list
`

func writePipeline(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{name: content})
	return filepath.Join(dir, name)
}

func testOptions(path string) (Options, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return Options{Path: path, Stdout: &stdout, Stderr: &stderr}, &stdout, &stderr
}

func TestRun_PrintsTaskOutputAndSummary(t *testing.T) {
	opts, stdout, stderr := testOptions(writePipeline(t, "demo.yaml", treeYAML))

	require.NoError(t, Run(context.Background(), opts))
	assert.Equal(t, "the list is: 3, 2, 1\nthe list is: 1, 2, 3\n", stdout.String())
	assert.Contains(t, stderr.String(), "demo")
	assert.Contains(t, stderr.String(), "succeeded")
}

func TestRun_Quiet(t *testing.T) {
	opts, _, stderr := testOptions(writePipeline(t, "demo.yaml", treeYAML))
	opts.Quiet = true

	require.NoError(t, Run(context.Background(), opts))
	assert.Empty(t, stderr.String())
}

func TestRun_TaskFailure(t *testing.T) {
	opts, _, stderr := testOptions(writePipeline(t, "broken.yaml", `apiVersion: 1
tasks:
  - name: bad
    action: nope
`))

	err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownAction)
	assert.Contains(t, stderr.String(), "failed")
}

func TestRun_CancelledIsClean(t *testing.T) {
	opts, _, _ := testOptions(writePipeline(t, "demo.yaml", treeYAML))
	opts.Quiet = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, Run(ctx, opts))
}

func TestRun_RequiresSource(t *testing.T) {
	opts, _, _ := testOptions("")
	assert.Error(t, Run(context.Background(), opts))
}

func TestRun_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	opts, _, _ := testOptions(writePipeline(t, "demo.yaml", treeYAML))
	opts.RedisAddr = mr.Addr()
	opts.Quiet = true

	require.NoError(t, Run(context.Background(), opts))

	var listing bytes.Buffer
	opts.Stdout = &listing
	require.NoError(t, ListRuns(context.Background(), opts))
	assert.Contains(t, listing.String(), "demo")
	assert.Contains(t, listing.String(), "succeeded")

	id := regexp.MustCompile(`[0-9a-f-]{36}`).FindString(listing.String())
	require.NotEmpty(t, id)

	var shown bytes.Buffer
	opts.Stdout = &shown
	require.NoError(t, ShowRun(context.Background(), opts, id, true))
	var record domain.RunRecord
	require.NoError(t, json.Unmarshal(shown.Bytes(), &record))
	assert.Equal(t, []int{1, 2, 3, 4}, record.Visited)

	var chart bytes.Buffer
	opts.Stdout = &chart
	require.NoError(t, Graph(context.Background(), opts, id))
	assert.Contains(t, chart.String(), "visited")
}

func TestNewEngine_BadRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, _, err := NewEngine(Options{RedisAddr: addr}, createLogger(Options{}))
	assert.Error(t, err)
}

func TestRedisAddr(t *testing.T) {
	t.Setenv(RedisAddrEnv, "env:6379")
	assert.Equal(t, "flag:6379", RedisAddr("flag:6379"))
	assert.Equal(t, "env:6379", RedisAddr(""))
}

func TestDescribe_Plain(t *testing.T) {
	opts, stdout, _ := testOptions(writePipeline(t, "demo.yaml", treeYAML))

	require.NoError(t, Describe(opts))
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "~~ Tasks that will execute ~~", lines[0])
}

func TestValidate(t *testing.T) {
	opts, stdout, _ := testOptions(writePipeline(t, "demo.yaml", treeYAML+`  - id: 9
    name: stray
    action: print_list
`))
	require.NoError(t, Validate(context.Background(), opts))
	assert.Contains(t, stdout.String(), "can never run: [9]")
	assert.Contains(t, stdout.String(), "✔ demo")

	bad, out, _ := testOptions(writePipeline(t, "bad.yaml", strings.ReplaceAll(treeYAML, "reverse_list", "spin")))
	assert.ErrorIs(t, Validate(context.Background(), bad), ErrInvalid)
	assert.Contains(t, out.String(), `"spin"`)
}

func TestGraph(t *testing.T) {
	opts, stdout, _ := testOptions(writePipeline(t, "demo.json", `{"apiVersion": 1, "name": "j", "tasks": [
		{"name": "a", "action": "print_list"},
		{"name": "b", "action": "print_list"}
	]}`))

	require.NoError(t, Graph(context.Background(), opts, ""))
	assert.True(t, strings.HasPrefix(stdout.String(), "graph TD\n"))
	assert.Contains(t, stdout.String(), "t1 --> t2")
}

func TestNewServeHandler(t *testing.T) {
	handler, closeEngine, err := NewServeHandler(Options{})
	require.NoError(t, err)
	defer closeEngine()

	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/runs", "application/yaml", strings.NewReader(treeYAML))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	metrics, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	assert.Equal(t, http.StatusOK, metrics.StatusCode)
}
