package http_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/arbor"
	arborhttp "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const treeYAML = `
apiVersion: 2
name: demo
tasks:
  - id: 1
    name: populate
    action: push_values
    config:
      elements: [1, 2, 3]
  - id: 2
    parent: 1
    name: flip
    action: reverse_list
  - id: 3
    parent: 2
    name: show
    action: print_list
`

func newServer(t *testing.T, opts ...arborhttp.Option) (*httptest.Server, *arborhttp.StreamManager) {
	t.Helper()
	streams := arborhttp.NewStreamManager()
	eng, err := arbor.New(
		arbor.WithOutput(io.Discard),
		arbor.WithLifecycleHooks(streams.Hooks()),
	)
	require.NoError(t, err)

	srv := httptest.NewServer(arborhttp.NewHandler(eng, append(opts, arborhttp.WithStreams(streams))...))
	t.Cleanup(srv.Close)
	return srv, streams
}

func postYAML(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/yaml", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCreateAndFetchRun(t *testing.T) {
	srv, _ := newServer(t)

	resp := postYAML(t, srv.URL+"/runs", treeYAML)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var record domain.RunRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&record))
	assert.Equal(t, "demo", record.Pipeline)
	assert.Equal(t, domain.RunStatusSucceeded, record.Status)
	assert.Equal(t, []int{1, 2, 3}, record.Visited)

	get, err := http.Get(srv.URL + "/runs/" + record.ID)
	require.NoError(t, err)
	defer get.Body.Close()
	require.Equal(t, http.StatusOK, get.StatusCode)

	var loaded domain.RunRecord
	require.NoError(t, json.NewDecoder(get.Body).Decode(&loaded))
	assert.Equal(t, record.ID, loaded.ID)

	list, err := http.Get(srv.URL + "/runs")
	require.NoError(t, err)
	defer list.Body.Close()
	var records []domain.RunRecord
	require.NoError(t, json.NewDecoder(list.Body).Decode(&records))
	assert.Len(t, records, 1)
}

func TestCreateRun_JSONWithNameOverride(t *testing.T) {
	srv, _ := newServer(t)

	body := `{"apiVersion": 1, "tasks": [{"name": "seed", "action": "push_values", "config": {"elements": [4]}}]}`
	resp, err := http.Post(srv.URL+"/runs?name=linear", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var record domain.RunRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&record))
	assert.Equal(t, "linear", record.Pipeline)
	assert.Equal(t, []int{1}, record.Visited)
}

func TestCreateRun_FailedTaskStillCreated(t *testing.T) {
	srv, _ := newServer(t)

	body := `
apiVersion: 2
name: broken
tasks:
  - id: 1
    name: seed
    action: push_values
    config:
      elements: [1]
  - id: 2
    parent: 1
    name: ghost
    action: does_not_exist
`
	resp := postYAML(t, srv.URL+"/runs", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var record domain.RunRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&record))
	assert.Equal(t, domain.RunStatusFailed, record.Status)
	require.NotNil(t, record.FailedTask)
	assert.Equal(t, 2, *record.FailedTask)
}

func TestCreateRun_TimeoutStopsScript(t *testing.T) {
	srv, _ := newServer(t, arborhttp.WithRunTimeout(200*time.Millisecond))

	spin := `
apiVersion: 2
name: spin
tasks:
  - id: 1
    name: forever
    action: lua
    config:
      script: "while true do end"
`
	start := time.Now()
	resp := postYAML(t, srv.URL+"/runs", spin)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Less(t, time.Since(start), 10*time.Second)

	var record domain.RunRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&record))
	assert.Equal(t, domain.RunStatusFailed, record.Status)
	require.NotNil(t, record.FailedTask)
	assert.Equal(t, 1, *record.FailedTask)
}

func TestErrorStatuses(t *testing.T) {
	srv, _ := newServer(t)

	resp := postYAML(t, srv.URL+"/runs", "apiVersion: 7\ntasks: []\n")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = postYAML(t, srv.URL+"/runs", "apiVersion: 2\ntasks: []\n")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	missing, err := http.Get(srv.URL + "/runs/nope")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestValidate(t *testing.T) {
	srv, _ := newServer(t)

	resp := postYAML(t, srv.URL+"/validate", treeYAML+`  - id: 9
    name: orphan root
    action: print_list
`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ok arborhttp.ValidateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ok))
	assert.True(t, ok.Valid)
	assert.Equal(t, 4, ok.Tasks)
	assert.Equal(t, []int{9}, ok.Unreachable)

	resp = postYAML(t, srv.URL+"/validate", strings.ReplaceAll(treeYAML, "reverse_list", "flip_it"))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var bad arborhttp.ValidateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bad))
	assert.False(t, bad.Valid)
	require.Len(t, bad.Errors, 1)
	assert.Contains(t, bad.Errors[0], "flip_it")
}

func TestRenderGraph(t *testing.T) {
	srv, _ := newServer(t)

	resp := postYAML(t, srv.URL+"/graph", treeYAML)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "graph TD\n"))
	assert.Contains(t, string(body), "t1 --> t2")
}

func TestActionsAndInfo(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/actions")
	require.NoError(t, err)
	defer resp.Body.Close()
	var actions map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&actions))
	assert.Contains(t, actions["actions"], "push_values")

	info, err := http.Get(srv.URL + "/info")
	require.NoError(t, err)
	defer info.Body.Close()
	var body map[string]string
	require.NoError(t, json.NewDecoder(info.Body).Decode(&body))
	assert.Equal(t, arbor.Version, body["version"])
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	eng, err := arbor.New(arbor.WithOutput(io.Discard), arbor.WithLifecycleHooks(metrics.Hooks()))
	require.NoError(t, err)
	srv := httptest.NewServer(arborhttp.NewHandler(eng, arborhttp.WithMetrics(reg)))
	defer srv.Close()

	resp := postYAML(t, srv.URL+"/runs", treeYAML)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	m, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer m.Body.Close()
	body, err := io.ReadAll(m.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "arbor_task_executions_total")
	assert.Contains(t, string(body), "arbor_forks_total 2")
}

func TestSubscribeEvents(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 128)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	waitFor := func(want string) {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream closed before %q", want)
				if line == want {
					return
				}
			case <-deadline:
				t.Fatalf("timed out waiting for %q", want)
			}
		}
	}

	waitFor("data: connected")

	run := postYAML(t, srv.URL+"/runs", treeYAML)
	require.Equal(t, http.StatusCreated, run.StatusCode)

	waitFor("event: task_enter")
	waitFor("event: fork")
	waitFor("event: task_leave")
}

func TestStreamManager_RunScoped(t *testing.T) {
	sm := arborhttp.NewStreamManager()
	scoped, cancelScoped := sm.Subscribe("run-a")
	defer cancelScoped()
	global, cancelGlobal := sm.Subscribe("")
	defer cancelGlobal()

	sm.Broadcast("run-b", arborhttp.Message{Event: "fork", Data: "{}"})
	sm.Broadcast("run-a", arborhttp.Message{Event: "task_enter", Data: "{}"})

	assert.Equal(t, "fork", (<-global).Event)
	assert.Equal(t, "task_enter", (<-global).Event)
	assert.Equal(t, "task_enter", (<-scoped).Event)
	assert.Empty(t, scoped)

	cancelScoped()
	_, open := <-scoped
	assert.False(t, open)
}

func TestDeleteRun(t *testing.T) {
	srv, _ := newServer(t)

	resp := postYAML(t, srv.URL+"/runs", treeYAML)
	var record domain.RunRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&record))

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/runs/"+record.ID, bytes.NewReader(nil))
	require.NoError(t, err)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer del.Body.Close()
	assert.Equal(t, http.StatusNoContent, del.StatusCode)

	again, err := http.Get(srv.URL + "/runs/" + record.ID)
	require.NoError(t, err)
	defer again.Body.Close()
	assert.Equal(t, http.StatusNotFound, again.StatusCode)
}
