package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/taskweave/taskweave/engine"
	"github.com/taskweave/taskweave/engine/handler"
	"github.com/taskweave/taskweave/engine/sandbox"
	"github.com/taskweave/taskweave/metadata"
	"github.com/taskweave/taskweave/model"
	"github.com/taskweave/taskweave/persistence/inmem"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(runtimeId string, taskName string) {}

type restFixture struct {
	server  *Server
	storage *inmem.InMemRuntimeStorage
}

func newRestFixture(t *testing.T) *restFixture {
	t.Helper()
	runtimeStorage := inmem.NewInMemRuntimeStorage()
	definitionService := metadata.NewDefinitionService(inmem.NewInMemDefinitionStorage())
	handlers := handler.NewContainer(sandbox.New(2 * time.Second))
	processor := engine.NewProcessor(runtimeStorage, handlers, nopDispatcher{})
	executionService := engine.NewExecutionService(definitionService, runtimeStorage, processor)
	server, err := NewServer(0, "secret", definitionService, executionService)
	require.NoError(t, err)
	return &restFixture{server: server, storage: runtimeStorage}
}

func (f *restFixture) do(t *testing.T, method string, path string, payload any, decorate func(*http.Request)) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if decorate != nil {
		decorate(req)
	}
	recorder := httptest.NewRecorder()
	f.server.Handler.ServeHTTP(recorder, req)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	require.Equal(t, float64(recorder.Code), envelope["statusCode"])
	return recorder, envelope
}

func definitionPayload() model.Definition {
	return model.Definition{
		Name: "order-flow",
		Tasks: []model.Task{
			{Name: "start", Type: model.TASK_TYPE_START, Next: []string{"end"}},
			{Name: "end", Type: model.TASK_TYPE_END, Previous: []string{"start"}},
		},
	}
}

func TestServer(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, f *restFixture){
		"definition lifecycle":                  testDefinitionLifecycle,
		"unknown definition returns not found":  testDefinitionNotFound,
		"invalid definition returns bad input":  testDefinitionInvalid,
		"workflow start returns a runtime id":   testWorkflowStart,
		"process requires shared credential":    testProcessAuth,
		"runtime endpoint returns the runtime":  testGetRuntime,
		"listen rejects a missing api key":      testListenAuth,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, newRestFixture(t))
		})
	}
}

func testDefinitionLifecycle(t *testing.T, f *restFixture) {
	recorder, envelope := f.do(t, http.MethodPost, "/definition", definitionPayload(), nil)
	require.Equal(t, http.StatusCreated, recorder.Code)
	created := envelope["data"].(map[string]any)
	id := created["id"].(string)
	require.NotEmpty(t, id)

	recorder, envelope = f.do(t, http.MethodGet, "/definition/"+id, nil, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	found := envelope["data"].(map[string]any)
	require.Equal(t, "order-flow", found["name"])

	recorder, envelope = f.do(t, http.MethodGet, "/definition", nil, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Len(t, envelope["data"].([]any), 1)
}

func testDefinitionNotFound(t *testing.T, f *restFixture) {
	recorder, envelope := f.do(t, http.MethodGet, "/definition/missing", nil, nil)
	require.Equal(t, http.StatusNotFound, recorder.Code)
	require.NotEmpty(t, envelope["error"])
}

func testDefinitionInvalid(t *testing.T, f *restFixture) {
	invalid := definitionPayload()
	invalid.Tasks = invalid.Tasks[:1]
	recorder, _ := f.do(t, http.MethodPost, "/definition", invalid, nil)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func (f *restFixture) createDefinition(t *testing.T) string {
	t.Helper()
	_, envelope := f.do(t, http.MethodPost, "/definition", definitionPayload(), nil)
	return envelope["data"].(map[string]any)["id"].(string)
}

func testWorkflowStart(t *testing.T, f *restFixture) {
	defId := f.createDefinition(t)

	recorder, envelope := f.do(t, http.MethodPost, "/workflow/start", model.StartWorkflowRequest{
		WorkflowDefinitionId: defId,
	}, nil)
	require.Equal(t, http.StatusCreated, recorder.Code)
	runtimeId := envelope["data"].(map[string]any)["workflowRuntimeId"].(string)
	require.NotEmpty(t, runtimeId)

	recorder, _ = f.do(t, http.MethodPost, "/workflow/start", model.StartWorkflowRequest{
		WorkflowDefinitionId: "missing",
	}, nil)
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func testProcessAuth(t *testing.T, f *restFixture) {
	defId := f.createDefinition(t)
	_, envelope := f.do(t, http.MethodPost, "/workflow/start", model.StartWorkflowRequest{
		WorkflowDefinitionId: defId,
	}, nil)
	runtimeId := envelope["data"].(map[string]any)["workflowRuntimeId"].(string)

	payload := model.ProcessTaskRequest{WorkflowRuntimeId: runtimeId, TaskName: "end"}

	recorder, _ := f.do(t, http.MethodPost, "/transport/process", payload, nil)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder, _ = f.do(t, http.MethodPost, "/transport/process", payload, func(r *http.Request) {
		r.SetBasicAuth("workflow", "wrong")
	})
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder, _ = f.do(t, http.MethodPost, "/transport/process", payload, func(r *http.Request) {
		r.SetBasicAuth("workflow", "secret")
	})
	require.Equal(t, http.StatusAccepted, recorder.Code)
}

func testGetRuntime(t *testing.T, f *restFixture) {
	defId := f.createDefinition(t)
	_, envelope := f.do(t, http.MethodPost, "/workflow/start", model.StartWorkflowRequest{
		WorkflowDefinitionId: defId,
	}, nil)
	runtimeId := envelope["data"].(map[string]any)["workflowRuntimeId"].(string)

	recorder, envelope := f.do(t, http.MethodGet, "/runtime/"+runtimeId, nil, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	runtime := envelope["data"].(map[string]any)
	require.Equal(t, runtimeId, runtime["id"])

	recorder, envelope = f.do(t, http.MethodGet, "/runtime", nil, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Len(t, envelope["data"].([]any), 1)

	recorder, _ = f.do(t, http.MethodGet, "/runtime/missing", nil, nil)
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func testListenAuth(t *testing.T, f *restFixture) {
	listen := model.Task{Name: "external", Type: model.TASK_TYPE_LISTEN, Next: []string{"end"}, Previous: []string{"start"}, Params: map[string]any{"apiKey": "listen-key"}}
	def := model.Definition{
		Name: "listen-flow",
		Tasks: []model.Task{
			{Name: "start", Type: model.TASK_TYPE_START, Next: []string{"external"}},
			listen,
			{Name: "end", Type: model.TASK_TYPE_END, Previous: []string{"external"}},
		},
	}
	_, envelope := f.do(t, http.MethodPost, "/definition", def, nil)
	defId := envelope["data"].(map[string]any)["id"].(string)

	_, envelope = f.do(t, http.MethodPost, "/workflow/start", model.StartWorkflowRequest{
		WorkflowDefinitionId: defId,
	}, nil)
	runtimeId := envelope["data"].(map[string]any)["workflowRuntimeId"].(string)

	payload := model.ProcessListenRequest{WorkflowRuntimeId: runtimeId, TaskName: "external"}

	recorder, _ := f.do(t, http.MethodPost, "/workflow/listen", payload, nil)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder, _ = f.do(t, http.MethodPost, "/workflow/listen", payload, func(r *http.Request) {
		r.Header.Set("X-Api-Key", "listen-key")
	})
	require.Equal(t, http.StatusAccepted, recorder.Code)
}
