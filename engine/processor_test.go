package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/taskweave/taskweave/engine/handler"
	"github.com/taskweave/taskweave/engine/sandbox"
	"github.com/taskweave/taskweave/model"
	"github.com/taskweave/taskweave/persistence/inmem"
)

type recordingDispatcher struct {
	mu         sync.Mutex
	dispatched []string
}

func (d *recordingDispatcher) Dispatch(runtimeId string, taskName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispatched = append(d.dispatched, taskName)
}

func (d *recordingDispatcher) drain() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.dispatched
	d.dispatched = nil
	return out
}

type processorFixture struct {
	storage    *inmem.InMemRuntimeStorage
	dispatcher *recordingDispatcher
	processor  *Processor
}

func newProcessorFixture() *processorFixture {
	storage := inmem.NewInMemRuntimeStorage()
	dispatcher := &recordingDispatcher{}
	handlers := handler.NewContainer(sandbox.New(2 * time.Second))
	return &processorFixture{
		storage:    storage,
		dispatcher: dispatcher,
		processor:  NewProcessor(storage, handlers, dispatcher),
	}
}

func (f *processorFixture) createRuntime(t *testing.T, global map[string]any, tasks ...model.Task) string {
	t.Helper()
	rt, err := f.storage.Create(model.Runtime{
		Id:              "rt-1",
		DefinitionId:    "def-1",
		Global:          global,
		Tasks:           tasks,
		WorkflowResults: map[string]any{},
		WorkflowStatus:  model.WORKFLOW_STATUS_PENDING,
	})
	require.NoError(t, err)
	return rt.Id
}

func (f *processorFixture) runtime(t *testing.T, id string) *model.Runtime {
	t.Helper()
	rt, err := f.storage.FindById(id)
	require.NoError(t, err)
	return rt
}

func task(name string, taskType model.TaskType, next []string, previous []string) model.Task {
	return model.Task{
		Id:       "id-" + name,
		Name:     name,
		Type:     taskType,
		Next:     next,
		Previous: previous,
		Status:   model.TASK_STATUS_PENDING,
	}
}

func TestProcessor(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, f *processorFixture){
		"linear workflow runs to completion":     testLinearWorkflow,
		"guard false prunes the branch":          testGuardPrunesBranch,
		"guard true advances the branch":         testGuardAdvances,
		"wait joins two branches":                testWaitFanIn,
		"completed wait short circuits":          testWaitIdempotent,
		"listen task is not dispatched":          testListenNotDispatched,
		"unknown runtime is a bad request":       testUnknownRuntime,
		"unknown task is a bad request":          testUnknownTask,
		"script failure marks the task failed":   testScriptFailure,
		"workflow completes only after end task": testCompletionRequiresEnd,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, newProcessorFixture())
		})
	}
}

func testLinearWorkflow(t *testing.T, f *processorFixture) {
	work := task("work", model.TASK_TYPE_FUNCTION, []string{"end"}, []string{"start"})
	work.Params = map[string]any{"b": 2}
	work.Exec = `
		function handler() {
			logger("computing sum");
			return {sum: getWorkflowGlobal().a + getWorkflowParams().b};
		}`
	id := f.createRuntime(t, map[string]any{"a": 1},
		task("start", model.TASK_TYPE_START, []string{"work"}, nil),
		work,
		task("end", model.TASK_TYPE_END, nil, []string{"work"}),
	)

	result, err := f.processor.ProcessTask(id, "start")
	require.NoError(t, err)
	require.Equal(t, model.TASK_STATUS_COMPLETED, result.TaskStatus)
	require.Equal(t, model.WORKFLOW_STATUS_PENDING, result.WorkflowStatus)
	require.Equal(t, []string{"work"}, f.dispatcher.drain())

	result, err = f.processor.ProcessTask(id, "work")
	require.NoError(t, err)
	require.Equal(t, []string{"end"}, f.dispatcher.drain())
	response, ok := result.Response.(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(3), response["sum"])

	rt := f.runtime(t, id)
	require.Contains(t, rt.WorkflowResults, "start")
	require.Contains(t, rt.WorkflowResults, "work")
	require.Equal(t, model.WORKFLOW_STATUS_PENDING, rt.WorkflowStatus)
	require.NotEmpty(t, rt.Logs)
	require.Equal(t, "work", rt.Logs[0].TaskName)
	require.Equal(t, "computing sum", rt.Logs[0].Message)

	result, err = f.processor.ProcessTask(id, "end")
	require.NoError(t, err)
	require.Equal(t, model.WORKFLOW_STATUS_COMPLETED, result.WorkflowStatus)
	require.Empty(t, f.dispatcher.drain())

	rt = f.runtime(t, id)
	require.Equal(t, model.WORKFLOW_STATUS_COMPLETED, rt.WorkflowStatus)
	for _, task := range rt.Tasks {
		require.Equal(t, model.TASK_STATUS_COMPLETED, task.Status)
	}
}

func testGuardPrunesBranch(t *testing.T, f *processorFixture) {
	guard := task("guard", model.TASK_TYPE_GUARD, []string{"end"}, []string{"start"})
	guard.Exec = `function handler() { return getWorkflowGlobal().allowed; }`
	id := f.createRuntime(t, map[string]any{"allowed": false},
		task("start", model.TASK_TYPE_START, []string{"guard"}, nil),
		guard,
		task("end", model.TASK_TYPE_END, nil, []string{"guard"}),
	)

	_, err := f.processor.ProcessTask(id, "start")
	require.NoError(t, err)
	f.dispatcher.drain()

	result, err := f.processor.ProcessTask(id, "guard")
	require.NoError(t, err)
	require.Equal(t, false, result.Response)
	require.Empty(t, f.dispatcher.drain())

	rt := f.runtime(t, id)
	require.Equal(t, model.TASK_STATUS_COMPLETED, rt.FindTaskByName("guard").Status)
	require.Equal(t, false, rt.WorkflowResults["guard"])
	require.Equal(t, model.WORKFLOW_STATUS_PENDING, rt.WorkflowStatus)
}

func testGuardAdvances(t *testing.T, f *processorFixture) {
	guard := task("guard", model.TASK_TYPE_GUARD, []string{"end"}, []string{"start"})
	guard.Exec = `function handler() { return getWorkflowGlobal().allowed; }`
	id := f.createRuntime(t, map[string]any{"allowed": true},
		task("start", model.TASK_TYPE_START, []string{"guard"}, nil),
		guard,
		task("end", model.TASK_TYPE_END, nil, []string{"guard"}),
	)

	_, err := f.processor.ProcessTask(id, "start")
	require.NoError(t, err)
	f.dispatcher.drain()

	result, err := f.processor.ProcessTask(id, "guard")
	require.NoError(t, err)
	require.Equal(t, true, result.Response)
	require.Equal(t, []string{"end"}, f.dispatcher.drain())
}

func testWaitFanIn(t *testing.T, f *processorFixture) {
	left := task("left", model.TASK_TYPE_FUNCTION, []string{"join"}, []string{"start"})
	left.Exec = `function handler() { return "left done"; }`
	right := task("right", model.TASK_TYPE_FUNCTION, []string{"join"}, []string{"start"})
	right.Exec = `function handler() { return "right done"; }`
	join := task("join", model.TASK_TYPE_WAIT, []string{"end"}, []string{"left", "right"})
	join.Params = map[string]any{"taskNames": []string{"left", "right"}}
	id := f.createRuntime(t, nil,
		task("start", model.TASK_TYPE_START, []string{"left", "right"}, nil),
		left, right, join,
		task("end", model.TASK_TYPE_END, nil, []string{"join"}),
	)

	_, err := f.processor.ProcessTask(id, "start")
	require.NoError(t, err)
	require.Equal(t, []string{"left", "right"}, f.dispatcher.drain())

	_, err = f.processor.ProcessTask(id, "left")
	require.NoError(t, err)
	require.Equal(t, []string{"join"}, f.dispatcher.drain())

	result, err := f.processor.ProcessTask(id, "join")
	require.NoError(t, err)
	require.Equal(t, false, result.Response)
	require.Empty(t, f.dispatcher.drain())
	require.Equal(t, model.TASK_STATUS_STARTED, f.runtime(t, id).FindTaskByName("join").Status)

	_, err = f.processor.ProcessTask(id, "right")
	require.NoError(t, err)
	require.Equal(t, []string{"join"}, f.dispatcher.drain())

	result, err = f.processor.ProcessTask(id, "join")
	require.NoError(t, err)
	require.Equal(t, true, result.Response)
	require.Equal(t, []string{"end"}, f.dispatcher.drain())
	require.Equal(t, model.TASK_STATUS_COMPLETED, f.runtime(t, id).FindTaskByName("join").Status)

	_, err = f.processor.ProcessTask(id, "end")
	require.NoError(t, err)
	require.Equal(t, model.WORKFLOW_STATUS_COMPLETED, f.runtime(t, id).WorkflowStatus)
}

func testWaitIdempotent(t *testing.T, f *processorFixture) {
	join := task("join", model.TASK_TYPE_WAIT, []string{"end"}, []string{"start"})
	join.Params = map[string]any{"taskNames": []string{"start"}}
	id := f.createRuntime(t, nil,
		task("start", model.TASK_TYPE_START, []string{"join"}, nil),
		join,
		task("end", model.TASK_TYPE_END, nil, []string{"join"}),
	)

	_, err := f.processor.ProcessTask(id, "start")
	require.NoError(t, err)
	_, err = f.processor.ProcessTask(id, "join")
	require.NoError(t, err)
	f.dispatcher.drain()

	result, err := f.processor.ProcessTask(id, "join")
	require.NoError(t, err)
	require.Equal(t, true, result.Response)
	require.Equal(t, model.TASK_STATUS_COMPLETED, result.TaskStatus)
	require.Empty(t, f.dispatcher.drain())
}

func testListenNotDispatched(t *testing.T, f *processorFixture) {
	id := f.createRuntime(t, nil,
		task("start", model.TASK_TYPE_START, []string{"external"}, nil),
		task("external", model.TASK_TYPE_LISTEN, []string{"end"}, []string{"start"}),
		task("end", model.TASK_TYPE_END, nil, []string{"external"}),
	)

	_, err := f.processor.ProcessTask(id, "start")
	require.NoError(t, err)
	require.Empty(t, f.dispatcher.drain())
}

func testUnknownRuntime(t *testing.T, f *processorFixture) {
	_, err := f.processor.ProcessTask("missing", "start")
	require.Error(t, err)
	_, ok := err.(BadRequestError)
	require.True(t, ok)
}

func testUnknownTask(t *testing.T, f *processorFixture) {
	id := f.createRuntime(t, nil,
		task("start", model.TASK_TYPE_START, nil, nil),
	)
	_, err := f.processor.ProcessTask(id, "missing")
	require.Error(t, err)
	_, ok := err.(BadRequestError)
	require.True(t, ok)
}

func testScriptFailure(t *testing.T, f *processorFixture) {
	work := task("work", model.TASK_TYPE_FUNCTION, []string{"end"}, []string{"start"})
	work.Exec = `function handler() { logger("about to fail"); throw new Error("boom"); }`
	id := f.createRuntime(t, nil,
		task("start", model.TASK_TYPE_START, []string{"work"}, nil),
		work,
		task("end", model.TASK_TYPE_END, nil, []string{"work"}),
	)

	_, err := f.processor.ProcessTask(id, "start")
	require.NoError(t, err)
	f.dispatcher.drain()

	_, err = f.processor.ProcessTask(id, "work")
	require.Error(t, err)
	handlerErr, ok := err.(HandlerError)
	require.True(t, ok)
	require.Equal(t, "work", handlerErr.TaskName)
	require.Empty(t, f.dispatcher.drain())

	rt := f.runtime(t, id)
	require.Equal(t, model.TASK_STATUS_FAILED, rt.FindTaskByName("work").Status)
	require.NotContains(t, rt.WorkflowResults, "work")
	require.NotEmpty(t, rt.Logs)
	require.Equal(t, "about to fail", rt.Logs[0].Message)
}

func testCompletionRequiresEnd(t *testing.T, f *processorFixture) {
	work := task("work", model.TASK_TYPE_FUNCTION, nil, []string{"start"})
	work.Exec = `function handler() { return 42; }`
	id := f.createRuntime(t, nil,
		task("start", model.TASK_TYPE_START, []string{"work"}, nil),
		work,
		task("end", model.TASK_TYPE_END, nil, nil),
	)

	_, err := f.processor.ProcessTask(id, "start")
	require.NoError(t, err)
	_, err = f.processor.ProcessTask(id, "work")
	require.NoError(t, err)

	require.Equal(t, model.WORKFLOW_STATUS_PENDING, f.runtime(t, id).WorkflowStatus)
}
