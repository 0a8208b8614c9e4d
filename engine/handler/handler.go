package handler

import (
	"fmt"

	"github.com/taskweave/taskweave/engine/sandbox"
	"github.com/taskweave/taskweave/engine/tasklog"
	"github.com/taskweave/taskweave/model"
)

// Request carries everything one task invocation may read: the loaded
// runtime, the resolved task and the per-invocation log buffer.
type Request struct {
	Runtime *model.Runtime
	Task    *model.Task
	Logs    *tasklog.Buffer
}

// Result is the handler's continuation decision.
//
//	Complete: transition the task to completed
//	Advance:  dispatch the task's next set
//	Skip:     idempotent re-trigger, nothing to persist or dispatch
type Result struct {
	Response any
	Complete bool
	Advance  bool
	Skip     bool
}

type TaskHandler interface {
	Type() model.TaskType
	Process(req *Request) (*Result, error)
}

// Container holds one handler per task type. The set is closed; an unknown
// type is an authoring error surfaced by Get.
type Container struct {
	handlers map[model.TaskType]TaskHandler
}

func NewContainer(sb *sandbox.Sandbox) *Container {
	c := &Container{
		handlers: make(map[model.TaskType]TaskHandler),
	}
	for _, h := range []TaskHandler{
		NewStartHandler(),
		NewEndHandler(),
		NewFunctionHandler(sb),
		NewGuardHandler(sb),
		NewWaitHandler(),
		NewListenHandler(),
	} {
		c.handlers[h.Type()] = h
	}
	return c
}

func (c *Container) Get(taskType model.TaskType) (TaskHandler, error) {
	h, ok := c.handlers[taskType]
	if !ok {
		return nil, fmt.Errorf("unknown task type %s", taskType)
	}
	return h, nil
}
