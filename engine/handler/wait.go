package handler

import (
	"github.com/taskweave/taskweave/logger"
	"github.com/taskweave/taskweave/model"
	"go.uber.org/zap"
)

var _ TaskHandler = new(waitHandler)

// waitHandler is the fan-in barrier: it evaluates to true once every task
// named in params.taskNames is completed. A wait task that is already
// completed short-circuits, so repeated external pings stay idempotent.
type waitHandler struct{}

func NewWaitHandler() *waitHandler {
	return &waitHandler{}
}

func (h *waitHandler) Type() model.TaskType {
	return model.TASK_TYPE_WAIT
}

func (h *waitHandler) Process(req *Request) (*Result, error) {
	if req.Task.Status == model.TASK_STATUS_COMPLETED {
		logger.Debug("wait task already completed", zap.String("task", req.Task.Name), zap.String("runtimeId", req.Runtime.Id))
		return &Result{
			Response: true,
			Skip:     true,
		}, nil
	}
	allDone := true
	for _, name := range taskNamesParam(req.Task.Params) {
		watched := req.Runtime.FindTaskByName(name)
		if watched == nil || watched.Status != model.TASK_STATUS_COMPLETED {
			allDone = false
			break
		}
	}
	return &Result{
		Response: allDone,
		Complete: allDone,
		Advance:  allDone,
	}, nil
}

func taskNamesParam(params map[string]any) []string {
	raw, ok := params["taskNames"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		names := make([]string, 0, len(v))
		for _, item := range v {
			if name, ok := item.(string); ok {
				names = append(names, name)
			}
		}
		return names
	}
	return nil
}
