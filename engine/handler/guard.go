package handler

import (
	"github.com/taskweave/taskweave/engine/sandbox"
	"github.com/taskweave/taskweave/logger"
	"github.com/taskweave/taskweave/model"
	"go.uber.org/zap"
)

var _ TaskHandler = new(guardHandler)

// guardHandler coerces the script result to a boolean; false prunes the
// branch permanently, the guard task itself still completes.
type guardHandler struct {
	sandbox *sandbox.Sandbox
}

func NewGuardHandler(sb *sandbox.Sandbox) *guardHandler {
	return &guardHandler{
		sandbox: sb,
	}
}

func (h *guardHandler) Type() model.TaskType {
	return model.TASK_TYPE_GUARD
}

func (h *guardHandler) Process(req *Request) (*Result, error) {
	logger.Info("running guard task", zap.String("task", req.Task.Name), zap.String("runtimeId", req.Runtime.Id))
	response, err := h.sandbox.Execute(req.Task.Exec, sandbox.Bindings{
		Params:  req.Task.Params,
		Global:  req.Runtime.Global,
		Results: req.Runtime.WorkflowResults,
	}, req.Logs)
	if err != nil {
		return nil, err
	}
	allowed := truthy(response)
	return &Result{
		Response: allowed,
		Complete: true,
		Advance:  allowed,
	}, nil
}

// truthy mirrors javascript Boolean() over the json-shaped values the
// sandbox can return.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return len(v) > 0
	case float64:
		return v != 0
	default:
		return true
	}
}
