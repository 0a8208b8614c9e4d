package handler

import (
	"github.com/taskweave/taskweave/engine/sandbox"
	"github.com/taskweave/taskweave/logger"
	"github.com/taskweave/taskweave/model"
	"go.uber.org/zap"
)

var _ TaskHandler = new(functionHandler)

type functionHandler struct {
	sandbox *sandbox.Sandbox
}

func NewFunctionHandler(sb *sandbox.Sandbox) *functionHandler {
	return &functionHandler{
		sandbox: sb,
	}
}

func (h *functionHandler) Type() model.TaskType {
	return model.TASK_TYPE_FUNCTION
}

func (h *functionHandler) Process(req *Request) (*Result, error) {
	logger.Info("running function task", zap.String("task", req.Task.Name), zap.String("runtimeId", req.Runtime.Id))
	response, err := h.sandbox.Execute(req.Task.Exec, sandbox.Bindings{
		Params:  req.Task.Params,
		Global:  req.Runtime.Global,
		Results: req.Runtime.WorkflowResults,
	}, req.Logs)
	if err != nil {
		return nil, err
	}
	if response == nil {
		response = map[string]any{}
	}
	return &Result{
		Response: response,
		Complete: true,
		Advance:  true,
	}, nil
}
