package handler

import (
	"github.com/taskweave/taskweave/model"
)

var _ TaskHandler = new(endHandler)

// endHandler completes unconditionally; its completion is the terminal
// signal for the whole runtime.
type endHandler struct{}

func NewEndHandler() *endHandler {
	return &endHandler{}
}

func (h *endHandler) Type() model.TaskType {
	return model.TASK_TYPE_END
}

func (h *endHandler) Process(req *Request) (*Result, error) {
	return &Result{
		Response: map[string]any{},
		Complete: true,
		Advance:  true,
	}, nil
}
