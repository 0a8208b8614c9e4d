package handler

import (
	"github.com/taskweave/taskweave/model"
)

var _ TaskHandler = new(startHandler)

type startHandler struct{}

func NewStartHandler() *startHandler {
	return &startHandler{}
}

func (h *startHandler) Type() model.TaskType {
	return model.TASK_TYPE_START
}

func (h *startHandler) Process(req *Request) (*Result, error) {
	return &Result{
		Response: map[string]any{},
		Complete: true,
		Advance:  true,
	}, nil
}
