package handler

import (
	"github.com/taskweave/taskweave/model"
)

var _ TaskHandler = new(listenHandler)

// listenHandler is never reached through dispatch; every dispatch path
// excludes LISTEN tasks. It runs only after the external listen trigger has
// validated the api key and merged globalParams, and then just completes
// the task and lets the graph continue.
type listenHandler struct{}

func NewListenHandler() *listenHandler {
	return &listenHandler{}
}

func (h *listenHandler) Type() model.TaskType {
	return model.TASK_TYPE_LISTEN
}

func (h *listenHandler) Process(req *Request) (*Result, error) {
	return &Result{
		Response: map[string]any{},
		Complete: true,
		Advance:  true,
	}, nil
}
