package model

import "fmt"

type TaskType string

const TASK_TYPE_START TaskType = "START"
const TASK_TYPE_FUNCTION TaskType = "FUNCTION"
const TASK_TYPE_GUARD TaskType = "GUARD"
const TASK_TYPE_WAIT TaskType = "WAIT"
const TASK_TYPE_END TaskType = "END"
const TASK_TYPE_LISTEN TaskType = "LISTEN"

func ValidateTaskType(t string) error {
	switch TaskType(t) {
	case TASK_TYPE_START, TASK_TYPE_FUNCTION, TASK_TYPE_GUARD,
		TASK_TYPE_WAIT, TASK_TYPE_END, TASK_TYPE_LISTEN:
		return nil
	}
	return fmt.Errorf("invalid task type %s", t)
}

type TaskStatus string

const TASK_STATUS_PENDING TaskStatus = "pending"
const TASK_STATUS_STARTED TaskStatus = "started"
const TASK_STATUS_COMPLETED TaskStatus = "completed"
const TASK_STATUS_FAILED TaskStatus = "failed"

// Task is one node of the workflow graph. Inside a Definition it is the
// template; inside a Runtime it is a per-execution instance carrying Status.
type Task struct {
	Id       string         `json:"id"`
	Name     string         `json:"name"`
	Type     TaskType       `json:"type"`
	Next     []string       `json:"next"`
	Previous []string       `json:"previous"`
	Params   map[string]any `json:"params,omitempty"`
	Exec     string         `json:"exec,omitempty"`
	Status   TaskStatus     `json:"status,omitempty"`
}
