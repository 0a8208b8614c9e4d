package model

import "time"

type WorkflowStatus string

const WORKFLOW_STATUS_PENDING WorkflowStatus = "pending"
const WORKFLOW_STATUS_COMPLETED WorkflowStatus = "completed"
const WORKFLOW_STATUS_FAILED WorkflowStatus = "failed"

type LogSeverity string

const LOG_SEVERITY_INFO LogSeverity = "info"
const LOG_SEVERITY_ERROR LogSeverity = "error"

type LogEntry struct {
	Timestamp time.Time   `json:"timestamp"`
	TaskName  string      `json:"taskName"`
	Message   string      `json:"message"`
	Severity  LogSeverity `json:"severity"`
}

// Runtime is one stateful execution instance of a Definition. It is mutated
// exclusively by the engine through partial updates on the storage layer.
type Runtime struct {
	Id              string         `json:"id"`
	DefinitionId    string         `json:"workflowDefinitionId"`
	Global          map[string]any `json:"global"`
	Tasks           []Task         `json:"tasks"`
	WorkflowResults map[string]any `json:"workflowResults"`
	WorkflowStatus  WorkflowStatus `json:"workflowStatus"`
	Logs            []LogEntry     `json:"logs"`
}

func (r *Runtime) FindTaskByName(name string) *Task {
	for i := range r.Tasks {
		if r.Tasks[i].Name == name {
			return &r.Tasks[i]
		}
	}
	return nil
}

func (r *Runtime) FindTaskByType(taskType TaskType) *Task {
	for i := range r.Tasks {
		if r.Tasks[i].Type == taskType {
			return &r.Tasks[i]
		}
	}
	return nil
}
