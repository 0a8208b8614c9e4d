package model

type StartWorkflowRequest struct {
	WorkflowDefinitionId string         `json:"workflowDefinitionId"`
	GlobalParams         map[string]any `json:"globalParams,omitempty"`
}

type ProcessTaskRequest struct {
	WorkflowRuntimeId string `json:"workflowRuntimeId"`
	TaskName          string `json:"taskName"`
}

type ProcessListenRequest struct {
	WorkflowRuntimeId string         `json:"workflowRuntimeId"`
	TaskName          string         `json:"taskName"`
	GlobalParams      map[string]any `json:"globalParams,omitempty"`
}

// QueueEnvelope is the wire form of a continuation on the process topic.
type QueueEnvelope struct {
	WorkflowRuntimeId string `json:"workflowRuntimeId"`
	TaskName          string `json:"taskName"`
	IdempotencyKey    string `json:"idempotencyKey"`
	ApiKey            string `json:"apiKey"`
}

// ProcessResult summarizes one ProcessTask invocation.
type ProcessResult struct {
	TaskName       string         `json:"taskName"`
	TaskStatus     TaskStatus     `json:"taskStatus"`
	Response       any            `json:"response,omitempty"`
	WorkflowStatus WorkflowStatus `json:"workflowStatus"`
}
