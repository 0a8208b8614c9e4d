package persistence

import (
	"github.com/taskweave/taskweave/model"
)

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	if len(e.Message) == 0 {
		return "error in underline storage layer"
	}
	return e.Message
}

type NotFoundError struct {
	Kind string
	Id   string
}

func (e NotFoundError) Error() string {
	return e.Kind + " " + e.Id + " not found"
}

type EmptyQueueError struct {
	QueueName string
}

func (e EmptyQueueError) Error() string {
	return "queue " + e.QueueName + " is empty"
}

// RuntimeStorage is the persistence gateway for workflow runtimes. Every
// mutation is a targeted partial update; concurrent branches of the same
// runtime never overwrite the whole document.
type RuntimeStorage interface {
	Create(seed model.Runtime) (*model.Runtime, error)
	FindById(runtimeId string) (*model.Runtime, error)
	ListIds() ([]string, error)
	UpdateTaskStatus(runtimeId string, taskId string, status model.TaskStatus) error
	UpdateWorkflowResult(runtimeId string, taskName string, value any) error
	UpdateWorkflowStatus(runtimeId string, status model.WorkflowStatus) error
	UpdateGlobal(runtimeId string, global map[string]any) error
	AppendLogs(runtimeId string, logs []model.LogEntry) error
}

// DefinitionStorage stores workflow definitions. Edit replaces tasks,
// global and status in place; definitions are never deleted by the engine.
type DefinitionStorage interface {
	Save(def model.Definition) (*model.Definition, error)
	Update(def model.Definition) error
	Get(id string) (*model.Definition, error)
	List() ([]model.Definition, error)
}

// Queue is the broker behind the queue transport. Push is at-least-once;
// consumers own idempotency.
type Queue interface {
	Push(queueName string, partitionKey string, message []byte) error
	Pop(queueName string, batchSize int) ([]string, error)
	PushDLQ(queueName string, message []byte) error
}
