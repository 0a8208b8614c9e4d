package engine

import (
	"fmt"

	"github.com/taskweave/taskweave/analytics"
	"github.com/taskweave/taskweave/engine/handler"
	"github.com/taskweave/taskweave/engine/tasklog"
	"github.com/taskweave/taskweave/logger"
	"github.com/taskweave/taskweave/model"
	"github.com/taskweave/taskweave/persistence"
	"go.uber.org/zap"
)

// Dispatcher delivers "continue with task X of runtime Y" to the next
// execution opportunity. Implementations never block the caller and never
// surface failure back into the state machine.
type Dispatcher interface {
	Dispatch(runtimeId string, taskName string)
}

// Processor is the task state machine: it loads the runtime, routes the
// named task to its type handler, applies the result through partial
// updates, recomputes workflow completion and fans out continuations.
type Processor struct {
	storage    persistence.RuntimeStorage
	handlers   *handler.Container
	dispatcher Dispatcher
}

func NewProcessor(storage persistence.RuntimeStorage, handlers *handler.Container, dispatcher Dispatcher) *Processor {
	return &Processor{
		storage:    storage,
		handlers:   handlers,
		dispatcher: dispatcher,
	}
}

func (p *Processor) ProcessTask(runtimeId string, taskName string) (*model.ProcessResult, error) {
	runtime, err := p.storage.FindById(runtimeId)
	if err != nil {
		if _, ok := err.(persistence.NotFoundError); ok {
			return nil, BadRequestError{Reason: fmt.Sprintf("can not fetch runtime %s", runtimeId)}
		}
		return nil, err
	}
	currentTask := runtime.FindTaskByName(taskName)
	if currentTask == nil {
		logger.Error("no task found in runtime", zap.String("runtimeId", runtimeId), zap.String("task", taskName))
		return nil, BadRequestError{Reason: fmt.Sprintf("no task %s found for runtime %s", taskName, runtimeId)}
	}
	taskHandler, err := p.handlers.Get(currentTask.Type)
	if err != nil {
		logger.Error("unknown task type", zap.String("runtimeId", runtimeId), zap.String("task", taskName), zap.String("type", string(currentTask.Type)))
		return nil, BadRequestError{Reason: err.Error()}
	}

	// Best effort. A failure here only loses the started marker; a
	// concurrent duplicate start of the same task is tolerated.
	if currentTask.Status == model.TASK_STATUS_PENDING {
		if err := p.storage.UpdateTaskStatus(runtimeId, currentTask.Id, model.TASK_STATUS_STARTED); err != nil {
			logger.Error("error marking task started", zap.String("runtimeId", runtimeId), zap.String("task", taskName), zap.Error(err))
		}
	}

	logs := tasklog.NewBuffer(taskName)
	result, err := taskHandler.Process(&handler.Request{
		Runtime: runtime,
		Task:    currentTask,
		Logs:    logs,
	})
	if err != nil {
		return nil, p.failTask(runtimeId, currentTask, logs, err)
	}
	if result.Skip {
		logger.Info("task already processed", zap.String("runtimeId", runtimeId), zap.String("task", taskName))
		return &model.ProcessResult{
			TaskName:       taskName,
			TaskStatus:     currentTask.Status,
			Response:       result.Response,
			WorkflowStatus: runtime.WorkflowStatus,
		}, nil
	}
	return p.applyResult(runtime, currentTask, result, logs)
}

func (p *Processor) failTask(runtimeId string, task *model.Task, logs *tasklog.Buffer, cause error) error {
	logger.Error("task process failed", zap.String("runtimeId", runtimeId), zap.String("task", task.Name), zap.Error(cause))
	if err := p.storage.UpdateTaskStatus(runtimeId, task.Id, model.TASK_STATUS_FAILED); err != nil {
		logger.Error("error marking task failed", zap.String("runtimeId", runtimeId), zap.String("task", task.Name), zap.Error(err))
	}
	if err := p.storage.AppendLogs(runtimeId, logs.Entries()); err != nil {
		logger.Error("error appending task logs", zap.String("runtimeId", runtimeId), zap.String("task", task.Name), zap.Error(err))
	}
	analytics.RecordTaskFailure(runtimeId, task.Name, cause.Error())
	return HandlerError{TaskName: task.Name, Cause: cause}
}

func (p *Processor) applyResult(runtime *model.Runtime, currentTask *model.Task, result *handler.Result, logs *tasklog.Buffer) (*model.ProcessResult, error) {
	runtimeId := runtime.Id
	if err := p.storage.UpdateWorkflowResult(runtimeId, currentTask.Name, result.Response); err != nil {
		return nil, err
	}
	if result.Complete {
		if err := p.storage.UpdateTaskStatus(runtimeId, currentTask.Id, model.TASK_STATUS_COMPLETED); err != nil {
			return nil, err
		}
		currentTask.Status = model.TASK_STATUS_COMPLETED
	}
	if err := p.storage.AppendLogs(runtimeId, logs.Entries()); err != nil {
		logger.Error("error appending task logs", zap.String("runtimeId", runtimeId), zap.String("task", currentTask.Name), zap.Error(err))
	}

	workflowStatus := model.WORKFLOW_STATUS_PENDING
	endTask := runtime.FindTaskByType(model.TASK_TYPE_END)
	if endTask != nil && endTask.Status == model.TASK_STATUS_COMPLETED {
		workflowStatus = model.WORKFLOW_STATUS_COMPLETED
	}
	if workflowStatus == model.WORKFLOW_STATUS_COMPLETED && runtime.WorkflowStatus != model.WORKFLOW_STATUS_COMPLETED {
		if err := p.storage.UpdateWorkflowStatus(runtimeId, workflowStatus); err != nil {
			return nil, err
		}
		logger.Info("workflow completed", zap.String("runtimeId", runtimeId))
	}
	analytics.RecordTaskSuccess(runtimeId, currentTask.Name, result.Response)

	if result.Advance {
		for _, nextName := range p.nextTaskNames(runtime, currentTask) {
			p.dispatcher.Dispatch(runtimeId, nextName)
		}
	}
	return &model.ProcessResult{
		TaskName:       currentTask.Name,
		TaskStatus:     currentTask.Status,
		Response:       result.Response,
		WorkflowStatus: workflowStatus,
	}, nil
}

// nextTaskNames resolves the dispatch intents of a completed task. LISTEN
// tasks are never proactively advanced; they wait for their external
// trigger.
func (p *Processor) nextTaskNames(runtime *model.Runtime, currentTask *model.Task) []string {
	names := make([]string, 0, len(currentTask.Next))
	for _, name := range currentTask.Next {
		next := runtime.FindTaskByName(name)
		if next == nil {
			logger.Error("next task not found in runtime", zap.String("runtimeId", runtime.Id), zap.String("task", name))
			continue
		}
		if next.Type == model.TASK_TYPE_LISTEN {
			continue
		}
		names = append(names, name)
	}
	return names
}
