package engine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/taskweave/taskweave/logger"
	"github.com/taskweave/taskweave/metadata"
	"github.com/taskweave/taskweave/model"
	"github.com/taskweave/taskweave/persistence"
	"go.uber.org/zap"
)

// ExecutionService sits above the Processor and owns the entry state
// transitions: starting a workflow, accepting continuation callbacks and
// the external listen trigger. Processing itself is asynchronous relative
// to every entry point.
type ExecutionService struct {
	definitions metadata.DefinitionService
	storage     persistence.RuntimeStorage
	processor   *Processor
}

func NewExecutionService(definitions metadata.DefinitionService, storage persistence.RuntimeStorage, processor *Processor) *ExecutionService {
	return &ExecutionService{
		definitions: definitions,
		storage:     storage,
		processor:   processor,
	}
}

// StartWorkflow materializes a runtime from the definition and kicks off
// its START task. Caller-supplied globalParams win over definition
// defaults on key conflict.
func (s *ExecutionService) StartWorkflow(definitionId string, globalParams map[string]any) (string, error) {
	def, err := s.definitions.GetDefinition(definitionId)
	if err != nil {
		if _, ok := err.(persistence.NotFoundError); ok {
			return "", NotFoundError{Reason: fmt.Sprintf("invalid definition id %s", definitionId)}
		}
		return "", err
	}
	global := make(map[string]any)
	for k, v := range def.Global {
		global[k] = v
	}
	for k, v := range globalParams {
		global[k] = v
	}
	tasks := make([]model.Task, len(def.Tasks))
	for i, task := range def.Tasks {
		task.Status = model.TASK_STATUS_PENDING
		tasks[i] = task
	}
	runtime, err := s.storage.Create(model.Runtime{
		Id:              uuid.NewString(),
		DefinitionId:    def.Id,
		Global:          global,
		Tasks:           tasks,
		WorkflowResults: map[string]any{},
		WorkflowStatus:  model.WORKFLOW_STATUS_PENDING,
		Logs:            []model.LogEntry{},
	})
	if err != nil {
		return "", err
	}
	startTask := runtime.FindTaskByType(model.TASK_TYPE_START)
	if startTask == nil {
		return "", BadRequestError{Reason: fmt.Sprintf("can not find START task of definition %s", definitionId)}
	}
	logger.Info("starting workflow", zap.String("definitionId", definitionId), zap.String("runtimeId", runtime.Id))
	s.processAsync(runtime.Id, startTask.Name)
	return runtime.Id, nil
}

// ProcessWorkflow is the continuation callback entry point; it returns as
// soon as processing is scheduled.
func (s *ExecutionService) ProcessWorkflow(runtimeId string, taskName string) {
	s.processAsync(runtimeId, taskName)
}

// ProcessListenTask is the external-event continuation: it validates the
// per-task api key, merges globalParams into the runtime's global scope
// and then continues the graph at the listen task.
func (s *ExecutionService) ProcessListenTask(req model.ProcessListenRequest, apiKey string) error {
	runtime, err := s.storage.FindById(req.WorkflowRuntimeId)
	if err != nil {
		if _, ok := err.(persistence.NotFoundError); ok {
			return BadRequestError{Reason: fmt.Sprintf("can not find runtime %s", req.WorkflowRuntimeId)}
		}
		return err
	}
	if runtime.WorkflowStatus == model.WORKFLOW_STATUS_COMPLETED {
		return BadRequestError{Reason: fmt.Sprintf("runtime %s is completed", req.WorkflowRuntimeId)}
	}
	listenTask := runtime.FindTaskByName(req.TaskName)
	if listenTask == nil {
		return BadRequestError{Reason: fmt.Sprintf("can not find listen task %s for runtime %s", req.TaskName, req.WorkflowRuntimeId)}
	}
	if listenTask.Status == model.TASK_STATUS_COMPLETED {
		return BadRequestError{Reason: fmt.Sprintf("listen task %s for runtime %s is completed", req.TaskName, req.WorkflowRuntimeId)}
	}
	taskKey, _ := listenTask.Params["apiKey"].(string)
	if taskKey != apiKey {
		return UnauthorizedError{}
	}
	if len(req.GlobalParams) > 0 {
		global := make(map[string]any)
		for k, v := range runtime.Global {
			global[k] = v
		}
		for k, v := range req.GlobalParams {
			global[k] = v
		}
		if err := s.storage.UpdateGlobal(runtime.Id, global); err != nil {
			return err
		}
	}
	s.processAsync(req.WorkflowRuntimeId, req.TaskName)
	return nil
}

func (s *ExecutionService) GetRuntime(runtimeId string) (*model.Runtime, error) {
	runtime, err := s.storage.FindById(runtimeId)
	if err != nil {
		if _, ok := err.(persistence.NotFoundError); ok {
			return nil, NotFoundError{Reason: fmt.Sprintf("can not find runtime %s", runtimeId)}
		}
		return nil, err
	}
	return runtime, nil
}

// ListRuntimes loads every known runtime. Runtimes deleted between the id
// scan and the load are skipped.
func (s *ExecutionService) ListRuntimes() ([]model.Runtime, error) {
	ids, err := s.storage.ListIds()
	if err != nil {
		return nil, err
	}
	runtimes := make([]model.Runtime, 0, len(ids))
	for _, id := range ids {
		runtime, err := s.storage.FindById(id)
		if err != nil {
			if _, ok := err.(persistence.NotFoundError); ok {
				continue
			}
			return nil, err
		}
		runtimes = append(runtimes, *runtime)
	}
	return runtimes, nil
}

func (s *ExecutionService) processAsync(runtimeId string, taskName string) {
	go func() {
		if _, err := s.processor.ProcessTask(runtimeId, taskName); err != nil {
			logger.Error("error processing task", zap.String("runtimeId", runtimeId), zap.String("task", taskName), zap.Error(err))
		}
	}()
}
