package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	rd "github.com/go-redis/redis/v9"
	"github.com/taskweave/taskweave/logger"
	"github.com/taskweave/taskweave/model"
	"github.com/taskweave/taskweave/persistence"
	"github.com/taskweave/taskweave/util"
	"go.uber.org/zap"
)

const RUNTIME_KEY string = "RT"

const metaFieldDefinitionId = "definitionId"
const metaFieldStatus = "status"
const metaFieldGlobal = "global"
const metaFieldTaskOrder = "taskOrder"

var _ persistence.RuntimeStorage = new(redisRuntimeDao)

// redisRuntimeDao keeps one runtime across four keys so that the engine's
// mutations stay single-field writes:
//
//	RT:<id>:meta    hash  definitionId, status, global, taskOrder
//	RT:<id>:tasks   hash  taskId -> task json
//	RT:<id>:results hash  taskName -> result json
//	RT:<id>:logs    list  log entry json
type redisRuntimeDao struct {
	baseDao
	taskEncDec util.EncoderDecoder[model.Task]
}

func NewRedisRuntimeDao(conf Config) *redisRuntimeDao {
	return &redisRuntimeDao{
		baseDao:    *newBaseDao(conf),
		taskEncDec: util.NewJsonEncoderDecoder[model.Task](),
	}
}

func (rd *redisRuntimeDao) metaKey(runtimeId string) string {
	return rd.getNamespaceKey(RUNTIME_KEY, runtimeId, "meta")
}

func (rd *redisRuntimeDao) tasksKey(runtimeId string) string {
	return rd.getNamespaceKey(RUNTIME_KEY, runtimeId, "tasks")
}

func (rd *redisRuntimeDao) resultsKey(runtimeId string) string {
	return rd.getNamespaceKey(RUNTIME_KEY, runtimeId, "results")
}

func (rd *redisRuntimeDao) logsKey(runtimeId string) string {
	return rd.getNamespaceKey(RUNTIME_KEY, runtimeId, "logs")
}

func (rds *redisRuntimeDao) Create(seed model.Runtime) (*model.Runtime, error) {
	ctx := context.Background()
	globalData, err := json.Marshal(seed.Global)
	if err != nil {
		return nil, err
	}
	taskOrder := make([]string, 0, len(seed.Tasks))
	taskFields := make([]string, 0, len(seed.Tasks)*2)
	for _, task := range seed.Tasks {
		data, err := rds.taskEncDec.Encode(task)
		if err != nil {
			return nil, err
		}
		taskOrder = append(taskOrder, task.Id)
		taskFields = append(taskFields, task.Id, string(data))
	}
	orderData, err := json.Marshal(taskOrder)
	if err != nil {
		return nil, err
	}
	pipe := rds.redisClient.TxPipeline()
	pipe.HSet(ctx, rds.metaKey(seed.Id), []string{
		metaFieldDefinitionId, seed.DefinitionId,
		metaFieldStatus, string(seed.WorkflowStatus),
		metaFieldGlobal, string(globalData),
		metaFieldTaskOrder, string(orderData),
	})
	pipe.HSet(ctx, rds.tasksKey(seed.Id), taskFields)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error("error in creating runtime", zap.String("runtimeId", seed.Id), zap.Error(err))
		return nil, persistence.StorageLayerError{}
	}
	return &seed, nil
}

func (rds *redisRuntimeDao) FindById(runtimeId string) (*model.Runtime, error) {
	ctx := context.Background()
	meta, err := rds.redisClient.HGetAll(ctx, rds.metaKey(runtimeId)).Result()
	if err != nil {
		logger.Error("error in getting runtime", zap.String("runtimeId", runtimeId), zap.Error(err))
		return nil, persistence.StorageLayerError{}
	}
	if len(meta) == 0 {
		return nil, persistence.NotFoundError{Kind: "runtime", Id: runtimeId}
	}
	runtime := &model.Runtime{
		Id:              runtimeId,
		DefinitionId:    meta[metaFieldDefinitionId],
		WorkflowStatus:  model.WorkflowStatus(meta[metaFieldStatus]),
		Global:          map[string]any{},
		WorkflowResults: map[string]any{},
	}
	if err := json.Unmarshal([]byte(meta[metaFieldGlobal]), &runtime.Global); err != nil {
		return nil, err
	}
	var taskOrder []string
	if err := json.Unmarshal([]byte(meta[metaFieldTaskOrder]), &taskOrder); err != nil {
		return nil, err
	}
	taskMap, err := rds.redisClient.HGetAll(ctx, rds.tasksKey(runtimeId)).Result()
	if err != nil {
		logger.Error("error in getting runtime tasks", zap.String("runtimeId", runtimeId), zap.Error(err))
		return nil, persistence.StorageLayerError{}
	}
	for _, taskId := range taskOrder {
		task, err := rds.taskEncDec.Decode([]byte(taskMap[taskId]))
		if err != nil {
			return nil, err
		}
		runtime.Tasks = append(runtime.Tasks, *task)
	}
	results, err := rds.redisClient.HGetAll(ctx, rds.resultsKey(runtimeId)).Result()
	if err != nil {
		logger.Error("error in getting runtime results", zap.String("runtimeId", runtimeId), zap.Error(err))
		return nil, persistence.StorageLayerError{}
	}
	for name, data := range results {
		var value any
		if err := json.Unmarshal([]byte(data), &value); err != nil {
			return nil, err
		}
		runtime.WorkflowResults[name] = value
	}
	logLines, err := rds.redisClient.LRange(ctx, rds.logsKey(runtimeId), 0, -1).Result()
	if err != nil && !errors.Is(err, rd.Nil) {
		logger.Error("error in getting runtime logs", zap.String("runtimeId", runtimeId), zap.Error(err))
		return nil, persistence.StorageLayerError{}
	}
	for _, line := range logLines {
		var entry model.LogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		runtime.Logs = append(runtime.Logs, entry)
	}
	return runtime, nil
}

func (rds *redisRuntimeDao) ListIds() ([]string, error) {
	ctx := context.Background()
	pattern := rds.getNamespaceKey(RUNTIME_KEY, "*", "meta")
	ids := make([]string, 0)
	iter := rds.redisClient.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		parts := strings.Split(iter.Val(), ":")
		if len(parts) < 3 {
			continue
		}
		ids = append(ids, parts[len(parts)-2])
	}
	if err := iter.Err(); err != nil {
		logger.Error("error in scanning runtimes", zap.Error(err))
		return nil, persistence.StorageLayerError{}
	}
	return ids, nil
}

func (rds *redisRuntimeDao) UpdateTaskStatus(runtimeId string, taskId string, status model.TaskStatus) error {
	ctx := context.Background()
	taskStr, err := rds.redisClient.HGet(ctx, rds.tasksKey(runtimeId), taskId).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return persistence.NotFoundError{Kind: "task", Id: taskId}
		}
		logger.Error("error in getting task", zap.String("runtimeId", runtimeId), zap.String("taskId", taskId), zap.Error(err))
		return persistence.StorageLayerError{}
	}
	task, err := rds.taskEncDec.Decode([]byte(taskStr))
	if err != nil {
		return err
	}
	task.Status = status
	data, err := rds.taskEncDec.Encode(*task)
	if err != nil {
		return err
	}
	if err := rds.redisClient.HSet(ctx, rds.tasksKey(runtimeId), []string{taskId, string(data)}).Err(); err != nil {
		logger.Error("error in updating task status", zap.String("runtimeId", runtimeId), zap.String("taskId", taskId), zap.Error(err))
		return persistence.StorageLayerError{}
	}
	return nil
}

func (rds *redisRuntimeDao) UpdateWorkflowResult(runtimeId string, taskName string, value any) error {
	ctx := context.Background()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := rds.redisClient.HSet(ctx, rds.resultsKey(runtimeId), []string{taskName, string(data)}).Err(); err != nil {
		logger.Error("error in updating workflow result", zap.String("runtimeId", runtimeId), zap.String("task", taskName), zap.Error(err))
		return persistence.StorageLayerError{}
	}
	return nil
}

func (rds *redisRuntimeDao) UpdateWorkflowStatus(runtimeId string, status model.WorkflowStatus) error {
	ctx := context.Background()
	if err := rds.redisClient.HSet(ctx, rds.metaKey(runtimeId), []string{metaFieldStatus, string(status)}).Err(); err != nil {
		logger.Error("error in updating workflow status", zap.String("runtimeId", runtimeId), zap.Error(err))
		return persistence.StorageLayerError{}
	}
	return nil
}

func (rds *redisRuntimeDao) UpdateGlobal(runtimeId string, global map[string]any) error {
	ctx := context.Background()
	data, err := json.Marshal(global)
	if err != nil {
		return err
	}
	if err := rds.redisClient.HSet(ctx, rds.metaKey(runtimeId), []string{metaFieldGlobal, string(data)}).Err(); err != nil {
		logger.Error("error in updating runtime global", zap.String("runtimeId", runtimeId), zap.Error(err))
		return persistence.StorageLayerError{}
	}
	return nil
}

func (rds *redisRuntimeDao) AppendLogs(runtimeId string, logs []model.LogEntry) error {
	if len(logs) == 0 {
		return nil
	}
	ctx := context.Background()
	lines := make([]any, 0, len(logs))
	for _, entry := range logs {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		lines = append(lines, string(data))
	}
	if err := rds.redisClient.RPush(ctx, rds.logsKey(runtimeId), lines...).Err(); err != nil {
		logger.Error("error in appending runtime logs", zap.String("runtimeId", runtimeId), zap.Error(err))
		return persistence.StorageLayerError{}
	}
	return nil
}
