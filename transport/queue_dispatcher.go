package transport

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/taskweave/taskweave/engine"
	"github.com/taskweave/taskweave/logger"
	"github.com/taskweave/taskweave/model"
	"github.com/taskweave/taskweave/persistence"
	"go.uber.org/zap"
)

var _ engine.Dispatcher = new(queueDispatcher)

// queueDispatcher publishes the continuation envelope onto the process
// topic, partitioned by runtime id so one runtime's continuations stay on
// one partition. Delivery is at-least-once; the consumer side owns
// idempotency.
type queueDispatcher struct {
	queue  persistence.Queue
	apiKey string
}

func NewQueueDispatcher(queue persistence.Queue, apiKey string) *queueDispatcher {
	return &queueDispatcher{
		queue:  queue,
		apiKey: apiKey,
	}
}

func (d *queueDispatcher) Dispatch(runtimeId string, taskName string) {
	go func() {
		message, err := json.Marshal(model.QueueEnvelope{
			WorkflowRuntimeId: runtimeId,
			TaskName:          taskName,
			IdempotencyKey:    uuid.NewString(),
			ApiKey:            d.apiKey,
		})
		if err != nil {
			logger.Error("error encoding queue envelope", zap.String("runtimeId", runtimeId), zap.String("task", taskName), zap.Error(err))
			return
		}
		if err := d.queue.Push(PROCESS_QUEUE_NAME, runtimeId, message); err != nil {
			logger.Error("error publishing next task", zap.String("runtimeId", runtimeId), zap.String("task", taskName), zap.Error(err))
		}
	}()
}
