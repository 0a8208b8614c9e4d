package transport

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/taskweave/taskweave/engine"
	"github.com/taskweave/taskweave/logger"
	"github.com/taskweave/taskweave/model"
	"github.com/taskweave/taskweave/persistence"
	"github.com/taskweave/taskweave/util"
	"go.uber.org/zap"
)

// Consumer drains the process topic and feeds continuations into the
// processor through a bounded worker pool. Malformed or unauthenticated
// messages go to the dead-letter list instead of being retried forever.
type Consumer struct {
	queue        persistence.Queue
	processor    *engine.Processor
	apiKey       string
	batchSize    int
	pollInterval int
	worker       *util.Worker
	tickWorker   *util.TickWorker
	stop         chan struct{}
	wg           *sync.WaitGroup
}

func NewConsumer(queue persistence.Queue, processor *engine.Processor, apiKey string, batchSize int, pollInterval int, capacity int, wg *sync.WaitGroup) *Consumer {
	c := &Consumer{
		queue:        queue,
		processor:    processor,
		apiKey:       apiKey,
		batchSize:    batchSize,
		pollInterval: pollInterval,
		stop:         make(chan struct{}),
		wg:           wg,
	}
	c.worker = util.NewWorker("process-consumer", wg, c.handle, capacity)
	c.tickWorker = util.NewTickWorker("process-poller", pollInterval, c.stop, c.poll, wg)
	return c
}

func (c *Consumer) Start() {
	c.worker.Start()
	c.tickWorker.Start()
}

func (c *Consumer) Stop() {
	c.tickWorker.Stop()
	c.worker.Stop()
}

func (c *Consumer) poll() {
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(1*time.Second), 3)
	err := backoff.Retry(func() error {
		messages, err := c.queue.Pop(PROCESS_QUEUE_NAME, c.batchSize)
		if err != nil {
			if _, ok := err.(persistence.EmptyQueueError); ok {
				return nil
			}
			return err
		}
		for _, message := range messages {
			c.worker.Sender() <- message
		}
		return nil
	}, b)
	if err != nil {
		logger.Error("error polling process queue", zap.Error(err))
	}
}

func (c *Consumer) handle(t util.Task) error {
	message, ok := t.(string)
	if !ok {
		return fmt.Errorf("unexpected message type %T", t)
	}
	var envelope model.QueueEnvelope
	if err := json.Unmarshal([]byte(message), &envelope); err != nil {
		logger.Error("malformed message on process queue", zap.Error(err))
		return c.deadLetter(message)
	}
	if len(envelope.WorkflowRuntimeId) == 0 || len(envelope.TaskName) == 0 {
		logger.Error("incomplete message on process queue", zap.String("message", message))
		return c.deadLetter(message)
	}
	if envelope.ApiKey != c.apiKey {
		logger.Error("message with invalid api key on process queue", zap.String("runtimeId", envelope.WorkflowRuntimeId))
		return c.deadLetter(message)
	}
	if _, err := c.processor.ProcessTask(envelope.WorkflowRuntimeId, envelope.TaskName); err != nil {
		logger.Error("error processing queued task", zap.String("runtimeId", envelope.WorkflowRuntimeId), zap.String("task", envelope.TaskName), zap.Error(err))
	}
	return nil
}

func (c *Consumer) deadLetter(message string) error {
	if err := c.queue.PushDLQ(PROCESS_QUEUE_NAME, []byte(message)); err != nil {
		return err
	}
	return nil
}
