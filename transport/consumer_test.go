package transport

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/taskweave/taskweave/engine"
	"github.com/taskweave/taskweave/engine/handler"
	"github.com/taskweave/taskweave/engine/sandbox"
	"github.com/taskweave/taskweave/model"
	"github.com/taskweave/taskweave/persistence"
	"github.com/taskweave/taskweave/persistence/inmem"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(runtimeId string, taskName string) {}

type consumerFixture struct {
	queue    *inmem.InMemQueue
	storage  *inmem.InMemRuntimeStorage
	consumer *Consumer
}

func newConsumerFixture() *consumerFixture {
	queue := inmem.NewInMemQueue()
	storage := inmem.NewInMemRuntimeStorage()
	handlers := handler.NewContainer(sandbox.New(2 * time.Second))
	processor := engine.NewProcessor(storage, handlers, nopDispatcher{})
	var wg sync.WaitGroup
	return &consumerFixture{
		queue:    queue,
		storage:  storage,
		consumer: NewConsumer(queue, processor, "secret", 10, 1, 16, &wg),
	}
}

func (f *consumerFixture) seedRuntime(t *testing.T) string {
	t.Helper()
	rt, err := f.storage.Create(model.Runtime{
		Id: "rt-1",
		Tasks: []model.Task{
			{Id: "t-start", Name: "start", Type: model.TASK_TYPE_START, Status: model.TASK_STATUS_PENDING},
			{Id: "t-end", Name: "end", Type: model.TASK_TYPE_END, Status: model.TASK_STATUS_PENDING},
		},
		WorkflowStatus: model.WORKFLOW_STATUS_PENDING,
	})
	require.NoError(t, err)
	return rt.Id
}

func (f *consumerFixture) deadLetters(t *testing.T) []string {
	t.Helper()
	messages, err := f.queue.Pop(PROCESS_QUEUE_NAME+":dlq", 10)
	if err != nil {
		if _, ok := err.(persistence.EmptyQueueError); ok {
			return nil
		}
		require.NoError(t, err)
	}
	return messages
}

func TestConsumer(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, f *consumerFixture){
		"valid envelope is processed":             testValidEnvelope,
		"malformed message goes to dlq":           testMalformedMessage,
		"incomplete envelope goes to dlq":         testIncompleteEnvelope,
		"envelope with wrong api key goes to dlq": testWrongApiKey,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, newConsumerFixture())
		})
	}
}

func envelope(runtimeId string, taskName string, apiKey string) string {
	data, _ := json.Marshal(model.QueueEnvelope{
		WorkflowRuntimeId: runtimeId,
		TaskName:          taskName,
		IdempotencyKey:    "idem-1",
		ApiKey:            apiKey,
	})
	return string(data)
}

func testValidEnvelope(t *testing.T, f *consumerFixture) {
	runtimeId := f.seedRuntime(t)

	err := f.consumer.handle(envelope(runtimeId, "start", "secret"))
	require.NoError(t, err)

	rt, err := f.storage.FindById(runtimeId)
	require.NoError(t, err)
	require.Equal(t, model.TASK_STATUS_COMPLETED, rt.FindTaskByName("start").Status)
	require.Empty(t, f.deadLetters(t))
}

func testMalformedMessage(t *testing.T, f *consumerFixture) {
	err := f.consumer.handle("not json at all")
	require.NoError(t, err)

	letters := f.deadLetters(t)
	require.Len(t, letters, 1)
	require.Equal(t, "not json at all", letters[0])
}

func testIncompleteEnvelope(t *testing.T, f *consumerFixture) {
	err := f.consumer.handle(envelope("", "start", "secret"))
	require.NoError(t, err)
	require.Len(t, f.deadLetters(t), 1)
}

func testWrongApiKey(t *testing.T, f *consumerFixture) {
	runtimeId := f.seedRuntime(t)

	err := f.consumer.handle(envelope(runtimeId, "start", "wrong"))
	require.NoError(t, err)
	require.Len(t, f.deadLetters(t), 1)

	rt, err := f.storage.FindById(runtimeId)
	require.NoError(t, err)
	require.Equal(t, model.TASK_STATUS_PENDING, rt.FindTaskByName("start").Status)
}
