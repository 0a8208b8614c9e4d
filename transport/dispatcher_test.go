package transport

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/taskweave/taskweave/config"
	"github.com/taskweave/taskweave/model"
	"github.com/taskweave/taskweave/persistence/inmem"
)

func TestQueueDispatcher(t *testing.T) {
	queue := inmem.NewInMemQueue()
	dispatcher := NewQueueDispatcher(queue, "secret")

	dispatcher.Dispatch("rt-1", "work")

	var messages []string
	require.Eventually(t, func() bool {
		popped, err := queue.Pop(PROCESS_QUEUE_NAME, 1)
		if err != nil {
			return false
		}
		messages = popped
		return true
	}, 2*time.Second, 10*time.Millisecond)

	var envelope model.QueueEnvelope
	require.NoError(t, json.Unmarshal([]byte(messages[0]), &envelope))
	require.Equal(t, "rt-1", envelope.WorkflowRuntimeId)
	require.Equal(t, "work", envelope.TaskName)
	require.Equal(t, "secret", envelope.ApiKey)
	require.NotEmpty(t, envelope.IdempotencyKey)
}

func TestNewDispatcher(t *testing.T) {
	queue := inmem.NewInMemQueue()

	d, err := NewDispatcher(config.Config{TransportType: config.TRANSPORT_TYPE_HTTP, DeployedUrl: "http://localhost:8080", ApiKey: "k"}, queue)
	require.NoError(t, err)
	require.IsType(t, &httpDispatcher{}, d)

	d, err = NewDispatcher(config.Config{TransportType: config.TRANSPORT_TYPE_QUEUE, ApiKey: "k"}, queue)
	require.NoError(t, err)
	require.IsType(t, &queueDispatcher{}, d)

	_, err = NewDispatcher(config.Config{TransportType: "carrier-pigeon"}, queue)
	require.Error(t, err)
}
