package transport

import (
	"fmt"

	"github.com/taskweave/taskweave/config"
	"github.com/taskweave/taskweave/engine"
	"github.com/taskweave/taskweave/persistence"
)

// PROCESS_QUEUE_NAME is the fixed topic continuations travel on when the
// queue transport is selected.
const PROCESS_QUEUE_NAME string = "workflow_process"

// NewDispatcher selects the continuation channel: a direct HTTP call into
// a (possibly remote) replica, or a publish onto the shared process queue.
// Either way the state machine above it stays unchanged.
func NewDispatcher(conf config.Config, queue persistence.Queue) (engine.Dispatcher, error) {
	switch conf.TransportType {
	case config.TRANSPORT_TYPE_HTTP:
		return NewHttpDispatcher(conf.DeployedUrl, conf.ApiKey), nil
	case config.TRANSPORT_TYPE_QUEUE:
		return NewQueueDispatcher(queue, conf.ApiKey), nil
	}
	return nil, fmt.Errorf("unknown transport type %s", conf.TransportType)
}
