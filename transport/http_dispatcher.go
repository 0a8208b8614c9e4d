package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/taskweave/taskweave/engine"
	"github.com/taskweave/taskweave/logger"
	"github.com/taskweave/taskweave/model"
	"go.uber.org/zap"
)

var _ engine.Dispatcher = new(httpDispatcher)

// httpDispatcher posts the continuation to the /transport/process endpoint
// of the deployment, authenticated by the shared workflow credential.
// Failures are logged and dropped; there is no retry at this layer.
type httpDispatcher struct {
	baseUrl string
	apiKey  string
	client  *http.Client
}

func NewHttpDispatcher(baseUrl string, apiKey string) *httpDispatcher {
	return &httpDispatcher{
		baseUrl: baseUrl,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (d *httpDispatcher) Dispatch(runtimeId string, taskName string) {
	go func() {
		body, err := json.Marshal(model.ProcessTaskRequest{
			WorkflowRuntimeId: runtimeId,
			TaskName:          taskName,
		})
		if err != nil {
			logger.Error("error encoding process request", zap.String("runtimeId", runtimeId), zap.String("task", taskName), zap.Error(err))
			return
		}
		req, err := http.NewRequest(http.MethodPost, d.baseUrl+"/transport/process", bytes.NewReader(body))
		if err != nil {
			logger.Error("error building process request", zap.String("runtimeId", runtimeId), zap.String("task", taskName), zap.Error(err))
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.SetBasicAuth("workflow", d.apiKey)
		resp, err := d.client.Do(req)
		if err != nil {
			logger.Error("error dispatching next task", zap.String("runtimeId", runtimeId), zap.String("task", taskName), zap.Error(err))
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			logger.Error("next task dispatch rejected", zap.String("runtimeId", runtimeId), zap.String("task", taskName), zap.Int("status", resp.StatusCode))
		}
	}()
}
