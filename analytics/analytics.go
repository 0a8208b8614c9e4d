package analytics

// WorkflowDataCollector records per-task execution outcomes for offline
// analysis, separate from operational logging.
type WorkflowDataCollector interface {
	RecordTaskSuccess(runtimeId string, taskName string, data any)
	RecordTaskFailure(runtimeId string, taskName string, reason string)
}

var workflowCollector WorkflowDataCollector

type DataCollectorConfig struct {
	Enabled  bool
	FileName string
}

func InitDataCollector(config DataCollectorConfig) error {
	if !config.Enabled {
		return nil
	}
	c, err := NewLogFileDataCollector(config.FileName)
	if err != nil {
		return err
	}
	workflowCollector = c
	return nil
}

func RecordTaskSuccess(runtimeId string, taskName string, data any) {
	if workflowCollector == nil {
		return
	}
	workflowCollector.RecordTaskSuccess(runtimeId, taskName, data)
}

func RecordTaskFailure(runtimeId string, taskName string, reason string) {
	if workflowCollector == nil {
		return
	}
	workflowCollector.RecordTaskFailure(runtimeId, taskName, reason)
}
