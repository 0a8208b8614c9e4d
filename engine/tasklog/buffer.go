package tasklog

import (
	"time"

	"github.com/taskweave/taskweave/model"
)

// Buffer collects the log lines of one task invocation in memory. The
// processor appends the buffer to the runtime's persisted log stream after
// the handler returns.
type Buffer struct {
	taskName string
	entries  []model.LogEntry
}

func NewBuffer(taskName string) *Buffer {
	return &Buffer{
		taskName: taskName,
	}
}

func (b *Buffer) Info(message string) {
	b.add(message, model.LOG_SEVERITY_INFO)
}

func (b *Buffer) Error(message string) {
	b.add(message, model.LOG_SEVERITY_ERROR)
}

func (b *Buffer) add(message string, severity model.LogSeverity) {
	b.entries = append(b.entries, model.LogEntry{
		Timestamp: time.Now().UTC(),
		TaskName:  b.taskName,
		Message:   message,
		Severity:  severity,
	})
}

func (b *Buffer) Entries() []model.LogEntry {
	return b.entries
}
