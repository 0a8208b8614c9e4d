package engine

import "fmt"

// BadRequestError marks structural authoring errors: unknown task name,
// unknown task type, a definition without a START task. Never retried.
type BadRequestError struct {
	Reason string
}

func (e BadRequestError) Error() string {
	return e.Reason
}

type NotFoundError struct {
	Reason string
}

func (e NotFoundError) Error() string {
	return e.Reason
}

type UnauthorizedError struct{}

func (e UnauthorizedError) Error() string {
	return "unauthorized"
}

// HandlerError wraps a task handler failure. The task transitions to
// failed; the runtime stays pending and sibling branches continue.
type HandlerError struct {
	TaskName string
	Cause    error
}

func (e HandlerError) Error() string {
	return fmt.Sprintf("task %s failed: %v", e.TaskName, e.Cause)
}

func (e HandlerError) Unwrap() error {
	return e.Cause
}
