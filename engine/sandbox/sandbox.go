package sandbox

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/taskweave/taskweave/engine/tasklog"
	"github.com/taskweave/taskweave/logger"
	"go.uber.org/zap"
)

// Bindings is the complete surface a user script can see. Anything not in
// here (filesystem, process, ambient network) is unreachable from inside
// the vm; outbound HTTP goes through the injected httpClient only.
type Bindings struct {
	Params  map[string]any
	Global  map[string]any
	Results map[string]any
}

type ScriptError struct {
	Message string
	Stack   string
}

func (e ScriptError) Error() string {
	return fmt.Sprintf("script error: %s", e.Message)
}

type SerializationError struct {
	Reason string
}

func (e SerializationError) Error() string {
	return fmt.Sprintf("script result is not serializable: %s", e.Reason)
}

type Sandbox struct {
	httpClient *http.Client
	timeout    time.Duration
}

func New(timeout time.Duration) *Sandbox {
	return &Sandbox{
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
}

// Execute runs script in a fresh vm with the given bindings and invokes its
// handler() entry point. The return value is round-tripped through JSON so
// the engine only ever stores structured data.
func (s *Sandbox) Execute(script string, bindings Bindings, logs *tasklog.Buffer) (any, error) {
	if len(script) == 0 {
		return nil, ScriptError{Message: "no script found"}
	}
	vm := goja.New()
	vm.Set("getWorkflowParams", func() map[string]any { return bindings.Params })
	vm.Set("getWorkflowGlobal", func() map[string]any { return bindings.Global })
	vm.Set("getWorkflowResults", func() map[string]any { return bindings.Results })
	vm.Set("logger", func(call goja.FunctionCall) goja.Value {
		line := formatLogArgs(call.Arguments)
		logs.Info(line)
		logger.Debug("script log", zap.String("message", line))
		return goja.Undefined()
	})
	vm.Set("httpClient", func(req map[string]any) map[string]any {
		return s.httpCall(req)
	})

	timer := time.AfterFunc(s.timeout, func() {
		vm.Interrupt("script execution timed out")
	})
	defer timer.Stop()

	if _, err := vm.RunString(script); err != nil {
		return nil, toScriptError(err)
	}
	entry, ok := goja.AssertFunction(vm.Get("handler"))
	if !ok {
		return nil, ScriptError{Message: "script does not define handler()"}
	}
	value, err := entry(goja.Undefined())
	if err != nil {
		return nil, toScriptError(err)
	}
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(value.Export())
	if err != nil {
		return nil, SerializationError{Reason: err.Error()}
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, SerializationError{Reason: err.Error()}
	}
	return result, nil
}

func toScriptError(err error) error {
	switch e := err.(type) {
	case *goja.Exception:
		return ScriptError{Message: e.Error(), Stack: e.String()}
	case *goja.InterruptedError:
		return ScriptError{Message: "script execution timed out", Stack: e.String()}
	default:
		return ScriptError{Message: err.Error()}
	}
}

func formatLogArgs(args []goja.Value) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		exported := arg.Export()
		if str, ok := exported.(string); ok {
			parts = append(parts, str)
			continue
		}
		data, err := json.Marshal(exported)
		if err != nil {
			parts = append(parts, fmt.Sprintf("%v", exported))
			continue
		}
		parts = append(parts, string(data))
	}
	return strings.Join(parts, " ")
}
