package script

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/dop251/goja"
)

// Shared holds the bindings every row sees: log (also bound as logger) and out.
// It is created once per stage and only read afterwards.
type Shared struct {
	Log *LogSink
	Out *OutSink
}

// NewShared builds the shared sinks. A nil logger means slog.Default and a nil
// writer discards output.
func NewShared(logger *slog.Logger, out io.Writer) *Shared {
	if logger == nil {
		logger = slog.Default()
	}
	if out == nil {
		out = io.Discard
	}
	return &Shared{Log: &LogSink{logger: logger}, Out: &OutSink{w: out}}
}

// SharedNames lists the global names installed from Shared.
func SharedNames() []string { return []string{"log", "logger", "out"} }

// LogSink forwards script messages to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

func (s *LogSink) Log(level slog.Level, msg string) {
	s.logger.Log(context.Background(), level, msg, "source", "script")
}

// OutSink writes raw text. Calls are serialized so concurrent rows never
// interleave partial writes.
type OutSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *OutSink) Print(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, text)
}

func (s *OutSink) Println(text string) { s.Print(text + "\n") }

func (s *OutSink) Printf(format string, args ...any) { s.Print(fmt.Sprintf(format, args...)) }

// install defines SharedNames on the runtime's current global object as
// read-only properties.
func (s *Shared) install(vm *goja.Runtime) error {
	logObj, err := s.Log.object(vm)
	if err != nil {
		return err
	}
	outObj, err := s.Out.object(vm)
	if err != nil {
		return err
	}
	objects := map[string]*goja.Object{"log": logObj, "logger": logObj, "out": outObj}
	global := vm.GlobalObject()
	for _, name := range SharedNames() {
		obj, ok := objects[name]
		if !ok {
			return fmt.Errorf("install %s: no binding", name)
		}
		if err := global.DefineDataProperty(name, obj, goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
			return fmt.Errorf("install %s: %w", name, err)
		}
	}
	return nil
}

func (s *LogSink) object(vm *goja.Runtime) (*goja.Object, error) {
	o := vm.NewObject()
	for _, m := range []struct {
		name  string
		level slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	} {
		level := m.level
		if err := o.Set(m.name, func(call goja.FunctionCall) goja.Value {
			s.Log(level, joinArgs(call.Arguments))
			return goja.Undefined()
		}); err != nil {
			return nil, err
		}
	}
	return o, freeze(vm, o)
}

func (s *OutSink) object(vm *goja.Runtime) (*goja.Object, error) {
	o := vm.NewObject()
	err := o.Set("print", func(call goja.FunctionCall) goja.Value {
		s.Print(joinArgs(call.Arguments))
		return goja.Undefined()
	})
	if err == nil {
		err = o.Set("println", func(call goja.FunctionCall) goja.Value {
			s.Println(joinArgs(call.Arguments))
			return goja.Undefined()
		})
	}
	if err == nil {
		err = o.Set("printf", func(call goja.FunctionCall) goja.Value {
			format := call.Argument(0).String()
			args := make([]any, 0, len(call.Arguments))
			for _, a := range call.Arguments[min(1, len(call.Arguments)):] {
				args = append(args, a.Export())
			}
			s.Printf(format, args...)
			return goja.Undefined()
		})
	}
	if err != nil {
		return nil, err
	}
	return o, freeze(vm, o)
}

// joinArgs renders call arguments the way console-style loggers do.
func joinArgs(args []goja.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}

// freeze makes o immutable so a script cannot alter a sink seen by later rows.
func freeze(vm *goja.Runtime, o *goja.Object) error {
	fn, ok := goja.AssertFunction(vm.Get("Object").ToObject(vm).Get("freeze"))
	if !ok {
		return fmt.Errorf("Object.freeze unavailable")
	}
	_, err := fn(goja.Undefined(), o)
	return err
}
