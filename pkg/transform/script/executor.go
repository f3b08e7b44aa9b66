package script

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
)

// DefaultMaxCallStackSize bounds script recursion so runaway scripts fail
// with a RangeError instead of exhausting the Go stack.
const DefaultMaxCallStackSize = 4096

type ExecutorOption func(*Executor)

// WithTimeout interrupts any single evaluation that runs longer than d.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = d }
}

func WithMaxCallStackSize(n int) ExecutorOption {
	return func(e *Executor) { e.maxStack = n }
}

// Executor evaluates one compiled program against row scopes. It is safe for
// concurrent use; each caller leases its own runtime from a pool.
type Executor struct {
	prog     *Program
	shared   *Shared
	timeout  time.Duration
	maxStack int
	pool     sync.Pool
	created  atomic.Int64
}

func NewExecutor(prog *Program, shared *Shared, opts ...ExecutorOption) *Executor {
	if shared == nil {
		shared = NewShared(nil, nil)
	}
	e := &Executor{prog: prog, shared: shared, maxStack: DefaultMaxCallStackSize}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Runtimes reports how many script runtimes the executor has created.
func (e *Executor) Runtimes() int64 { return e.created.Load() }

// runtime is a pooled script runtime. base is its original global object,
// holding the builtins and the shared bindings, frozen for pooled runtimes.
type runtime struct {
	vm   *goja.Runtime
	base *goja.Object
	date goja.Value
}

func (e *Executor) newRuntime() (*runtime, error) {
	vm := goja.New()
	if e.maxStack > 0 {
		vm.SetMaxCallStackSize(e.maxStack)
	}
	if err := e.shared.install(vm); err != nil {
		return nil, fmt.Errorf("script: install shared bindings: %w", err)
	}
	// A runtime built for a lexical program serves a single row.
	if !e.prog.lexical {
		if err := harden(vm); err != nil {
			return nil, fmt.Errorf("script: freeze builtins: %w", err)
		}
	}
	e.created.Add(1)
	return &runtime{vm: vm, base: vm.GlobalObject(), date: vm.Get("Date")}, nil
}

func (e *Executor) acquire() (*runtime, error) {
	if !e.prog.lexical {
		if rt, ok := e.pool.Get().(*runtime); ok {
			return rt, nil
		}
	}
	return e.newRuntime()
}

func (e *Executor) release(rt *runtime) {
	if e.prog.lexical {
		return
	}
	e.pool.Put(rt)
}

// Evaluate runs the program with scope bound as globals and coerces the
// result to want. Row bindings are own properties of a per-row global and
// so shadow the shared bindings it inherits. Anything the script defines at top level is dropped afterwards.
func (e *Executor) Evaluate(ctx context.Context, scope *Scope, want ReturnType) (Value, error) {
	if err := ctx.Err(); err != nil {
		return NullOf(want), interruptedError(ctx, scope.RowID)
	}
	rt, err := e.acquire()
	if err != nil {
		return NullOf(want), err
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.run(ctx, rt, scope, want)
}

func (e *Executor) run(ctx context.Context, rt *runtime, scope *Scope, want ReturnType) (out Value, err error) {
	stop := context.AfterFunc(ctx, func() { rt.vm.Interrupt(ErrInterrupted) })
	reusable := true
	defer func() {
		if r := recover(); r != nil {
			reusable = false
			perr := fmt.Errorf("panic: %v", r)
			out, err = NullOf(want), &RuntimeError{RowID: scope.RowID, Message: perr.Error(), Err: perr}
		}
		// A fired interrupt may still be pending on the runtime.
		if !stop() {
			reusable = false
		}
		rt.vm.SetGlobalObject(rt.base)
		if reusable {
			e.release(rt)
		}
	}()

	global, err := rt.scopeObject(scope)
	if err != nil {
		return NullOf(want), &RuntimeError{RowID: scope.RowID, Message: err.Error(), Err: err}
	}
	rt.vm.SetGlobalObject(global)
	raw, err := rt.vm.RunProgram(e.prog.prog)
	if err != nil {
		var intr *goja.InterruptedError
		if errors.As(err, &intr) {
			reusable = false
			return NullOf(want), interruptedError(ctx, scope.RowID)
		}
		var overflow *goja.StackOverflowError
		if errors.As(err, &overflow) {
			reusable = false
			return NullOf(want), &RuntimeError{RowID: scope.RowID, Message: "maximum call stack size exceeded", Err: err}
		}
		return NullOf(want), &RuntimeError{RowID: scope.RowID, Message: rt.describe(err), Err: err}
	}
	return Coerce(rt.vm, raw, want), nil
}

// scopeObject builds a fresh global object for one evaluation. It inherits
// from the base global, so row bindings and anything the script declares
// become own properties that vanish with it.
func (rt *runtime) scopeObject(scope *Scope) (*goja.Object, error) {
	g := rt.vm.NewObject()
	if err := g.SetPrototype(rt.base); err != nil {
		return nil, err
	}
	if err := g.DefineDataProperty("globalThis", g, goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_FALSE); err != nil {
		return nil, err
	}
	for _, name := range scope.names {
		v, err := rt.toValue(scope.values[name])
		if err != nil {
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
		if err := g.DefineDataProperty(name, v, goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_TRUE); err != nil {
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
	}
	return g, nil
}

func (rt *runtime) toValue(v any) (goja.Value, error) {
	switch t := v.(type) {
	case nil:
		return goja.Null(), nil
	case time.Time:
		d, err := rt.vm.New(rt.date, rt.vm.ToValue(t.UnixMilli()))
		if err != nil {
			return nil, err
		}
		return d, nil
	case []any:
		items := make([]any, len(t))
		for i, x := range t {
			jv, err := rt.toValue(x)
			if err != nil {
				return nil, err
			}
			items[i] = jv
		}
		return rt.vm.NewArray(items...), nil
	default:
		return rt.vm.ToValue(v), nil
	}
}

// describe renders a thrown value. Rendering may call back into the script
// (a custom toString), so it runs guarded on the runtime that threw.
func (rt *runtime) describe(err error) string {
	var ex *goja.Exception
	if !errors.As(err, &ex) {
		return err.Error()
	}
	msg := "uncaught exception"
	if rt.vm.Try(func() {
		if v := ex.Value(); v != nil {
			msg = v.String()
		}
	}) != nil {
		return "uncaught exception"
	}
	return msg
}

func interruptedError(ctx context.Context, rowID int64) *RuntimeError {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}
	err := fmt.Errorf("%w: %w", ErrInterrupted, cause)
	return &RuntimeError{RowID: rowID, Message: "evaluation interrupted: " + cause.Error(), Err: err}
}
