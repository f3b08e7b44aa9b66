package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wdm0006/jsjanitor/pkg/janitor"
)

const (
	DefaultOutputName = "JavaScript output"
	DefaultSource     = "function evaluate() {\n\treturn \"hello \" + values[0];\n}\n\nevaluate();"
)

// Observer is notified after every row evaluation. err is nil on success.
type Observer interface {
	ObserveRow(stage string, elapsed time.Duration, err error)
}

// OutputColumns describes what a stage appends to each row.
type OutputColumns []janitor.ColumnSchema

func (o OutputColumns) Count() int { return len(o) }

// Transformer is the scripted pipeline stage. Configure the exported fields,
// then call Initialize; the configuration is fixed from that point on.
type Transformer struct {
	Columns    []janitor.ColumnSchema
	SourceCode string // empty means DefaultSource
	ReturnType ReturnType
	ArrayName  string // empty means DefaultArrayName
	OutputName string // empty means DefaultOutputName
	Workers    int    // rows evaluated in parallel by Apply; <1 means 1
	Timeout    time.Duration

	Logger       *slog.Logger // script log sink and default execution log
	Out          io.Writer    // script out sink
	ExecutionLog ExecutionLog
	Observer     Observer

	once    sync.Once
	initErr error
	st      atomic.Pointer[stage]
}

// stage is the immutable state built by Initialize.
type stage struct {
	name     string
	columns  []janitor.ColumnSchema
	output   janitor.ColumnSchema
	want     ReturnType
	workers  int
	binder   *Binder
	exec     *Executor
	iso      *Isolator
	observer Observer
}

func (t *Transformer) Name() string { return "javascript:" + t.outputName() }

func (t *Transformer) outputName() string {
	if t.OutputName == "" {
		return DefaultOutputName
	}
	return t.OutputName
}

func (t *Transformer) source() string {
	if t.SourceCode == "" {
		return DefaultSource
	}
	return t.SourceCode
}

// OutputColumns reports the single column the stage produces.
func (t *Transformer) OutputColumns() OutputColumns {
	return OutputColumns{{Name: t.outputName(), Type: t.ReturnType.Kind(), Nullable: true}}
}

// Validate checks the configuration and that the source compiles. The
// compiled program is discarded.
func (t *Transformer) Validate() error {
	if err := t.checkConfig(); err != nil {
		return err
	}
	_, err := Compile(t.source())
	return err
}

func (t *Transformer) checkConfig() error {
	switch t.ReturnType {
	case Text, Number, Boolean:
	default:
		return fmt.Errorf("script: invalid return type %v", t.ReturnType)
	}
	for i, c := range t.Columns {
		if c.Name == "" {
			return fmt.Errorf("script: column %d has no name", i)
		}
	}
	if t.Timeout < 0 {
		return fmt.Errorf("script: negative timeout %s", t.Timeout)
	}
	return nil
}

// Initialize compiles the source and prepares the runtime pool. It is safe to
// call more than once; the first outcome is kept.
func (t *Transformer) Initialize() error {
	t.once.Do(func() {
		st, err := t.build()
		if err != nil {
			t.initErr = err
			return
		}
		t.st.Store(st)
	})
	return t.initErr
}

func (t *Transformer) build() (*stage, error) {
	if err := t.checkConfig(); err != nil {
		return nil, err
	}
	prog, err := Compile(t.source())
	if err != nil {
		return nil, err
	}
	name := t.Name()
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("stage", name)
	execLog := t.ExecutionLog
	if execLog == nil {
		execLog = SlogExecutionLog{Logger: logger}
	}
	workers := t.Workers
	if workers < 1 {
		workers = 1
	}
	columns := append([]janitor.ColumnSchema(nil), t.Columns...)
	binder := NewBinder(columns, t.ArrayName)
	exec := NewExecutor(prog, NewShared(logger, t.Out), WithTimeout(t.Timeout))
	return &stage{
		name:     name,
		columns:  columns,
		output:   t.OutputColumns()[0],
		want:     t.ReturnType,
		workers:  workers,
		binder:   binder,
		exec:     exec,
		iso:      &Isolator{Log: execLog},
		observer: t.Observer,
	}, nil
}

func (t *Transformer) execLog() ExecutionLog {
	if t.ExecutionLog != nil {
		return t.ExecutionLog
	}
	return SlogExecutionLog{Logger: t.Logger}
}

// TransformRow evaluates the script for one row and returns exactly one
// value. Failures are published to the execution log and yield Null.
func (t *Transformer) TransformRow(ctx context.Context, row janitor.Row) []Value {
	st := t.st.Load()
	if st == nil {
		t.execLog().Publish(fmt.Sprintf("Error occurred while transforming row %d: %v", row.ID(), ErrNotInitialized))
		return []Value{Null()}
	}
	return []Value{st.transform(ctx, row)}
}

func (st *stage) transform(ctx context.Context, row janitor.Row) Value {
	start := time.Now()
	v, err := st.iso.Try(ctx, row.ID(), func(ctx context.Context) (Value, error) {
		return st.exec.Evaluate(ctx, st.binder.Bind(row), st.want)
	})
	if st.observer != nil {
		st.observer.ObserveRow(st.name, time.Since(start), err)
	}
	if v.IsNull() {
		return NullOf(st.want)
	}
	return v
}

// Apply evaluates every row of f and appends the output column. Row failures
// only produce nulls; errors are reserved for misconfiguration, missing input
// columns and cancellation.
func (t *Transformer) Apply(ctx context.Context, f *janitor.Frame) (*janitor.Frame, error) {
	if err := t.Initialize(); err != nil {
		return nil, err
	}
	st := t.st.Load()
	if st == nil {
		return nil, ErrNotInitialized
	}
	for _, c := range st.columns {
		if _, ok := f.ColumnByName(c.Name); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, c.Name)
		}
	}
	if _, exists := f.ColumnByName(st.output.Name); exists {
		return nil, fmt.Errorf("script: output column %s already exists", st.output.Name)
	}
	out, err := janitor.NewColumn(st.output.Name, st.output.Type, f.Rows())
	if err != nil {
		return nil, err
	}

	if st.workers == 1 {
		for i := 0; i < f.Rows(); i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			setValue(out, i, st.transform(ctx, f.Row(i)))
		}
	} else {
		var g errgroup.Group
		g.SetLimit(st.workers)
		for i := 0; i < f.Rows() && ctx.Err() == nil; i++ {
			i := i
			g.Go(func() error {
				setValue(out, i, st.transform(ctx, f.Row(i)))
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	if err := f.AddColumn(out); err != nil {
		return nil, err
	}
	return f, nil
}

// setValue stores v at row i. Each row owns its cell, so concurrent calls for
// distinct rows do not race.
func setValue(c janitor.Column, i int, v Value) {
	switch col := c.(type) {
	case *janitor.StringColumn:
		if s, ok := v.Text(); ok {
			col.Set(i, s)
		}
	case *janitor.FloatColumn:
		if n, ok := v.Number(); ok {
			col.Set(i, n)
		}
	case *janitor.BoolColumn:
		if b, ok := v.Boolean(); ok {
			col.Set(i, b)
		}
	}
}

// Executor exposes the stage's executor, or nil before Initialize.
func (t *Transformer) Executor() *Executor {
	if st := t.st.Load(); st != nil {
		return st.exec
	}
	return nil
}

// Close releases the compiled program and runtimes. A closed Transformer
// cannot be initialized again.
func (t *Transformer) Close() error {
	t.once.Do(func() { t.initErr = errors.New("script: stage closed") })
	t.st.Store(nil)
	return nil
}
