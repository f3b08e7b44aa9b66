package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/wdm0006/jsjanitor/internal/config"
	j "github.com/wdm0006/jsjanitor/pkg/janitor"
	"github.com/wdm0006/jsjanitor/pkg/transform/script"
)

type stageEnv struct {
	logger   *slog.Logger
	out      io.Writer
	observer script.Observer
}

// buildPipeline turns decoded steps into stages. Each stage sees the input
// columns plus the outputs of the stages before it.
func buildPipeline(steps []config.Step, schema j.Schema, env stageEnv) (*j.Pipeline, error) {
	p := j.NewPipeline()
	cols := append([]j.ColumnSchema(nil), schema.Columns...)
	for i, st := range steps {
		if st.JavaScript == nil {
			continue
		}
		t, err := newScriptStage(st.JavaScript, j.Schema{Columns: cols}, env)
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if err := t.Initialize(); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		p.Add(t)
		cols = append(cols, t.OutputColumns()...)
	}
	return p, nil
}

func newScriptStage(s *config.JavaScriptStep, schema j.Schema, env stageEnv) (*script.Transformer, error) {
	rt, err := script.ParseReturnType(s.ReturnType)
	if err != nil {
		return nil, err
	}
	cols := make([]j.ColumnSchema, len(s.Columns))
	for i, name := range s.Columns {
		cs, ok := schema.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", script.ErrUnknownColumn, name)
		}
		cols[i] = cs
	}
	return &script.Transformer{
		Columns:    cols,
		SourceCode: s.Source,
		ReturnType: rt,
		ArrayName:  s.ArrayName,
		OutputName: s.Output,
		Workers:    s.Workers,
		Timeout:    s.Timeout,
		Logger:     env.logger,
		Out:        env.out,
		Observer:   env.observer,
	}, nil
}

// validateSteps compiles every script step without reading any input.
func validateSteps(steps []config.Step, w io.Writer) error {
	n := 0
	for i, st := range steps {
		if st.JavaScript == nil {
			continue
		}
		rt, err := script.ParseReturnType(st.JavaScript.ReturnType)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		t := &script.Transformer{SourceCode: st.JavaScript.Source, ReturnType: rt, Timeout: st.JavaScript.Timeout}
		for _, name := range st.JavaScript.Columns {
			t.Columns = append(t.Columns, j.ColumnSchema{Name: name, Type: j.KindString, Nullable: true})
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		n++
	}
	fmt.Fprintf(w, "ok: %d script step(s) compiled\n", n)
	return nil
}
