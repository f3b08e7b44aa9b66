package janitor

import (
	"context"
	"fmt"
)

// Transform is a mutation applied to a Frame. Streaming runs call Apply once per chunk.
type Transform interface {
	Name() string
	Apply(ctx context.Context, f *Frame) (*Frame, error)
}

// Closer is implemented by transforms that hold resources across chunks.
type Closer interface {
	Close() error
}

// Pipeline composes a sequence of Transforms.
type Pipeline struct {
	steps []Transform
}

func NewPipeline() *Pipeline { return &Pipeline{} }

func (p *Pipeline) Add(t Transform) *Pipeline {
	p.steps = append(p.steps, t)
	return p
}

// Steps returns the configured transforms in order.
func (p *Pipeline) Steps() []Transform { return p.steps }

func (p *Pipeline) Run(ctx context.Context, f *Frame) (*Frame, error) {
	var err error
	cur := f
	for _, t := range p.steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cur, err = t.Apply(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name(), err)
		}
	}
	return cur, nil
}

// Close releases every step that implements Closer and returns the first error.
func (p *Pipeline) Close() error {
	var first error
	for _, t := range p.steps {
		c, ok := t.(Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = fmt.Errorf("%s: %w", t.Name(), err)
		}
	}
	return first
}
