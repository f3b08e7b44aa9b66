package janitor

import (
	"context"
	"errors"
	"io"
)

// ChunkSource yields frames in chunks until io.EOF.
type ChunkSource interface {
	Next() (*Frame, error)
}

// ChunkSink consumes frames, typically writing them out.
type ChunkSink interface {
	Write(*Frame) error
	Close() error
}

// ChunkObserver sees every transformed chunk before it reaches the sink.
type ChunkObserver func(*Frame)

// RunStream pulls chunks from src, applies the pipeline, and writes to sink.
// Observers run in order on each transformed chunk.
func RunStream(ctx context.Context, p *Pipeline, src ChunkSource, sink ChunkSink, observers ...ChunkObserver) (err error) {
	defer func() {
		if cerr := sink.Close(); err == nil {
			err = cerr
		}
	}()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		out, err := p.Run(ctx, f)
		if err != nil {
			return err
		}
		for _, obs := range observers {
			obs(out)
		}
		if err := sink.Write(out); err != nil {
			return err
		}
	}
}
