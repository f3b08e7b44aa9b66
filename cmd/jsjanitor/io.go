package main

import (
	"fmt"
	"io"

	"github.com/wdm0006/jsjanitor/internal/config"
	"github.com/wdm0006/jsjanitor/pkg/io/csvio"
	"github.com/wdm0006/jsjanitor/pkg/io/jsonlio"
	"github.com/wdm0006/jsjanitor/pkg/io/parquetio"
	j "github.com/wdm0006/jsjanitor/pkg/janitor"
)

// source is satisfied by every format's stream reader.
type source interface {
	Next() (*j.Frame, error)
	ReadAll() (*j.Frame, error)
	Schema() j.Schema
	Close() error
}

func openSource(in config.Input, chunk int) (source, error) {
	switch in.Type {
	case "", "csv":
		opt := csvio.ReaderOptions{HasHeader: in.HasHeader, Delimiter: config.Delim(in.Delimiter), SampleRows: in.SampleRows}
		return csvio.NewStreamReader(in.Path, opt, chunk)
	case "jsonl":
		return jsonlio.NewStreamReader(in.Path, jsonlio.ReaderOptions{SampleRows: in.SampleRows}, chunk)
	case "parquet":
		return parquetio.NewStreamReader(in.Path, chunk)
	default:
		return nil, fmt.Errorf("unsupported input type %q", in.Type)
	}
}

func openSink(out config.Output) (j.ChunkSink, error) {
	switch out.Type {
	case "", "csv":
		return csvio.NewStreamWriter(out.Path, csvio.WriterOptions{Delimiter: config.Delim(out.Delimiter)})
	case "jsonl":
		return jsonlio.NewStreamWriter(out.Path)
	case "parquet":
		return parquetio.NewStreamWriter(out.Path), nil
	default:
		return nil, fmt.Errorf("unsupported output type %q", out.Type)
	}
}

// batchSource hands the whole input to the pipeline as one frame.
type batchSource struct {
	r    source
	done bool
}

func (b *batchSource) Next() (*j.Frame, error) {
	if b.done {
		return nil, io.EOF
	}
	b.done = true
	return b.r.ReadAll()
}
