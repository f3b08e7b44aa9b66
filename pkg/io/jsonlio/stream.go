package jsonlio

import (
	"bufio"
	"encoding/json"
	"io"

	iox "github.com/wdm0006/jsjanitor/pkg/io/ioutils"
	j "github.com/wdm0006/jsjanitor/pkg/janitor"
)

type StreamReader struct {
	*Reader
	chunkSize int
	rows      int64
}

func NewStreamReader(path string, opt ReaderOptions, chunkSize int) (*StreamReader, error) {
	r, err := Open(path, opt)
	if err != nil {
		return nil, err
	}
	if _, err := r.InferSchema(); err != nil {
		_ = r.Close()
		return nil, err
	}
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	return &StreamReader{Reader: r, chunkSize: chunkSize}, nil
}

func (s *StreamReader) Next() (*j.Frame, error) {
	f, err := s.readChunk(s.chunkSize)
	if err != nil {
		return nil, err
	}
	f.SetOffset(s.rows)
	s.rows += int64(f.Rows())
	return f, nil
}

func (s *StreamReader) Schema() j.Schema { return s.schema }

// StreamWriter writes one JSON object per row. Null cells are omitted.
type StreamWriter struct {
	out io.WriteCloser
	w   *bufio.Writer
	enc *json.Encoder
}

func NewStreamWriter(path string) (*StreamWriter, error) {
	out, err := iox.CreateMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(out)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &StreamWriter{out: out, w: w, enc: enc}, nil
}

func (s *StreamWriter) Write(f *j.Frame) error {
	for r := 0; r < f.Rows(); r++ {
		if err := s.enc.Encode(iox.Record(f, r)); err != nil {
			return err
		}
	}
	return s.w.Flush()
}

func (s *StreamWriter) Close() error {
	if err := s.w.Flush(); err != nil {
		_ = s.out.Close()
		return err
	}
	return s.out.Close()
}
