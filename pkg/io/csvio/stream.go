package csvio

import (
	"encoding/csv"
	"io"

	iox "github.com/wdm0006/jsjanitor/pkg/io/ioutils"
	j "github.com/wdm0006/jsjanitor/pkg/janitor"
)

// StreamReader reads CSV into Frame chunks of up to ChunkSize rows.
type StreamReader struct {
	*Reader
	chunkSize int
	rows      int64
}

// NewStreamReader opens the file, infers schema (respecting options), and returns a StreamReader.
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

// Next returns the next chunk frame or io.EOF when complete.
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

// StreamWriter appends frames to a CSV file. The header is taken from the
// first frame written, so columns added by the pipeline are included.
type StreamWriter struct {
	w      *csv.Writer
	out    io.WriteCloser
	header []string
}

func NewStreamWriter(path string, opt WriterOptions) (*StreamWriter, error) {
	out, err := iox.CreateMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(out)
	if opt.Delimiter != 0 {
		w.Comma = opt.Delimiter
	}
	return &StreamWriter{w: w, out: out}, nil
}

func (s *StreamWriter) Write(fr *j.Frame) error {
	if s.header == nil {
		s.header = fr.Schema().Names()
		if err := s.w.Write(s.header); err != nil {
			return err
		}
	}
	cols := make([]j.Column, len(s.header))
	for i, name := range s.header {
		cols[i], _ = fr.ColumnByName(name)
	}
	rec := make([]string, len(cols))
	for r := 0; r < fr.Rows(); r++ {
		for c, col := range cols {
			rec[c] = ""
			if col != nil {
				rec[c] = iox.FormatText(col, r)
			}
		}
		if err := s.w.Write(rec); err != nil {
			return err
		}
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *StreamWriter) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		_ = s.out.Close()
		return err
	}
	return s.out.Close()
}
