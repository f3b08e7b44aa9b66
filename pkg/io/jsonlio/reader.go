package jsonlio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	iox "github.com/wdm0006/jsjanitor/pkg/io/ioutils"
	j "github.com/wdm0006/jsjanitor/pkg/janitor"
)

type ReaderOptions struct {
	SampleRows int
}

// Reader decodes one JSON object per line. Columns appear in the order their
// keys are first seen in the sample.
type Reader struct {
	dec    *json.Decoder
	closer io.Closer
	opt    ReaderOptions
	schema j.Schema
	buf    []map[string]any
	record int
}

func Open(path string, opt ReaderOptions) (*Reader, error) {
	rc, err := iox.OpenMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	r := NewReaderFrom(rc, opt)
	r.closer = rc
	return r, nil
}

func NewReaderFrom(src io.Reader, opt ReaderOptions) *Reader {
	return &Reader{dec: json.NewDecoder(src), opt: opt}
}

func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func (r *Reader) InferSchema() (j.Schema, error) {
	limit := r.opt.SampleRows
	if limit <= 0 {
		limit = 100
	}
	var keys []string
	counters := map[string]*iox.KindCounter{}
	for len(r.buf) < limit {
		raw, m, err := r.decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return j.Schema{}, err
		}
		r.buf = append(r.buf, m)
		for _, k := range objectKeys(raw) {
			if _, seen := counters[k]; !seen {
				counters[k] = &iox.KindCounter{}
				keys = append(keys, k)
			}
			counters[k].AddValue(m[k])
		}
	}
	r.schema = j.Schema{Columns: make([]j.ColumnSchema, len(keys))}
	for i, k := range keys {
		r.schema.Columns[i] = j.ColumnSchema{Name: k, Type: counters[k].Kind(), Nullable: true}
	}
	return r.schema, nil
}

func (r *Reader) decode() (json.RawMessage, map[string]any, error) {
	var raw json.RawMessage
	if err := r.dec.Decode(&raw); err != nil {
		return nil, nil, err
	}
	r.record++
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return nil, nil, fmt.Errorf("jsonl record %d: expected an object", r.record)
	}
	return raw, m, nil
}

// objectKeys lists the top-level keys of a JSON object in document order.
func objectKeys(raw []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		k, _ := tok.(string)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
		keys = append(keys, k)
	}
	return keys
}

func (r *Reader) ReadAll() (*j.Frame, error) {
	f, err := r.readChunk(0)
	if errors.Is(err, io.EOF) {
		return j.NewFrame(r.schema), nil
	}
	return f, err
}

func (r *Reader) readChunk(n int) (*j.Frame, error) {
	f := j.NewFrame(r.schema)
	for n <= 0 || f.Rows() < n {
		var m map[string]any
		if len(r.buf) > 0 {
			m, r.buf = r.buf[0], r.buf[1:]
		} else {
			var err error
			_, m, err = r.decode()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, err
			}
		}
		f.AppendNullRow()
		row := f.Rows() - 1
		for _, cs := range r.schema.Columns {
			iox.SetValue(f, row, cs, m[cs.Name])
		}
	}
	if f.Rows() == 0 {
		return nil, io.EOF
	}
	return f, nil
}
