package csvio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	iox "github.com/wdm0006/jsjanitor/pkg/io/ioutils"
	j "github.com/wdm0006/jsjanitor/pkg/janitor"
)

type ReaderOptions struct {
	HasHeader  bool
	Delimiter  rune // 0 = sniff, default ','
	SampleRows int  // for inference; default 100
	Strict     bool // if true, error on short/long records
}

// Reader decodes CSV records into frames. Call InferSchema before reading.
type Reader struct {
	r      *csv.Reader
	closer io.Closer
	opt    ReaderOptions
	schema j.Schema
	buf    [][]string
	line   int

	shortRecords int
	longRecords  int
}

// Open opens a CSV file (or stdin for "-"), sniffing the delimiter when none
// is configured.
func Open(path string, opt ReaderOptions) (*Reader, error) {
	rc, err := iox.OpenMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	r := NewReaderFrom(rc, opt)
	r.closer = rc
	return r, nil
}

// NewReaderFrom constructs a Reader from an arbitrary io.Reader (stdin, pipe).
func NewReaderFrom(src io.Reader, opt ReaderOptions) *Reader {
	br := bufio.NewReader(src)
	rr := csv.NewReader(br)
	rr.FieldsPerRecord = -1
	if opt.Delimiter == 0 {
		sample, _ := br.Peek(4096)
		rr.Comma, rr.LazyQuotes = sniff(sample)
	} else {
		rr.Comma = opt.Delimiter
	}
	return &Reader{r: rr, opt: opt}
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// InferSchema reads the header (if present) and samples rows to determine
// column kinds. Sampled rows are retained for subsequent reads.
func (r *Reader) InferSchema() (j.Schema, error) {
	rec, err := r.read()
	if err != nil {
		return j.Schema{}, err
	}
	var names []string
	if r.opt.HasHeader {
		names = make([]string, len(rec))
		for i := range rec {
			names[i] = strings.ToValidUTF8(rec[i], "?")
		}
		if len(names) > 0 {
			names[0] = strings.TrimPrefix(names[0], "\ufeff")
		}
	} else {
		names = make([]string, len(rec))
		for i := range names {
			names[i] = "col_" + strconv.Itoa(i)
		}
		r.buf = append(r.buf, rec)
	}

	limit := r.opt.SampleRows
	if limit <= 0 {
		limit = 100
	}
	for len(r.buf) < limit {
		rec, err := r.read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return j.Schema{}, err
		}
		r.buf = append(r.buf, rec)
	}

	schema := j.Schema{Columns: make([]j.ColumnSchema, len(names))}
	for c := range names {
		var k iox.KindCounter
		for _, rec := range r.buf {
			if c < len(rec) {
				k.AddText(rec[c])
			}
		}
		schema.Columns[c] = j.ColumnSchema{Name: names[c], Type: k.Kind(), Nullable: true}
	}
	r.schema = schema
	return schema, nil
}

func (r *Reader) read() ([]string, error) {
	rec, err := r.r.Read()
	if err != nil {
		return nil, err
	}
	r.line++
	return rec, nil
}

// ReadAll loads the rest of the CSV into a Frame.
func (r *Reader) ReadAll() (*j.Frame, error) {
	f, err := r.readChunk(0)
	if errors.Is(err, io.EOF) {
		return j.NewFrame(r.schema), nil
	}
	return f, err
}

// readChunk reads up to n records (all when n <= 0). It returns io.EOF when
// no records remain.
func (r *Reader) readChunk(n int) (*j.Frame, error) {
	f := j.NewFrame(r.schema)
	for n <= 0 || f.Rows() < n {
		var rec []string
		if len(r.buf) > 0 {
			rec, r.buf = r.buf[0], r.buf[1:]
		} else {
			var err error
			rec, err = r.read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, err
			}
		}
		if err := r.append(f, rec); err != nil {
			return nil, err
		}
	}
	if f.Rows() == 0 {
		return nil, io.EOF
	}
	return f, nil
}

func (r *Reader) append(f *j.Frame, rec []string) error {
	cols := r.schema.Columns
	switch {
	case len(rec) < len(cols):
		r.shortRecords++
		if r.opt.Strict {
			return fmt.Errorf("csv line %d: short record: need %d fields, got %d", r.line, len(cols), len(rec))
		}
	case len(rec) > len(cols):
		r.longRecords++
		if r.opt.Strict {
			return fmt.Errorf("csv line %d: long record: need %d fields, got %d", r.line, len(cols), len(rec))
		}
	}
	f.AppendNullRow()
	row := f.Rows() - 1
	for i, cs := range cols {
		if i < len(rec) {
			iox.SetText(f, row, cs, rec[i])
		}
	}
	return nil
}

func sniff(sample []byte) (rune, bool) {
	if len(sample) == 0 {
		return ',', false
	}
	// only the first line is representative; later lines may be quoted text
	if i := strings.IndexByte(string(sample), '\n'); i > 0 {
		sample = sample[:i]
	}
	best, bestCount := byte(','), 0
	for _, c := range []byte{',', '\t', ';', '|'} {
		cnt := 0
		for _, b := range sample {
			if b == c {
				cnt++
			}
		}
		if cnt > bestCount {
			bestCount, best = cnt, c
		}
	}
	quotes := strings.Count(string(sample), `"`)
	return rune(best), quotes%2 != 0
}

// Warnings returns a summary string of any repairs/mismatches encountered.
func (r *Reader) Warnings() string {
	var parts []string
	if r.shortRecords > 0 {
		parts = append(parts, fmt.Sprintf("short_records=%d", r.shortRecords))
	}
	if r.longRecords > 0 {
		parts = append(parts, fmt.Sprintf("long_records=%d", r.longRecords))
	}
	return strings.Join(parts, ", ")
}
