package parquetio

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"time"

	local "github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	preader "github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"

	iox "github.com/wdm0006/jsjanitor/pkg/io/ioutils"
	j "github.com/wdm0006/jsjanitor/pkg/janitor"
)

// Reader reads the top-level columns of a Parquet file. The schema comes from
// the file footer; nested groups are rendered as JSON text.
type Reader struct {
	file   source.ParquetFile
	pr     *preader.ParquetReader
	schema j.Schema
	fields []field
	total  int64
	read   int64
}

type field struct {
	index  int // struct field index in the row type
	column j.ColumnSchema
	millis bool
}

func OpenReader(path string) (*Reader, error) {
	pf, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, err
	}
	rd, err := preader.NewParquetReader(pf, nil, 4)
	if err != nil {
		_ = pf.Close()
		return nil, fmt.Errorf("parquet reader init: %w", err)
	}
	r := &Reader{file: pf, pr: rd, total: rd.GetNumRows()}
	if err := r.describe(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

// describe maps root-level schema elements to frame columns.
func (r *Reader) describe() error {
	sh := r.pr.SchemaHandler
	rowType, err := sh.GetType(sh.GetRootInName())
	if err != nil {
		return err
	}
	elems := sh.SchemaElements
	for i, k := 1, 0; i < len(elems); i, k = i+subtree(elems, i), k+1 {
		el := elems[i]
		ft := rowType.Field(k).Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		fd := field{index: k, column: j.ColumnSchema{Name: sh.Infos[i].ExName, Type: j.KindString, Nullable: true}}
		switch ft.Kind() {
		case reflect.Bool:
			fd.column.Type = j.KindBool
		case reflect.Int32, reflect.Int64:
			fd.column.Type = j.KindInt
			if el.ConvertedType != nil && *el.ConvertedType == parquet.ConvertedType_TIMESTAMP_MILLIS {
				fd.column.Type, fd.millis = j.KindTime, true
			}
		case reflect.Float32, reflect.Float64:
			fd.column.Type = j.KindFloat
		}
		r.fields = append(r.fields, fd)
		r.schema.Columns = append(r.schema.Columns, fd.column)
	}
	return nil
}

// subtree returns the number of schema elements rooted at i.
func subtree(elems []*parquet.SchemaElement, i int) int {
	n := 1
	for c := int32(0); c < elems[i].GetNumChildren(); c++ {
		n += subtree(elems, i+n)
	}
	return n
}

func (r *Reader) Schema() j.Schema { return r.schema }

// Rows reports the row count recorded in the footer.
func (r *Reader) Rows() int64 { return r.total }

func (r *Reader) Close() error {
	r.pr.ReadStop()
	return r.file.Close()
}

func (r *Reader) ReadAll() (*j.Frame, error) {
	f, err := r.readChunk(int(r.total - r.read))
	if errors.Is(err, io.EOF) {
		return j.NewFrame(r.schema), nil
	}
	return f, err
}

func (r *Reader) readChunk(n int) (*j.Frame, error) {
	n = int(min(int64(n), r.total-r.read))
	if n <= 0 {
		return nil, io.EOF
	}
	rows, err := r.pr.ReadByNumber(n)
	if err != nil {
		return nil, fmt.Errorf("parquet read: %w", err)
	}
	r.read += int64(n)
	f := j.NewFrame(r.schema)
	for _, obj := range rows {
		rv := reflect.ValueOf(obj)
		f.AppendNullRow()
		row := f.Rows() - 1
		for _, fd := range r.fields {
			v := rv.Field(fd.index)
			if v.Kind() == reflect.Pointer {
				if v.IsNil() {
					continue
				}
				v = v.Elem()
			}
			if fd.millis {
				_ = f.SetCell(row, fd.column.Name, time.UnixMilli(v.Int()).UTC())
				continue
			}
			iox.SetValue(f, row, fd.column, v.Interface())
		}
	}
	return f, nil
}

// StreamReader yields Parquet rows in chunks.
type StreamReader struct {
	*Reader
	chunkSize int
}

func NewStreamReader(path string, chunkSize int) (*StreamReader, error) {
	r, err := OpenReader(path)
	if err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	return &StreamReader{Reader: r, chunkSize: chunkSize}, nil
}

func (s *StreamReader) Next() (*j.Frame, error) {
	offset := s.read
	f, err := s.readChunk(s.chunkSize)
	if err != nil {
		return nil, err
	}
	f.SetOffset(offset)
	return f, nil
}
