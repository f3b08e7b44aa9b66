package parquetio

import (
	"encoding/json"
	"fmt"
	"time"

	local "github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
	pw "github.com/xitongsys/parquet-go/writer"

	j "github.com/wdm0006/jsjanitor/pkg/janitor"
)

func parquetSchemaJSON(s j.Schema) string {
	type field struct {
		Tag string `json:"Tag"`
	}
	type schema struct {
		Tag    string  `json:"Tag"`
		Fields []field `json:"Fields"`
	}
	sc := schema{Tag: "name=schema, repetitiontype=REQUIRED"}
	for _, cs := range s.Columns {
		tag := "name=" + cs.Name + ", repetitiontype=OPTIONAL, type="
		switch cs.Type {
		case j.KindFloat:
			tag += "DOUBLE"
		case j.KindInt:
			tag += "INT64"
		case j.KindBool:
			tag += "BOOLEAN"
		case j.KindTime:
			tag += "INT64, convertedtype=TIMESTAMP_MILLIS"
		default:
			tag += "BYTE_ARRAY, convertedtype=UTF8"
		}
		sc.Fields = append(sc.Fields, field{Tag: tag})
	}
	b, _ := json.Marshal(sc)
	return string(b)
}

// StreamWriter writes frames as Parquet rows. The file schema is fixed by the
// first frame written; no file is created if nothing is written.
type StreamWriter struct {
	path   string
	file   source.ParquetFile
	w      *pw.JSONWriter
	schema j.Schema
}

func NewStreamWriter(path string) *StreamWriter { return &StreamWriter{path: path} }

func (s *StreamWriter) Write(f *j.Frame) error {
	if s.w == nil {
		fw, err := local.NewLocalFileWriter(s.path)
		if err != nil {
			return err
		}
		s.schema = f.Schema()
		w, err := pw.NewJSONWriter(parquetSchemaJSON(s.schema), fw, 4)
		if err != nil {
			_ = fw.Close()
			return fmt.Errorf("parquet writer init: %w", err)
		}
		s.file, s.w = fw, w
	}
	for r := 0; r < f.Rows(); r++ {
		rec := make(map[string]any, len(s.schema.Columns))
		for _, cs := range s.schema.Columns {
			switch v := f.Value(r, cs.Name).(type) {
			case nil:
			case time.Time:
				rec[cs.Name] = v.UnixMilli()
			default:
				rec[cs.Name] = v
			}
		}
		b, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := s.w.Write(string(b)); err != nil {
			return fmt.Errorf("parquet write row: %w", err)
		}
	}
	return nil
}

func (s *StreamWriter) Close() error {
	if s.w == nil {
		return nil
	}
	if err := s.w.WriteStop(); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

// WriteAll writes a Frame to a Parquet file.
func WriteAll(path string, f *j.Frame) error {
	w := NewStreamWriter(path)
	if err := w.Write(f); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
