package ioutils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	j "github.com/wdm0006/jsjanitor/pkg/janitor"
)

// TimeLayout is used to render and parse time cells in text formats.
const TimeLayout = time.RFC3339Nano

var numRe = regexp.MustCompile(`^[-+]?[0-9]*\.?[0-9]+([eE][-+]?[0-9]+)?$`)

// KindCounter tallies sampled values of one column to pick its kind.
type KindCounter struct {
	num, integer, boolean, str int
}

// AddText counts a textual sample value. Blank values are ignored.
func (k *KindCounter) AddText(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	switch lv := strings.ToLower(v); {
	case numRe.MatchString(v):
		k.num++
		if !strings.ContainsAny(v, ".eE") {
			k.integer++
		}
	case lv == "true" || lv == "false":
		k.boolean++
	default:
		k.str++
	}
}

// AddValue counts a decoded sample value (JSON or Parquet).
func (k *KindCounter) AddValue(v any) {
	switch t := v.(type) {
	case nil:
	case float64:
		k.num++
		if float64(int64(t)) == t {
			k.integer++
		}
	case float32:
		k.num++
	case int, int32, int64:
		k.num++
		k.integer++
	case bool:
		k.boolean++
	case string:
		k.AddText(t)
	default:
		k.str++
	}
}

// Kind returns the inferred kind. Numbers win over text by majority and a
// column with only booleans is boolean.
func (k *KindCounter) Kind() j.Kind {
	switch {
	case k.boolean > 0 && k.num == 0 && k.str == 0:
		return j.KindBool
	case k.num > k.str+k.boolean:
		if k.integer == k.num {
			return j.KindInt
		}
		return j.KindFloat
	default:
		return j.KindString
	}
}

// SetText parses a textual cell into the row's column. Blank or unparsable
// values leave the cell null.
func SetText(f *j.Frame, row int, cs j.ColumnSchema, val string) {
	val = strings.ToValidUTF8(strings.TrimSpace(val), "?")
	if val == "" {
		return
	}
	switch cs.Type {
	case j.KindFloat:
		if x, err := strconv.ParseFloat(val, 64); err == nil {
			_ = f.SetCell(row, cs.Name, x)
		}
	case j.KindInt:
		if x, err := strconv.ParseInt(val, 10, 64); err == nil {
			_ = f.SetCell(row, cs.Name, x)
		}
	case j.KindBool:
		if x, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			_ = f.SetCell(row, cs.Name, x)
		}
	case j.KindTime:
		if x, err := time.Parse(TimeLayout, val); err == nil {
			_ = f.SetCell(row, cs.Name, x)
		}
	default:
		_ = f.SetCell(row, cs.Name, val)
	}
}

// SetValue stores a decoded value, converting between numeric, boolean and
// text representations where the column kind requires it.
func SetValue(f *j.Frame, row int, cs j.ColumnSchema, v any) {
	switch t := v.(type) {
	case nil:
		return
	case string:
		SetText(f, row, cs, t)
		return
	case []byte:
		SetText(f, row, cs, string(t))
		return
	}
	switch cs.Type {
	case j.KindFloat:
		switch t := v.(type) {
		case float64:
			_ = f.SetCell(row, cs.Name, t)
		case float32:
			_ = f.SetCell(row, cs.Name, float64(t))
		case int64:
			_ = f.SetCell(row, cs.Name, float64(t))
		case int32:
			_ = f.SetCell(row, cs.Name, float64(t))
		case int:
			_ = f.SetCell(row, cs.Name, float64(t))
		}
	case j.KindInt:
		switch t := v.(type) {
		case float64:
			_ = f.SetCell(row, cs.Name, int64(t))
		case int64:
			_ = f.SetCell(row, cs.Name, t)
		case int32:
			_ = f.SetCell(row, cs.Name, int64(t))
		case int:
			_ = f.SetCell(row, cs.Name, int64(t))
		}
	case j.KindBool:
		if b, ok := v.(bool); ok {
			_ = f.SetCell(row, cs.Name, b)
		}
	case j.KindTime:
		if tm, ok := v.(time.Time); ok {
			_ = f.SetCell(row, cs.Name, tm)
		}
	default:
		if b, err := json.Marshal(v); err == nil {
			_ = f.SetCell(row, cs.Name, string(b))
		} else {
			_ = f.SetCell(row, cs.Name, fmt.Sprint(v))
		}
	}
}

// FormatText renders a cell for text formats; null renders as "".
func FormatText(c j.Column, row int) string {
	switch v := c.Value(row).(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case string:
		return v
	case time.Time:
		return v.Format(TimeLayout)
	default:
		return fmt.Sprint(v)
	}
}

// Record returns row as a map keyed by column name, omitting null cells.
// Time cells are rendered with TimeLayout.
func Record(f *j.Frame, row int) map[string]any {
	cols := f.Schema().Columns
	m := make(map[string]any, len(cols))
	for _, cs := range cols {
		v := f.Value(row, cs.Name)
		switch t := v.(type) {
		case nil:
			continue
		case time.Time:
			m[cs.Name] = t.Format(TimeLayout)
		default:
			m[cs.Name] = v
		}
	}
	return m
}
