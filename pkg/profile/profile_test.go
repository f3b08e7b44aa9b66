package profile

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	j "github.com/wdm0006/jsjanitor/pkg/janitor"
)

func frame(t *testing.T, vals []any) *j.Frame {
	t.Helper()
	f := j.NewFrame(j.Schema{Columns: []j.ColumnSchema{{Name: "n", Type: j.KindInt}}})
	for i, v := range vals {
		f.AppendNullRow()
		if err := f.SetCell(i, "n", v); err != nil {
			t.Fatal(err)
		}
	}
	return f
}

func TestCollectorAcrossChunks(t *testing.T) {
	c := NewCollector(2)
	first := frame(t, []any{int64(1), nil, int64(5)})
	c.ConsumeFrame(first)

	second := frame(t, []any{int64(3)})
	out := j.NewStringColumn("JavaScript output", 1)
	out.Set(0, "b")
	if err := second.AddColumn(out); err != nil {
		t.Fatal(err)
	}
	c.ConsumeFrame(second)

	third := frame(t, []any{int64(2), int64(2)})
	s := j.NewStringColumn("JavaScript output", 2)
	s.Set(0, "a")
	s.Set(1, "b")
	_ = third.AddColumn(s)
	c.ConsumeFrame(third)

	r := c.Report()
	if r.Rows != 6 || len(r.Columns) != 2 {
		t.Fatalf("report %+v", r)
	}
	n := r.Columns[0].Num
	if n.Count != 5 || n.Nulls != 1 || n.Min != 1 || n.Max != 5 || n.Mean != 13.0/5 {
		t.Fatalf("num %+v", n)
	}
	str := r.Columns[1].Str
	if str.Count != 3 || len(str.Top) != 2 || str.Top[0] != (Freq{"b", 2}) || str.Top[1] != (Freq{"a", 1}) {
		t.Fatalf("str %+v", str)
	}
}

func TestWriteFormats(t *testing.T) {
	c := NewCollector(5)
	c.ConsumeFrame(frame(t, []any{int64(4)}))

	var text bytes.Buffer
	if err := c.Write(&text, "text"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text.String(), "- n (int): count=1 nulls=0 min=4 max=4 mean=4") {
		t.Fatalf("text:\n%s", text.String())
	}

	var js bytes.Buffer
	if err := c.Write(&js, "json"); err != nil {
		t.Fatal(err)
	}
	var fromJSON Report
	if err := json.Unmarshal(js.Bytes(), &fromJSON); err != nil || fromJSON.Columns[0].Num.Max != 4 {
		t.Fatalf("json %v %s", err, js.String())
	}

	var ym bytes.Buffer
	if err := c.Write(&ym, "yaml"); err != nil {
		t.Fatal(err)
	}
	var fromYAML Report
	if err := yaml.Unmarshal(ym.Bytes(), &fromYAML); err != nil || fromYAML.Columns[0].Kind != "int" {
		t.Fatalf("yaml %v %s", err, ym.String())
	}

	if err := c.Write(&text, "xml"); err == nil {
		t.Fatal("expected unknown format error")
	}
}

func TestEmptyNumericColumn(t *testing.T) {
	c := NewCollector(0)
	c.ConsumeFrame(frame(t, []any{nil}))
	n := c.Report().Columns[0].Num
	if n.Min != 0 || n.Max != 0 || n.Nulls != 1 {
		t.Fatalf("num %+v", n)
	}
}
