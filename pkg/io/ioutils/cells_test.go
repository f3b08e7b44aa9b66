package ioutils

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	j "github.com/wdm0006/jsjanitor/pkg/janitor"
)

func TestKindCounter(t *testing.T) {
	tests := []struct {
		text []string
		want j.Kind
	}{
		{[]string{"1", "2", ""}, j.KindInt},
		{[]string{"1", "2.5"}, j.KindFloat},
		{[]string{"true", "FALSE"}, j.KindBool},
		{[]string{"1", "abc", "def"}, j.KindString},
		{nil, j.KindString},
	}
	for _, tt := range tests {
		var k KindCounter
		for _, v := range tt.text {
			k.AddText(v)
		}
		if got := k.Kind(); got != tt.want {
			t.Fatalf("%v: got %v want %v", tt.text, got, tt.want)
		}
	}
	var k KindCounter
	for _, v := range []any{1.0, int64(2), nil} {
		k.AddValue(v)
	}
	if k.Kind() != j.KindInt {
		t.Fatalf("values: %v", k.Kind())
	}
}

func TestSetAndFormat(t *testing.T) {
	s := j.Schema{Columns: []j.ColumnSchema{
		{Name: "f", Type: j.KindFloat}, {Name: "i", Type: j.KindInt}, {Name: "b", Type: j.KindBool},
		{Name: "s", Type: j.KindString}, {Name: "t", Type: j.KindTime},
	}}
	f := j.NewFrame(s)
	f.AppendNullRow()
	SetText(f, 0, s.Columns[0], " 1.5 ")
	SetValue(f, 0, s.Columns[1], 7.0)
	SetText(f, 0, s.Columns[2], "TRUE")
	SetValue(f, 0, s.Columns[3], map[string]any{"k": 1})
	SetText(f, 0, s.Columns[4], "2024-03-01T12:00:00Z")

	want := map[string]string{"f": "1.5", "i": "7", "b": "true", "s": `{"k":1}`, "t": "2024-03-01T12:00:00Z"}
	for name, w := range want {
		c, _ := f.ColumnByName(name)
		if got := FormatText(c, 0); got != w {
			t.Fatalf("%s: got %q want %q", name, got, w)
		}
	}
	rec := Record(f, 0)
	if rec["t"] != "2024-03-01T12:00:00Z" || rec["i"] != int64(7) {
		t.Fatalf("record %v", rec)
	}

	f.AppendNullRow()
	SetText(f, 1, s.Columns[1], "not a number")
	if len(Record(f, 1)) != 0 {
		t.Fatal("unparsable and missing cells should stay null")
	}
	if _, ok := f.Value(1, "t").(time.Time); ok {
		t.Fatal("time should be null")
	}
}

func TestCompressedRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data.txt.gz")
	w, err := CreateMaybeCompressed(p)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.WriteString(w, "hello\n")
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	raw, _ := os.ReadFile(p)
	if _, err := gzip.NewReader(bytes.NewReader(raw)); err != nil {
		t.Fatalf("not gzip: %v", err)
	}
	r, err := OpenMaybeCompressed(p)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	b, _ := io.ReadAll(r)
	if string(b) != "hello\n" {
		t.Fatalf("got %q", b)
	}
}
