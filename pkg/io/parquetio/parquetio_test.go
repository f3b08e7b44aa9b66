package parquetio

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	j "github.com/wdm0006/jsjanitor/pkg/janitor"
)

func makeFrame(rows int) *j.Frame {
	s := j.Schema{Columns: []j.ColumnSchema{
		{Name: "a", Type: j.KindFloat, Nullable: true},
		{Name: "b", Type: j.KindInt, Nullable: true},
		{Name: "label", Type: j.KindString, Nullable: true},
		{Name: "ok", Type: j.KindBool, Nullable: true},
		{Name: "at", Type: j.KindTime, Nullable: true},
	}}
	f := j.NewFrame(s)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < rows; i++ {
		f.AppendNullRow()
		_ = f.SetCell(i, "a", float64(i%100)+0.5)
		_ = f.SetCell(i, "b", int64(i%10))
		if i%3 != 0 {
			_ = f.SetCell(i, "label", "row")
		}
		_ = f.SetCell(i, "ok", i%2 == 0)
		_ = f.SetCell(i, "at", base.Add(time.Duration(i)*time.Minute))
	}
	return f
}

func TestRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.parquet")
	if err := WriteAll(p, makeFrame(30)); err != nil {
		t.Fatal(err)
	}
	r, err := OpenReader(p)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r.Close() }()
	want := map[string]j.Kind{"a": j.KindFloat, "b": j.KindInt, "label": j.KindString, "ok": j.KindBool, "at": j.KindTime}
	for _, cs := range r.Schema().Columns {
		if want[cs.Name] != cs.Type {
			t.Fatalf("%s: got %v", cs.Name, cs.Type)
		}
	}
	fr, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if fr.Rows() != 30 {
		t.Fatalf("rows %d", fr.Rows())
	}
	if fr.Value(0, "label") != nil || fr.Value(1, "label") != "row" {
		t.Fatalf("label %v %v", fr.Value(0, "label"), fr.Value(1, "label"))
	}
	if fr.Value(7, "b") != int64(7) || fr.Value(2, "a") != 2.5 {
		t.Fatalf("cells %v %v", fr.Value(7, "b"), fr.Value(2, "a"))
	}
	at, _ := fr.Value(2, "at").(time.Time)
	if !at.Equal(time.Date(2024, 3, 1, 0, 2, 0, 0, time.UTC)) {
		t.Fatalf("at %v", at)
	}
}

func TestStreamReader(t *testing.T) {
	p := filepath.Join(t.TempDir(), "s.parquet")
	if err := WriteAll(p, makeFrame(25)); err != nil {
		t.Fatal(err)
	}
	sr, err := NewStreamReader(p, 10)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = sr.Close() }()
	var offsets []int64
	for {
		fr, err := sr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		offsets = append(offsets, fr.Offset())
	}
	if len(offsets) != 3 || offsets[2] != 20 {
		t.Fatalf("offsets %v", offsets)
	}
}

func BenchmarkParquetWrite(b *testing.B) {
	f := makeFrame(50000)
	path := filepath.Join(b.TempDir(), "bench.parquet")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := WriteAll(path, f); err != nil {
			b.Fatal(err)
		}
	}
}
