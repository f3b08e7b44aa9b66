// Command benchjanitor measures scripted-stage throughput on generated rows.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"runtime"
	"time"

	j "github.com/wdm0006/jsjanitor/pkg/janitor"
	"github.com/wdm0006/jsjanitor/pkg/transform/script"
)

type genSource struct {
	schema j.Schema
	remain int
	chunk  int
	missp  float64
	rnd    *rand.Rand
	offset int64
}

func (g *genSource) Next() (*j.Frame, error) {
	if g.remain <= 0 {
		return nil, io.EOF
	}
	n := min(g.chunk, g.remain)
	g.remain -= n
	f := j.NewFrame(g.schema)
	f.SetOffset(g.offset)
	g.offset += int64(n)
	for i := 0; i < n; i++ {
		f.AppendNullRow()
		for _, cs := range g.schema.Columns {
			if g.rnd.Float64() < g.missp {
				continue
			}
			switch cs.Type {
			case j.KindFloat:
				_ = f.SetCell(i, cs.Name, g.rnd.Float64()*100)
			case j.KindString:
				_ = f.SetCell(i, cs.Name, fmt.Sprintf("name-%d", g.rnd.Intn(1000)))
			}
		}
	}
	return f, nil
}

type blackholeSink struct{ rows int }

func (b *blackholeSink) Write(f *j.Frame) error { b.rows += f.Rows(); return nil }
func (b *blackholeSink) Close() error           { return nil }

const benchSource = `
var total = 0;
for (var i = 0; i < values.length; i++) {
	if (typeof values[i] === "number") total += values[i];
}
total`

func main() {
	var (
		rows    = flag.Int("rows", 200_000, "total rows to generate")
		chunk   = flag.Int("chunk", 10_000, "rows per chunk")
		fcols   = flag.Int("float-cols", 4, "number of float columns")
		workers = flag.Int("workers", runtime.GOMAXPROCS(0), "parallel script evaluations per chunk")
		missp   = flag.Float64("missing", 0.05, "probability of missing values in each cell")
		src     = flag.String("source", benchSource, "script evaluated per row")
		jsonOut = flag.Bool("json", false, "emit JSON summary")
		seed    = flag.Int64("seed", 42, "random seed")
	)
	flag.Parse()

	var cols []j.ColumnSchema
	for i := 0; i < *fcols; i++ {
		cols = append(cols, j.ColumnSchema{Name: fmt.Sprintf("f%d", i), Type: j.KindFloat, Nullable: true})
	}
	cols = append(cols, j.ColumnSchema{Name: "label", Type: j.KindString, Nullable: true})
	schema := j.Schema{Columns: cols}

	stage := &script.Transformer{
		Columns:    cols,
		SourceCode: *src,
		ReturnType: script.Number,
		OutputName: "total",
		Workers:    *workers,
		Logger:     slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	}
	if err := stage.Initialize(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	p := j.NewPipeline().Add(stage)
	defer func() { _ = p.Close() }()

	gen := &genSource{schema: schema, remain: *rows, chunk: *chunk, missp: *missp, rnd: rand.New(rand.NewSource(*seed))}
	sink := &blackholeSink{}

	runtime.GC()
	var msBefore, msAfter runtime.MemStats
	runtime.ReadMemStats(&msBefore)
	start := time.Now()
	if err := j.RunStream(context.Background(), p, gen, sink); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	elapsed := time.Since(start)
	runtime.ReadMemStats(&msAfter)

	rowsPerSec := float64(sink.rows) / elapsed.Seconds()
	summary := map[string]any{
		"rows":                  sink.rows,
		"elapsed_ms":            elapsed.Milliseconds(),
		"rows_per_sec":          rowsPerSec,
		"runtimes":              stage.Executor().Runtimes(),
		"workers":               *workers,
		"mem_total_alloc_bytes": msAfter.TotalAlloc - msBefore.TotalAlloc,
		"gc_num":                msAfter.NumGC - msBefore.NumGC,
		"chunk":                 *chunk,
		"missing_prob":          *missp,
	}

	if *jsonOut {
		b, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(b))
		return
	}
	fmt.Printf("Rows: %d\n", sink.rows)
	fmt.Printf("Elapsed: %s\n", elapsed)
	fmt.Printf("Throughput: %.0f rows/s\n", rowsPerSec)
	fmt.Printf("Runtimes created: %d\n", stage.Executor().Runtimes())
	fmt.Printf("Total Alloc (delta): %d MB\n", (msAfter.TotalAlloc-msBefore.TotalAlloc)/1024/1024)
	fmt.Printf("GC cycles (delta): %d\n", msAfter.NumGC-msBefore.NumGC)
}
