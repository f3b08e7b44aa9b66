// Package profile summarises frames column by column: counts, nulls, numeric
// ranges, boolean splits and the most frequent text values.
package profile

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	j "github.com/wdm0006/jsjanitor/pkg/janitor"
)

type NumStats struct {
	Count int     `json:"count" yaml:"count"`
	Nulls int     `json:"nulls" yaml:"nulls"`
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
	Sum   float64 `json:"sum" yaml:"sum"`
	Mean  float64 `json:"mean" yaml:"mean"`
}

type BoolStats struct {
	Count int `json:"count" yaml:"count"`
	Nulls int `json:"nulls" yaml:"nulls"`
	True  int `json:"true" yaml:"true"`
	False int `json:"false" yaml:"false"`
}

type Freq struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

type StringStats struct {
	Count int    `json:"count" yaml:"count"`
	Nulls int    `json:"nulls" yaml:"nulls"`
	Top   []Freq `json:"top,omitempty" yaml:"top,omitempty"`
}

type ColumnProfile struct {
	Name string       `json:"name" yaml:"name"`
	Kind string       `json:"kind" yaml:"kind"`
	Num  *NumStats    `json:"num,omitempty" yaml:"num,omitempty"`
	Bool *BoolStats   `json:"bool,omitempty" yaml:"bool,omitempty"`
	Str  *StringStats `json:"str,omitempty" yaml:"str,omitempty"`
}

type Report struct {
	Rows    int             `json:"rows" yaml:"rows"`
	Columns []ColumnProfile `json:"columns" yaml:"columns"`
}

type column struct {
	name  string
	kind  j.Kind
	num   NumStats
	flags BoolStats
	str   StringStats
	freqs map[string]int
}

// Collector accumulates statistics over a stream of frames. Columns are
// registered on first sight, so columns added by the pipeline are profiled
// too. Rows seen before a column appeared do not count as nulls.
type Collector struct {
	cols  []*column
	index map[string]int
	topK  int
	rows  int
}

func NewCollector(topK int) *Collector {
	return &Collector{index: make(map[string]int), topK: topK}
}

// ConsumeFrame adds the frame's cells to the running statistics.
func (c *Collector) ConsumeFrame(f *j.Frame) {
	c.rows += f.Rows()
	for _, cs := range f.Schema().Columns {
		idx, ok := c.index[cs.Name]
		if !ok {
			idx = len(c.cols)
			c.index[cs.Name] = idx
			c.cols = append(c.cols, &column{
				name:  cs.Name,
				kind:  cs.Type,
				num:   NumStats{Min: math.Inf(1), Max: math.Inf(-1)},
				freqs: make(map[string]int),
			})
		}
		cp := c.cols[idx]
		col, _ := f.ColumnByName(cs.Name)
		for i := 0; i < col.Len(); i++ {
			cp.add(col.Value(i), c.topK)
		}
	}
}

func (cp *column) add(v any, topK int) {
	switch cp.kind {
	case j.KindFloat, j.KindInt:
		var x float64
		switch t := v.(type) {
		case nil:
			cp.num.Nulls++
			return
		case float64:
			x = t
		case int64:
			x = float64(t)
		}
		cp.num.Count++
		cp.num.Min = math.Min(cp.num.Min, x)
		cp.num.Max = math.Max(cp.num.Max, x)
		cp.num.Sum += x
	case j.KindBool:
		b, ok := v.(bool)
		if !ok {
			cp.flags.Nulls++
			return
		}
		cp.flags.Count++
		if b {
			cp.flags.True++
		} else {
			cp.flags.False++
		}
	default:
		if v == nil {
			cp.str.Nulls++
			return
		}
		cp.str.Count++
		if topK <= 0 {
			return
		}
		if t, ok := v.(time.Time); ok {
			cp.freqs[t.Format(time.RFC3339)]++
		} else {
			cp.freqs[fmt.Sprint(v)]++
		}
	}
}

// Report snapshots the statistics. Top values are ordered by count, then value.
func (c *Collector) Report() Report {
	out := Report{Rows: c.rows, Columns: make([]ColumnProfile, 0, len(c.cols))}
	for _, cp := range c.cols {
		p := ColumnProfile{Name: cp.name, Kind: cp.kind.String()}
		switch cp.kind {
		case j.KindFloat, j.KindInt:
			n := cp.num
			if n.Count == 0 {
				n.Min, n.Max = 0, 0
			} else {
				n.Mean = n.Sum / float64(n.Count)
			}
			p.Num = &n
		case j.KindBool:
			b := cp.flags
			p.Bool = &b
		default:
			s := cp.str
			s.Top = c.top(cp.freqs)
			p.Str = &s
		}
		out.Columns = append(out.Columns, p)
	}
	return out
}

func (c *Collector) top(freqs map[string]int) []Freq {
	if c.topK <= 0 || len(freqs) == 0 {
		return nil
	}
	all := make([]Freq, 0, len(freqs))
	for k, v := range freqs {
		all = append(all, Freq{Value: k, Count: v})
	}
	slices.SortFunc(all, func(a, b Freq) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return all[:min(c.topK, len(all))]
}

// Write renders the report as "text", "json" or "yaml".
func (c *Collector) Write(w io.Writer, format string) error {
	r := c.Report()
	switch format {
	case "", "text":
		return r.writeText(w)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("profile: unknown format %q", format)
	}
}

func (r Report) writeText(w io.Writer) error {
	var err error
	printf := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}
	printf("Profile Summary (%d rows)\n", r.Rows)
	for _, cp := range r.Columns {
		printf("- %s (%s): ", cp.Name, cp.Kind)
		switch {
		case cp.Num != nil:
			printf("count=%d nulls=%d min=%.6g max=%.6g mean=%.6g\n", cp.Num.Count, cp.Num.Nulls, cp.Num.Min, cp.Num.Max, cp.Num.Mean)
		case cp.Bool != nil:
			printf("count=%d nulls=%d true=%d false=%d\n", cp.Bool.Count, cp.Bool.Nulls, cp.Bool.True, cp.Bool.False)
		default:
			printf("count=%d nulls=%d\n", cp.Str.Count, cp.Str.Nulls)
			for _, f := range cp.Str.Top {
				printf("  * %q: %d\n", f.Value, f.Count)
			}
		}
	}
	return err
}
