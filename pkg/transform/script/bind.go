package script

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wdm0006/jsjanitor/pkg/janitor"
)

// DefaultArrayName is the binding that holds a row's values in column order.
const DefaultArrayName = "values"

// Scope is the set of names one row exposes to the script. Insertion order is
// kept; rebinding a name replaces its value in place.
type Scope struct {
	RowID  int64
	names  []string
	values map[string]any
}

func newScope(rowID int64, size int) *Scope {
	return &Scope{RowID: rowID, names: make([]string, 0, size), values: make(map[string]any, size)}
}

func (s *Scope) set(name string, v any) {
	if _, ok := s.values[name]; !ok {
		s.names = append(s.names, name)
	}
	s.values[name] = v
}

// Names returns the bound names in first-bound order.
func (s *Scope) Names() []string { return s.names }

func (s *Scope) Lookup(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s *Scope) Len() int { return len(s.names) }

// Binder precomputes the aliases of a fixed column list so that per-row
// binding does no case mapping.
type Binder struct {
	columns   []janitor.ColumnSchema
	aliases   [][]string
	arrayName string
}

func NewBinder(columns []janitor.ColumnSchema, arrayName string) *Binder {
	if arrayName == "" {
		arrayName = DefaultArrayName
	}
	b := &Binder{
		columns:   columns,
		aliases:   make([][]string, len(columns)),
		arrayName: identifier(arrayName),
	}
	for i, c := range columns {
		b.aliases[i] = Aliases(c.Name)
	}
	return b
}

// Names returns every name the binder can bind, array name last.
func (b *Binder) Names() []string {
	var out []string
	for _, a := range b.aliases {
		out = append(out, a...)
	}
	return append(out, b.arrayName)
}

// Bind reads the row's columns in order. Aliases that collide are won by the
// later column, and the array binding is written last.
func (b *Binder) Bind(row janitor.Row) *Scope {
	s := newScope(row.ID(), len(b.columns)*3+1)
	vals := make([]any, len(b.columns))
	for i, c := range b.columns {
		v := row.Value(c.Name)
		vals[i] = v
		for _, alias := range b.aliases[i] {
			s.set(alias, v)
		}
	}
	s.set(b.arrayName, vals)
	return s
}

// Bind builds the scope of one row without a reusable Binder.
func Bind(row janitor.Row, columns []janitor.ColumnSchema, arrayName string) *Scope {
	return NewBinder(columns, arrayName).Bind(row)
}

// Aliases returns the exact, lower-case and upper-case identifiers for a
// column name. Duplicates are removed.
func Aliases(name string) []string {
	out := []string{identifier(name)}
	for _, c := range []cases.Caser{cases.Lower(language.Und), cases.Upper(language.Und)} {
		alias := identifier(c.String(name))
		dup := false
		for _, seen := range out {
			if seen == alias {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, alias)
		}
	}
	return out
}

func identifier(name string) string { return strings.ReplaceAll(name, " ", "_") }
