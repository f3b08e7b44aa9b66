// Package script is a pipeline stage that derives one output column by
// evaluating a JavaScript snippet against every row.
//
// The snippet is compiled once. Each row is bound into a fresh scope under
// its column names (exact, lower-case and upper-case, spaces replaced by
// underscores) and as an array, by default named values. The value of the
// last expression statement is coerced to the declared return type. A row
// whose evaluation throws yields a null output and an execution-log message;
// the remaining rows are unaffected.
//
//	t := &script.Transformer{
//		Columns:    []janitor.ColumnSchema{{Name: "first"}, {Name: "last"}},
//		SourceCode: `values[0] + " " + values[1]`,
//		ReturnType: script.Text,
//		OutputName: "full_name",
//	}
//	if err := t.Initialize(); err != nil { ... }
//	defer t.Close()
//	out, err := t.Apply(ctx, frame)
package script
