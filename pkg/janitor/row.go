package janitor

// Row is read-only access to one record. Value returns nil for null cells and
// for columns the record does not carry.
type Row interface {
	ID() int64
	Value(column string) any
}

// FrameRow is a Row view over one frame index.
type FrameRow struct {
	f *Frame
	i int
}

// Row returns a view of row i. Its ID is 1-based and includes the frame offset.
func (f *Frame) Row(i int) FrameRow { return FrameRow{f: f, i: i} }

func (r FrameRow) ID() int64               { return r.f.offset + int64(r.i) + 1 }
func (r FrameRow) Index() int              { return r.i }
func (r FrameRow) Value(column string) any { return r.f.Value(r.i, column) }

// MapRow is a Row backed by a map, handy for callers that do not hold a Frame.
type MapRow struct {
	RowID  int64
	Values map[string]any
}

func (r MapRow) ID() int64               { return r.RowID }
func (r MapRow) Value(column string) any { return r.Values[column] }
