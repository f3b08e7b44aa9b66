package csvio

import (
	j "github.com/wdm0006/jsjanitor/pkg/janitor"
)

type WriterOptions struct {
	Delimiter rune // default ','
}

// WriteAll writes a Frame to a CSV file with headers. Empty frames still get
// a header line.
func WriteAll(path string, f *j.Frame, opt WriterOptions) error {
	w, err := NewStreamWriter(path, opt)
	if err != nil {
		return err
	}
	if err := w.Write(f); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
