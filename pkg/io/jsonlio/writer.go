package jsonlio

import (
	j "github.com/wdm0006/jsjanitor/pkg/janitor"
)

func WriteAll(path string, f *j.Frame) error {
	w, err := NewStreamWriter(path)
	if err != nil {
		return err
	}
	if err := w.Write(f); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
