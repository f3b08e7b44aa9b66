package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wdm0006/jsjanitor/pkg/janitor"
)

// ReturnType is the declared type of the output column.
type ReturnType int

const (
	Text ReturnType = iota
	Number
	Boolean
)

func (t ReturnType) String() string {
	switch t {
	case Text:
		return "string"
	case Number:
		return "number"
	case Boolean:
		return "boolean"
	default:
		return "ReturnType(" + strconv.Itoa(int(t)) + ")"
	}
}

// Kind maps the return type to the frame column kind that stores it.
func (t ReturnType) Kind() janitor.Kind {
	switch t {
	case Number:
		return janitor.KindFloat
	case Boolean:
		return janitor.KindBool
	default:
		return janitor.KindString
	}
}

// ParseReturnType accepts string|text, number and boolean|bool in any case.
func ParseReturnType(s string) (ReturnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "string", "text":
		return Text, nil
	case "number":
		return Number, nil
	case "boolean", "bool":
		return Boolean, nil
	default:
		return Text, fmt.Errorf("script: unknown return type %q", s)
	}
}

// Value is one output cell: null or a value of the declared type.
type Value struct {
	kind ReturnType
	null bool
	text string
	num  float64
	b    bool
}

// Null is an untyped null; its Type is Text. Prefer NullOf when the declared
// type is known.
func Null() Value { return Value{null: true} }

// NullOf is a null of declared type t.
func NullOf(t ReturnType) Value { return Value{kind: t, null: true} }

func TextValue(s string) Value    { return Value{kind: Text, text: s} }
func NumberValue(f float64) Value { return Value{kind: Number, num: f} }
func BooleanValue(b bool) Value   { return Value{kind: Boolean, b: b} }

func (v Value) IsNull() bool     { return v.null }
// Type reports the declared type of v, which null values carry too.
func (v Value) Type() ReturnType { return v.kind }

func (v Value) Text() (string, bool)    { return v.text, !v.null && v.kind == Text }
func (v Value) Number() (float64, bool) { return v.num, !v.null && v.kind == Number }
func (v Value) Boolean() (bool, bool)   { return v.b, !v.null && v.kind == Boolean }

// Any returns the Go value of v, or nil when it is null.
func (v Value) Any() any {
	if v.null {
		return nil
	}
	switch v.kind {
	case Number:
		return v.num
	case Boolean:
		return v.b
	default:
		return v.text
	}
}

func (v Value) String() string {
	if v.null {
		return "null"
	}
	return fmt.Sprint(v.Any())
}
