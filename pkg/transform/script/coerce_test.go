package script

import (
	"context"
	"testing"

	"github.com/dop251/goja"
)

func TestCoerce(t *testing.T) {
	vm := goja.New()
	eval := func(src string) goja.Value {
		v, err := vm.RunString(src)
		if err != nil {
			t.Fatalf("%s: %v", src, err)
		}
		return v
	}
	tests := []struct {
		src  string
		want ReturnType
		out  Value
	}{
		{`"42"`, Number, NumberValue(42)},
		{`"abc"`, Number, NullOf(Number)},
		{`NaN`, Number, NullOf(Number)},
		{`true`, Number, NumberValue(1)},
		{`null`, Number, NullOf(Number)},
		{`undefined`, Text, NullOf(Text)},
		{`12.5`, Text, TextValue("12.5")},
		{`[1, 2]`, Text, TextValue("1,2")},
		{`""`, Boolean, BooleanValue(false)},
		{`"x"`, Boolean, BooleanValue(true)},
		{`null`, Boolean, NullOf(Boolean)},
		{`({valueOf: function () { throw new Error("no") }})`, Number, NullOf(Number)},
		{`({toString: function () { throw new Error("no") }})`, Text, NullOf(Text)},
	}
	for _, tt := range tests {
		got := Coerce(vm, eval(tt.src), tt.want)
		if got != tt.out {
			t.Fatalf("%s as %v: got %v want %v", tt.src, tt.want, got, tt.out)
		}
	}
}

func TestParseReturnType(t *testing.T) {
	for in, want := range map[string]ReturnType{"STRING": Text, "text": Text, "Number": Number, "bool": Boolean, "BOOLEAN": Boolean} {
		got, err := ParseReturnType(in)
		if err != nil || got != want {
			t.Fatalf("%s: %v %v", in, got, err)
		}
	}
	if _, err := ParseReturnType("date"); err == nil {
		t.Fatal("expected error")
	}
}

func TestNullKeepsDeclaredType(t *testing.T) {
	vm := goja.New()
	for _, want := range []ReturnType{Text, Number, Boolean} {
		v := Coerce(vm, goja.Null(), want)
		if !v.IsNull() || v.Type() != want || v.Any() != nil {
			t.Fatalf("%v: got %v of type %v", want, v, v.Type())
		}
	}
	e := newExecutor(t, `throw new Error("x")`)
	v, err := e.Evaluate(context.Background(), scopeOf(1), Boolean)
	if err == nil || !v.IsNull() || v.Type() != Boolean {
		t.Fatalf("got %v (%v), err %v", v, v.Type(), err)
	}
}
