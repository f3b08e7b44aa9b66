package script

import (
	"math"

	"github.com/dop251/goja"
)

// Coerce converts a raw script result to want using JavaScript conversion
// rules. null, undefined and a NaN number become a null of type want, as does any
// conversion that throws. It must run on the runtime that produced raw.
func Coerce(vm *goja.Runtime, raw goja.Value, want ReturnType) Value {
	if raw == nil || goja.IsUndefined(raw) || goja.IsNull(raw) {
		return NullOf(want)
	}
	out := NullOf(want)
	if ex := vm.Try(func() {
		switch want {
		case Number:
			if f := raw.ToFloat(); !math.IsNaN(f) {
				out = NumberValue(f)
			}
		case Boolean:
			out = BooleanValue(raw.ToBoolean())
		default:
			out = TextValue(raw.String())
		}
	}); ex != nil {
		return NullOf(want)
	}
	return out
}
