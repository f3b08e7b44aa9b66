package script

import "github.com/dop251/goja"

// hardenProgram freezes every builtin reachable from the global object, the
// global itself included. Pooled runtimes run it once so a row cannot leave
// state on a shared prototype for the next row to see.
//
// Assigning an inherited frozen property fails, so the common overrides
// (toString, constructor, name, message and friends) become accessors on
// each builtin prototype whose setter defines an own property on the
// receiver instead.
var hardenProgram = goja.MustCompile("harden.js", `(function (global) {
	"use strict";
	var seen = new Set();
	var overridable = ["constructor", "toString", "toLocaleString", "valueOf", "toJSON",
		"name", "message", "hasOwnProperty", "isPrototypeOf", "propertyIsEnumerable"];

	function isPrototype(o) {
		if (o === Object.prototype) {
			return true;
		}
		var d = Object.getOwnPropertyDescriptor(o, "constructor");
		return d !== undefined && typeof d.value === "function" && d.value.prototype === o;
	}

	function allowOverrides(o) {
		overridable.forEach(function (k) {
			var d = Object.getOwnPropertyDescriptor(o, k);
			if (d === undefined || !("value" in d) || !d.configurable) {
				return;
			}
			var v = d.value;
			Object.defineProperty(o, k, {
				get: function () { return v; },
				set: function (nv) {
					if (this === o) {
						throw new TypeError("Cannot assign to read only property '" + k + "'");
					}
					Object.defineProperty(this, k, {value: nv, writable: true, enumerable: true, configurable: true});
				},
				enumerable: d.enumerable,
				configurable: false
			});
		});
	}

	function harden(o) {
		if (o === null || (typeof o !== "object" && typeof o !== "function") || seen.has(o)) {
			return;
		}
		seen.add(o);
		if (isPrototype(o)) {
			allowOverrides(o);
		}
		try {
			Object.freeze(o);
		} catch (e) {}
		harden(Object.getPrototypeOf(o));
		Reflect.ownKeys(o).forEach(function (k) {
			var d = Object.getOwnPropertyDescriptor(o, k);
			harden(d.value);
			harden(d.get);
			harden(d.set);
		});
	}

	// Prototypes only reachable through instances.
	[
		function () { return [][Symbol.iterator](); },
		function () { return ""[Symbol.iterator](); },
		function () { return new Map().entries(); },
		function () { return new Set().values(); },
		function () { return /x/[Symbol.matchAll]("x"); },
		function () { return function* () {}; },
		function () { return (function* () {})(); },
		function () { return async function () {}; },
		function () { return Promise.resolve(); }
	].forEach(function (make) {
		try {
			harden(make());
		} catch (e) {}
	});
	harden(global);
})(this);
`, true)

// harden freezes the runtime's builtins and its current global object.
func harden(vm *goja.Runtime) error {
	_, err := vm.RunProgram(hardenProgram)
	return err
}
