package script

import (
	"errors"
	"strings"
	"testing"
)

func TestCompileSyntaxError(t *testing.T) {
	_, err := Compile("function f() { return 1;")
	var serr *SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *SyntaxError, got %T %v", err, err)
	}
	if !strings.HasPrefix(err.Error(), "script: syntax error:") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestCompileDetectsLexicalDeclarations(t *testing.T) {
	cases := map[string]bool{
		"var x = 1; x":                  false,
		"function f() { let y = 1; } 1": false,
		"let x = 1; x":                  true,
		"const x = 1; x":                true,
		"class A {}; 1":                 true,
	}
	for src, want := range cases {
		p, err := Compile(src)
		if err != nil {
			t.Fatalf("%q: %v", src, err)
		}
		if p.Lexical() != want {
			t.Fatalf("%q: lexical=%v want %v", src, p.Lexical(), want)
		}
	}
}

func TestCompileIsRepeatable(t *testing.T) {
	a, err := Compile(DefaultSource)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Compile(DefaultSource)
	if err != nil {
		t.Fatal(err)
	}
	if a.Source() != b.Source() || a.Lexical() != b.Lexical() {
		t.Fatal("programs differ")
	}
}
