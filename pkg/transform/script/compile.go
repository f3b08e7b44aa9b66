package script

import (
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja/ast"
)

const programName = "script.js"

// Program is a compiled script. It is not tied to any runtime and may be run
// by many runtimes at once.
type Program struct {
	source  string
	prog    *goja.Program
	lexical bool
}

// Compile parses and compiles source in non-strict mode. It never runs the script.
func Compile(source string) (*Program, error) {
	parsed, err := goja.Parse(programName, source)
	if err != nil {
		return nil, newSyntaxError(err)
	}
	prog, err := goja.CompileAST(parsed, false)
	if err != nil {
		return nil, newSyntaxError(err)
	}
	return &Program{source: source, prog: prog, lexical: declaresLexical(parsed)}, nil
}

// Source returns the text the program was compiled from.
func (p *Program) Source() string { return p.source }

// Lexical reports whether the program declares top-level let, const or class
// bindings. Such bindings outlive a run, so these programs never share a runtime.
func (p *Program) Lexical() bool { return p.lexical }

func declaresLexical(prg *ast.Program) bool {
	for _, st := range prg.Body {
		switch st.(type) {
		case *ast.LexicalDeclaration, *ast.ClassDeclaration:
			return true
		}
	}
	return false
}

func newSyntaxError(err error) *SyntaxError {
	return &SyntaxError{Message: strings.TrimPrefix(err.Error(), "SyntaxError: "), Err: err}
}
