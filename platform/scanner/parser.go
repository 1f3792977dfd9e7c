package scanner

import (
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind classifies a discovered test function.
type Kind string

const (
	KindTest      Kind = "Test"
	KindBenchmark Kind = "Benchmark"
	KindFuzz      Kind = "Fuzz"
	KindExample   Kind = "Example"
	// KindSuite is a TestXxx method on a suite type, run through a suite runner
	// such as testify's suite.Run.
	KindSuite Kind = "Suite"
)

// Func is one test function found in a file.
type Func struct {
	Package  string
	Receiver string
	Name     string
	Kind     Kind
	Line     int
	Parallel bool
}

// QualifiedName returns package.[Receiver.]Name.
func (f Func) QualifiedName() string {
	if f.Receiver != "" {
		return f.Package + "." + f.Receiver + "." + f.Name
	}
	return f.Package + "." + f.Name
}

// Parser extracts test functions from Go test files.
type Parser struct {
	fset *token.FileSet
}

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{fset: token.NewFileSet()}
}

// ParseFile parses the file at path, or src when non-nil, and returns its
// test functions in source order.
func (p *Parser) ParseFile(path string, src any) ([]Func, error) {
	f, err := parser.ParseFile(p.fset, path, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}

	testingName := importName(f, "testing")
	pkg := f.Name.Name

	var funcs []Func
	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}

		var found Func
		if fn.Recv != nil {
			recv := receiverName(fn.Recv)
			if recv == "" || !isSuiteMethod(fn) {
				continue
			}
			found = Func{Receiver: recv, Kind: KindSuite}
		} else {
			kind, param, ok := classify(fn, testingName)
			if !ok {
				continue
			}
			found = Func{Kind: kind, Parallel: param != "" && callsParallel(fn.Body, param)}
		}

		found.Package = pkg
		found.Name = fn.Name.Name
		found.Line = p.fset.Position(fn.Pos()).Line
		funcs = append(funcs, found)
	}
	return funcs, nil
}

// classify reports the kind of a top-level function and the name of its
// *testing.T/B/F parameter.
func classify(fn *ast.FuncDecl, testingName string) (Kind, string, bool) {
	name := fn.Name.Name
	params := fn.Type.Params.List
	if fn.Type.TypeParams != nil || fn.Type.Results != nil {
		return "", "", false
	}

	switch {
	case isTestName(name, "Example"):
		return KindExample, "", len(params) == 0
	case name == "TestMain":
		return "", "", false
	case isTestName(name, "Test"):
		p, ok := singleParam(params, testingName, "T")
		return KindTest, p, ok
	case isTestName(name, "Benchmark"):
		p, ok := singleParam(params, testingName, "B")
		return KindBenchmark, p, ok
	case isTestName(name, "Fuzz"):
		p, ok := singleParam(params, testingName, "F")
		return KindFuzz, p, ok
	}
	return "", "", false
}

// isTestName follows go test: the prefix alone, or the prefix followed by a
// rune that is not lower case.
func isTestName(name, prefix string) bool {
	if !strings.HasPrefix(name, prefix) {
		return false
	}
	if len(name) == len(prefix) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(name[len(prefix):])
	return !unicode.IsLower(r)
}

// singleParam matches exactly one parameter of type *testing.<typ> and returns
// its name ("" when unnamed or blank).
func singleParam(params []*ast.Field, testingName, typ string) (string, bool) {
	if len(params) != 1 || len(params[0].Names) > 1 {
		return "", false
	}
	star, ok := params[0].Type.(*ast.StarExpr)
	if !ok {
		return "", false
	}
	sel, ok := star.X.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != typ {
		return "", false
	}
	if x, ok := sel.X.(*ast.Ident); !ok || x.Name != testingName {
		return "", false
	}
	if len(params[0].Names) == 0 || params[0].Names[0].Name == "_" {
		return "", true
	}
	return params[0].Names[0].Name, true
}

func isSuiteMethod(fn *ast.FuncDecl) bool {
	return isTestName(fn.Name.Name, "Test") &&
		ast.IsExported(fn.Name.Name) &&
		fn.Type.Params.NumFields() == 0 &&
		fn.Type.Results == nil
}

func receiverName(recv *ast.FieldList) string {
	if recv.NumFields() != 1 {
		return ""
	}
	t := recv.List[0].Type
	if star, ok := t.(*ast.StarExpr); ok {
		t = star.X
	}
	// Generic receivers, e.g. Suite[T].
	switch x := t.(type) {
	case *ast.IndexExpr:
		t = x.X
	case *ast.IndexListExpr:
		t = x.X
	}
	if id, ok := t.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

// callsParallel reports whether body calls param.Parallel() outside nested
// function literals.
func callsParallel(body *ast.BlockStmt, param string) bool {
	found := false
	ast.Inspect(body, func(n ast.Node) bool {
		if found {
			return false
		}
		switch n := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.CallExpr:
			sel, ok := n.Fun.(*ast.SelectorExpr)
			if !ok || sel.Sel.Name != "Parallel" {
				return true
			}
			if id, ok := sel.X.(*ast.Ident); ok && id.Name == param {
				found = true
			}
		}
		return true
	})
	return found
}

// importName returns the local name under which f imports path, or "" if it
// does not.
func importName(f *ast.File, path string) string {
	for _, imp := range f.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil || p != path {
			continue
		}
		if imp.Name != nil {
			return imp.Name.Name
		}
		return filepath.Base(p)
	}
	return ""
}
