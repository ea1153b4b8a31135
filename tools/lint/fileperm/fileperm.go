// Package fileperm provides a linter that flags permission literals passed to file
// creating calls where a fileutil constant exists.
package fileperm

import (
	"go/ast"
	"go/token"
	"strconv"

	"golang.org/x/tools/go/analysis"
)

// Analyzer reports hardcoded permissions in WriteFile, AtomicWriteFile, Mkdir, MkdirAll and
// OpenFile calls.
var Analyzer = &analysis.Analyzer{
	Name: "fileperm",
	Doc:  "checks for hardcoded file permission literals instead of fileutil constants",
	Run:  run,
}

// permArg is the index of the permission argument per function name, counted without the
// leading afero.Fs argument of the helper forms.
var permArg = map[string]int{
	"WriteFile":       2,
	"AtomicWriteFile": 2,
	"Mkdir":           1,
	"MkdirAll":        1,
	"OpenFile":        2,
}

// permConstants maps a permission value to the constant that should be used instead.
var permConstants = map[int64]string{
	0o600: "fileutil.ReadWriteUserPermission",
	0o644: "fileutil.ReadWriteUserReadOthers",
	0o755: "fileutil.ReadWriteExecuteUserReadExecuteOthers",
}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			fun, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			idx, ok := permArg[fun.Sel.Name]
			if !ok {
				return true
			}
			// afero.WriteFile(fs, name, data, perm) and fileutil helpers take the filesystem first.
			if len(call.Args) == idx+2 {
				idx++
			}
			if len(call.Args) <= idx {
				return true
			}
			lit, ok := call.Args[idx].(*ast.BasicLit)
			if !ok || lit.Kind != token.INT {
				return true
			}
			value, err := strconv.ParseInt(lit.Value, 0, 64)
			if err != nil {
				return true
			}
			if constant, known := permConstants[value]; known {
				pass.Reportf(lit.Pos(), "use %s instead of hardcoded %s", constant, lit.Value)
			}
			return true
		})
	}
	return nil, nil
}
