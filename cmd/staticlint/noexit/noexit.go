// Package noexit содержит анализатор, запрещающий прямой вызов os.Exit в функции main пакета main.
package noexit

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// NoExitAnalyzer проверяет отсутствие прямых вызовов os.Exit в функции main пакета main.
var NoExitAnalyzer = &analysis.Analyzer{
	Name: "noexit",
	Doc:  "запрещает использование прямого вызова os.Exit в функции main пакета main",
	Run:  run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	if pass.Pkg.Name() != "main" {
		return nil, nil
	}

	for _, file := range pass.Files {
		// Сгенерированные go test файлы лежат в кэше сборки
		if strings.Contains(pass.Fset.Position(file.Pos()).Filename, "go-build") {
			continue
		}

		for _, decl := range file.Decls {
			funcDecl, ok := decl.(*ast.FuncDecl)
			if !ok || funcDecl.Recv != nil || funcDecl.Name.Name != "main" || funcDecl.Body == nil {
				continue
			}

			ast.Inspect(funcDecl.Body, func(n ast.Node) bool {
				callExpr, ok := n.(*ast.CallExpr)
				if !ok {
					return true
				}
				if isOSExit(pass, callExpr) {
					pass.Reportf(callExpr.Pos(), "прямой вызов os.Exit в функции main запрещен")
				}
				return true
			})
		}
	}

	return nil, nil
}

func isOSExit(pass *analysis.Pass, call *ast.CallExpr) bool {
	selExpr, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || selExpr.Sel.Name != "Exit" {
		return false
	}
	ident, ok := selExpr.X.(*ast.Ident)
	if !ok {
		return false
	}
	pkg, ok := pass.TypesInfo.Uses[ident].(*types.PkgName)
	return ok && pkg.Imported().Path() == "os"
}
