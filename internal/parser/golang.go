package parser

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"

	"github.com/ViktoriyaGonchar/AetherNexus/pkg/types"
)

// extractGo finds top-level types and functions. Methods are named Receiver.Method.
func extractGo(filename string, content []byte) ([]declaration, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, content, parser.SkipObjectResolution)
	if err != nil {
		var list scanner.ErrorList
		if errors.As(err, &list) && len(list) > 0 {
			return nil, &types.ParseError{Line: list[0].Pos.Line, Column: list[0].Pos.Column, Message: list[0].Msg}
		}
		return nil, &types.ParseError{Message: err.Error()}
	}

	span := func(node ast.Node) (int, int, int, int) {
		start := fset.Position(node.Pos())
		end := fset.Position(node.End())
		return start.Line, end.Line, start.Offset, end.Offset
	}

	var decls []declaration
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			name := d.Name.Name
			if d.Recv != nil && len(d.Recv.List) > 0 {
				if recv := receiverType(d.Recv.List[0].Type); recv != "" {
					name = recv + "." + name
				}
			}
			fn := declaration{name: name, kind: types.KindFunction}
			fn.startLine, fn.endLine, fn.startByte, fn.endByte = span(d)
			decls = append(decls, fn)

		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				typ := declaration{name: ts.Name.Name, kind: types.KindClass}
				// An unparenthesized declaration includes the type keyword
				var node ast.Node = ts
				if !d.Lparen.IsValid() {
					node = d
				}
				typ.startLine, typ.endLine, typ.startByte, typ.endByte = span(node)
				decls = append(decls, typ)
			}
		}
	}
	return decls, nil
}

// receiverType returns the base type name of a method receiver
func receiverType(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverType(t.X)
	case *ast.IndexExpr:
		return receiverType(t.X)
	case *ast.IndexListExpr:
		return receiverType(t.X)
	case *ast.ParenExpr:
		return receiverType(t.X)
	case *ast.Ident:
		return t.Name
	}
	return ""
}
