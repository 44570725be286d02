//go:build cgo

package parser

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/ViktoriyaGonchar/AetherNexus/pkg/types"
)

// TreeSitterAvailable reports whether structured extraction is compiled in
// for Python, JavaScript, TypeScript, Java and Kotlin.
func TreeSitterAvailable() bool {
	return true
}

func sitterLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangPython:
		return python.GetLanguage(), nil
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangJava:
		return java.GetLanguage(), nil
	case LangKotlin:
		return kotlin.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, lang)
	}
}

// declarationKinds maps syntax node types to entity kinds per language
func declarationKinds(lang Language) map[string]types.EntityKind {
	switch lang {
	case LangPython:
		return map[string]types.EntityKind{
			"class_definition":    types.KindClass,
			"function_definition": types.KindFunction,
		}
	case LangJavaScript:
		return map[string]types.EntityKind{
			"class_declaration":              types.KindClass,
			"function_declaration":           types.KindFunction,
			"generator_function_declaration": types.KindFunction,
		}
	case LangTypeScript:
		return map[string]types.EntityKind{
			"class_declaration":              types.KindClass,
			"abstract_class_declaration":     types.KindClass,
			"interface_declaration":          types.KindClass,
			"function_declaration":           types.KindFunction,
			"generator_function_declaration": types.KindFunction,
		}
	case LangJava:
		return map[string]types.EntityKind{
			"class_declaration":     types.KindClass,
			"interface_declaration": types.KindClass,
			"enum_declaration":      types.KindClass,
			"record_declaration":    types.KindClass,
		}
	case LangKotlin:
		return map[string]types.EntityKind{
			"class_declaration":    types.KindClass,
			"object_declaration":   types.KindClass,
			"function_declaration": types.KindFunction,
		}
	default:
		return nil
	}
}

// extractTreeSitter finds named declarations that have no captured ancestor
func extractTreeSitter(ctx context.Context, lang Language, content []byte) ([]declaration, error) {
	tsLang, err := sitterLanguage(lang)
	if err != nil {
		return nil, err
	}

	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(tsLang)

	tree, err := p.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line, col := firstErrorPoint(root)
		return nil, &types.ParseError{Line: line, Column: col, Message: "syntax error"}
	}

	kinds := declarationKinds(lang)
	var decls []declaration

	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if kind, ok := kinds[node.Type()]; ok {
			if name := declarationName(node, content); name != "" {
				span := declarationSpan(node)
				decls = append(decls, declaration{
					name:      name,
					kind:      kind,
					startLine: int(span.StartPoint().Row) + 1,
					endLine:   int(span.EndPoint().Row) + 1,
					startByte: int(span.StartByte()),
					endByte:   int(span.EndByte()),
				})
				// Everything below a captured declaration is part of it
				return
			}
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			walk(node.NamedChild(i))
		}
	}
	walk(root)

	return decls, nil
}

// declarationSpan widens a Python definition to include its decorators
func declarationSpan(node *sitter.Node) *sitter.Node {
	if parent := node.Parent(); parent != nil && parent.Type() == "decorated_definition" {
		return parent
	}
	return node
}

// declarationName reads the name field, falling back to the first identifier child
func declarationName(node *sitter.Node, content []byte) string {
	if name := node.ChildByFieldName("name"); name != nil {
		return name.Content(content)
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "type_identifier", "simple_identifier", "identifier":
			return child.Content(content)
		}
	}
	return ""
}

// firstErrorPoint returns the 1-based position of the first error node, or 0, 0
func firstErrorPoint(node *sitter.Node) (int, int) {
	if node.IsError() || node.IsMissing() {
		p := node.StartPoint()
		return int(p.Row) + 1, int(p.Column) + 1
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && child.HasError() {
			if line, col := firstErrorPoint(child); line > 0 {
				return line, col
			}
		}
	}
	return 0, 0
}
