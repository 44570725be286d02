// Package parser extracts indexable entities from project files.
//
// Every supported file yields one whole-file entity. Source files also yield
// one entity per top-level named declaration:
//
//	p := parser.New()
//	res, err := p.Extract(ctx, "/src/proj/a.py", content, "/src/proj", "proj")
//	// res.File.ID        == "proj:a.py"
//	// res.Entities[0].ID == "proj:a.py::foo"
//
// Go files are parsed with go/parser; Python, JavaScript, TypeScript, Java and
// Kotlin with tree-sitter, which requires cgo. Without cgo those languages fall
// back to the whole-file entity. Markdown and plain text become a single
// documentation entity.
//
// A declaration nested inside another captured declaration (a method inside a
// class, a closure inside a function) is part of its parent and is not
// emitted separately. Go methods are named Receiver.Method.
//
// Syntax errors are reported in ExtractResult.ParseError rather than as an
// error, so callers can still index the whole file.
package parser
