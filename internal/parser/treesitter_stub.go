//go:build !cgo

package parser

import "context"

// TreeSitterAvailable reports whether structured extraction is compiled in
// for Python, JavaScript, TypeScript, Java and Kotlin.
func TreeSitterAvailable() bool {
	return false
}

// Without cgo these languages produce the whole-file entity only
func extractTreeSitter(_ context.Context, _ Language, _ []byte) ([]declaration, error) {
	return nil, nil
}
