package types

import "fmt"

// ParseError locates a syntax error in a source file. Line and Column are
// 1-based; zero means unknown.
type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
}

// Error implements the error interface
func (pe *ParseError) Error() string {
	switch {
	case pe.Line > 0 && pe.Column > 0:
		return fmt.Sprintf("%s:%d:%d: %s", pe.File, pe.Line, pe.Column, pe.Message)
	case pe.Line > 0:
		return fmt.Sprintf("%s:%d: %s", pe.File, pe.Line, pe.Message)
	default:
		return fmt.Sprintf("%s: %s", pe.File, pe.Message)
	}
}
