package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityID(t *testing.T) {
	tests := []struct {
		name      string
		projectID string
		relPath   string
		symbol    string
		want      string
	}{
		{"file", "p1", "src/a.py", "", "p1:src/a.py"},
		{"symbol", "p1", "src/a.py", "foo", "p1:src/a.py::foo"},
		{"method", "p1", "svc.go", "Server.Start", "p1:svc.go::Server.Start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EntityID(tt.projectID, tt.relPath, tt.symbol)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, EntityID(tt.projectID, tt.relPath, tt.symbol), "derivation must be stable")
		})
	}
}

func TestEntityEmbeddingText(t *testing.T) {
	e := Entity{Name: "foo", Content: "  \n"}
	assert.Equal(t, "foo", e.EmbeddingText())

	e.Content = "def foo(): pass"
	assert.Equal(t, "def foo(): pass", e.EmbeddingText())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "при", Truncate("привет", 3))
}

func TestGraphEdgeEffectiveWeight(t *testing.T) {
	e := GraphEdge{}
	assert.Equal(t, DefaultEdgeWeight, e.EffectiveWeight())

	w := 0.25
	e.Weight = &w
	assert.Equal(t, 0.25, e.EffectiveWeight())
}

func TestParseErrorMessage(t *testing.T) {
	tests := []struct {
		err  ParseError
		want string
	}{
		{ParseError{File: "a.go", Line: 3, Column: 7, Message: "expected ')'"}, "a.go:3:7: expected ')'"},
		{ParseError{File: "a.py", Line: 4, Message: "syntax error"}, "a.py:4: syntax error"},
		{ParseError{File: "a.kt", Message: "syntax error"}, "a.kt: syntax error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}
