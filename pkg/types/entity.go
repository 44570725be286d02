package types

import (
	"path/filepath"
	"strings"
)

// EntityKind represents the kind of indexed unit
type EntityKind string

const (
	KindClass         EntityKind = "class"
	KindFunction      EntityKind = "function"
	KindDocumentation EntityKind = "documentation"
	KindFile          EntityKind = "file"
)

// RelationDefinedIn links a structural entity to the file that owns it
const RelationDefinedIn = "defined_in"

// Entity is an indexed unit of knowledge: a code symbol, a document or a whole file
type Entity struct {
	ID        string
	Name      string
	Kind      EntityKind
	FilePath  string // Relative to project root, slash separated
	ProjectID string
	Content   string
	LineStart int
	LineEnd   int
	Metadata  map[string]any
}

// EntityID derives the stable identifier of an entity.
// Files and documents use "{project}:{path}", symbols "{project}:{path}::{name}".
func EntityID(projectID, relPath, name string) string {
	id := projectID + ":" + filepath.ToSlash(relPath)
	if name != "" {
		id += "::" + name
	}
	return id
}

// IsFile reports whether the entity represents a whole file or document
func (e *Entity) IsFile() bool {
	return e.Kind == KindFile || e.Kind == KindDocumentation
}

// EmbeddingText returns the text that should be embedded for this entity
func (e *Entity) EmbeddingText() string {
	if strings.TrimSpace(e.Content) == "" {
		return e.Name
	}
	return e.Content
}

// Truncate returns at most n characters of s, counting runes
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
