package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ViktoriyaGonchar/AetherNexus/pkg/types"
)

var (
	// ErrUnsupported is returned for files outside the extension allow-list
	ErrUnsupported = errors.New("unsupported file type")
	// ErrNotText is returned when content is not valid UTF-8
	ErrNotText = errors.New("file is not valid UTF-8 text")
)

// Language identifies how a file is parsed
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
	LangMarkdown   Language = "markdown"
	LangText       Language = "text"
)

var extensions = map[string]Language{
	".go":   LangGo,
	".py":   LangPython,
	".js":   LangJavaScript,
	".ts":   LangTypeScript,
	".java": LangJava,
	".kt":   LangKotlin,
	".md":   LangMarkdown,
	".txt":  LangText,
}

// LanguageFromPath returns the language for a file path based on its extension
func LanguageFromPath(path string) (Language, bool) {
	lang, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// IsSupported reports whether the file would be extracted
func IsSupported(path string) bool {
	_, ok := LanguageFromPath(path)
	return ok
}

// IsDocumentation reports whether the language is indexed as a single document
func (l Language) IsDocumentation() bool {
	return l == LangMarkdown || l == LangText
}

// ExtractResult holds the entities found in one file
type ExtractResult struct {
	File       types.Entity   // Whole-file entity, or the documentation entity
	Entities   []types.Entity // Structural entities, nested under File via defined_in
	Language   Language
	ParseError error // Structured parse failed, Entities is empty
}

// All returns the file entity followed by the structural entities
func (r *ExtractResult) All() []types.Entity {
	all := make([]types.Entity, 0, len(r.Entities)+1)
	all = append(all, r.File)
	return append(all, r.Entities...)
}

// declaration is a named top-level unit found by a language extractor
type declaration struct {
	name      string
	kind      types.EntityKind
	startLine int // 1-based
	endLine   int
	startByte int
	endByte   int
}

// Parser extracts entities from project files. Safe for concurrent use.
type Parser struct{}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{}
}

// Extract turns a file into entities. absPath must lie under projectRoot.
func (p *Parser) Extract(ctx context.Context, absPath string, content []byte, projectRoot, projectID string) (*ExtractResult, error) {
	lang, ok := LanguageFromPath(absPath)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(absPath))
	}
	if !utf8.Valid(content) {
		return nil, ErrNotText
	}

	rel, err := filepath.Rel(projectRoot, absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve relative path: %w", err)
	}
	rel = filepath.ToSlash(rel)

	file := types.Entity{
		ID:        types.EntityID(projectID, rel, ""),
		Name:      filepath.Base(absPath),
		Kind:      types.KindFile,
		FilePath:  rel,
		ProjectID: projectID,
		Content:   string(content),
		LineStart: 1,
		LineEnd:   lineCount(content),
		Metadata:  map[string]any{"language": string(lang)},
	}
	result := &ExtractResult{File: file, Language: lang}

	if lang.IsDocumentation() {
		result.File.Kind = types.KindDocumentation
		return result, nil
	}

	var decls []declaration
	switch lang {
	case LangGo:
		decls, err = extractGo(absPath, content)
	default:
		decls, err = extractTreeSitter(ctx, lang, content)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var pe *types.ParseError
		if errors.As(err, &pe) {
			pe.File = rel
		}
		result.ParseError = err
		return result, nil
	}

	result.Entities = buildEntities(file, lang, content, decls)
	return result, nil
}

// buildEntities converts declarations to entities, keeping the first of any duplicate name
func buildEntities(file types.Entity, lang Language, content []byte, decls []declaration) []types.Entity {
	seen := make(map[string]bool, len(decls))
	entities := make([]types.Entity, 0, len(decls))

	for _, d := range decls {
		if d.name == "" || seen[d.name] {
			continue
		}
		seen[d.name] = true

		entities = append(entities, types.Entity{
			ID:        types.EntityID(file.ProjectID, file.FilePath, d.name),
			Name:      d.name,
			Kind:      d.kind,
			FilePath:  file.FilePath,
			ProjectID: file.ProjectID,
			Content:   string(content[d.startByte:d.endByte]),
			LineStart: d.startLine,
			LineEnd:   d.endLine,
			Metadata:  map[string]any{"language": string(lang)},
		})
	}
	return entities
}

func lineCount(content []byte) int {
	return strings.Count(string(content), "\n") + 1
}
