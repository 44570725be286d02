package parser

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ViktoriyaGonchar/AetherNexus/pkg/types"
)

const goSource = `package shop

import "fmt"

// Cart holds items
type Cart struct {
	Items []string
}

type (
	ID    string
	Store interface{ Get(ID) *Cart }
)

func NewCart() *Cart {
	helper := func() {}
	helper()
	return &Cart{}
}

func (c *Cart) Add(item string) {
	c.Items = append(c.Items, item)
}

func (l List[T]) Len() int { return len(l) }

func NewCart() *Cart { return nil }

func describe() string { return fmt.Sprint("cart") }
`

func extract(t *testing.T, rel, content string) *ExtractResult {
	t.Helper()
	root := t.TempDir()
	res, err := New().Extract(context.Background(), filepath.Join(root, filepath.FromSlash(rel)), []byte(content), root, "proj")
	require.NoError(t, err)
	return res
}

func names(entities []types.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Name
	}
	return out
}

func TestExtractGo(t *testing.T) {
	res := extract(t, "pkg/shop/cart.go", goSource)
	require.NoError(t, res.ParseError)

	assert.Equal(t, LangGo, res.Language)
	assert.Equal(t, "proj:pkg/shop/cart.go", res.File.ID)
	assert.Equal(t, types.KindFile, res.File.Kind)
	assert.Equal(t, "cart.go", res.File.Name)
	assert.Equal(t, "pkg/shop/cart.go", res.File.FilePath)
	assert.Equal(t, 1, res.File.LineStart)
	assert.Equal(t, 30, res.File.LineEnd)
	assert.Equal(t, goSource, res.File.Content)

	// Duplicate NewCart keeps the first one, the closure is not a declaration
	assert.Equal(t, []string{"Cart", "ID", "Store", "NewCart", "Cart.Add", "List.Len", "describe"}, names(res.Entities))

	byName := make(map[string]types.Entity)
	for _, e := range res.Entities {
		byName[e.Name] = e
	}

	cart := byName["Cart"]
	assert.Equal(t, types.KindClass, cart.Kind)
	assert.Equal(t, 6, cart.LineStart)
	assert.Equal(t, 8, cart.LineEnd)
	assert.Equal(t, "type Cart struct {\n\tItems []string\n}", cart.Content)

	id := byName["ID"]
	assert.Equal(t, "ID    string", id.Content)
	assert.Equal(t, 11, id.LineStart)

	add := byName["Cart.Add"]
	assert.Equal(t, types.KindFunction, add.Kind)
	assert.Equal(t, "proj:pkg/shop/cart.go::Cart.Add", add.ID)
	assert.Equal(t, 21, add.LineStart)
	assert.Equal(t, 23, add.LineEnd)

	newCart := byName["NewCart"]
	assert.Equal(t, 15, newCart.LineStart)
	assert.Contains(t, newCart.Content, "helper()")
}

func TestExtractGoSyntaxError(t *testing.T) {
	res := extract(t, "broken.go", "package broken\n\nfunc ok() {}\n\nfunc bad( {\n")
	var pe *types.ParseError
	require.ErrorAs(t, res.ParseError, &pe)
	assert.Equal(t, "broken.go", pe.File)
	assert.Equal(t, 5, pe.Line)
	assert.Positive(t, pe.Column)
	assert.Empty(t, res.Entities)
	assert.Equal(t, "proj:broken.go", res.File.ID)
	assert.Equal(t, types.KindFile, res.File.Kind)
}

func TestExtractDocumentation(t *testing.T) {
	for _, rel := range []string{"docs/guide.md", "NOTES.txt"} {
		t.Run(rel, func(t *testing.T) {
			res := extract(t, rel, "# Title\n\nSome text\n")
			require.NoError(t, res.ParseError)
			assert.Empty(t, res.Entities)
			assert.Equal(t, types.KindDocumentation, res.File.Kind)
			assert.Equal(t, "proj:"+rel, res.File.ID)
			assert.Equal(t, filepath.Base(rel), res.File.Name)
			assert.Equal(t, 4, res.File.LineEnd)
			assert.Len(t, res.All(), 1)
		})
	}
}

func TestExtractErrors(t *testing.T) {
	p := New()
	root := t.TempDir()
	ctx := context.Background()

	_, err := p.Extract(ctx, filepath.Join(root, "image.png"), []byte("x"), root, "proj")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = p.Extract(ctx, filepath.Join(root, "Makefile"), []byte("all:"), root, "proj")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = p.Extract(ctx, filepath.Join(root, "bin.py"), []byte{0xff, 0xfe, 0x00}, root, "proj")
	assert.ErrorIs(t, err, ErrNotText)
}

func TestExtractDeterministicIDs(t *testing.T) {
	first := extract(t, "cart.go", goSource)
	second := extract(t, "cart.go", goSource)
	assert.Equal(t, first.File.ID, second.File.ID)

	firstIDs := make([]string, 0, len(first.Entities))
	for _, e := range first.Entities {
		firstIDs = append(firstIDs, e.ID)
	}
	for i, e := range second.Entities {
		assert.Equal(t, firstIDs[i], e.ID)
	}
}

func TestLanguageFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Language
		ok   bool
	}{
		{"a.py", LangPython, true},
		{"A.PY", LangPython, true},
		{"src/app.js", LangJavaScript, true},
		{"src/app.ts", LangTypeScript, true},
		{"Main.java", LangJava, true},
		{"Main.kt", LangKotlin, true},
		{"main.go", LangGo, true},
		{"README.md", LangMarkdown, true},
		{"notes.txt", LangText, true},
		{"app.tsx", "", false},
		{"Dockerfile", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := LanguageFromPath(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, IsSupported(tt.path))
		})
	}
}

func TestExtractWithoutTreeSitter(t *testing.T) {
	if TreeSitterAvailable() {
		t.Skip("tree-sitter is compiled in")
	}
	res := extract(t, "a.py", "def foo():\n    return 1\n")
	assert.NoError(t, res.ParseError)
	assert.Empty(t, res.Entities)
	assert.Equal(t, "proj:a.py", res.File.ID)
}
