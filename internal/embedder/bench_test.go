package embedder

import (
	"context"
	"fmt"
	"testing"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/logging"
)

func BenchmarkComputeHash(b *testing.B) {
	texts := []string{
		"short",
		"medium length text for hashing",
		"class Indexer:\n    def index_project(self, path):\n        return self.pipeline.run(path)",
	}

	for _, text := range texts {
		b.Run(fmt.Sprintf("len=%d", len(text)), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = ComputeHash(text)
			}
		})
	}
}

func BenchmarkFallbackVector(b *testing.B) {
	for _, dim := range []int{384, 1024} {
		b.Run(fmt.Sprintf("dim=%d", dim), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = FallbackVector("def foo(): pass", dim)
			}
		})
	}
}

func BenchmarkGatewayEmbedBatch(b *testing.B) {
	ctx := context.Background()
	g := NewGateway(ctx, NewHashProvider(384), 384, logging.NewDiscard())
	texts := make([]string, 250)
	for i := range texts {
		texts[i] = fmt.Sprintf("func handler%d() {}", i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = g.EmbedBatch(ctx, texts)
	}
}
