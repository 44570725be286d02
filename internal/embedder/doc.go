// Package embedder turns entity text into fixed-dimension vectors.
//
// Providers implement Embedder:
//   - ollama: a local Ollama server (POST /api/embed), default model all-minilm (384 dims)
//   - jina, openai: hosted /embeddings APIs with bearer keys
//   - hash: FallbackVector as a provider, no model needed
//
// Network providers share an LRU cache keyed by the SHA-256 of the text and
// retry failed calls with exponential backoff.
//
// # Gateway
//
// Gateway is what the rest of the service uses. It never returns an error:
//
//	gw := embedder.NewGateway(ctx, provider, 384, logger)
//	vec := gw.Embed(ctx, "def foo(): pass")      // model vector, or fallback
//	zero := gw.Embed(ctx, "   ")                   // zero vector
//	vecs := gw.EmbedBatch(ctx, texts)              // same order and length as texts
//
// A provider whose dimension differs from the configured one, or whose health
// check fails at startup, is refused and every call uses FallbackVector. The
// fallback is deterministic but carries no semantics.
package embedder
