// Package embed turns text into fixed-dimensionality vectors. The actual
// model is an external collaborator reached over an OpenAI-compatible API;
// the pipeline only depends on the Embedder interface so tests can substitute
// a deterministic stand-in.
package embed

import "context"

// Embedder computes one dense vector per input text. Output order matches
// input order and all vectors share one dimensionality.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
