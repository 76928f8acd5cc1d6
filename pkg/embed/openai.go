package embed

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// defaultBatchSize caps the number of inputs per embeddings request. Most
// OpenAI-compatible servers reject very large input arrays.
const defaultBatchSize = 128

// Config holds settings for any OpenAI-compatible embeddings provider
// (openai, ollama, llama.cpp servers, siliconflow, ...).
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	BatchSize int
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	batchSize int
}

// NewOpenAIEmbedder creates an embedder from config. BaseURL is optional and
// defaults to the OpenAI API.
func NewOpenAIEmbedder(cfg Config) *OpenAIEmbedder {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     cfg.Model,
		batchSize: batchSize,
	}
}

// EmbedBatch embeds all texts, issuing as many requests as the batch size
// requires. Within each response, vectors are placed by the provider's
// reported index, so output order always matches input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts[start:end],
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return nil, fmt.Errorf("create embeddings: %w", err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), end-start)
		}

		for _, data := range resp.Data {
			if data.Index < 0 || data.Index >= end-start {
				return nil, fmt.Errorf("embedding response index %d out of range", data.Index)
			}
			vectors[start+data.Index] = data.Embedding
		}
	}

	for i, vec := range vectors {
		if len(vec) == 0 {
			return nil, fmt.Errorf("empty embedding for input %d", i)
		}
	}
	return vectors, nil
}

var _ Embedder = (*OpenAIEmbedder)(nil)
