// Package embedding provides provider-backed implementations of the
// semantic embedding capability.
package embedding

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/utils"
)

// OpenAIEmbedder produces text embeddings using the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client        *openai.Client
	modelName     string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOpenAIEmbedder creates a new OpenAI-backed embedder.
func NewOpenAIEmbedder(
	apiKey string,
	modelName string,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIEmbedder {
	client := openai.NewClient(apiKey)

	return &OpenAIEmbedder{
		client:        client,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Embed encodes text into a fixed-length vector.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	processed := e.textProcessor.ProcessText(text, e.maxBodySize)

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.modelName),
		Input: []string{processed},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding with OpenAI: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response from OpenAI")
	}

	vector := make([]float64, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float64(v)
	}

	e.logger.Debug("Generated embedding",
		zap.String("provider", "openai"),
		zap.Int("dimensions", len(vector)))
	return vector, nil
}
