package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mikey/mail-threat-scanner/internal/utils"
)

// GeminiEmbedder produces text embeddings using the Google Gemini API.
type GeminiEmbedder struct {
	client        *genai.Client
	modelName     string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewGeminiEmbedder creates a new Gemini-backed embedder.
func NewGeminiEmbedder(
	apiKey string,
	modelName string,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*GeminiEmbedder, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiEmbedder{
		client:        client,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}, nil
}

// Embed encodes text into a fixed-length vector.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	processed := e.textProcessor.ProcessText(text, e.maxBodySize)

	model := e.client.EmbeddingModel(e.modelName)
	resp, err := model.EmbedContent(ctx, genai.Text(processed))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding with Gemini: %w", err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("empty embedding response from Gemini")
	}

	vector := make([]float64, len(resp.Embedding.Values))
	for i, v := range resp.Embedding.Values {
		vector[i] = float64(v)
	}

	e.logger.Debug("Generated embedding",
		zap.String("provider", "gemini"),
		zap.Int("dimensions", len(vector)))
	return vector, nil
}

// Close releases the underlying API client.
func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}
