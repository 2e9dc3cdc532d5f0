package embedding

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/utils"
)

// BedrockEmbedder produces text embeddings using Amazon Bedrock
// Titan embedding models.
type BedrockEmbedder struct {
	client        *bedrockruntime.Client
	modelID       string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewBedrockEmbedder creates a new Bedrock-backed embedder.
func NewBedrockEmbedder(
	client *bedrockruntime.Client,
	modelID string,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *BedrockEmbedder {
	return &BedrockEmbedder{
		client:        client,
		modelID:       modelID,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed encodes text into a fixed-length vector.
func (e *BedrockEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	processed := e.textProcessor.ProcessText(text, e.maxBodySize)

	payload, err := json.Marshal(titanEmbedRequest{InputText: processed})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	resp, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(e.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding with Bedrock: %w", err)
	}

	var out titanEmbedResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse Bedrock embedding response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding response from Bedrock")
	}

	e.logger.Debug("Generated embedding",
		zap.String("provider", "bedrock"),
		zap.Int("dimensions", len(out.Embedding)))
	return out.Embedding, nil
}
