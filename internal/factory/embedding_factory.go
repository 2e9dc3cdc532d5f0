package factory

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/adapters/embedding"
	"github.com/mikey/mail-threat-scanner/internal/config"
	"github.com/mikey/mail-threat-scanner/internal/core"
	"github.com/mikey/mail-threat-scanner/internal/utils"
)

// EmbeddingFactory creates embedders based on configuration
type EmbeddingFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewEmbeddingFactory creates a new embedding factory
func NewEmbeddingFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *EmbeddingFactory {
	return &EmbeddingFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateEmbedder creates an embedder based on the configuration. Provider
// "none" returns nil, which disables semantic features downstream.
func (f *EmbeddingFactory) CreateEmbedder() (core.Embedder, error) {
	maxBodySize := f.cfg.GetInt("scanner.max_body_size")

	switch provider := f.cfg.GetEmbedding().Provider; provider {
	case "", "none":
		return nil, nil
	case "openai":
		cfg := f.cfg.GetOpenAIEmbedding()
		return embedding.NewOpenAIEmbedder(
			cfg.APIKey,
			cfg.ModelName,
			maxBodySize,
			f.logger,
			f.textProcessor,
		), nil
	case "gemini":
		cfg := f.cfg.GetGeminiEmbedding()
		return embedding.NewGeminiEmbedder(
			cfg.APIKey,
			cfg.ModelName,
			maxBodySize,
			f.logger,
			f.textProcessor,
		)
	case "bedrock":
		cfg := f.cfg.GetBedrockEmbedding()
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Region),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}
		return embedding.NewBedrockEmbedder(
			bedrockruntime.NewFromConfig(awsCfg),
			cfg.ModelID,
			maxBodySize,
			f.logger,
			f.textProcessor,
		), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}
}
