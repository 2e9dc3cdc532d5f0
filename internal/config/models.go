package config

// EmbeddingConfig represents the configuration for the embedding provider
type EmbeddingConfig struct {
	Provider string
}

// OpenAIEmbeddingConfig represents the configuration for OpenAI embeddings
type OpenAIEmbeddingConfig struct {
	APIKey    string
	ModelName string
}

// GeminiEmbeddingConfig represents the configuration for Gemini embeddings
type GeminiEmbeddingConfig struct {
	APIKey    string
	ModelName string
}

// BedrockEmbeddingConfig represents the configuration for Bedrock embeddings
type BedrockEmbeddingConfig struct {
	Region  string
	ModelID string
}

// ClassifierConfig represents the configuration for the trained classifier
type ClassifierConfig struct {
	Enabled    bool
	BundlePath string
}

// GetEmbedding returns the embedding provider configuration
func (c *Config) GetEmbedding() EmbeddingConfig {
	return EmbeddingConfig{
		Provider: c.GetString("embedding.provider"),
	}
}

// GetOpenAIEmbedding returns the OpenAI embedding configuration
func (c *Config) GetOpenAIEmbedding() OpenAIEmbeddingConfig {
	return OpenAIEmbeddingConfig{
		APIKey:    c.GetString("embedding.openai.api_key"),
		ModelName: c.GetString("embedding.openai.model_name"),
	}
}

// GetGeminiEmbedding returns the Gemini embedding configuration
func (c *Config) GetGeminiEmbedding() GeminiEmbeddingConfig {
	return GeminiEmbeddingConfig{
		APIKey:    c.GetString("embedding.gemini.api_key"),
		ModelName: c.GetString("embedding.gemini.model_name"),
	}
}

// GetBedrockEmbedding returns the Bedrock embedding configuration
func (c *Config) GetBedrockEmbedding() BedrockEmbeddingConfig {
	return BedrockEmbeddingConfig{
		Region:  c.GetString("embedding.bedrock.region"),
		ModelID: c.GetString("embedding.bedrock.model_id"),
	}
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		Enabled:    c.GetBool("classifier.enabled"),
		BundlePath: c.GetString("classifier.bundle_path"),
	}
}
