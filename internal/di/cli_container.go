package di

import (
	"flag"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/adapters/domainage"
	"github.com/mikey/mail-threat-scanner/internal/config"
	"github.com/mikey/mail-threat-scanner/internal/core"
	"github.com/mikey/mail-threat-scanner/internal/engine"
	"github.com/mikey/mail-threat-scanner/internal/factory"
	"github.com/mikey/mail-threat-scanner/internal/features"
	"github.com/mikey/mail-threat-scanner/internal/logging"
	"github.com/mikey/mail-threat-scanner/internal/ports"
	"github.com/mikey/mail-threat-scanner/internal/utils"
	"github.com/mikey/mail-threat-scanner/internal/whitelist"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Classifier flags
	BundlePath string

	// Embedding flags
	EmbeddingProvider string
	OpenAIAPIKey      string
	OpenAIModelName   string
	GeminiAPIKey      string
	GeminiModelName   string
	BedrockRegion     string
	BedrockModelID    string

	// Domain age flags
	DomainAgeEnabled bool
	RDAPEndpoint     string

	// Output flags
	TopContributions int
	MaxBodySize      int

	// Input flags
	InputFile  string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// Classifier flags
	flag.StringVar(&flags.BundlePath, "model", "", "Path to trained classifier bundle (rule-based scoring if empty)")

	// Embedding flags
	flag.StringVar(&flags.EmbeddingProvider, "embedding", "none", "Embedding provider (none, openai, gemini, bedrock)")
	flag.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI embeddings")
	flag.StringVar(&flags.OpenAIModelName, "openai-model", "text-embedding-3-small", "OpenAI embedding model")
	flag.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Gemini embeddings")
	flag.StringVar(&flags.GeminiModelName, "gemini-model", "text-embedding-004", "Gemini embedding model")
	flag.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock embeddings")
	flag.StringVar(&flags.BedrockModelID, "bedrock-model", "amazon.titan-embed-text-v2:0", "Bedrock embedding model ID")

	// Domain age flags
	flag.BoolVar(&flags.DomainAgeEnabled, "domain-age", false, "Enable RDAP domain age lookups")
	flag.StringVar(&flags.RDAPEndpoint, "rdap-endpoint", "", "RDAP endpoint override")

	// Output flags
	flag.IntVar(&flags.TopContributions, "top-contributions", 15, "Number of feature contributions to report")
	flag.IntVar(&flags.MaxBodySize, "max-body-size", 65536, "Maximum email body size to analyze")

	// Input flags
	flag.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.New()
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewEmbeddingFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return nil, err
	}

	// Register text processor via its factory
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register classifier
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return nil, err
	}

	// Register embedder
	if err := container.Provide(func(f *factory.EmbeddingFactory) (core.Embedder, error) {
		return f.CreateEmbedder()
	}); err != nil {
		return nil, err
	}

	// Register domain age service directly from flags; the CLI skips the
	// cache layer so one-shot runs have no storage side effects.
	if err := container.Provide(func(flags *CLIFlags, cfg *config.Config, logger *zap.Logger) (core.DomainAgeService, error) {
		if !flags.DomainAgeEnabled {
			return nil, nil
		}
		timeout, err := cfg.GetDuration("domain_age.timeout")
		if err != nil {
			return nil, err
		}
		return domainage.NewRDAPService(flags.RDAPEndpoint, timeout, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register feature extractor
	if err := container.Provide(func(
		domainAge core.DomainAgeService,
		embedder core.Embedder,
		logger *zap.Logger,
	) core.FeatureExtractor {
		return features.NewExtractor(domainAge, embedder, logger)
	}); err != nil {
		return nil, err
	}

	// Register scoring engine
	if err := container.Provide(func(
		flags *CLIFlags,
		classifier core.Classifier,
		domainAge core.DomainAgeService,
		logger *zap.Logger,
	) core.ScoringEngine {
		eng := engine.New(classifier, features.NewURLAnalyzer(domainAge), logger)
		eng.SetTopContributions(flags.TopContributions)
		return eng
	}); err != nil {
		return nil, err
	}

	// Register threat scanner service with no whitelist
	if err := container.Provide(func(
		extractor core.FeatureExtractor,
		eng core.ScoringEngine,
		logger *zap.Logger,
	) *core.ThreatScannerService {
		return core.NewThreatScannerService(
			extractor,
			eng,
			whitelist.NewChecker(nil, logger),
			logger,
			1,
		)
	}); err != nil {
		return nil, err
	}

	// Register email filter
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set some cli specific settings
	v.Set("server.filter_type", "cli")
	v.Set("cli.verbose", flags.Verbose)

	// Classifier settings
	if flags.BundlePath != "" {
		v.Set("classifier.enabled", true)
		v.Set("classifier.bundle_path", flags.BundlePath)
	}

	// Embedding settings
	v.Set("embedding.provider", flags.EmbeddingProvider)
	switch flags.EmbeddingProvider {
	case "openai":
		v.Set("embedding.openai.api_key", flags.OpenAIAPIKey)
		v.Set("embedding.openai.model_name", flags.OpenAIModelName)
	case "gemini":
		v.Set("embedding.gemini.api_key", flags.GeminiAPIKey)
		v.Set("embedding.gemini.model_name", flags.GeminiModelName)
	case "bedrock":
		v.Set("embedding.bedrock.region", flags.BedrockRegion)
		v.Set("embedding.bedrock.model_id", flags.BedrockModelID)
	}

	// Domain age settings
	v.Set("domain_age.enabled", flags.DomainAgeEnabled)
	v.Set("domain_age.rdap_endpoint", flags.RDAPEndpoint)

	// Scanner settings
	v.Set("scanner.top_contributions", flags.TopContributions)
	v.Set("scanner.max_body_size", flags.MaxBodySize)

	return config.NewFromViper(v)
}
