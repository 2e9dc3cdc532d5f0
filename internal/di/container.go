package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

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

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewDomainAgeFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewEmbeddingFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register domain age cache; only materialized when lookups are enabled
	if err := container.Provide(func(cfg *config.Config, f *factory.CacheFactory) (core.DomainAgeCache, error) {
		if !cfg.GetBool("domain_age.enabled") {
			return nil, nil
		}
		return f.CreateDomainAgeCache()
	}); err != nil {
		return nil, err
	}

	// Register optional capabilities
	if err := container.Provide(func(f *factory.DomainAgeFactory, cache core.DomainAgeCache) (core.DomainAgeService, error) {
		return f.CreateDomainAgeService(cache)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.EmbeddingFactory) (core.Embedder, error) {
		return f.CreateEmbedder()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return nil, err
	}

	// Register feature extractor
	if err := container.Provide(func(
		domainAge core.DomainAgeService,
		embedder core.Embedder,
		logger *zap.Logger,
	) *features.Extractor {
		return features.NewExtractor(domainAge, embedder, logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(e *features.Extractor) core.FeatureExtractor {
		return e
	}); err != nil {
		return nil, err
	}

	// Register scoring engine
	if err := container.Provide(func(
		cfg *config.Config,
		classifier core.Classifier,
		domainAge core.DomainAgeService,
		logger *zap.Logger,
	) *engine.Engine {
		eng := engine.New(classifier, features.NewURLAnalyzer(domainAge), logger)
		eng.SetTopContributions(cfg.GetInt("scanner.top_contributions"))
		return eng
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(e *engine.Engine) core.ScoringEngine {
		return e
	}); err != nil {
		return nil, err
	}

	// Register whitelist checker
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.WhitelistChecker {
		return whitelist.NewChecker(cfg.GetStringSlice("scanner.whitelisted_domains"), logger)
	}); err != nil {
		return nil, err
	}

	// Register threat scanner service
	if err := container.Provide(func(
		extractor core.FeatureExtractor,
		eng core.ScoringEngine,
		checker core.WhitelistChecker,
		logger *zap.Logger,
		cfg *config.Config,
	) *core.ThreatScannerService {
		return core.NewThreatScannerService(
			extractor,
			eng,
			checker,
			logger,
			cfg.GetInt("scanner.batch_workers"),
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
