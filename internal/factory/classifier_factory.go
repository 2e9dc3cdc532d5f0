package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/adapters/classifier"
	"github.com/mikey/mail-threat-scanner/internal/config"
	"github.com/mikey/mail-threat-scanner/internal/core"
)

// ClassifierFactory loads the trained classifier bundle
type ClassifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClassifier loads the classifier bundle if one is configured. A nil
// classifier selects the rule-based scoring path.
func (f *ClassifierFactory) CreateClassifier() (core.Classifier, error) {
	clfCfg := f.cfg.GetClassifier()
	if !clfCfg.Enabled {
		return nil, nil
	}
	return classifier.LoadBundle(clfCfg.BundlePath, f.logger)
}
