package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/adapters/domainage"
	"github.com/mikey/mail-threat-scanner/internal/config"
	"github.com/mikey/mail-threat-scanner/internal/core"
)

// DomainAgeFactory creates the domain-age lookup service
type DomainAgeFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewDomainAgeFactory creates a new domain-age factory
func NewDomainAgeFactory(cfg *config.Config, logger *zap.Logger) *DomainAgeFactory {
	return &DomainAgeFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateDomainAgeService creates the RDAP lookup service wrapped with the
// given cache. When domain-age enrichment is disabled it returns nil, which
// zero-fills the age features downstream. A nil cache skips the cache layer.
func (f *DomainAgeFactory) CreateDomainAgeService(cacheBackend core.DomainAgeCache) (core.DomainAgeService, error) {
	if !f.cfg.GetBool("domain_age.enabled") {
		return nil, nil
	}

	timeout, err := f.cfg.GetDuration("domain_age.timeout")
	if err != nil {
		return nil, fmt.Errorf("invalid domain age timeout: %w", err)
	}

	rdap := domainage.NewRDAPService(
		f.cfg.GetString("domain_age.rdap_endpoint"),
		timeout,
		f.logger,
	)
	if cacheBackend == nil {
		return rdap, nil
	}

	ttl, err := f.cfg.GetDuration("domain_age.cache_ttl")
	if err != nil {
		return nil, fmt.Errorf("invalid domain age cache TTL: %w", err)
	}
	return domainage.NewCachedService(rdap, cacheBackend, ttl, f.logger), nil
}
