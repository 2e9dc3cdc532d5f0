package domainage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

// CachedService wraps a DomainAgeService with a cache. Failed lookups are
// cached negatively so an unresponsive registry is not hammered on every
// email that mentions the same domain.
type CachedService struct {
	upstream core.DomainAgeService
	cache    core.DomainAgeCache
	ttl      time.Duration
	logger   *zap.Logger
}

// NewCachedService creates a caching wrapper around upstream.
func NewCachedService(
	upstream core.DomainAgeService,
	cache core.DomainAgeCache,
	ttl time.Duration,
	logger *zap.Logger,
) *CachedService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedService{
		upstream: upstream,
		cache:    cache,
		ttl:      ttl,
		logger:   logger,
	}
}

// Lookup resolves domain age from cache, falling back to the upstream
// service on a miss.
func (s *CachedService) Lookup(ctx context.Context, domain string) (core.DomainAge, error) {
	if entry, err := s.cache.Get(ctx, domain); err == nil && entry != nil {
		s.logger.Debug("Domain age cache hit", zap.String("domain", domain))
		if entry.AgeDays < 0 {
			return core.DomainAge{}, fmt.Errorf("cached lookup failure for %s", domain)
		}
		return core.DomainAge{
			AgeDays:         entry.AgeDays,
			RecentlyUpdated: entry.RecentlyUpdated,
		}, nil
	}

	age, err := s.upstream.Lookup(ctx, domain)
	now := time.Now()
	if err != nil {
		// Negative entry: AgeDays -1 means "lookup failed recently".
		if cerr := s.cache.Set(ctx, &core.DomainAgeEntry{
			Domain:    domain,
			AgeDays:   -1,
			FetchedAt: now,
			ExpiresAt: now.Add(s.ttl),
		}); cerr != nil {
			s.logger.Warn("Failed to cache negative domain age entry", zap.Error(cerr))
		}
		return core.DomainAge{}, err
	}

	if cerr := s.cache.Set(ctx, &core.DomainAgeEntry{
		Domain:          domain,
		AgeDays:         age.AgeDays,
		RecentlyUpdated: age.RecentlyUpdated,
		FetchedAt:       now,
		ExpiresAt:       now.Add(s.ttl),
	}); cerr != nil {
		s.logger.Warn("Failed to cache domain age entry", zap.Error(cerr))
	}
	return age, nil
}
