// Package domainage resolves domain registration age through the public
// RDAP protocol, with a cache layer so repeated lookups stay off the wire.
package domainage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

const (
	defaultRDAPEndpoint = "https://rdap.org/domain/"
	defaultTimeout      = 3 * time.Second

	// Updates inside this window mark a domain as recently changed.
	recentUpdateWindow = 30 * 24 * time.Hour
)

// RDAPService looks up domain registration data over RDAP.
type RDAPService struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewRDAPService creates an RDAP lookup service. An empty endpoint selects
// the public rdap.org aggregator; a non-positive timeout selects the default.
func NewRDAPService(endpoint string, timeout time.Duration, logger *zap.Logger) *RDAPService {
	if endpoint == "" {
		endpoint = defaultRDAPEndpoint
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &RDAPService{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type rdapResponse struct {
	Events []struct {
		EventAction string `json:"eventAction"`
		EventDate   string `json:"eventDate"`
	} `json:"events"`
}

// Lookup resolves the registration age of a registrable domain.
func (s *RDAPService) Lookup(ctx context.Context, domain string) (core.DomainAge, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.endpoint+url.PathEscape(domain), nil)
	if err != nil {
		return core.DomainAge{}, fmt.Errorf("failed to build RDAP request: %w", err)
	}
	req.Header.Set("Accept", "application/rdap+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return core.DomainAge{}, fmt.Errorf("RDAP lookup failed for %s: %w", domain, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.DomainAge{}, fmt.Errorf("RDAP lookup for %s returned status %d", domain, resp.StatusCode)
	}

	var body rdapResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return core.DomainAge{}, fmt.Errorf("failed to parse RDAP response for %s: %w", domain, err)
	}

	var registered, updated time.Time
	for _, ev := range body.Events {
		t, err := time.Parse(time.RFC3339, ev.EventDate)
		if err != nil {
			continue
		}
		switch ev.EventAction {
		case "registration":
			registered = t
		case "last changed":
			updated = t
		}
	}

	if registered.IsZero() {
		return core.DomainAge{}, fmt.Errorf("RDAP response for %s has no registration event", domain)
	}

	now := time.Now()
	age := core.DomainAge{
		AgeDays:         int(now.Sub(registered).Hours() / 24),
		RecentlyUpdated: !updated.IsZero() && now.Sub(updated) < recentUpdateWindow,
	}

	s.logger.Debug("Resolved domain age",
		zap.String("domain", domain),
		zap.Int("age_days", age.AgeDays),
		zap.Bool("recently_updated", age.RecentlyUpdated))
	return age, nil
}
