package whitelist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker decides whether a sender domain bypasses threat analysis.
// A whitelisted domain also covers its subdomains, so "example.com"
// matches mail from "alerts.example.com".
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new whitelist checker.
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalized := make([]string, 0, len(domains))
	for _, domain := range domains {
		d := strings.ToLower(strings.TrimSpace(domain))
		if d != "" {
			normalized = append(normalized, d)
		}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized sender whitelist", zap.Strings("domains", normalized))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// IsWhitelisted reports whether the sender address belongs to a
// whitelisted domain. Accepts either a full address or a bare domain.
func (c *Checker) IsWhitelisted(from string) bool {
	if len(c.domains) == 0 {
		return false
	}

	domain := strings.ToLower(strings.TrimSpace(from))
	if at := strings.LastIndex(domain, "@"); at >= 0 {
		domain = domain[at+1:]
	}
	domain = strings.TrimSuffix(domain, ">")
	if domain == "" {
		return false
	}

	for _, whitelisted := range c.domains {
		if domain == whitelisted || strings.HasSuffix(domain, "."+whitelisted) {
			if c.logger != nil {
				c.logger.Debug("Sender domain is whitelisted",
					zap.String("domain", domain),
					zap.String("sender", from))
			}
			return true
		}
	}

	return false
}
