package filter

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

// CliFilter implements a command-line interface for threat analysis
type CliFilter struct {
	service *core.ThreatScannerService
	logger  *zap.Logger
	verbose bool
}

// NewCliFilter creates a new CLI filter
func NewCliFilter(service *core.ThreatScannerService, logger *zap.Logger, verbose bool) (*CliFilter, error) {
	return &CliFilter{
		service: service,
		logger:  logger,
		verbose: verbose,
	}, nil
}

// ProcessEmail analyzes an email and displays the results
func (f *CliFilter) ProcessEmail(ctx context.Context, email *core.EmailRecord) (*core.Verdict, error) {
	f.logger.Debug("Processing email", zap.String("sender", email.Sender))

	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("From: %s\n", email.Sender)
	fmt.Printf("To: %s\n", email.To)
	fmt.Printf("Subject: %s\n", email.Subject)
	fmt.Printf("Body length: %d bytes\n", len(email.Body))

	if f.verbose {
		preview := email.Body
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Printf("\nBody preview:\n%s\n", preview)
	}

	fmt.Printf("\n=== Analysis ===\n")
	startTime := time.Now()
	verdict := f.service.Analyze(ctx, email)
	duration := time.Since(startTime)

	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Is threat: %t\n", verdict.IsThreat)
	fmt.Printf("Threat score: %.4f\n", verdict.ThreatScore)
	fmt.Printf("Threat type: %s\n", verdict.ThreatType)
	fmt.Printf("Confidence: %s\n", verdict.Confidence)
	fmt.Printf("Engine used: %s\n", verdict.EngineUsed)
	fmt.Printf("Processing time: %v\n", duration)

	if len(verdict.RiskFactors) > 0 {
		fmt.Printf("\nRisk factors:\n")
		for _, factor := range verdict.RiskFactors {
			fmt.Printf("  - %s\n", factor)
		}
	}

	fmt.Printf("\nRisk breakdown: content %.0f%%, url %.0f%%, metadata %.0f%%\n",
		verdict.RiskBreakdown.Content*100,
		verdict.RiskBreakdown.URL*100,
		verdict.RiskBreakdown.Metadata*100)

	if len(verdict.SuspiciousURLs) > 0 {
		fmt.Printf("\nSuspicious URLs:\n")
		for _, u := range verdict.SuspiciousURLs {
			fmt.Printf("  %s (%s)\n", u.URL, u.Reason)
		}
	}

	if f.verbose && len(verdict.FeatureContributions) > 0 {
		fmt.Printf("\nTop feature contributions:\n")
		for _, c := range verdict.FeatureContributions {
			fmt.Printf("  %-40s %+.4f\n", c.Feature, c.Contribution)
		}
	}

	fmt.Printf("\nRecommendations:\n")
	for _, rec := range verdict.Recommendations {
		fmt.Printf("  - %s\n", rec)
	}

	if verdict.Err != "" {
		fmt.Printf("\nAnalysis error: %s\n", verdict.Err)
	}

	return verdict, nil
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
