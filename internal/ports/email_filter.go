package ports

import (
	"context"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

// EmailFilter defines the interface for email scanning surfaces
type EmailFilter interface {
	// ProcessEmail analyzes an email and returns the verdict
	ProcessEmail(ctx context.Context, email *core.EmailRecord) (*core.Verdict, error)

	// Start starts the filter service
	Start() error

	// Stop stops the filter service
	Stop() error
}
