package core

import (
	"context"
)

// Classifier is the optional trained-model capability. The scanner treats it
// as an opaque predictor: a declared feature order plus a probability for the
// positive (threat) class. Implementations own any scaling transform.
type Classifier interface {
	// FeatureNames returns the ordered feature names the model was fit against.
	FeatureNames() []string

	// PredictProba scores one feature vector (in FeatureNames order) and
	// returns the probability of the positive class.
	PredictProba(ctx context.Context, vector []float64) (float64, error)
}

// ContributionExplainer is optionally implemented by a Classifier that can
// attribute its score to individual features for a single instance.
type ContributionExplainer interface {
	// Contributions returns per-feature signed contributions for one vector,
	// in the classifier's declared feature order.
	Contributions(ctx context.Context, vector []float64) ([]FeatureContribution, error)
}

// Embedder is the optional embedding capability used for semantic features.
type Embedder interface {
	// Embed encodes text into a fixed-length vector.
	Embed(ctx context.Context, text string) ([]float64, error)
}

// DomainAgeService is the optional registration-age enrichment. Lookups are
// time-bounded; implementations must return rather than block past their
// deadline.
type DomainAgeService interface {
	// Lookup resolves the age of a registrable domain.
	Lookup(ctx context.Context, domain string) (DomainAge, error)
}

// DomainAgeCache stores domain-age lookups for the configured TTL. Entries
// are idempotent pure functions of the domain, so last-writer-wins races
// between concurrent callers are acceptable.
type DomainAgeCache interface {
	// Get retrieves a cached entry for a registrable domain.
	Get(ctx context.Context, domain string) (*DomainAgeEntry, error)

	// Set stores a cache entry.
	Set(ctx context.Context, entry *DomainAgeEntry) error

	// Delete removes a cache entry.
	Delete(ctx context.Context, domain string) error

	// Cleanup removes expired entries.
	Cleanup(ctx context.Context) error
}
