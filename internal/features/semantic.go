package features

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

// SemanticFeatureDim is the fixed number of embedding-derived features.
// Provider vectors longer than this are truncated; shorter ones are
// zero-padded so the key set never varies.
const SemanticFeatureDim = 32

// SemanticAnalyzer derives a fixed-size feature block from text embeddings.
// With no embedder configured it emits the same keys, all zero, so the
// extractor never needs to know whether the capability is present.
type SemanticAnalyzer struct {
	embedder core.Embedder
}

// NewSemanticAnalyzer creates a semantic analyzer. embedder may be nil.
func NewSemanticAnalyzer(embedder core.Embedder) *SemanticAnalyzer {
	return &SemanticAnalyzer{embedder: embedder}
}

// Extract encodes subject and body independently, mean-pools the two
// vectors, and truncates to SemanticFeatureDim features. Any embedding
// failure degrades to the zero block.
func (a *SemanticAnalyzer) Extract(ctx context.Context, subject, body string) map[string]float64 {
	f := make(map[string]float64, SemanticFeatureDim)
	for i := 1; i <= SemanticFeatureDim; i++ {
		f[semanticKey(i)] = 0
	}
	if a.embedder == nil {
		return f
	}

	subjectVec, err := a.embedder.Embed(ctx, orSpace(subject))
	if err != nil {
		return f
	}
	bodyVec, err := a.embedder.Embed(ctx, orSpace(body))
	if err != nil {
		return f
	}

	n := len(subjectVec)
	if len(bodyVec) < n {
		n = len(bodyVec)
	}
	if n > SemanticFeatureDim {
		n = SemanticFeatureDim
	}
	for i := 0; i < n; i++ {
		f[semanticKey(i+1)] = (subjectVec[i] + bodyVec[i]) / 2
	}
	return f
}

func semanticKey(i int) string {
	return fmt.Sprintf("semantic_%d", i)
}

// orSpace substitutes a single space for empty text; embedding providers
// commonly reject empty input.
func orSpace(s string) string {
	if strings.TrimSpace(s) == "" {
		return " "
	}
	return s
}
