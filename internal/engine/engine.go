// Package engine turns an extracted FeatureMap into a Verdict. It prefers a
// caller-supplied classifier and falls back to a deterministic rule table
// whenever the classifier is absent or fails, so a verdict is always
// produced.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/core"
	"github.com/mikey/mail-threat-scanner/internal/features"
)

const (
	phishingThreshold   = 0.7
	suspiciousThreshold = 0.5

	// DefaultTopContributions bounds the explainability output.
	DefaultTopContributions = 15
)

// Engine scores feature maps and assembles explainable verdicts.
type Engine struct {
	classifier core.Classifier
	urls       *features.URLAnalyzer
	logger     *zap.Logger
	topK       int
}

// New creates a scoring engine. classifier may be nil, in which case only
// the rule-based path is used.
func New(classifier core.Classifier, urlAnalyzer *features.URLAnalyzer, logger *zap.Logger) *Engine {
	return &Engine{
		classifier: classifier,
		urls:       urlAnalyzer,
		logger:     logger,
		topK:       DefaultTopContributions,
	}
}

// SetTopContributions bounds how many feature contributions a verdict
// carries. Non-positive values keep the default.
func (e *Engine) SetTopContributions(k int) {
	if k > 0 {
		e.topK = k
	}
}

// Evaluate scores one email's features and builds the full verdict.
func (e *Engine) Evaluate(ctx context.Context, email *core.EmailRecord, f core.FeatureMap) *core.Verdict {
	score, engineUsed, vector := e.score(ctx, f)

	riskFactors := riskFactors(f)
	contributions := e.contributions(ctx, vector)

	urls := email.URLs
	if len(urls) == 0 {
		urls = features.MineURLs(email.Body)
	}

	v := &core.Verdict{
		IsThreat:             score >= suspiciousThreshold,
		ThreatScore:          score,
		ThreatType:           bandThreatType(score),
		Confidence:           bandConfidence(score, len(riskFactors)),
		RiskFactors:          riskFactors,
		Recommendations:      recommendations(score),
		RiskBreakdown:        e.riskBreakdown(f, contributions),
		SuspiciousSpans:      suspiciousSpans(email.Subject, email.Body),
		SuspiciousURLs:       e.suspiciousURLs(ctx, urls),
		FeatureContributions: contributions,
		Features:             f,
		AnalyzedAt:           time.Now(),
		EngineUsed:           engineUsed,
	}
	return v
}

// score runs the classifier path when a classifier is configured, falling
// back to the rule table on any classifier error. The vector is returned so
// the explainability stage can reuse it.
func (e *Engine) score(ctx context.Context, f core.FeatureMap) (float64, string, []float64) {
	if e.classifier == nil {
		return ruleScore(f), "rules", nil
	}

	vector := vectorize(f, e.classifier.FeatureNames())
	score, err := e.classifier.PredictProba(ctx, vector)
	if err != nil {
		e.logger.Warn("Classifier prediction failed, using rule-based scoring",
			zap.Error(err))
		return ruleScore(f), "rules", nil
	}
	return clampScore(score), "classifier", vector
}

// vectorize orders features per the classifier's declared names, filling
// zeros for anything the extraction did not produce. Unknown extracted keys
// are simply not selected; they are never an error.
func vectorize(f core.FeatureMap, names []string) []float64 {
	vector := make([]float64, len(names))
	for i, name := range names {
		vector[i] = f[name]
	}
	return vector
}

// ruleScore is the deterministic fallback: a fixed additive weight table
// over extracted features, capped at 1. The weights are a hand-tuned
// default policy, kept stable so identical inputs always score identically.
func ruleScore(f core.FeatureMap) float64 {
	score := 0.0

	switch pk := f["phishing_keyword_count"]; {
	case pk > 4:
		score += 0.35
	case pk > 2:
		score += 0.25
	}

	if f["high_risk_phrase_count"] > 0 {
		score += 0.25
	}

	switch uc := f["url_count"]; {
	case uc > 2:
		score += 0.2
	case uc > 0:
		score += 0.1
	}

	if literalIPPresent(f) {
		score += 0.25
	}

	switch uw := f["urgency_word_count"]; {
	case uw > 2:
		score += 0.2
	case uw > 0:
		score += 0.1
	}

	switch ec := f["exclamation_count"]; {
	case ec > 3:
		score += 0.15
	case ec > 1:
		score += 0.08
	}

	if f["grammar_anomaly_score"] > 0.5 {
		score += 0.1
	}
	if brandImpersonationPresent(f) {
		score += 0.25
	}
	if f["cta_intensity"] > 0.5 {
		score += 0.1
	}
	if f["time_pressure_score"] > 0.5 {
		score += 0.1
	}
	if f["has_high_risk_attachment"] == 1 {
		score += 0.2
	}

	if score > 1 {
		score = 1
	}
	return score
}

// contributions asks the classifier for per-feature attribution when it
// supports that; failures produce an empty list, never a blocked verdict.
func (e *Engine) contributions(ctx context.Context, vector []float64) []core.FeatureContribution {
	if vector == nil {
		return nil
	}
	explainer, ok := e.classifier.(core.ContributionExplainer)
	if !ok {
		return nil
	}
	contribs, err := explainer.Contributions(ctx, vector)
	if err != nil {
		e.logger.Debug("Contribution attribution failed", zap.Error(err))
		return nil
	}
	return topByMagnitude(contribs, e.topK)
}

func bandThreatType(score float64) core.ThreatType {
	switch {
	case score >= phishingThreshold:
		return core.ThreatPhishing
	case score >= suspiciousThreshold:
		return core.ThreatSuspicious
	default:
		return core.ThreatLegitimate
	}
}

func bandConfidence(score float64, riskFactorCount int) core.Confidence {
	switch {
	case score >= 0.8 || riskFactorCount >= 4:
		return core.ConfidenceHigh
	case score >= 0.6 || riskFactorCount >= 2:
		return core.ConfidenceMedium
	default:
		return core.ConfidenceLow
	}
}

// literalIPPresent checks both the content scan and analyzed URL flags.
func literalIPPresent(f core.FeatureMap) bool {
	return f["ip_address_count"] > 0 ||
		f["url_has_ip_address"] == 1 ||
		f["url_max_has_ip_address"] == 1
}

func brandImpersonationPresent(f core.FeatureMap) bool {
	return f["url_brand_impersonation"] == 1 ||
		f["url_max_brand_impersonation"] == 1
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
