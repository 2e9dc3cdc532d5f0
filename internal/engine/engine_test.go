package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/core"
	"github.com/mikey/mail-threat-scanner/internal/features"
)

type stubClassifier struct {
	names     []string
	score     float64
	err       error
	gotVector []float64
}

func (s *stubClassifier) FeatureNames() []string { return s.names }

func (s *stubClassifier) PredictProba(_ context.Context, vector []float64) (float64, error) {
	s.gotVector = vector
	return s.score, s.err
}

type stubExplainer struct {
	stubClassifier
	contribs []core.FeatureContribution
}

func (s *stubExplainer) Contributions(_ context.Context, _ []float64) ([]core.FeatureContribution, error) {
	return s.contribs, nil
}

func newRuleEngine() *Engine {
	return New(nil, features.NewURLAnalyzer(nil), zap.NewNop())
}

func TestEvaluateRulePhishing(t *testing.T) {
	e := newRuleEngine()
	f := core.FeatureMap{
		"phishing_keyword_count": 5,
		"high_risk_phrase_count": 2,
		"url_count":              1,
		"urgency_word_count":     3,
		"exclamation_count":      4,
	}
	v := e.Evaluate(context.Background(), &core.EmailRecord{}, f)

	if !v.IsThreat {
		t.Error("IsThreat = false, want true")
	}
	if v.ThreatScore != 1 {
		t.Errorf("ThreatScore = %v, want capped 1", v.ThreatScore)
	}
	if v.ThreatType != core.ThreatPhishing {
		t.Errorf("ThreatType = %v, want phishing", v.ThreatType)
	}
	if v.Confidence != core.ConfidenceHigh {
		t.Errorf("Confidence = %v, want high", v.Confidence)
	}
	if v.EngineUsed != "rules" {
		t.Errorf("EngineUsed = %q, want rules", v.EngineUsed)
	}
	if !containsString(v.RiskFactors, "Multiple phishing keywords detected") {
		t.Errorf("RiskFactors missing keyword factor: %v", v.RiskFactors)
	}
	if !containsString(v.Recommendations, "HIGH RISK - Do not interact with this email") {
		t.Errorf("Recommendations = %v, want high-risk tier", v.Recommendations)
	}
}

func TestEvaluateRuleLegitimate(t *testing.T) {
	e := newRuleEngine()
	v := e.Evaluate(context.Background(), &core.EmailRecord{}, core.FeatureMap{})

	if v.IsThreat {
		t.Error("IsThreat = true for empty features")
	}
	if v.ThreatScore != 0 {
		t.Errorf("ThreatScore = %v, want 0", v.ThreatScore)
	}
	if v.ThreatType != core.ThreatLegitimate {
		t.Errorf("ThreatType = %v, want legitimate", v.ThreatType)
	}
	if len(v.Recommendations) == 0 || v.Recommendations[0] != "Email appears legitimate" {
		t.Errorf("Recommendations = %v", v.Recommendations)
	}
	b := v.RiskBreakdown
	third := 1.0 / 3
	if b.Content != third || b.URL != third || b.Metadata != third {
		t.Errorf("RiskBreakdown = %+v, want even thirds", b)
	}
}

func TestEvaluateRuleSuspiciousBand(t *testing.T) {
	e := newRuleEngine()
	f := core.FeatureMap{
		"high_risk_phrase_count": 1,
		"url_count":              3,
		"urgency_word_count":     1,
	}
	v := e.Evaluate(context.Background(), &core.EmailRecord{}, f)

	if v.ThreatType != core.ThreatSuspicious {
		t.Errorf("ThreatType = %v (score %v), want suspicious", v.ThreatType, v.ThreatScore)
	}
	if !v.IsThreat {
		t.Error("IsThreat = false, want true at suspicious band")
	}
	if v.Confidence != core.ConfidenceLow {
		t.Errorf("Confidence = %v, want low", v.Confidence)
	}
}

func TestRuleScoreWeights(t *testing.T) {
	tests := []struct {
		name string
		f    core.FeatureMap
		want float64
	}{
		{"empty", core.FeatureMap{}, 0},
		{"many keywords", core.FeatureMap{"phishing_keyword_count": 5}, 0.35},
		{"some keywords", core.FeatureMap{"phishing_keyword_count": 3}, 0.25},
		{"ip in url", core.FeatureMap{"url_has_ip_address": 1}, 0.25},
		{"aggregated ip flag", core.FeatureMap{"url_max_has_ip_address": 1}, 0.25},
		{"brand impersonation", core.FeatureMap{"url_brand_impersonation": 1}, 0.25},
		{"risky attachment", core.FeatureMap{"has_high_risk_attachment": 1}, 0.2},
		{"mild punctuation", core.FeatureMap{"exclamation_count": 2}, 0.08},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ruleScore(tt.f); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ruleScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateClassifierPath(t *testing.T) {
	c := &stubClassifier{
		names: []string{"phishing_keyword_count", "url_count", "never_extracted"},
		score: 0.9,
	}
	e := New(c, features.NewURLAnalyzer(nil), zap.NewNop())
	f := core.FeatureMap{"phishing_keyword_count": 5, "url_count": 1}
	v := e.Evaluate(context.Background(), &core.EmailRecord{}, f)

	if v.EngineUsed != "classifier" {
		t.Errorf("EngineUsed = %q, want classifier", v.EngineUsed)
	}
	if v.ThreatScore != 0.9 {
		t.Errorf("ThreatScore = %v, want 0.9", v.ThreatScore)
	}
	want := []float64{5, 1, 0}
	if len(c.gotVector) != len(want) {
		t.Fatalf("vector length = %d, want %d", len(c.gotVector), len(want))
	}
	for i := range want {
		if c.gotVector[i] != want[i] {
			t.Errorf("vector[%d] = %v, want %v", i, c.gotVector[i], want[i])
		}
	}
}

func TestEvaluateClassifierFallback(t *testing.T) {
	c := &stubClassifier{names: []string{"url_count"}, err: errors.New("model not loaded")}
	e := New(c, features.NewURLAnalyzer(nil), zap.NewNop())
	v := e.Evaluate(context.Background(), &core.EmailRecord{}, core.FeatureMap{"phishing_keyword_count": 5})

	if v.EngineUsed != "rules" {
		t.Errorf("EngineUsed = %q, want rules after classifier failure", v.EngineUsed)
	}
	if v.ThreatScore != 0.35 {
		t.Errorf("ThreatScore = %v, want rule-based 0.35", v.ThreatScore)
	}
}

func TestEvaluateClassifierScoreClamped(t *testing.T) {
	c := &stubClassifier{names: []string{"url_count"}, score: 1.7}
	e := New(c, features.NewURLAnalyzer(nil), zap.NewNop())
	v := e.Evaluate(context.Background(), &core.EmailRecord{}, core.FeatureMap{})
	if v.ThreatScore != 1 {
		t.Errorf("ThreatScore = %v, want clamped 1", v.ThreatScore)
	}
}

func TestEvaluateContributions(t *testing.T) {
	c := &stubExplainer{
		stubClassifier: stubClassifier{names: []string{"a", "b", "c", "d"}, score: 0.8},
		contribs: []core.FeatureContribution{
			{Feature: "url_has_ip_address", Contribution: 0.6},
			{Feature: "phishing_keyword_count", Contribution: 0.3},
			{Feature: "from_has_numbers", Contribution: 0.1},
			{Feature: "word_count", Contribution: -0.05},
		},
	}
	e := New(c, features.NewURLAnalyzer(nil), zap.NewNop())
	e.SetTopContributions(3)
	v := e.Evaluate(context.Background(), &core.EmailRecord{}, core.FeatureMap{})

	if len(v.FeatureContributions) != 3 {
		t.Fatalf("got %d contributions, want top 3", len(v.FeatureContributions))
	}
	if v.FeatureContributions[0].Feature != "url_has_ip_address" {
		t.Errorf("top contribution = %q, want url_has_ip_address", v.FeatureContributions[0].Feature)
	}

	b := v.RiskBreakdown
	if math.Abs(b.URL-0.6) > 1e-9 || math.Abs(b.Content-0.3) > 1e-9 || math.Abs(b.Metadata-0.1) > 1e-9 {
		t.Errorf("RiskBreakdown = %+v, want 0.3/0.6/0.1 split", b)
	}
}

func TestBandThreatType(t *testing.T) {
	tests := []struct {
		score float64
		want  core.ThreatType
	}{
		{0.7, core.ThreatPhishing},
		{0.95, core.ThreatPhishing},
		{0.69, core.ThreatSuspicious},
		{0.5, core.ThreatSuspicious},
		{0.49, core.ThreatLegitimate},
		{0, core.ThreatLegitimate},
	}
	for _, tt := range tests {
		if got := bandThreatType(tt.score); got != tt.want {
			t.Errorf("bandThreatType(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestBandConfidence(t *testing.T) {
	tests := []struct {
		score   float64
		factors int
		want    core.Confidence
	}{
		{0.9, 0, core.ConfidenceHigh},
		{0.3, 5, core.ConfidenceHigh},
		{0.65, 0, core.ConfidenceMedium},
		{0.3, 2, core.ConfidenceMedium},
		{0.3, 1, core.ConfidenceLow},
	}
	for _, tt := range tests {
		if got := bandConfidence(tt.score, tt.factors); got != tt.want {
			t.Errorf("bandConfidence(%v, %d) = %v, want %v", tt.score, tt.factors, got, tt.want)
		}
	}
}

func TestSuspiciousSpans(t *testing.T) {
	subject := "Urgent notice"
	body := "click here http://evil.example/x"
	spans := suspiciousSpans(subject, body)

	if len(spans) != 3 {
		t.Fatalf("got %d spans, want 3: %+v", len(spans), spans)
	}

	text := subject + "\n\n" + body
	for i, s := range spans {
		if s.Start < 0 || s.End > len(text) || s.Start >= s.End {
			t.Errorf("span %d has invalid bounds: %+v", i, s)
		}
		if i > 0 && spans[i-1].Start > s.Start {
			t.Errorf("spans not sorted by start: %+v", spans)
		}
	}

	if got := text[spans[0].Start:spans[0].End]; got != "Urgent" {
		t.Errorf("first span text = %q, want Urgent", got)
	}
	if spans[0].Reason != "Suspicious phrase" {
		t.Errorf("first span reason = %q", spans[0].Reason)
	}
	if got := text[spans[1].Start:spans[1].End]; got != "click here" {
		t.Errorf("second span text = %q, want click here", got)
	}
	if spans[2].Reason != "URL" {
		t.Errorf("third span reason = %q, want URL", spans[2].Reason)
	}
}

func TestSuspiciousSpansEmpty(t *testing.T) {
	if spans := suspiciousSpans("", ""); spans != nil {
		t.Errorf("got %v, want nil for empty text", spans)
	}
}

func TestSuspiciousURLs(t *testing.T) {
	e := newRuleEngine()
	out := e.suspiciousURLs(context.Background(), []string{
		"http://paypal-update.xyz/login",
		"https://example.com/",
		"http://bit.ly/x",
	})

	if len(out) != 3 {
		t.Fatalf("got %d annotated URLs, want 3", len(out))
	}
	first := out[0].Reason
	if first != "Brand impersonation; Suspicious TLD" {
		t.Errorf("reasons = %q, want brand impersonation and suspicious TLD", first)
	}
	if out[1].Reason != "None" {
		t.Errorf("benign URL reason = %q, want None", out[1].Reason)
	}
	if out[2].Reason != "URL shortener" {
		t.Errorf("shortener reason = %q", out[2].Reason)
	}
}

func TestTopByMagnitude(t *testing.T) {
	in := []core.FeatureContribution{
		{Feature: "a", Contribution: 0.1},
		{Feature: "b", Contribution: -0.9},
		{Feature: "c", Contribution: 0.5},
	}
	out := topByMagnitude(in, 2)
	if len(out) != 2 {
		t.Fatalf("got %d, want 2", len(out))
	}
	if out[0].Feature != "b" || out[1].Feature != "c" {
		t.Errorf("order = %q, %q; want b, c", out[0].Feature, out[1].Feature)
	}
	if in[0].Feature != "a" {
		t.Error("input slice must not be reordered")
	}
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
