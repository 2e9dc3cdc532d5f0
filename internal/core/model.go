package core

import (
	"time"
)

// EmailRecord represents a single email submitted for threat analysis.
// It is an immutable input owned by the caller; the pipeline never mutates it.
type EmailRecord struct {
	Subject     string
	Body        string
	Sender      string
	To          string
	ReplyTo     string
	URLs        []string
	Attachments []Attachment
	Headers     map[string]string
}

// Attachment carries the only attachment property the pipeline looks at:
// the filename, used for extension-based risk lookup.
type Attachment struct {
	Filename string
}

// FeatureMap is the flat numeric feature space extracted from one email.
// The key set is identical for every email processed by one extractor
// configuration, so any consuming classifier sees a stable input shape.
type FeatureMap map[string]float64

// ThreatType classifies the verdict score band.
type ThreatType string

const (
	ThreatLegitimate ThreatType = "legitimate"
	ThreatSuspicious ThreatType = "suspicious"
	ThreatPhishing   ThreatType = "phishing"
)

// Confidence expresses how certain the engine is about its verdict.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// RiskBreakdown attributes the overall score across the three signal groups.
// The components sum to approximately 1.0.
type RiskBreakdown struct {
	Content  float64 `json:"content"`
	URL      float64 `json:"url"`
	Metadata float64 `json:"metadata"`
}

// Span marks a suspicious region in the concatenation subject + "\n\n" + body.
type Span struct {
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Reason string `json:"reason"`
}

// SuspiciousURL annotates one URL with human-readable reasons.
type SuspiciousURL struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// FeatureContribution is one feature's signed contribution to the
// classifier score for a single input instance.
type FeatureContribution struct {
	Feature      string  `json:"feature"`
	Contribution float64 `json:"contribution"`
}

// Verdict is the self-contained result of one analysis call.
type Verdict struct {
	IsThreat             bool                  `json:"is_threat"`
	ThreatScore          float64               `json:"threat_score"`
	ThreatType           ThreatType            `json:"threat_type"`
	Confidence           Confidence            `json:"confidence"`
	RiskFactors          []string              `json:"risk_factors"`
	Recommendations      []string              `json:"recommendations"`
	RiskBreakdown        RiskBreakdown         `json:"risk_breakdown"`
	SuspiciousSpans      []Span                `json:"suspicious_spans"`
	SuspiciousURLs       []SuspiciousURL       `json:"suspicious_urls"`
	FeatureContributions []FeatureContribution `json:"feature_contributions"`
	Features             FeatureMap            `json:"-"`
	AnalyzedAt           time.Time             `json:"analyzed_at"`
	EngineUsed           string                `json:"engine_used"`
	Err                  string                `json:"error,omitempty"`
}

// DomainAge is the result of a registration-age lookup for one domain.
type DomainAge struct {
	AgeDays         int
	RecentlyUpdated bool
}

// DomainAgeEntry is a cached domain-age lookup result.
type DomainAgeEntry struct {
	Domain          string
	AgeDays         int
	RecentlyUpdated bool
	FetchedAt       time.Time
	ExpiresAt       time.Time
}
