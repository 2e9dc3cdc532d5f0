package engine

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

const (
	maxSuspiciousSpans = 50
	maxSuspiciousURLs  = 20
	maxReportedURLLen  = 200

	// Domains younger than this many days are called out as young.
	youngDomainDays = 90
)

// Risk factors are fixed human-readable strings, each gated by the same
// feature thresholds the rule table uses.
func riskFactors(f core.FeatureMap) []string {
	factors := make([]string, 0, 8)

	if f["phishing_keyword_count"] > 2 {
		factors = append(factors, "Multiple phishing keywords detected")
	}
	if f["high_risk_phrase_count"] > 0 {
		factors = append(factors, "High-risk phrases found")
	}
	if f["url_count"] > 5 {
		factors = append(factors, "Excessive number of URLs")
	}
	if literalIPPresent(f) {
		factors = append(factors, "Direct IP addresses in links")
	}
	if f["urgency_word_count"] > 3 {
		factors = append(factors, "Urgency manipulation detected")
	}
	if f["exclamation_count"] > 3 {
		factors = append(factors, "Excessive punctuation (emotional manipulation)")
	}
	if f["from_has_numbers"] == 1 {
		factors = append(factors, "Suspicious sender address with numbers")
	}
	if f["uppercase_ratio"] > 0.3 {
		factors = append(factors, "Excessive use of uppercase letters")
	}
	if f["grammar_anomaly_score"] > 0.5 {
		factors = append(factors, "Grammar or spelling anomalies (possible machine-generated)")
	}
	if brandImpersonationPresent(f) {
		factors = append(factors, "Possible brand impersonation in URL")
	}
	if f["cta_intensity"] > 0.5 {
		factors = append(factors, "Strong call-to-action pressure")
	}
	if f["time_pressure_score"] > 0.5 {
		factors = append(factors, "Time-pressure or urgency tactics")
	}
	if f["has_high_risk_attachment"] == 1 {
		factors = append(factors, "High-risk attachment type detected")
	}

	return factors
}

// recommendations is a fixed four-tier message ladder keyed by score band.
func recommendations(score float64) []string {
	switch {
	case score >= 0.8:
		return []string{
			"HIGH RISK - Do not interact with this email",
			"Do not click any links or download attachments",
			"Mark as spam or phishing immediately",
			"Consider reporting to your IT security team",
		}
	case score >= 0.6:
		return []string{
			"MEDIUM RISK - Exercise extreme caution",
			"Verify sender identity through an alternate channel",
			"Do not provide any personal information",
			"Hover over links to check the destination before clicking",
		}
	case score >= 0.4:
		return []string{
			"LOW RISK - Be cautious",
			"Verify the sender if sensitive actions are requested",
			"Check for official communication through legitimate channels",
		}
	default:
		return []string{
			"Email appears legitimate",
			"Always remain vigilant with unexpected requests",
		}
	}
}

// riskBreakdown attributes the score across content/url/metadata groups.
// With classifier contributions available, positive contributions are
// summed by feature-name prefix; otherwise a coarse rule split applies; if
// every weight is zero the split is an even third each.
func (e *Engine) riskBreakdown(f core.FeatureMap, contributions []core.FeatureContribution) core.RiskBreakdown {
	if len(contributions) > 0 {
		if b, ok := breakdownFromContributions(contributions); ok {
			return b
		}
	}
	return ruleBreakdown(f)
}

func breakdownFromContributions(contributions []core.FeatureContribution) (core.RiskBreakdown, bool) {
	var content, url, metadata float64
	for _, c := range contributions {
		v := math.Max(0, c.Contribution)
		name := strings.ToLower(c.Feature)
		switch {
		case strings.HasPrefix(name, "url_"):
			url += v
		case strings.HasPrefix(name, "from_"),
			strings.HasPrefix(name, "reply_to_"),
			strings.HasPrefix(name, "subject_"):
			metadata += v
		default:
			content += v
		}
	}
	total := content + url + metadata
	if total <= 0 {
		return core.RiskBreakdown{}, false
	}
	return core.RiskBreakdown{
		Content:  content / total,
		URL:      url / total,
		Metadata: metadata / total,
	}, true
}

func ruleBreakdown(f core.FeatureMap) core.RiskBreakdown {
	var content, url, metadata float64

	if f["phishing_keyword_count"] > 0 || f["urgency_word_count"] > 0 {
		content += 0.5
	}
	if f["url_count"] > 0 {
		content += 0.2
		url += 0.5
	}
	if brandImpersonationPresent(f) {
		url += 0.5
	}
	if f["from_has_numbers"] == 1 {
		metadata += 0.2
	}

	total := content + url + metadata
	if total <= 0 {
		// Neutral default when nothing at all fired.
		return core.RiskBreakdown{Content: 1.0 / 3, URL: 1.0 / 3, Metadata: 1.0 / 3}
	}
	return core.RiskBreakdown{
		Content:  content / total,
		URL:      url / total,
		Metadata: metadata / total,
	}
}

var spanURLPattern = regexp.MustCompile(`https?://[^\s<>"']+|www\.[^\s<>"']+`)

// suspiciousSpans scans the subject+body concatenation for fixed phrases
// and URL patterns, returning offset-annotated spans sorted by start and
// capped for display.
func suspiciousSpans(subject, body string) []core.Span {
	text := subject + "\n\n" + body
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lower := strings.ToLower(text)

	spans := make([]core.Span, 0, 16)
	for _, kw := range spanPhrases {
		for start := 0; ; {
			idx := strings.Index(lower[start:], kw)
			if idx < 0 {
				break
			}
			abs := start + idx
			spans = append(spans, core.Span{Start: abs, End: abs + len(kw), Reason: "Suspicious phrase"})
			start = abs + 1
		}
	}

	for _, m := range spanURLPattern.FindAllStringIndex(text, -1) {
		spans = append(spans, core.Span{Start: m[0], End: m[1], Reason: "URL"})
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	if len(spans) > maxSuspiciousSpans {
		spans = spans[:maxSuspiciousSpans]
	}
	return spans
}

// spanPhrases mirrors the high-signal subset of the phishing lexicon used
// for span highlighting.
var spanPhrases = []string{
	"urgent", "verify", "suspend", "click here", "verify now",
	"account suspended", "password expired", "update payment",
}

// suspiciousURLs annotates each URL with human-readable reasons derived
// from the URL analyzer's flags. A URL whose analysis panics gets a generic
// reason instead of aborting the verdict.
func (e *Engine) suspiciousURLs(ctx context.Context, urls []string) []core.SuspiciousURL {
	out := make([]core.SuspiciousURL, 0, len(urls))
	for i, url := range urls {
		if i >= maxSuspiciousURLs {
			break
		}
		if url == "" {
			continue
		}
		reasons := e.urlReasons(ctx, url)
		display := url
		if len(display) > maxReportedURLLen {
			display = display[:maxReportedURLLen]
		}
		reason := "None"
		if len(reasons) > 0 {
			reason = strings.Join(reasons, "; ")
		}
		out = append(out, core.SuspiciousURL{URL: display, Reason: reason})
	}
	return out
}

func (e *Engine) urlReasons(ctx context.Context, url string) (reasons []string) {
	defer func() {
		if r := recover(); r != nil {
			reasons = []string{"Could not analyze"}
		}
	}()

	f := e.urls.Extract(ctx, url)
	if f["brand_impersonation"] == 1 {
		reasons = append(reasons, "Brand impersonation")
	}
	if f["is_suspicious_tld"] == 1 {
		reasons = append(reasons, "Suspicious TLD")
	}
	if f["has_ip_address"] == 1 {
		reasons = append(reasons, "IP address in URL")
	}
	if age := f["domain_age_days"]; age > 0 && age < youngDomainDays {
		reasons = append(reasons, "New or young domain")
	}
	if f["has_https_but_suspicious"] == 1 {
		reasons = append(reasons, "HTTPS with suspicious host")
	}
	if f["deceptive_secure_language"] == 1 {
		reasons = append(reasons, "Deceptive security language")
	}
	if f["shortened_url"] == 1 {
		reasons = append(reasons, "URL shortener")
	}
	return reasons
}

// topByMagnitude keeps the k contributions with the largest absolute value,
// ordered by descending magnitude.
func topByMagnitude(contribs []core.FeatureContribution, k int) []core.FeatureContribution {
	sorted := make([]core.FeatureContribution, len(contribs))
	copy(sorted, contribs)
	sort.Slice(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].Contribution) > math.Abs(sorted[j].Contribution)
	})
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}
