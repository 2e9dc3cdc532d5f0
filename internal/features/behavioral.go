package features

import (
	"strings"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

// BehavioralAnalyzer measures manipulation tactics: call-to-action pressure,
// time pressure, and attachment-borne risk.
type BehavioralAnalyzer struct{}

// NewBehavioralAnalyzer creates a new behavioral analyzer.
func NewBehavioralAnalyzer() *BehavioralAnalyzer {
	return &BehavioralAnalyzer{}
}

// Extract computes behavioral features from the subject, body, and
// attachment list. Missing or unrecognized attachment names contribute zero.
func (a *BehavioralAnalyzer) Extract(subject, body string, attachments []core.Attachment) map[string]float64 {
	f := map[string]float64{
		"cta_intensity":            0,
		"time_pressure_score":      0,
		"attachment_risk_score":    0,
		"has_high_risk_attachment": 0,
	}

	text := strings.ToLower(subject + " " + body)
	words := strings.Fields(text)
	if len(words) == 0 {
		a.attachmentFeatures(attachments, f)
		return f
	}

	// CTA intensity: imperative verbs plus fixed phrases, normalized by
	// text length in ten-word units, capped at 1.
	ctaCount := 0
	for _, w := range reWord.FindAllString(text, -1) {
		if ctaVerbs[w] {
			ctaCount++
		}
	}
	for _, phrase := range ctaPhrases {
		ctaCount += strings.Count(text, phrase)
	}
	denom := float64(len(words)) / 10
	if denom < 1 {
		denom = 1
	}
	f["cta_intensity"] = capAtOne(float64(ctaCount) / denom)

	// Time pressure: each deadline pattern is worth 0.25, with a 0.3 bump
	// for explicit urgency markers.
	matches := 0
	for _, p := range deadlinePatterns {
		if p.MatchString(text) {
			matches++
		}
	}
	pressure := float64(matches) * 0.25
	if strings.Contains(text, "urgent") || strings.Contains(text, "asap") {
		pressure += 0.3
	}
	f["time_pressure_score"] = capAtOne(pressure)

	a.attachmentFeatures(attachments, f)
	return f
}

func (a *BehavioralAnalyzer) attachmentFeatures(attachments []core.Attachment, f map[string]float64) {
	if len(attachments) == 0 {
		return
	}
	risk := 0.0
	for _, att := range attachments {
		name := strings.ToLower(att.Filename)
		if name == "" {
			continue
		}
		dot := strings.LastIndex(name, ".")
		if dot < 0 || dot == len(name)-1 {
			continue
		}
		ext := name[dot+1:]
		switch {
		case highRiskExtensions[ext]:
			risk += 1.0
			f["has_high_risk_attachment"] = 1
		case mediumRiskExtensions[ext]:
			risk += 0.5
		}
	}
	f["attachment_risk_score"] = capAtOne(risk)
}

func capAtOne(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
