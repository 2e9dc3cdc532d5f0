package features

import (
	"sync"
)

// The canonical feature schema. Every key any analyzer can emit is listed
// here exactly once; the extractor consults it to zero-fill whatever a given
// input did not produce. This is what keeps the FeatureMap key set identical
// across emails regardless of which optional capabilities fired or how many
// URLs the email carried.

var (
	schemaOnce sync.Once
	schemaKeys []string
)

var textFeatureKeys = []string{
	"char_count", "word_count", "sentence_count",
	"avg_word_length", "avg_sentence_length",
	"uppercase_ratio", "special_char_ratio",
	"phishing_keyword_count", "phishing_keyword_ratio",
	"high_risk_phrase_count",
	"text_url_count", "ip_address_count", "email_address_count",
	"has_url", "has_ip",
	"vocabulary_richness", "max_word_frequency", "max_word_frequency_ratio",
	"urgency_word_count", "urgency_word_ratio",
	"exclamation_count", "question_count", "exclamation_ratio",
	"is_non_english", "lang_confidence",
}

var grammarFeatureKeys = []string{
	"grammar_anomaly_score", "spelling_anomaly_score",
	"subject_body_sentiment_diff", "subject_body_formality_diff",
}

var behavioralFeatureKeys = []string{
	"cta_intensity", "time_pressure_score",
	"attachment_risk_score", "has_high_risk_attachment",
}

var addressFeatureKeys = []string{
	"address_length", "local_part_length", "domain_length",
	"has_plus", "has_dots", "has_numbers", "has_hyphens", "has_underscores",
	"is_trusted_provider", "num_subdomains", "suspicious_pattern",
}

var subjectFeatureKeys = []string{
	"subject_length", "subject_word_count", "subject_has_urgency",
	"subject_has_question", "subject_has_exclamation", "subject_all_caps",
	"subject_suspicious_words",
}

var headerFeatureKeys = []string{
	"has_spf", "has_dkim", "has_dmarc",
	"has_mime_version", "has_content_type", "num_headers",
}

// Schema returns the full ordered feature key set. Built once, then shared;
// callers must not mutate the returned slice.
func Schema() []string {
	schemaOnce.Do(func() {
		keys := make([]string, 0, 256)
		keys = append(keys, textFeatureKeys...)
		for i := 1; i <= SemanticFeatureDim; i++ {
			keys = append(keys, semanticKey(i))
		}
		keys = append(keys, grammarFeatureKeys...)
		keys = append(keys, behavioralFeatureKeys...)

		for _, k := range addressFeatureKeys {
			keys = append(keys, "from_"+k)
		}
		for _, k := range addressFeatureKeys {
			keys = append(keys, "reply_to_"+k)
		}
		keys = append(keys, "reply_to_mismatch", "reply_to_empty")
		keys = append(keys, subjectFeatureKeys...)
		keys = append(keys, headerFeatureKeys...)

		// URL block: the single-URL flattened form plus both aggregated
		// forms, so one, many, and zero URLs all share one shape.
		keys = append(keys, "url_count")
		for _, k := range urlFeatureKeys {
			keys = append(keys, "url_"+k)
		}
		for _, k := range urlFeatureKeys {
			keys = append(keys, "url_max_"+k, "url_avg_"+k)
		}

		schemaKeys = keys
	})
	return schemaKeys
}

// FillMissing sets every schema key absent from f to zero, in place.
func FillMissing(f map[string]float64) {
	for _, k := range Schema() {
		if _, ok := f[k]; !ok {
			f[k] = 0
		}
	}
}
