package features

import (
	"net/mail"
	"strings"
	"unicode"
)

// MetadataAnalyzer extracts features from sender, reply-to, subject, and
// optional header metadata.
type MetadataAnalyzer struct{}

// NewMetadataAnalyzer creates a new metadata analyzer.
func NewMetadataAnalyzer() *MetadataAnalyzer {
	return &MetadataAnalyzer{}
}

// Extract computes metadata features. Malformed addresses and missing
// headers contribute zeros rather than errors.
func (a *MetadataAnalyzer) Extract(fromAddress, toAddress, replyTo, subject string, headers map[string]string) map[string]float64 {
	f := make(map[string]float64)

	for k, v := range addressFeatures(fromAddress) {
		f["from_"+k] = v
	}
	if replyTo != "" {
		for k, v := range addressFeatures(replyTo) {
			f["reply_to_"+k] = v
		}
	}

	a.mismatchFeatures(fromAddress, replyTo, f)
	a.subjectFeatures(subject, f)
	if headers != nil {
		a.headerFeatures(headers, f)
	}

	return f
}

// addressFeatures extracts per-address features. An unparseable or empty
// address returns the full key set at zero.
func addressFeatures(address string) map[string]float64 {
	f := map[string]float64{
		"address_length":      0,
		"local_part_length":   0,
		"domain_length":       0,
		"has_plus":            0,
		"has_dots":            0,
		"has_numbers":         0,
		"has_hyphens":         0,
		"has_underscores":     0,
		"is_trusted_provider": 0,
		"num_subdomains":      0,
		"suspicious_pattern":  0,
	}
	if address == "" {
		return f
	}

	addr := bareAddress(address)
	at := strings.Index(addr, "@")
	if at < 0 {
		return f
	}
	local, domain := addr[:at], addr[at+1:]

	f["address_length"] = float64(len(addr))
	f["local_part_length"] = float64(len(local))
	f["domain_length"] = float64(len(domain))

	f["has_plus"] = boolFeature(strings.Contains(local, "+"))
	f["has_dots"] = boolFeature(strings.Contains(local, "."))
	f["has_numbers"] = boolFeature(strings.ContainsFunc(local, unicode.IsDigit))
	f["has_hyphens"] = boolFeature(strings.Contains(local, "-") || strings.Contains(domain, "-"))
	f["has_underscores"] = boolFeature(strings.Contains(local, "_"))

	f["is_trusted_provider"] = boolFeature(trustedProviders[strings.ToLower(domain)])

	// Everything beyond registered domain + TLD counts as a subdomain.
	parts := strings.Split(domain, ".")
	if len(parts) > 2 {
		f["num_subdomains"] = float64(len(parts) - 2)
	}

	// Long local parts with mostly unique characters look machine-generated.
	if len(local) > 10 {
		unique := make(map[rune]bool)
		for _, r := range local {
			unique[r] = true
		}
		if float64(len(unique))/float64(len(local)) > 0.7 {
			f["suspicious_pattern"] = 1
		}
	}

	return f
}

func (a *MetadataAnalyzer) mismatchFeatures(fromAddress, replyTo string, f map[string]float64) {
	f["reply_to_mismatch"] = 0
	f["reply_to_empty"] = 0

	if replyTo == "" {
		f["reply_to_empty"] = 1
		return
	}

	fromAddr := bareAddress(fromAddress)
	replyAddr := bareAddress(replyTo)
	fromAt := strings.Index(fromAddr, "@")
	replyAt := strings.Index(replyAddr, "@")
	if fromAt < 0 || replyAt < 0 {
		return
	}
	if !strings.EqualFold(fromAddr[fromAt+1:], replyAddr[replyAt+1:]) {
		f["reply_to_mismatch"] = 1
	}
}

func (a *MetadataAnalyzer) subjectFeatures(subject string, f map[string]float64) {
	f["subject_length"] = 0
	f["subject_word_count"] = 0
	f["subject_has_urgency"] = 0
	f["subject_has_question"] = 0
	f["subject_has_exclamation"] = 0
	f["subject_all_caps"] = 0
	f["subject_suspicious_words"] = 0

	if subject == "" {
		return
	}

	words := strings.Fields(subject)
	f["subject_length"] = float64(len(subject))
	f["subject_word_count"] = float64(len(words))

	lower := strings.ToLower(subject)
	for _, w := range subjectUrgencyWords {
		if strings.Contains(lower, w) {
			f["subject_has_urgency"] = 1
			break
		}
	}

	f["subject_has_question"] = boolFeature(strings.Contains(subject, "?"))
	f["subject_has_exclamation"] = boolFeature(strings.Contains(subject, "!"))

	// Gate on >2 words so short subjects like "RE:" don't trip the flag.
	if len(words) > 2 && isAllUpper(subject) {
		f["subject_all_caps"] = 1
	}

	count := 0
	for _, w := range subjectSuspiciousWords {
		if strings.Contains(lower, w) {
			count++
		}
	}
	f["subject_suspicious_words"] = float64(count)
}

func (a *MetadataAnalyzer) headerFeatures(headers map[string]string, f map[string]float64) {
	f["has_spf"] = 0
	f["has_dkim"] = 0
	f["has_dmarc"] = 0
	f["has_mime_version"] = 0
	f["has_content_type"] = 0
	f["num_headers"] = float64(len(headers))

	for k := range headers {
		lower := strings.ToLower(k)
		if strings.Contains(lower, "spf") {
			f["has_spf"] = 1
		}
		if strings.Contains(lower, "dkim") {
			f["has_dkim"] = 1
		}
		if strings.Contains(lower, "dmarc") {
			f["has_dmarc"] = 1
		}
		if strings.Contains(lower, "mime-version") {
			f["has_mime_version"] = 1
		}
		if strings.Contains(lower, "content-type") {
			f["has_content_type"] = 1
		}
	}
}

// bareAddress strips an RFC 5322 display name, returning just the
// addr-spec. Unparseable input is returned as-is so downstream checks can
// still treat it as a malformed address.
func bareAddress(address string) string {
	parsed, err := mail.ParseAddress(address)
	if err != nil {
		return strings.TrimSpace(address)
	}
	return parsed.Address
}

// isAllUpper reports whether every letter in s is uppercase and s contains
// at least one letter.
func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}
