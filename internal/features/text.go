package features

import (
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"

	"github.com/mikey/mail-threat-scanner/internal/utils"
)

// TextAnalyzer extracts lexical and statistical features from the email
// subject and body.
type TextAnalyzer struct{}

// NewTextAnalyzer creates a new text analyzer.
func NewTextAnalyzer() *TextAnalyzer {
	return &TextAnalyzer{}
}

// Extract computes content features from the subject and body. HTML is
// stripped before analysis. Never fails: empty input produces zeros.
func (a *TextAnalyzer) Extract(subject, body string) map[string]float64 {
	raw := subject + " " + body
	text := utils.StripHTML(raw)
	lower := strings.ToLower(utils.FoldDiacritics(text))
	words := strings.Fields(text)

	f := make(map[string]float64)

	f["char_count"] = float64(len(text))
	f["word_count"] = float64(len(words))
	f["sentence_count"] = float64(sentenceCount(text))

	if len(words) > 0 {
		total := 0
		for _, w := range words {
			total += len(w)
		}
		f["avg_word_length"] = float64(total) / float64(len(words))
	}
	if f["sentence_count"] > 0 {
		f["avg_sentence_length"] = f["word_count"] / f["sentence_count"]
	}

	if len(text) > 0 {
		upper, special := 0, 0
		for _, r := range text {
			if unicode.IsUpper(r) {
				upper++
			}
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
				special++
			}
		}
		f["uppercase_ratio"] = float64(upper) / float64(len(text))
		f["special_char_ratio"] = float64(special) / float64(len(text))
	}

	a.keywordFeatures(lower, len(words), f)
	a.patternFeatures(lower, f)
	a.complexityFeatures(lower, f)
	a.urgencyFeatures(lower, len(words), f)
	a.languageFeatures(text, f)

	return f
}

// keywordFeatures counts phishing-indicator keywords and high-risk phrases.
// Counts are presence counts over the lexicon, not occurrence counts.
func (a *TextAnalyzer) keywordFeatures(lower string, wordCount int, f map[string]float64) {
	keywordCount := 0
	for _, kw := range phishingKeywords {
		if strings.Contains(lower, kw) {
			keywordCount++
		}
	}
	f["phishing_keyword_count"] = float64(keywordCount)
	if wordCount > 0 {
		f["phishing_keyword_ratio"] = float64(keywordCount) / float64(wordCount)
	} else {
		f["phishing_keyword_ratio"] = 0
	}

	phraseCount := 0
	for _, phrase := range highRiskPhrases {
		if strings.Contains(lower, phrase) {
			phraseCount++
		}
	}
	f["high_risk_phrase_count"] = float64(phraseCount)
}

func (a *TextAnalyzer) patternFeatures(lower string, f map[string]float64) {
	urls := reURL.FindAllString(lower, -1)
	ips := reIPv4.FindAllString(lower, -1)
	emails := reEmail.FindAllString(lower, -1)

	f["text_url_count"] = float64(len(urls))
	f["ip_address_count"] = float64(len(ips))
	f["email_address_count"] = float64(len(emails))
	f["has_url"] = boolFeature(len(urls) > 0)
	f["has_ip"] = boolFeature(len(ips) > 0)
}

// complexityFeatures measures vocabulary richness and template-like
// repetition over alphabetic tokens with stop-words removed.
func (a *TextAnalyzer) complexityFeatures(lower string, f map[string]float64) {
	tokens := reWord.FindAllString(lower, -1)
	kept := tokens[:0]
	for _, t := range tokens {
		if !stopWords[t] {
			kept = append(kept, t)
		}
	}

	f["vocabulary_richness"] = 0
	f["max_word_frequency"] = 0
	f["max_word_frequency_ratio"] = 0
	if len(kept) == 0 {
		return
	}

	freq := make(map[string]int, len(kept))
	maxFreq := 0
	for _, t := range kept {
		freq[t]++
		if freq[t] > maxFreq {
			maxFreq = freq[t]
		}
	}
	f["vocabulary_richness"] = float64(len(freq)) / float64(len(kept))
	f["max_word_frequency"] = float64(maxFreq)
	f["max_word_frequency_ratio"] = float64(maxFreq) / float64(len(kept))
}

func (a *TextAnalyzer) urgencyFeatures(lower string, wordCount int, f map[string]float64) {
	urgency := 0
	for _, w := range urgencyWords {
		if strings.Contains(lower, w) {
			urgency++
		}
	}
	f["urgency_word_count"] = float64(urgency)
	if wordCount > 0 {
		f["urgency_word_ratio"] = float64(urgency) / float64(wordCount)
	} else {
		f["urgency_word_ratio"] = 0
	}

	exclam := strings.Count(lower, "!")
	f["exclamation_count"] = float64(exclam)
	f["question_count"] = float64(strings.Count(lower, "?"))
	if len(lower) > 0 {
		f["exclamation_ratio"] = float64(exclam) / float64(len(lower))
	} else {
		f["exclamation_ratio"] = 0
	}
}

// languageFeatures flags text whose detected language is confidently not
// English, a common trait of bulk-translated phishing templates.
func (a *TextAnalyzer) languageFeatures(text string, f map[string]float64) {
	f["is_non_english"] = 0
	f["lang_confidence"] = 0
	if strings.TrimSpace(text) == "" {
		return
	}
	info := whatlanggo.Detect(text)
	f["lang_confidence"] = info.Confidence
	if info.Lang != whatlanggo.Eng && info.IsReliable() {
		f["is_non_english"] = 1
	}
}

// sentenceCount approximates sentence segmentation by counting terminal
// punctuation, with a floor of one sentence for non-empty text.
func sentenceCount(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	n := strings.Count(text, ".") + strings.Count(text, "!") + strings.Count(text, "?")
	if n < 1 {
		return 1
	}
	return n
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
