package features

import (
	"strings"
)

// GrammarAnalyzer scores spelling/grammar anomalies and the divergence
// between subject and body tone. Both are cheap lexicon heuristics, useful
// as relative signals rather than ground-truth language quality.
type GrammarAnalyzer struct{}

// NewGrammarAnalyzer creates a new grammar/consistency analyzer.
func NewGrammarAnalyzer() *GrammarAnalyzer {
	return &GrammarAnalyzer{}
}

// Extract computes anomaly scores for the combined subject+body text and
// divergence scores between the two.
func (a *GrammarAnalyzer) Extract(subject, body string) map[string]float64 {
	f := map[string]float64{
		"grammar_anomaly_score":       0,
		"spelling_anomaly_score":      0,
		"subject_body_sentiment_diff": 0,
		"subject_body_formality_diff": 0,
	}

	a.anomalyFeatures(strings.TrimSpace(subject+" "+body), f)

	f["subject_body_sentiment_diff"] = absDiff(sentimentScore(subject), sentimentScore(body))
	f["subject_body_formality_diff"] = absDiff(formalityScore(subject), formalityScore(body))

	return f
}

func (a *GrammarAnalyzer) anomalyFeatures(text string, f map[string]float64) {
	if text == "" {
		return
	}
	words := reWord.FindAllString(strings.ToLower(text), -1)
	if len(words) == 0 {
		return
	}

	// Spelling: ratio of tokens outside the common-word set, scaled so a
	// sprinkling of rare words does not max the score out.
	unknown := 0
	for _, w := range words {
		if len(w) > 1 && !commonWords[w] {
			unknown++
		}
	}
	f["spelling_anomaly_score"] = capAtOne(float64(unknown) / float64(len(words)) * 1.5)

	// Grammar blend: repeated-character runs, terminal punctuation density,
	// and odd word-length distribution, each term capped independently.
	charCount := len(text)
	repeatedDenom := float64(charCount) / 50
	if repeatedDenom < 1 {
		repeatedDenom = 1
	}
	repeatedRatio := float64(countRepeatedRuns(text)) / repeatedDenom

	punct := strings.Count(text, "!") + strings.Count(text, "?")
	punctRatio := float64(punct) / float64(len(words))

	short, long := 0, 0
	for _, w := range words {
		if len(w) <= 2 {
			short++
		}
		if len(w) > 12 {
			long++
		}
	}
	wordWeird := (float64(short)/float64(len(words))*0.5 +
		capAtOne(float64(long)/float64(len(words))*5)) / 2

	f["grammar_anomaly_score"] = capAtOne(
		repeatedRatio*0.4 + capAtOne(punctRatio)*0.4 + wordWeird*0.3)
}

// countRepeatedRuns counts runs of three or more identical characters
// ("pleeease", "!!!").
func countRepeatedRuns(text string) int {
	runs := 0
	runes := []rune(text)
	i := 0
	for i < len(runes) {
		j := i + 1
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		if j-i >= 3 {
			runs++
		}
		i = j
	}
	return runs
}

// sentimentScore returns (pos - neg) / (pos + neg) over distinct words, or
// 0 when the text hits neither lexicon.
func sentimentScore(text string) float64 {
	if text == "" {
		return 0
	}
	seen := make(map[string]bool)
	pos, neg := 0, 0
	for _, w := range reWord.FindAllString(strings.ToLower(text), -1) {
		if seen[w] {
			continue
		}
		seen[w] = true
		if positiveWords[w] {
			pos++
		}
		if negativeWords[w] {
			neg++
		}
	}
	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}

// formalityScore returns a scaled (formal - informal) / word_count; higher
// means more formal.
func formalityScore(text string) float64 {
	if text == "" {
		return 0
	}
	words := reWord.FindAllString(strings.ToLower(text), -1)
	if len(words) == 0 {
		return 0
	}
	formal, informal := 0, 0
	for _, w := range words {
		if formalWords[w] {
			formal++
		}
		if informalWords[w] {
			informal++
		}
	}
	return float64(formal-informal) / float64(len(words)) * 10
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
