package features

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

// Extractor fans an email out to every analyzer and merges the results into
// one FeatureMap. Optional analyzers that fail are skipped, never fatal:
// losing a signal source degrades score quality, not availability.
type Extractor struct {
	text       *TextAnalyzer
	urls       *URLAnalyzer
	metadata   *MetadataAnalyzer
	behavioral *BehavioralAnalyzer
	grammar    *GrammarAnalyzer
	semantic   *SemanticAnalyzer
	logger     *zap.Logger
}

// NewExtractor creates the aggregating feature extractor. domainAge and
// embedder are optional capabilities and may be nil.
func NewExtractor(domainAge core.DomainAgeService, embedder core.Embedder, logger *zap.Logger) *Extractor {
	return &Extractor{
		text:       NewTextAnalyzer(),
		urls:       NewURLAnalyzer(domainAge),
		metadata:   NewMetadataAnalyzer(),
		behavioral: NewBehavioralAnalyzer(),
		grammar:    NewGrammarAnalyzer(),
		semantic:   NewSemanticAnalyzer(embedder),
		logger:     logger,
	}
}

// Extract produces the complete FeatureMap for one email. The returned map
// always carries the full canonical key set.
func (e *Extractor) Extract(ctx context.Context, email *core.EmailRecord) core.FeatureMap {
	urls := email.URLs
	if len(urls) == 0 {
		urls = MineURLs(email.Body)
	}

	features := make(core.FeatureMap, len(Schema()))

	merge(features, e.text.Extract(email.Subject, email.Body))

	e.runOptional("semantic", features, func() map[string]float64 {
		return e.semantic.Extract(ctx, email.Subject, email.Body)
	})
	e.runOptional("grammar", features, func() map[string]float64 {
		return e.grammar.Extract(email.Subject, email.Body)
	})
	e.runOptional("behavioral", features, func() map[string]float64 {
		return e.behavioral.Extract(email.Subject, email.Body, email.Attachments)
	})

	merge(features, e.metadata.Extract(email.Sender, email.To, email.ReplyTo, email.Subject, email.Headers))
	merge(features, e.urlFeatures(ctx, urls))

	FillMissing(features)
	return features
}

// ExtractBatch extracts features for a list of emails independently.
func (e *Extractor) ExtractBatch(ctx context.Context, emails []*core.EmailRecord) []core.FeatureMap {
	out := make([]core.FeatureMap, len(emails))
	for i, email := range emails {
		out[i] = e.Extract(ctx, email)
	}
	return out
}

// runOptional shields the pipeline from a misbehaving optional analyzer.
func (e *Extractor) runOptional(name string, features core.FeatureMap, fn func() map[string]float64) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("Analyzer failed, skipping its features",
				zap.String("analyzer", name),
				zap.Any("panic", r))
		}
	}()
	merge(features, fn())
}

// urlFeatures applies the aggregation policy: a single URL's features are
// flattened under url_; multiple URLs get max aggregation for count/flag
// style features and avg (plus max) for the rest; zero URLs contribute the
// empty single-URL block. url_count is always emitted.
func (e *Extractor) urlFeatures(ctx context.Context, urls []string) map[string]float64 {
	out := make(map[string]float64)
	out["url_count"] = float64(len(urls))

	switch len(urls) {
	case 0:
		for k, v := range e.urls.Extract(ctx, "") {
			out["url_"+k] = v
		}
	case 1:
		for k, v := range e.urls.Extract(ctx, urls[0]) {
			out["url_"+k] = v
		}
	default:
		perURL := make([]map[string]float64, 0, len(urls))
		for _, u := range urls {
			perURL = append(perURL, e.urls.Extract(ctx, u))
		}
		for _, key := range urlFeatureKeys {
			maxVal, sum := 0.0, 0.0
			for i, f := range perURL {
				v := f[key]
				sum += v
				if i == 0 || v > maxVal {
					maxVal = v
				}
			}
			out["url_max_"+key] = maxVal
			out["url_avg_"+key] = sum / float64(len(perURL))
		}
	}

	return out
}

// MineURLs pulls URLs out of free text when the caller supplied none.
func MineURLs(text string) []string {
	if text == "" {
		return nil
	}
	return reMineURL.FindAllString(text, -1)
}

// NormalizeRecord accepts the two field-name conventions seen in exported
// email datasets (body/subject/sender and email_body/email_subject/
// from_address) and builds an EmailRecord from whichever is populated.
func NormalizeRecord(fields map[string]string, urls []string, attachments []core.Attachment, headers map[string]string) *core.EmailRecord {
	pick := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := fields[k]; ok && strings.TrimSpace(v) != "" {
				return v
			}
		}
		return ""
	}
	return &core.EmailRecord{
		Subject:     pick("subject", "email_subject"),
		Body:        pick("body", "email_body"),
		Sender:      pick("sender", "from_address"),
		To:          pick("to", "to_address"),
		ReplyTo:     pick("reply_to"),
		URLs:        urls,
		Attachments: attachments,
		Headers:     headers,
	}
}

func merge(dst core.FeatureMap, src map[string]float64) {
	for k, v := range src {
		dst[k] = v
	}
}
