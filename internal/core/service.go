package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FeatureExtractor turns a raw email into the canonical feature map.
type FeatureExtractor interface {
	Extract(ctx context.Context, email *EmailRecord) FeatureMap
}

// ScoringEngine produces a verdict from an email and its features.
type ScoringEngine interface {
	Evaluate(ctx context.Context, email *EmailRecord, features FeatureMap) *Verdict
}

// ThreatScannerService is the core service for email threat analysis.
type ThreatScannerService struct {
	extractor FeatureExtractor
	engine    ScoringEngine
	whitelist WhitelistChecker
	logger    *zap.Logger
	batchSize int
}

// WhitelistChecker decides whether a sender bypasses analysis.
type WhitelistChecker interface {
	IsWhitelisted(from string) bool
}

// NewThreatScannerService creates a new threat scanner service.
func NewThreatScannerService(
	extractor FeatureExtractor,
	engine ScoringEngine,
	whitelist WhitelistChecker,
	logger *zap.Logger,
	batchSize int,
) *ThreatScannerService {
	if batchSize < 1 {
		batchSize = 4
	}
	return &ThreatScannerService{
		extractor: extractor,
		engine:    engine,
		whitelist: whitelist,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Analyze scores a single email. It never returns an error: analysis
// failures degrade to a minimal verdict with Err set so that callers in the
// mail path can always make a delivery decision.
func (s *ThreatScannerService) Analyze(ctx context.Context, email *EmailRecord) *Verdict {
	if s.whitelist != nil && s.whitelist.IsWhitelisted(email.Sender) {
		s.logger.Info("Skipping analysis for whitelisted sender",
			zap.String("sender", email.Sender),
			zap.String("action", "whitelist_bypass"))
		return &Verdict{
			IsThreat:        false,
			ThreatScore:     0.0,
			ThreatType:      ThreatLegitimate,
			Confidence:      ConfidenceHigh,
			RiskFactors:     []string{},
			Recommendations: []string{"Sender domain is whitelisted"},
			AnalyzedAt:      time.Now(),
			EngineUsed:      "whitelist",
		}
	}
	return s.analyze(ctx, email)
}

func (s *ThreatScannerService) analyze(ctx context.Context, email *EmailRecord) (verdict *Verdict) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Analysis panicked",
				zap.Any("panic", r),
				zap.String("sender", email.Sender))
			verdict = failedVerdict(fmt.Errorf("analysis failed: %v", r))
		}
	}()

	start := time.Now()
	features := s.extractor.Extract(ctx, email)
	verdict = s.engine.Evaluate(ctx, email, features)

	s.logger.Debug("Email analyzed",
		zap.String("sender", email.Sender),
		zap.Float64("score", verdict.ThreatScore),
		zap.String("threat_type", string(verdict.ThreatType)),
		zap.Duration("elapsed", time.Since(start)))
	return verdict
}

// AnalyzeBatch scores a batch of emails with a bounded worker pool. Results
// preserve input order, and a failure on one email never affects another.
func (s *ThreatScannerService) AnalyzeBatch(ctx context.Context, emails []*EmailRecord) []*Verdict {
	verdicts := make([]*Verdict, len(emails))
	if len(emails) == 0 {
		return verdicts
	}

	workers := s.batchSize
	if workers > len(emails) {
		workers = len(emails)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				verdicts[i] = s.Analyze(ctx, emails[i])
			}
		}()
	}
	for i := range emails {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return verdicts
}

// IsThreat applies the service decision to a verdict.
func (s *ThreatScannerService) IsThreat(verdict *Verdict) bool {
	return verdict.IsThreat
}

func failedVerdict(err error) *Verdict {
	return &Verdict{
		IsThreat:        false,
		ThreatScore:     0.0,
		ThreatType:      ThreatLegitimate,
		Confidence:      ConfidenceLow,
		RiskFactors:     []string{},
		Recommendations: []string{"Analysis failed; treat with normal caution"},
		AnalyzedAt:      time.Now(),
		EngineUsed:      "none",
		Err:             err.Error(),
	}
}
