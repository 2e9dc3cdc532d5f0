package core

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"go.uber.org/zap"
)

type stubExtractor struct{}

func (stubExtractor) Extract(_ context.Context, email *EmailRecord) FeatureMap {
	if email.Subject == "boom" {
		panic("extractor exploded")
	}
	score, _ := strconv.ParseFloat(email.Subject, 64)
	return FeatureMap{"score": score}
}

type stubEngine struct{}

func (stubEngine) Evaluate(_ context.Context, _ *EmailRecord, f FeatureMap) *Verdict {
	score := f["score"]
	return &Verdict{
		IsThreat:    score >= 0.5,
		ThreatScore: score,
		ThreatType:  ThreatLegitimate,
		EngineUsed:  "rules",
	}
}

type allowAll struct{}

func (allowAll) IsWhitelisted(_ string) bool { return true }

type allowNone struct{}

func (allowNone) IsWhitelisted(_ string) bool { return false }

func TestAnalyzeWhitelistBypass(t *testing.T) {
	svc := NewThreatScannerService(stubExtractor{}, stubEngine{}, allowAll{}, zap.NewNop(), 1)
	v := svc.Analyze(context.Background(), &EmailRecord{Sender: "boss@corp.example", Subject: "0.9"})

	if v.IsThreat {
		t.Error("whitelisted sender must never be a threat")
	}
	if v.EngineUsed != "whitelist" {
		t.Errorf("EngineUsed = %q, want whitelist", v.EngineUsed)
	}
	if v.Confidence != ConfidenceHigh {
		t.Errorf("Confidence = %v, want high", v.Confidence)
	}
}

func TestAnalyzeRunsPipeline(t *testing.T) {
	svc := NewThreatScannerService(stubExtractor{}, stubEngine{}, allowNone{}, zap.NewNop(), 1)
	v := svc.Analyze(context.Background(), &EmailRecord{Subject: "0.8"})

	if v.ThreatScore != 0.8 {
		t.Errorf("ThreatScore = %v, want 0.8", v.ThreatScore)
	}
	if !svc.IsThreat(v) {
		t.Error("IsThreat(v) = false, want true")
	}
}

func TestAnalyzeNilWhitelist(t *testing.T) {
	svc := NewThreatScannerService(stubExtractor{}, stubEngine{}, nil, zap.NewNop(), 1)
	v := svc.Analyze(context.Background(), &EmailRecord{Subject: "0.1"})
	if v.EngineUsed != "rules" {
		t.Errorf("EngineUsed = %q, want rules with nil whitelist", v.EngineUsed)
	}
}

func TestAnalyzeRecoversFromPanic(t *testing.T) {
	svc := NewThreatScannerService(stubExtractor{}, stubEngine{}, allowNone{}, zap.NewNop(), 1)
	v := svc.Analyze(context.Background(), &EmailRecord{Subject: "boom"})

	if v == nil {
		t.Fatal("Analyze returned nil after panic")
	}
	if v.Err == "" {
		t.Error("Err should be set after a panic")
	}
	if v.IsThreat {
		t.Error("failed analysis must not flag the email")
	}
	if v.EngineUsed != "none" {
		t.Errorf("EngineUsed = %q, want none", v.EngineUsed)
	}
}

func TestAnalyzeBatchPreservesOrder(t *testing.T) {
	svc := NewThreatScannerService(stubExtractor{}, stubEngine{}, allowNone{}, zap.NewNop(), 3)

	emails := make([]*EmailRecord, 20)
	for i := range emails {
		emails[i] = &EmailRecord{Subject: fmt.Sprintf("0.%02d", i)}
	}
	verdicts := svc.AnalyzeBatch(context.Background(), emails)

	if len(verdicts) != len(emails) {
		t.Fatalf("got %d verdicts, want %d", len(verdicts), len(emails))
	}
	for i, v := range verdicts {
		want := float64(i) / 100
		if v == nil {
			t.Fatalf("verdict %d is nil", i)
		}
		if v.ThreatScore != want {
			t.Errorf("verdict %d: ThreatScore = %v, want %v", i, v.ThreatScore, want)
		}
	}
}

func TestAnalyzeBatchIsolatesFailures(t *testing.T) {
	svc := NewThreatScannerService(stubExtractor{}, stubEngine{}, allowNone{}, zap.NewNop(), 2)
	emails := []*EmailRecord{
		{Subject: "0.2"},
		{Subject: "boom"},
		{Subject: "0.6"},
	}
	verdicts := svc.AnalyzeBatch(context.Background(), emails)

	if verdicts[1].Err == "" {
		t.Error("panicking email should carry an error verdict")
	}
	if verdicts[0].Err != "" || verdicts[2].Err != "" {
		t.Error("healthy emails must be unaffected by a neighbor's failure")
	}
	if verdicts[2].ThreatScore != 0.6 {
		t.Errorf("verdict 2: ThreatScore = %v, want 0.6", verdicts[2].ThreatScore)
	}
}

func TestAnalyzeBatchEmpty(t *testing.T) {
	svc := NewThreatScannerService(stubExtractor{}, stubEngine{}, allowNone{}, zap.NewNop(), 4)
	if verdicts := svc.AnalyzeBatch(context.Background(), nil); len(verdicts) != 0 {
		t.Errorf("got %d verdicts for empty batch", len(verdicts))
	}
}
