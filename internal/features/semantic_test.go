package features

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	vec []float64
	err error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	return s.vec, s.err
}

func TestSemanticAnalyzerNilEmbedder(t *testing.T) {
	a := NewSemanticAnalyzer(nil)
	f := a.Extract(context.Background(), "hello", "world")

	if len(f) != SemanticFeatureDim {
		t.Fatalf("got %d keys, want %d", len(f), SemanticFeatureDim)
	}
	for k, v := range f {
		if v != 0 {
			t.Errorf("%s = %v, want 0 without an embedder", k, v)
		}
	}
}

func TestSemanticAnalyzerMeanPool(t *testing.T) {
	vec := make([]float64, SemanticFeatureDim)
	for i := range vec {
		vec[i] = float64(i + 1)
	}
	a := NewSemanticAnalyzer(&stubEmbedder{vec: vec})
	f := a.Extract(context.Background(), "subject", "body")

	// Subject and body embed to the same vector, so the pooled value equals
	// the component itself.
	if f["semantic_1"] != 1 {
		t.Errorf("semantic_1 = %v, want 1", f["semantic_1"])
	}
	if f["semantic_32"] != 32 {
		t.Errorf("semantic_32 = %v, want 32", f["semantic_32"])
	}
	if _, ok := f["semantic_33"]; ok {
		t.Error("semantic_33 should not exist")
	}
}

func TestSemanticAnalyzerTruncatesLongVectors(t *testing.T) {
	vec := make([]float64, 1536)
	for i := range vec {
		vec[i] = 0.5
	}
	a := NewSemanticAnalyzer(&stubEmbedder{vec: vec})
	f := a.Extract(context.Background(), "s", "b")

	if len(f) != SemanticFeatureDim {
		t.Fatalf("got %d keys, want %d", len(f), SemanticFeatureDim)
	}
	if f["semantic_32"] != 0.5 {
		t.Errorf("semantic_32 = %v, want 0.5", f["semantic_32"])
	}
}

func TestSemanticAnalyzerPadsShortVectors(t *testing.T) {
	a := NewSemanticAnalyzer(&stubEmbedder{vec: []float64{2, 4}})
	f := a.Extract(context.Background(), "s", "b")

	if f["semantic_1"] != 2 || f["semantic_2"] != 4 {
		t.Errorf("leading components = %v, %v; want 2, 4", f["semantic_1"], f["semantic_2"])
	}
	if f["semantic_3"] != 0 {
		t.Errorf("semantic_3 = %v, want 0 padding", f["semantic_3"])
	}
	if len(f) != SemanticFeatureDim {
		t.Fatalf("got %d keys, want %d", len(f), SemanticFeatureDim)
	}
}

func TestSemanticAnalyzerEmbedderFailure(t *testing.T) {
	a := NewSemanticAnalyzer(&stubEmbedder{err: errors.New("provider unavailable")})
	f := a.Extract(context.Background(), "subject", "body")

	if len(f) != SemanticFeatureDim {
		t.Fatalf("got %d keys, want %d", len(f), SemanticFeatureDim)
	}
	for k, v := range f {
		if v != 0 {
			t.Errorf("%s = %v, want 0 after embed failure", k, v)
		}
	}
}
