package features

import (
	"context"
	"sort"
	"testing"

	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

type panickyEmbedder struct{}

func (panickyEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	panic("embedder blew up")
}

func sampleEmail() *core.EmailRecord {
	return &core.EmailRecord{
		Subject: "URGENT: Verify your account",
		Body:    "Click here to verify now: http://paypal-login.xyz/verify",
		Sender:  "security@paypal-login.xyz",
		To:      "victim@example.com",
		ReplyTo: "collect@attacker.net",
		URLs:    []string{"http://paypal-login.xyz/verify"},
	}
}

func TestExtractorSchemaStability(t *testing.T) {
	e := NewExtractor(nil, nil, zap.NewNop())
	ctx := context.Background()

	emails := []*core.EmailRecord{
		{},
		sampleEmail(),
		{
			Subject: "Team lunch",
			Body:    "Two options: http://a.example.com and http://b.example.org/page",
			Sender:  "alice@example.com",
		},
	}

	want := append([]string(nil), Schema()...)
	sort.Strings(want)

	for i, email := range emails {
		f := e.Extract(ctx, email)
		if len(f) != len(want) {
			t.Fatalf("email %d: got %d keys, want %d", i, len(f), len(want))
		}
		got := make([]string, 0, len(f))
		for k := range f {
			got = append(got, k)
		}
		sort.Strings(got)
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("email %d: key set diverges at %q vs %q", i, got[j], want[j])
			}
		}
	}
}

func TestExtractorSingleURLFlattening(t *testing.T) {
	e := NewExtractor(nil, nil, zap.NewNop())
	f := e.Extract(context.Background(), sampleEmail())

	if f["url_count"] != 1 {
		t.Errorf("url_count = %v, want 1", f["url_count"])
	}
	if f["url_is_suspicious_tld"] != 1 {
		t.Errorf("url_is_suspicious_tld = %v, want 1 for .xyz", f["url_is_suspicious_tld"])
	}
	if f["url_brand_impersonation"] != 1 {
		t.Errorf("url_brand_impersonation = %v, want 1", f["url_brand_impersonation"])
	}
	// Aggregated forms stay zero-filled in the single-URL case.
	if f["url_max_is_suspicious_tld"] != 0 {
		t.Errorf("url_max_is_suspicious_tld = %v, want 0 for a single URL", f["url_max_is_suspicious_tld"])
	}
}

func TestExtractorMultiURLAggregation(t *testing.T) {
	e := NewExtractor(nil, nil, zap.NewNop())
	email := &core.EmailRecord{
		Body: "links",
		URLs: []string{"http://safe.example.com/page", "http://192.168.1.9/login"},
	}
	f := e.Extract(context.Background(), email)

	if f["url_count"] != 2 {
		t.Errorf("url_count = %v, want 2", f["url_count"])
	}
	if f["url_max_has_ip_address"] != 1 {
		t.Errorf("url_max_has_ip_address = %v, want 1", f["url_max_has_ip_address"])
	}
	if f["url_avg_has_ip_address"] != 0.5 {
		t.Errorf("url_avg_has_ip_address = %v, want 0.5", f["url_avg_has_ip_address"])
	}
	// The flattened single-URL block stays zero-filled when aggregating.
	if f["url_has_ip_address"] != 0 {
		t.Errorf("url_has_ip_address = %v, want 0 in the multi-URL case", f["url_has_ip_address"])
	}
}

func TestExtractorMinesURLsFromBody(t *testing.T) {
	e := NewExtractor(nil, nil, zap.NewNop())
	email := &core.EmailRecord{
		Body: "see https://first.example.com and http://second.example.org/x for details",
	}
	f := e.Extract(context.Background(), email)
	if f["url_count"] != 2 {
		t.Errorf("url_count = %v, want 2 mined from body", f["url_count"])
	}
}

func TestExtractorSurvivesAnalyzerPanic(t *testing.T) {
	e := NewExtractor(nil, panickyEmbedder{}, zap.NewNop())
	f := e.Extract(context.Background(), sampleEmail())

	if f["semantic_1"] != 0 {
		t.Errorf("semantic_1 = %v, want 0 after analyzer panic", f["semantic_1"])
	}
	if f["phishing_keyword_count"] == 0 {
		t.Error("other analyzers should still contribute after a panic")
	}
	if len(f) != len(Schema()) {
		t.Errorf("got %d keys, want %d", len(f), len(Schema()))
	}
}

func TestExtractBatch(t *testing.T) {
	e := NewExtractor(nil, nil, zap.NewNop())
	out := e.ExtractBatch(context.Background(), []*core.EmailRecord{sampleEmail(), {}})
	if len(out) != 2 {
		t.Fatalf("got %d feature maps, want 2", len(out))
	}
	if out[0]["url_count"] != 1 || out[1]["url_count"] != 0 {
		t.Errorf("url_count per email = %v, %v; want 1, 0", out[0]["url_count"], out[1]["url_count"])
	}
}

func TestMineURLs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"plain text", "no links here", 0},
		{"http and www", "visit http://a.example.com or www.b.example.org now", 2},
		{"trailing paren excluded", "(see http://a.example.com)", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MineURLs(tt.text); len(got) != tt.want {
				t.Errorf("MineURLs(%q) = %v, want %d URLs", tt.text, got, tt.want)
			}
		})
	}
}

func TestNormalizeRecord(t *testing.T) {
	t.Run("primary field names", func(t *testing.T) {
		r := NormalizeRecord(map[string]string{
			"subject": "Hi", "body": "text", "sender": "a@example.com",
		}, nil, nil, nil)
		if r.Subject != "Hi" || r.Body != "text" || r.Sender != "a@example.com" {
			t.Errorf("unexpected record: %+v", r)
		}
	})

	t.Run("dataset aliases", func(t *testing.T) {
		r := NormalizeRecord(map[string]string{
			"email_subject": "Hi", "email_body": "text", "from_address": "a@example.com", "to_address": "b@example.com",
		}, nil, nil, nil)
		if r.Subject != "Hi" || r.Body != "text" || r.Sender != "a@example.com" || r.To != "b@example.com" {
			t.Errorf("unexpected record: %+v", r)
		}
	})

	t.Run("primary wins over alias", func(t *testing.T) {
		r := NormalizeRecord(map[string]string{
			"body": "primary", "email_body": "alias",
		}, nil, nil, nil)
		if r.Body != "primary" {
			t.Errorf("Body = %q, want primary field to win", r.Body)
		}
	})

	t.Run("blank primary falls through", func(t *testing.T) {
		r := NormalizeRecord(map[string]string{
			"body": "  ", "email_body": "alias",
		}, nil, nil, nil)
		if r.Body != "alias" {
			t.Errorf("Body = %q, want alias when primary is blank", r.Body)
		}
	})
}
