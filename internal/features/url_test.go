package features

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

type stubDomainAge struct {
	age core.DomainAge
	err error
}

func (s *stubDomainAge) Lookup(_ context.Context, _ string) (core.DomainAge, error) {
	return s.age, s.err
}

func TestURLAnalyzerEmptyURL(t *testing.T) {
	a := NewURLAnalyzer(nil)
	f := a.Extract(context.Background(), "")

	if len(f) != len(urlFeatureKeys) {
		t.Fatalf("empty URL produced %d keys, want %d", len(f), len(urlFeatureKeys))
	}
	for k, v := range f {
		if v != 0 {
			t.Errorf("empty URL: %s = %v, want 0", k, v)
		}
	}
}

func TestURLAnalyzerIPAddress(t *testing.T) {
	a := NewURLAnalyzer(nil)
	f := a.Extract(context.Background(), "http://192.168.10.5/login")

	if f["has_ip_address"] != 1 {
		t.Errorf("has_ip_address = %v, want 1", f["has_ip_address"])
	}
	if f["has_https"] != 0 {
		t.Errorf("has_https = %v, want 0", f["has_https"])
	}
	if f["has_suspicious_path"] != 1 {
		t.Errorf("has_suspicious_path = %v, want 1 for /login", f["has_suspicious_path"])
	}
}

func TestURLAnalyzerSuspiciousTLD(t *testing.T) {
	a := NewURLAnalyzer(nil)
	f := a.Extract(context.Background(), "https://account-update.xyz/confirm")

	if f["is_suspicious_tld"] != 1 {
		t.Errorf("is_suspicious_tld = %v, want 1 for .xyz", f["is_suspicious_tld"])
	}
	if f["has_https_but_suspicious"] != 1 {
		t.Errorf("has_https_but_suspicious = %v, want 1", f["has_https_but_suspicious"])
	}
}

func TestURLAnalyzerBrandImpersonation(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want float64
	}{
		{"impersonating domain", "http://paypal-security.com/verify", 1},
		{"canonical domain", "https://www.paypal.com/activity", 0},
		{"brand in path only", "http://evil.com/paypal/login", 1},
		{"no brand mention", "https://example.com/page", 0},
	}
	a := NewURLAnalyzer(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := a.Extract(context.Background(), tt.url)
			if f["brand_impersonation"] != tt.want {
				t.Errorf("brand_impersonation(%s) = %v, want %v", tt.url, f["brand_impersonation"], tt.want)
			}
		})
	}
}

func TestURLAnalyzerTyposquatting(t *testing.T) {
	a := NewURLAnalyzer(nil)

	squatted := a.Extract(context.Background(), "http://paypa1.com/login")
	if squatted["has_typosquatting"] != 1 {
		t.Errorf("has_typosquatting = %v, want 1 for paypa1", squatted["has_typosquatting"])
	}

	legit := a.Extract(context.Background(), "https://paypal.com")
	if legit["has_typosquatting"] != 0 {
		t.Errorf("has_typosquatting = %v, want 0 for canonical domain", legit["has_typosquatting"])
	}
}

func TestURLAnalyzerShortener(t *testing.T) {
	a := NewURLAnalyzer(nil)
	f := a.Extract(context.Background(), "http://bit.ly/3xYz")
	if f["shortened_url"] != 1 {
		t.Errorf("shortened_url = %v, want 1", f["shortened_url"])
	}
}

func TestURLAnalyzerDomainAge(t *testing.T) {
	t.Run("service present", func(t *testing.T) {
		a := NewURLAnalyzer(&stubDomainAge{age: core.DomainAge{AgeDays: 30, RecentlyUpdated: true}})
		f := a.Extract(context.Background(), "http://example.com")
		if f["domain_age_days"] != 30 {
			t.Errorf("domain_age_days = %v, want 30", f["domain_age_days"])
		}
		if f["domain_recently_updated"] != 1 {
			t.Errorf("domain_recently_updated = %v, want 1", f["domain_recently_updated"])
		}
	})

	t.Run("lookup failure stays zero", func(t *testing.T) {
		a := NewURLAnalyzer(&stubDomainAge{err: errors.New("registry timeout")})
		f := a.Extract(context.Background(), "http://example.com")
		if f["domain_age_days"] != 0 {
			t.Errorf("domain_age_days = %v, want 0 on failure", f["domain_age_days"])
		}
	})

	t.Run("ip host skips lookup", func(t *testing.T) {
		a := NewURLAnalyzer(&stubDomainAge{age: core.DomainAge{AgeDays: 99}})
		f := a.Extract(context.Background(), "http://10.0.0.1/x")
		if f["domain_age_days"] != 0 {
			t.Errorf("domain_age_days = %v, want 0 for IP host", f["domain_age_days"])
		}
	})
}

func TestURLAnalyzerSchemelessInput(t *testing.T) {
	a := NewURLAnalyzer(nil)
	f := a.Extract(context.Background(), "www.example.com/some/path")

	if f["has_https"] != 0 {
		t.Errorf("has_https = %v, want 0 for scheme-less URL", f["has_https"])
	}
	if f["num_path_segments"] != 2 {
		t.Errorf("num_path_segments = %v, want 2", f["num_path_segments"])
	}
}

func TestSplitHost(t *testing.T) {
	tests := []struct {
		host        string
		subdomain   string
		domain      string
		suffix      string
		registrable string
	}{
		{"mail.accounts.example.co.uk", "mail.accounts", "example", "co.uk", "example.co.uk"},
		{"example.com", "", "example", "com", "example.com"},
		{"www.example.com", "www", "example", "com", "example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			got := splitHost(tt.host)
			if got.subdomain != tt.subdomain || got.domain != tt.domain ||
				got.suffix != tt.suffix || got.registrable != tt.registrable {
				t.Errorf("splitHost(%s) = %+v", tt.host, got)
			}
		})
	}
}

func TestEditDistanceAtMostOne(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"paypal", "paypal", false},
		{"paypa1", "paypal", true},
		{"paypall", "paypal", true},
		{"paypl", "paypal", true},
		{"amazon", "paypal", false},
		{"pppl", "paypal", false},
	}
	for _, tt := range tests {
		if got := editDistanceAtMostOne(tt.a, tt.b); got != tt.want {
			t.Errorf("editDistanceAtMostOne(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestShannonEntropyDeterministic(t *testing.T) {
	const input = "paypal-secure-login-update.example"
	first := shannonEntropy(input)
	for i := 0; i < 200; i++ {
		if got := shannonEntropy(input); math.Float64bits(got) != math.Float64bits(first) {
			t.Fatalf("entropy varies across calls on identical input: %v vs %v", got, first)
		}
	}
}

func TestShannonEntropy(t *testing.T) {
	if e := shannonEntropy(""); e != 0 {
		t.Errorf("entropy of empty string = %v, want 0", e)
	}
	if e := shannonEntropy("aaaa"); e != 0 {
		t.Errorf("entropy of uniform string = %v, want 0", e)
	}
	low := shannonEntropy("aabb")
	high := shannonEntropy("x7f2q9zk")
	if high <= low {
		t.Errorf("entropy ordering wrong: %v <= %v", high, low)
	}
}
