package whitelist

import "testing"

func TestIsWhitelisted(t *testing.T) {
	c := NewChecker([]string{"Example.com", " corp.example.org ", ""}, nil)

	tests := []struct {
		name string
		from string
		want bool
	}{
		{"exact domain", "alice@example.com", true},
		{"case insensitive", "Bob@EXAMPLE.COM", true},
		{"subdomain", "alerts@mail.example.com", true},
		{"deep subdomain", "x@a.b.corp.example.org", true},
		{"bare domain", "example.com", true},
		{"angle bracket remnant", "alice@example.com>", true},
		{"different domain", "alice@example.net", false},
		{"suffix but not subdomain", "alice@notexample.com", false},
		{"empty sender", "", false},
		{"bare at sign", "@", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsWhitelisted(tt.from); got != tt.want {
				t.Errorf("IsWhitelisted(%q) = %v, want %v", tt.from, got, tt.want)
			}
		})
	}
}

func TestIsWhitelistedEmptyList(t *testing.T) {
	c := NewChecker(nil, nil)
	if c.IsWhitelisted("alice@example.com") {
		t.Error("empty whitelist must match nothing")
	}
}
