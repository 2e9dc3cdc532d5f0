package features

import (
	"context"
	"math"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

// URLAnalyzer extracts structural, lexical, and reputation features from a
// single URL. The optional domain-age service enriches the feature set with
// registration age; when it is absent or fails, those features stay zero.
type URLAnalyzer struct {
	domainAge core.DomainAgeService
}

// NewURLAnalyzer creates a URL analyzer. domainAge may be nil.
func NewURLAnalyzer(domainAge core.DomainAgeService) *URLAnalyzer {
	return &URLAnalyzer{domainAge: domainAge}
}

// hostParts is the tldextract-style decomposition of a URL host.
type hostParts struct {
	subdomain   string // "mail.accounts" in mail.accounts.example.co.uk
	domain      string // "example"
	suffix      string // "co.uk"
	registrable string // "example.co.uk"
	isIP        bool
}

// Extract computes the feature set for one URL. An empty URL yields the
// complete key set with zero values, never an error; the extractor relies on
// this to keep the merged FeatureMap shape stable when no URLs exist.
func (a *URLAnalyzer) Extract(ctx context.Context, rawURL string) map[string]float64 {
	if rawURL == "" {
		return a.emptyFeatures()
	}

	parsed := parseURL(rawURL)
	host := splitHost(parsed.Hostname())

	f := make(map[string]float64)

	f["url_length"] = float64(len(rawURL))
	f["domain_length"] = float64(len(host.domain))
	f["path_length"] = float64(len(parsed.Path))
	f["query_length"] = float64(len(parsed.RawQuery))

	f["num_dots"] = float64(strings.Count(rawURL, "."))
	f["num_hyphens"] = float64(strings.Count(rawURL, "-"))
	f["num_underscores"] = float64(strings.Count(rawURL, "_"))
	f["num_slashes"] = float64(strings.Count(rawURL, "/"))
	f["num_question_marks"] = float64(strings.Count(rawURL, "?"))
	f["num_equals"] = float64(strings.Count(rawURL, "="))
	f["num_ampersands"] = float64(strings.Count(rawURL, "&"))
	f["num_percent"] = float64(strings.Count(rawURL, "%"))

	f["has_https"] = boolFeature(parsed.Scheme == "https")
	f["has_port"] = boolFeature(parsed.Port() != "")
	f["has_path"] = boolFeature(parsed.Path != "" && parsed.Path != "/")
	f["has_query"] = boolFeature(parsed.RawQuery != "")
	f["has_fragment"] = boolFeature(parsed.Fragment != "")

	a.domainFeatures(host, f)
	a.pathFeatures(parsed.Path, f)
	a.queryFeatures(parsed.RawQuery, f)

	lowerURL := strings.ToLower(rawURL)
	f["shortened_url"] = 0
	for _, s := range urlShorteners {
		if strings.Contains(lowerURL, s) {
			f["shortened_url"] = 1
			break
		}
	}

	f["has_typosquatting"] = boolFeature(looksTyposquatted(host.domain))
	f["brand_impersonation"] = boolFeature(brandImpersonated(host.domain, lowerURL))

	a.domainAgeFeatures(ctx, host, f)

	// HTTPS used as false reassurance on an otherwise suspicious host.
	f["has_https_but_suspicious"] = boolFeature(
		f["has_https"] == 1 && (f["is_suspicious_tld"] == 1 || f["has_ip_address"] == 1))

	pathQuery := strings.ToLower(parsed.Path + " " + parsed.RawQuery)
	f["deceptive_secure_language"] = 0
	for _, w := range secureDeceptiveWords {
		if strings.Contains(pathQuery, w) {
			f["deceptive_secure_language"] = 1
			break
		}
	}

	return f
}

func (a *URLAnalyzer) domainFeatures(host hostParts, f map[string]float64) {
	f["is_suspicious_tld"] = boolFeature(suspiciousTLDs[strings.ToLower(host.suffix)])
	f["domain_entropy"] = shannonEntropy(host.domain)
	f["has_ip_address"] = boolFeature(host.isIP)

	subdomains := 0
	if host.subdomain != "" {
		for _, s := range strings.Split(host.subdomain, ".") {
			if s != "" {
				subdomains++
			}
		}
	}
	f["num_subdomains"] = float64(subdomains)
}

func (a *URLAnalyzer) pathFeatures(path string, f map[string]float64) {
	f["path_entropy"] = 0
	f["num_path_segments"] = 0
	f["has_suspicious_path"] = 0
	if path == "" || path == "/" {
		return
	}

	cleaned := strings.NewReplacer("/", "", "-", "", "_", "").Replace(path)
	f["path_entropy"] = shannonEntropy(cleaned)

	segments := 0
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments++
		}
	}
	f["num_path_segments"] = float64(segments)

	lowerPath := strings.ToLower(path)
	for _, token := range suspiciousPathTokens {
		if strings.Contains(lowerPath, token) {
			f["has_suspicious_path"] = 1
			break
		}
	}
}

func (a *URLAnalyzer) queryFeatures(query string, f map[string]float64) {
	f["num_query_params"] = 0
	f["has_suspicious_query"] = 0
	if query == "" {
		return
	}

	params, err := url.ParseQuery(query)
	if err == nil {
		f["num_query_params"] = float64(len(params))
	}

	lowerQuery := strings.ToLower(query)
	for _, p := range suspiciousQueryParams {
		if strings.Contains(lowerQuery, p) {
			f["has_suspicious_query"] = 1
			break
		}
	}
}

// domainAgeFeatures consults the optional registration-age service. Any
// failure leaves the features at zero; the lookup never blocks past the
// adapter's own deadline.
func (a *URLAnalyzer) domainAgeFeatures(ctx context.Context, host hostParts, f map[string]float64) {
	f["domain_age_days"] = 0
	f["domain_recently_updated"] = 0
	if a.domainAge == nil || host.registrable == "" || host.isIP {
		return
	}
	age, err := a.domainAge.Lookup(ctx, strings.ToLower(host.registrable))
	if err != nil {
		return
	}
	f["domain_age_days"] = float64(age.AgeDays)
	f["domain_recently_updated"] = boolFeature(age.RecentlyUpdated)
}

func (a *URLAnalyzer) emptyFeatures() map[string]float64 {
	f := make(map[string]float64, len(urlFeatureKeys))
	for _, k := range urlFeatureKeys {
		f[k] = 0
	}
	return f
}

// urlFeatureKeys is the canonical per-URL key set. Extract fills every key
// for every input so aggregation upstream sees a fixed shape.
var urlFeatureKeys = []string{
	"url_length", "domain_length", "path_length", "query_length",
	"num_dots", "num_hyphens", "num_underscores", "num_slashes",
	"num_question_marks", "num_equals", "num_ampersands", "num_percent",
	"has_https", "has_port", "has_path", "has_query", "has_fragment",
	"is_suspicious_tld", "domain_entropy", "has_ip_address", "num_subdomains",
	"path_entropy", "num_path_segments", "has_suspicious_path",
	"num_query_params", "has_suspicious_query", "shortened_url",
	"has_typosquatting", "domain_age_days", "domain_recently_updated",
	"brand_impersonation", "has_https_but_suspicious",
	"deceptive_secure_language",
}

// brandImpersonated reports whether the URL mentions a known brand token
// while the registrable domain label is not that brand's canonical one.
// Matching is substring-based on the whole URL: permissive on purpose, since
// missing an impersonation costs more than a rare false positive.
func brandImpersonated(domainLabel, lowerURL string) bool {
	lowerDomain := strings.ToLower(domainLabel)
	for brand, canonical := range brandCanonical {
		if !strings.Contains(lowerURL, brand) {
			continue
		}
		if lowerDomain != canonical {
			return true
		}
	}
	return false
}

// looksTyposquatted reports whether the domain label is one edit away from a
// canonical brand domain without being that brand.
func looksTyposquatted(domainLabel string) bool {
	lower := strings.ToLower(domainLabel)
	if lower == "" {
		return false
	}
	for _, canonical := range brandCanonical {
		if lower == canonical {
			return false
		}
		if editDistanceAtMostOne(lower, canonical) {
			return true
		}
	}
	return false
}

// editDistanceAtMostOne reports whether a and b differ by at most one
// substitution, insertion, or deletion (and are not equal).
func editDistanceAtMostOne(a, b string) bool {
	la, lb := len(a), len(b)
	if la == lb {
		diff := 0
		for i := 0; i < la; i++ {
			if a[i] != b[i] {
				diff++
				if diff > 1 {
					return false
				}
			}
		}
		return diff == 1
	}
	if la > lb {
		a, b = b, a
		la, lb = lb, la
	}
	if lb-la != 1 {
		return false
	}
	// a is the shorter string; allow one skipped byte in b.
	i, j, skipped := 0, 0, false
	for i < la && j < lb {
		if a[i] == b[j] {
			i++
			j++
			continue
		}
		if skipped {
			return false
		}
		skipped = true
		j++
	}
	return true
}

// parseURL tolerates scheme-less inputs like "www.example.com/x".
func parseURL(rawURL string) *url.URL {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if reparsed, rerr := url.Parse("http://" + rawURL); rerr == nil && reparsed.Host != "" {
			// Scheme-less input: keep the host split but report no scheme.
			reparsed.Scheme = ""
			return reparsed
		}
		if parsed == nil {
			return &url.URL{}
		}
	}
	return parsed
}

// splitHost decomposes a hostname into subdomain, domain label, and public
// suffix. IP hosts put the full address in the domain label.
func splitHost(hostname string) hostParts {
	if hostname == "" {
		return hostParts{}
	}
	if net.ParseIP(hostname) != nil {
		return hostParts{domain: hostname, registrable: hostname, isIP: true}
	}

	suffix, _ := publicsuffix.PublicSuffix(hostname)
	registrable, err := publicsuffix.EffectiveTLDPlusOne(hostname)
	if err != nil {
		// Single-label or suffix-only host; treat the whole thing as the label.
		return hostParts{domain: hostname, registrable: hostname}
	}

	domain := registrable
	if suffix != "" && strings.HasSuffix(registrable, "."+suffix) {
		domain = registrable[:len(registrable)-len(suffix)-1]
	}
	sub := ""
	if len(hostname) > len(registrable) && strings.HasSuffix(hostname, "."+registrable) {
		sub = hostname[:len(hostname)-len(registrable)-1]
	}
	return hostParts{subdomain: sub, domain: domain, suffix: suffix, registrable: registrable}
}

// shannonEntropy computes character-level Shannon entropy in bits. Terms are
// accumulated in first-occurrence order so the floating-point sum is the same
// on every call; map iteration order would make the low bits vary between
// runs and identical inputs must produce identical feature values.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	order := make([]rune, 0, len(s))
	total := 0
	for _, r := range s {
		if counts[r] == 0 {
			order = append(order, r)
		}
		counts[r]++
		total++
	}
	entropy := 0.0
	for _, r := range order {
		p := float64(counts[r]) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}
