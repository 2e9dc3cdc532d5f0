// Package features turns raw email fields into a flat numeric feature space.
// Each analyzer is independent; the extractor fans out to all of them and
// merges the results into one FeatureMap with a stable key set.
package features

import (
	"regexp"
)

// Fixed lexicons and patterns used by the analyzers. All tables are compiled
// or built once at package load and never mutated afterwards.

var phishingKeywords = []string{
	"urgent", "verify", "suspend", "account", "click", "login", "confirm",
	"update", "password", "security", "bank", "paypal", "amazon", "ebay",
	"irs", "tax", "suspended", "locked", "expire", "immediately", "action required",
	"verify your account", "click here", "verify now", "limited time", "act now",
}

var highRiskPhrases = []string{
	"verify your account", "click here", "verify now", "account suspended",
	"password expired", "update payment", "confirm your identity",
}

var urgencyWords = []string{
	"urgent", "immediate", "asap", "now", "today", "expire", "expired",
	"suspended", "locked", "verify", "confirm", "update", "action required",
}

var subjectUrgencyWords = []string{
	"urgent", "immediate", "asap", "important", "action required", "verify",
}

var subjectSuspiciousWords = []string{
	"verify", "confirm", "update", "suspended", "locked", "expire",
}

var ctaVerbs = map[string]bool{
	"click": true, "verify": true, "update": true, "submit": true,
	"confirm": true, "login": true, "open": true, "check": true,
	"activate": true, "review": true, "respond": true, "reply": true,
	"register": true, "validate": true, "secure": true, "renew": true,
	"unlock": true, "restore": true,
}

var ctaPhrases = []string{
	"click here", "act now", "click below", "verify now", "update now",
	"submit now", "confirm your", "log in", "sign in", "open link",
	"download now", "claim now", "get started", "take action", "respond now",
}

var deadlinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwithin\s+\d+\s*(hour|day|minute)s?\b`),
	regexp.MustCompile(`(?i)\bby\s+(tomorrow|tonight|midnight)\b`),
	regexp.MustCompile(`(?i)\bexpires?\s+(in|on)\b`),
	regexp.MustCompile(`(?i)\bdeadline\s*:\s*\d`),
	regexp.MustCompile(`(?i)\b(only|just)\s+\d+\s*(hour|day)s?\s+left\b`),
	regexp.MustCompile(`(?i)\blimited\s+time\b`),
	regexp.MustCompile(`(?i)\b(urgent|asap|immediately)\b`),
}

// Attachment risk by extension.
var highRiskExtensions = map[string]bool{
	"exe": true, "scr": true, "bat": true, "cmd": true, "com": true,
	"pif": true, "vbs": true, "js": true, "wsf": true, "wsh": true,
	"jar": true, "ws": true, "cpl": true, "msc": true,
}

var mediumRiskExtensions = map[string]bool{
	"zip": true, "rar": true, "7z": true, "doc": true, "docx": true,
	"xls": true, "xlsb": true, "xlsm": true, "pdf": true, "hta": true,
	"lnk": true,
}

var suspiciousTLDs = map[string]bool{
	"tk": true, "ml": true, "ga": true, "cf": true, "gq": true,
	"xyz": true, "top": true, "click": true,
}

var urlShorteners = []string{
	"bit.ly", "tinyurl", "t.co", "goo.gl", "ow.ly", "short.link",
}

// brandCanonical maps a brand token that may appear anywhere in a URL to the
// registrable second-level domain that brand legitimately uses. A URL that
// mentions the token but is not registered under the canonical domain is
// flagged as impersonation. Substring matching is deliberately permissive:
// recall is preferred over precision here.
var brandCanonical = map[string]string{
	"paypal":        "paypal",
	"amazon":        "amazon",
	"microsoft":     "microsoft",
	"apple":         "apple",
	"google":        "google",
	"facebook":      "facebook",
	"netflix":       "netflix",
	"bankofamerica": "bankofamerica",
	"chase":         "chase",
	"wellsfargo":    "wellsfargo",
	"ebay":          "ebay",
	"linkedin":      "linkedin",
	"twitter":       "twitter",
	"instagram":     "instagram",
	"dropbox":       "dropbox",
	"adobe":         "adobe",
	"dhl":           "dhl",
	"fedex":         "fedex",
	"ups":           "ups",
}

var secureDeceptiveWords = []string{
	"secure", "safe", "verified", "official", "ssl", "trusted",
}

var suspiciousPathTokens = []string{
	"login", "verify", "account", "confirm", "update", "secure",
}

var suspiciousQueryParams = []string{
	"token", "key", "id", "user", "pass", "password", "login", "auth",
}

var trustedProviders = map[string]bool{
	"gmail.com": true, "outlook.com": true, "yahoo.com": true,
	"aol.com": true, "icloud.com": true, "protonmail.com": true,
	"hotmail.com": true,
}

// Small English stop-word set; tokens in it are dropped before vocabulary
// richness is computed.
var stopWords = buildWordSet(
	"a an the is are was were be been being have has had do does did will " +
		"would could should may might must shall can to of in for on with at " +
		"by from as into through during before after above below up out about " +
		"again then so when what which who this that these those i you he she " +
		"it we they your our their my his her its me us them and but or nor " +
		"not only also if than until while because since where whether")

// Common-word set for the spelling-anomaly heuristic. Tokens outside it
// count toward the anomaly score.
var commonWords = buildWordSet(
	"a an the is are was were be been being have has had do does did will " +
		"would could should may might must shall can need dare ought used to " +
		"of in for on with at by from as into through during before after " +
		"above below up out about again then so when what which who this that " +
		"these those i you he she it we they your our their my his her its me " +
		"us them and but or nor yet both either neither not only just also " +
		"back if than until while although because since once whenever " +
		"wherever whether hello please thank thanks dear sir madam account " +
		"verify click update login password secure confirm bank payment card " +
		"information")

// Crude sentiment and formality lexicons for subject/body divergence. These
// are heuristic approximations, not NLP-grade sentiment.
var positiveWords = buildWordSet(
	"good great thank thanks happy pleased confirm verified success welcome " +
		"congratulations approved secure safe trusted")

var negativeWords = buildWordSet(
	"urgent suspend suspended locked expired problem warning alert critical " +
		"verify immediately action required fail failed error fix update")

var formalWords = buildWordSet(
	"sir madam regarding pursuant hereby therefore furthermore nevertheless " +
		"accordingly sincerely respectfully")

var informalWords = buildWordSet(
	"hey hi dude lol omg u r ur plz thx wanna gonna")

// Shared patterns.
var (
	reURL     = regexp.MustCompile(`https?://[^\s<>"']+|www\.[^\s<>"']+`)
	reMineURL = regexp.MustCompile(`https?://[^\s<>"')]+|www\.[^\s<>"')]+`)
	reIPv4    = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	reEmail   = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	reWord    = regexp.MustCompile(`[a-zA-Z]+`)
)

func buildWordSet(words string) map[string]bool {
	set := make(map[string]bool)
	start := -1
	for i := 0; i <= len(words); i++ {
		if i == len(words) || words[i] == ' ' {
			if start >= 0 {
				set[words[start:i]] = true
			}
			start = -1
		} else if start < 0 {
			start = i
		}
	}
	return set
}
