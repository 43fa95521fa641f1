package admission

import (
	"net/url"
	"regexp"
	"strings"
)

// Per-match weights for the stateless detectors.
const (
	botTokenWeight      = 15
	missingHeaderWeight = 10
	adminProbeWeight    = 20
	injectionWeight     = 50
)

// User-agent tokens of automation tools and language-runtime HTTP clients.
var botTokens = []string{
	"bot",
	"crawler",
	"spider",
	"curl",
	"wget",
	"scrapy",
	"python-requests",
	"python-urllib",
	"go-http-client",
	"java/",
	"libwww-perl",
	"okhttp",
}

// Headers every mainstream browser sends on navigation requests.
var browserHeaders = []string{
	"Accept",
	"Accept-Language",
	"Accept-Encoding",
}

// Management endpoints this service never serves; probing them is a signal.
var adminProbePrefixes = []string{
	"/wp-admin",
	"/wp-login",
	"/admin",
	"/administrator",
	"/phpmyadmin",
	"/.env",
	"/.git",
	"/config.php",
	"/cgi-bin",
}

// Injection pattern families. Each matched family contributes once, however
// many times its patterns occur.
var injectionFamilies = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"sql_injection", regexp.MustCompile(`(?i)\b(union\s+select|select\s+.+\s+from|insert\s+into|drop\s+table|delete\s+from|or\s+1\s*=\s*1)\b`)},
	{"xss", regexp.MustCompile(`(?i)(<script|<iframe|on(?:error|load|click|mouseover)\s*=)`)},
	{"js_scheme", regexp.MustCompile(`(?i)javascript:`)},
	{"path_traversal", regexp.MustCompile(`\.\./`)},
	{"encoded_traversal", regexp.MustCompile(`(?i)(%2e%2e%2f|%2e%2e/|\.\.%2f|%252e%252e)`)},
}

// DetectBot classifies the request's client against automation heuristics.
// Pure function of the snapshot; identical input yields identical signals.
func DetectBot(req RequestContext) []Signal {
	var signals []Signal

	ua := strings.ToLower(req.UserAgent)
	for _, token := range botTokens {
		if strings.Contains(ua, token) {
			signals = append(signals, Signal{Name: "bot_ua:" + token, Contribution: botTokenWeight})
		}
	}

	for _, header := range browserHeaders {
		if req.Headers.Get(header) == "" {
			signals = append(signals, Signal{Name: "missing_header:" + strings.ToLower(header), Contribution: missingHeaderWeight})
		}
	}

	path := strings.ToLower(req.Path)
	for _, prefix := range adminProbePrefixes {
		if strings.HasPrefix(path, prefix) {
			signals = append(signals, Signal{Name: "admin_probe", Contribution: adminProbeWeight})
			break
		}
	}

	return signals
}

// DetectInjection scans the URL and the bounded body preview for known
// attack pattern families. The query is scanned both raw and decoded, so
// percent- or plus-encoding does not hide a payload; an encoded traversal
// that decodes to a plain one matches both families.
func DetectInjection(req RequestContext) []Signal {
	target := req.Path
	if req.Query != "" {
		target += "?" + req.Query
		if decoded, err := url.QueryUnescape(strings.ReplaceAll(req.Query, "+", " ")); err == nil {
			target += "\n" + decoded
		}
	}
	if req.BodyPreview != "" {
		target += "\n" + req.BodyPreview
	}

	var signals []Signal
	for _, family := range injectionFamilies {
		if family.pattern.MatchString(target) {
			signals = append(signals, Signal{Name: family.name, Contribution: injectionWeight})
		}
	}
	return signals
}
