package cookies

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/restgate/agent/internal/types"
)

// Exclusion and justification strings. These are part of the management API
// contract; clients display them verbatim.
const (
	ReasonExpired         = "Expired"
	ReasonSecureOverHTTP  = "Secure cookie over HTTP"
	ReasonSameSiteNone    = "SameSite=None requires Secure"
	ReasonSameSiteStrict  = "SameSite=Strict blocked on cross-site request"
	ReasonSameSiteLax     = "SameSite=Lax blocked on cross-site request"
	ReasonDomainMismatch  = "Domain mismatch"
	ReasonPathMismatch    = "Path mismatch"
	ReasonOverridden      = "overridden by a more specific cookie"
	ReasonManualOverride  = "manual Cookie header present"
	reasonExactHostMatch  = "Exact host match"
	reasonDomainMatch     = "Domain match"
	reasonPathMatch       = "Path match"
	reasonSecureOverHTTPS = "Secure cookie over HTTPS"
)

// Request describes one candidate attachment to evaluate.
type Request struct {
	URL *url.URL
	// SiteOriginHost is the host the calling site runs on; when it differs
	// from the request host the call counts as cross-site. Empty means
	// same-site.
	SiteOriginHost string
	// ManualHeader, when non-empty, bypasses the jar entirely and is
	// returned verbatim.
	ManualHeader string
}

// Resolve computes which of the stored cookies apply to the request,
// reporting a justification for every inclusion and one or more reasons for
// every exclusion. It never mutates the jar; expiry is evaluated lazily
// against now.
func Resolve(records []types.CookieRecord, req Request, now time.Time) types.CookieResolution {
	secure := strings.EqualFold(req.URL.Scheme, "https")
	host := req.URL.Hostname()
	path := req.URL.Path
	crossSite := req.SiteOriginHost != "" &&
		!strings.EqualFold(req.SiteOriginHost, host)

	res := types.CookieResolution{
		CookiesSent:     []types.SentCookie{},
		CookiesExcluded: []types.ExcludedCookie{},
		IsCrossSite:     crossSite,
	}

	type candidate struct {
		rec    types.CookieRecord
		reason string
	}
	var candidates []candidate

	for _, rec := range records {
		if reason, ok := disqualify(rec, secure, crossSite, host, path, now); !ok {
			res.CookiesExcluded = append(res.CookiesExcluded, exclude(rec, req.ManualHeader, reason))
			continue
		}
		candidates = append(candidates, candidate{rec: rec, reason: justification(rec, secure)})
	}

	// Longer paths are more specific and win both ordering and the
	// per-name de-duplication below. The sort is stable so insertion
	// order breaks ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].rec.Path) > len(candidates[j].rec.Path)
	})

	seen := make(map[string]bool, len(candidates))
	var pairs []string
	for _, c := range candidates {
		if seen[c.rec.Name] {
			res.CookiesExcluded = append(res.CookiesExcluded, exclude(c.rec, req.ManualHeader, ReasonOverridden))
			continue
		}
		seen[c.rec.Name] = true
		if req.ManualHeader != "" {
			res.CookiesExcluded = append(res.CookiesExcluded, exclude(c.rec, req.ManualHeader, ""))
			continue
		}
		res.CookiesSent = append(res.CookiesSent, types.SentCookie{Cookie: c.rec, Reason: c.reason})
		pairs = append(pairs, SerializePair(c.rec))
	}

	if req.ManualHeader != "" {
		res.ManualOverride = true
		res.Header = req.ManualHeader
		return res
	}

	res.Header = strings.Join(pairs, "; ")
	return res
}

// disqualify evaluates the exclusion rules in their fixed order, stopping at
// the first one that applies.
func disqualify(rec types.CookieRecord, secure, crossSite bool, host, path string, now time.Time) (string, bool) {
	if expired(rec, now) {
		return ReasonExpired, false
	}
	if rec.Secure && !secure {
		return ReasonSecureOverHTTP, false
	}
	if rec.SameSite == types.SameSiteNone && !rec.Secure {
		return ReasonSameSiteNone, false
	}
	if crossSite {
		switch rec.SameSite {
		case types.SameSiteStrict:
			return ReasonSameSiteStrict, false
		case types.SameSiteLax:
			// Deliberate simplification: the agent cannot tell
			// navigation-type calls apart, so Lax is excluded on
			// every cross-site request.
			return ReasonSameSiteLax, false
		}
	}
	if !domainMatch(rec, host) {
		return ReasonDomainMismatch, false
	}
	if !pathMatch(rec, path) {
		return ReasonPathMismatch, false
	}
	return "", true
}

// justification summarizes why a cookie qualified.
func justification(rec types.CookieRecord, secure bool) string {
	reasons := make([]string, 0, 3)
	if rec.HostOnly {
		reasons = append(reasons, reasonExactHostMatch)
	} else {
		reasons = append(reasons, reasonDomainMatch)
	}
	reasons = append(reasons, reasonPathMatch)
	if rec.Secure && secure {
		reasons = append(reasons, reasonSecureOverHTTPS)
	}
	return strings.Join(reasons, "; ")
}

// exclude builds the exclusion entry. Under a manual override the override
// reason is appended to whatever reason the cookie already had.
func exclude(rec types.CookieRecord, manualHeader, reason string) types.ExcludedCookie {
	var reasons []string
	if reason != "" {
		reasons = append(reasons, reason)
	}
	if manualHeader != "" {
		reasons = append(reasons, ReasonManualOverride)
	}
	return types.ExcludedCookie{Cookie: rec, Reasons: reasons}
}
