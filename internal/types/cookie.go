package types

import "time"

// SameSite attribute values stored on a cookie record. Empty means the
// attribute was absent from the Set-Cookie directive.
const (
	SameSiteStrict = "strict"
	SameSiteLax    = "lax"
	SameSiteNone   = "none"
)

// CookieRecord is one stored cookie inside a jar.
type CookieRecord struct {
	Name      string     `json:"name"`
	Value     string     `json:"value"`
	Domain    string     `json:"domain"`
	HostOnly  bool       `json:"hostOnly"`
	Path      string     `json:"path"`
	Secure    bool       `json:"secure"`
	HTTPOnly  bool       `json:"httpOnly"`
	SameSite  string     `json:"sameSite"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// SentCookie is a cookie selected for attachment, with the justification for
// including it.
type SentCookie struct {
	Cookie CookieRecord `json:"cookie"`
	Reason string       `json:"reason"`
}

// ExcludedCookie is a cookie left out of the header, with one or more reasons.
type ExcludedCookie struct {
	Cookie  CookieRecord `json:"cookie"`
	Reasons []string     `json:"reasons"`
}

// CookieResolution reports what a browser-accurate attachment would look like
// for one request against one jar.
type CookieResolution struct {
	Header          string           `json:"header"`
	CookiesSent     []SentCookie     `json:"cookiesSent"`
	CookiesExcluded []ExcludedCookie `json:"cookiesExcluded"`
	ManualOverride  bool             `json:"manualOverride"`
	IsCrossSite     bool             `json:"isCrossSite"`
}
