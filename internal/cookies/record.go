// Package cookies implements the jar store and the resolution engine: which
// stored cookies a browser would attach to a candidate request, with an
// auditable reason for every per-cookie decision.
package cookies

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/restgate/agent/internal/types"
)

var errMalformedDirective = errors.New("cookies: malformed Set-Cookie directive")

// ParseSetCookie applies one Set-Cookie directive against the request URL it
// arrived on, producing a stored record. The attribute rules match what the
// resolution engine later evaluates: Domain present clears host-only and
// strips a leading dot, Path defaults to "/", Max-Age wins over Expires.
func ParseSetCookie(directive string, requestURL *url.URL, now time.Time) (types.CookieRecord, error) {
	parts := strings.Split(directive, ";")
	name, value, ok := strings.Cut(strings.TrimSpace(parts[0]), "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return types.CookieRecord{}, errMalformedDirective
	}

	rec := types.CookieRecord{
		Name:     name,
		Value:    strings.TrimSpace(value),
		Domain:   strings.ToLower(requestURL.Hostname()),
		HostOnly: true,
		Path:     "/",
	}

	var expires *time.Time
	var maxAge *time.Duration

	for _, part := range parts[1:] {
		attr, val, _ := strings.Cut(strings.TrimSpace(part), "=")
		val = strings.TrimSpace(val)
		switch strings.ToLower(strings.TrimSpace(attr)) {
		case "domain":
			d := strings.ToLower(strings.TrimPrefix(val, "."))
			if d != "" {
				rec.Domain = d
				rec.HostOnly = false
			}
		case "path":
			if strings.HasPrefix(val, "/") {
				rec.Path = val
			}
		case "secure":
			rec.Secure = true
		case "httponly":
			rec.HTTPOnly = true
		case "samesite":
			switch strings.ToLower(val) {
			case types.SameSiteStrict, types.SameSiteLax, types.SameSiteNone:
				rec.SameSite = strings.ToLower(val)
			}
		case "expires":
			if t, err := http.ParseTime(val); err == nil {
				t := t.UTC()
				expires = &t
			}
		case "max-age":
			if secs, err := strconv.ParseInt(val, 10, 64); err == nil {
				d := time.Duration(secs) * time.Second
				maxAge = &d
			}
		}
	}

	switch {
	case maxAge != nil:
		t := now.Add(*maxAge).UTC()
		rec.ExpiresAt = &t
	case expires != nil:
		rec.ExpiresAt = expires
	}

	return rec, nil
}

// SerializePair renders one cookie as a Cookie-header pair.
func SerializePair(rec types.CookieRecord) string {
	return rec.Name + "=" + rec.Value
}

// expired reports whether the record is past its expiry at now. A cookie
// expiring exactly at now counts as expired.
func expired(rec types.CookieRecord, now time.Time) bool {
	return rec.ExpiresAt != nil && !rec.ExpiresAt.After(now)
}

// domainMatch applies host-only and domain-cookie matching against a request
// host.
func domainMatch(rec types.CookieRecord, host string) bool {
	h := strings.ToLower(host)
	if rec.HostOnly {
		return h == rec.Domain
	}
	return h == rec.Domain || strings.HasSuffix(h, "."+rec.Domain)
}

// pathMatch reports whether the cookie path covers the request path.
func pathMatch(rec types.CookieRecord, requestPath string) bool {
	if requestPath == "" {
		requestPath = "/"
	}
	if rec.Path == "" || rec.Path == "/" {
		return true
	}
	return strings.HasPrefix(requestPath, rec.Path)
}
