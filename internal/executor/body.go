// Package executor builds, dispatches and decodes one outbound request,
// using transport material from the proxy resolver and the TLS trust loader.
package executor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/restgate/agent/internal/types"
)

// Inferred content types per body tag. An explicit caller-supplied
// Content-Type header always wins over these.
const (
	contentTypeRaw  = "text/plain"
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// BuildBody converts a tagged body spec into a payload plus inferred
// content type.
func BuildBody(spec types.BodySpec) ([]byte, string, error) {
	switch spec.Type {
	case "", types.BodyNone:
		return nil, "", nil

	case types.BodyRaw:
		return []byte(spec.Raw), contentTypeRaw, nil

	case types.BodyJSON:
		if len(spec.JSON) == 0 {
			return nil, contentTypeJSON, nil
		}
		// A JSON string payload is already text; anything else is
		// serialized.
		var asText string
		if err := sonic.Unmarshal(spec.JSON, &asText); err == nil {
			return []byte(asText), contentTypeJSON, nil
		}
		return []byte(spec.JSON), contentTypeJSON, nil

	case types.BodyFormURL:
		var b strings.Builder
		for _, field := range spec.Form {
			if !field.Enabled() {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(field.Key))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(field.Value))
		}
		return []byte(b.String()), contentTypeForm, nil

	default:
		return nil, "", fmt.Errorf("unknown body type %q", spec.Type)
	}
}

// MergeQuery applies enabled query parameters onto the URL, preserving their
// order and any query already present.
func MergeQuery(rawURL string, params []types.KV) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	query := u.RawQuery
	for _, p := range params {
		if !p.Enabled() {
			continue
		}
		pair := url.QueryEscape(p.Key) + "=" + url.QueryEscape(p.Value)
		if query == "" {
			query = pair
		} else {
			query += "&" + pair
		}
	}
	u.RawQuery = query
	return u.String(), nil
}
