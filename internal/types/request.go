package types

import "encoding/json"

// Proxy source tags reported in SendResult.ProxySource.
const (
	ProxySourceOff            = "off"
	ProxySourceCustom         = "custom"
	ProxySourceEnv            = "env"
	ProxySourceSystemEnv      = "system(env)"
	ProxySourceOffNoProxyApp  = "off(no_proxy_app)"
	ProxySourceOffNoProxyEnv  = "off(no_proxy_env)"
	ProxySourceOffProxyForOff = "off(proxyFor disabled)"
)

// Body types accepted in BodySpec.Type.
const (
	BodyNone    = "none"
	BodyRaw     = "raw"
	BodyJSON    = "json"
	BodyFormURL = "form-url"
)

// KV is one ordered header, query parameter or form field. A nil Active
// counts as enabled so clients may omit the flag.
type KV struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Active *bool  `json:"active,omitempty"`
}

// Enabled reports whether the entry participates in the request.
func (kv KV) Enabled() bool {
	return kv.Active == nil || *kv.Active
}

// BodySpec is a tagged request body.
type BodySpec struct {
	Type string          `json:"type"`
	Raw  string          `json:"raw,omitempty"`
	JSON json.RawMessage `json:"json,omitempty"`
	Form []KV            `json:"form,omitempty"`
}

// SendRequest is one outbound request as submitted by the client.
type SendRequest struct {
	Method          string   `json:"method"`
	URL             string   `json:"url"`
	Headers         []KV     `json:"headers"`
	Params          []KV     `json:"params"`
	Body            BodySpec `json:"body"`
	FollowRedirects bool     `json:"followRedirects"`
	MaxRedirects    int      `json:"maxRedirects"`
	TimeoutMs       int      `json:"timeoutMs"`
}

// RedirectHop is one intermediate response on the way to the final one.
type RedirectHop struct {
	URL     string `json:"url"`
	Status  int    `json:"status"`
	Headers []KV   `json:"headers"`
}

// SendResult is the decoded outcome of a successful dispatch.
type SendResult struct {
	Status      int           `json:"status"`
	StatusText  string        `json:"statusText"`
	Headers     []KV          `json:"headers"`
	Body        string        `json:"body"`
	IsBase64    bool          `json:"isBase64"`
	Size        int           `json:"size"`
	TimeMs      int64         `json:"timeMs"`
	Redirects   []RedirectHop `json:"redirects"`
	FinalURL    string        `json:"finalUrl"`
	ProxySource string        `json:"proxySource"`
}

// SendError is a normalized transport failure. It is reported inside the
// management response envelope, never as a management-level error.
type SendError struct {
	Code      string `json:"error"`
	Message   string `json:"message"`
	ElapsedMs int64  `json:"elapsedMs"`
}

func (e *SendError) Error() string { return e.Code + ": " + e.Message }
