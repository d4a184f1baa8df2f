package executor

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/restgate/agent/internal/logging"
	"github.com/restgate/agent/internal/monitoring"
	"github.com/restgate/agent/internal/proxy"
	"github.com/restgate/agent/internal/shared/id"
	"github.com/restgate/agent/internal/tlstrust"
	"github.com/restgate/agent/internal/types"
)

const (
	userAgent        = "restgate-agent/1.0"
	defaultTimeoutMs = 30000
)

// Transport failure codes reported in SendError.Code.
const (
	CodeInvalidRequest    = "invalid_request"
	CodeTimeout           = "timeout"
	CodeDNSError          = "dns_error"
	CodeTLSError          = "ssl_error"
	CodeConnectionRefused = "connection_refused"
	CodeNetworkError      = "network_error"
)

// Executor dispatches outbound requests.
type Executor struct {
	log     *logging.Logger
	metrics *monitoring.Metrics
}

// New creates an executor. metrics may be nil.
func New(log *logging.Logger, metrics *monitoring.Metrics) *Executor {
	return &Executor{log: log, metrics: metrics}
}

// Send builds and dispatches one request under the given agent
// configuration. Transport failures come back as a normalized SendError,
// never as a Go error the management layer would surface.
func (e *Executor) Send(ctx context.Context, req types.SendRequest, cfg types.AgentConfig) (*types.SendResult, *types.SendError) {
	start := time.Now()
	sendID := id.NewSendID()
	log := e.log.With(zap.String("sendId", sendID.String()))

	fail := func(code, message string) (*types.SendResult, *types.SendError) {
		elapsed := time.Since(start)
		log.Debug("send failed", zap.String("code", code), zap.String("error", message))
		if e.metrics != nil {
			e.metrics.RecordSend("", code, elapsed)
		}
		return nil, &types.SendError{Code: code, Message: message, ElapsedMs: elapsed.Milliseconds()}
	}

	merged, err := MergeQuery(req.URL, req.Params)
	if err != nil {
		return fail(CodeInvalidRequest, err.Error())
	}
	target, err := url.Parse(merged)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return fail(CodeInvalidRequest, "url must be absolute http or https")
	}

	payload, inferredCT, err := BuildBody(req.Body)
	if err != nil {
		return fail(CodeInvalidRequest, err.Error())
	}

	decision := proxy.Resolve(target, cfg)
	client := e.newClient(cfg, decision)

	timeout := time.Duration(req.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultTimeoutMs * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	maxHops := 0
	if req.FollowRedirects && req.MaxRedirects > 0 {
		maxHops = req.MaxRedirects
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	current := target
	body := payload
	contentType := inferredCT
	var redirects []types.RedirectHop

	log.Debug("dispatching request",
		zap.String("method", method),
		zap.String("url", current.String()),
		zap.String("proxySource", decision.Source))

	for {
		r := client.R().SetContext(ctx)
		applyHeaders(r, req.Headers, contentType, body != nil)
		if len(body) > 0 {
			r.SetBody(body)
		}

		resp, err := r.Execute(method, current.String())
		if err != nil {
			code, message := classify(err)
			return fail(code, message)
		}

		status := resp.StatusCode()
		if isRedirect(status) && len(redirects) < maxHops {
			location := resp.Header().Get("Location")
			next, perr := current.Parse(location)
			if location == "" || perr != nil {
				return e.finish(log, start, resp, current, redirects, decision)
			}
			redirects = append(redirects, types.RedirectHop{
				URL:     current.String(),
				Status:  status,
				Headers: headerKVs(resp.Header()),
			})
			// 303 (and 301/302 for non-GET) demote to a bodyless GET;
			// 307/308 replay the original method and body.
			if status == http.StatusSeeOther ||
				((status == http.StatusMovedPermanently || status == http.StatusFound) &&
					method != http.MethodGet && method != http.MethodHead) {
				method = http.MethodGet
				body = nil
				contentType = ""
			}
			current = next
			continue
		}

		return e.finish(log, start, resp, current, redirects, decision)
	}
}

func (e *Executor) finish(log *logging.Logger, start time.Time, resp *resty.Response, finalURL *url.URL, redirects []types.RedirectHop, decision proxy.Decision) (*types.SendResult, *types.SendError) {
	elapsed := time.Since(start)
	raw := resp.Body()
	text, isBase64, size := DecodeBody(raw,
		resp.Header().Get("Content-Type"),
		resp.Header().Get("Content-Encoding"))

	if redirects == nil {
		redirects = []types.RedirectHop{}
	}
	result := &types.SendResult{
		Status:      resp.StatusCode(),
		StatusText:  http.StatusText(resp.StatusCode()),
		Headers:     headerKVs(resp.Header()),
		Body:        text,
		IsBase64:    isBase64,
		Size:        size,
		TimeMs:      elapsed.Milliseconds(),
		Redirects:   redirects,
		FinalURL:    finalURL.String(),
		ProxySource: decision.Source,
	}

	log.Debug("send completed",
		zap.Int("status", result.Status),
		zap.Int("size", result.Size),
		zap.Int64("timeMs", result.TimeMs),
		zap.Int("redirects", len(redirects)))
	if e.metrics != nil {
		e.metrics.RecordSend(decision.Source, "ok", elapsed)
	}
	return result, nil
}

// newClient builds a per-send resty client carrying the proxy route and TLS
// trust material. Redirects are handled by the hop loop above, so the
// underlying client never follows them itself.
func (e *Executor) newClient(cfg types.AgentConfig, decision proxy.Decision) *resty.Client {
	transport := &http.Transport{
		TLSClientConfig: tlstrust.ClientConfig(cfg.TLS),
	}
	if !decision.Off() {
		transport.Proxy = http.ProxyURL(decision.ProxyURL)
	}

	client := resty.New().
		SetTransport(transport).
		SetHeader("User-Agent", userAgent)
	client.GetClient().CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return client
}

// applyHeaders copies enabled caller headers onto the request. The inferred
// content type applies only when the caller supplied no explicit one.
func applyHeaders(r *resty.Request, headers []types.KV, inferredCT string, hasBody bool) {
	explicitCT := false
	for _, h := range headers {
		if !h.Enabled() || h.Key == "" {
			continue
		}
		if strings.EqualFold(h.Key, "Content-Type") {
			explicitCT = true
		}
		r.Header.Add(h.Key, h.Value)
	}
	if hasBody && !explicitCT && inferredCT != "" {
		r.Header.Set("Content-Type", inferredCT)
	}
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// headerKVs flattens response headers into an ordered list, one entry per
// value, keys sorted for deterministic output.
func headerKVs(h http.Header) []types.KV {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]types.KV, 0, len(h))
	for _, k := range keys {
		for _, v := range h[k] {
			out = append(out, types.KV{Key: k, Value: v})
		}
	}
	return out
}

// classify maps a transport error onto the failure taxonomy.
func classify(err error) (string, string) {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}

	var dnsErr *net.DNSError
	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var certInvalid x509.CertificateInvalidError
	var recordErr tls.RecordHeaderError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout, "request timed out"
	case errors.As(err, &dnsErr):
		return CodeDNSError, dnsErr.Error()
	case errors.As(err, &certErr), errors.As(err, &unknownAuth),
		errors.As(err, &hostnameErr), errors.As(err, &certInvalid),
		errors.As(err, &recordErr):
		return CodeTLSError, err.Error()
	case errors.Is(err, syscall.ECONNREFUSED):
		return CodeConnectionRefused, err.Error()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeTimeout, "request timed out"
	}
	return CodeNetworkError, err.Error()
}
