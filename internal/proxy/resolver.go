// Package proxy decides, per outbound URL and current configuration, whether
// and how to route through a proxy. Precedence is fixed: app-level no-proxy
// rules, then mode dispatch, then the environment no-proxy list, then the
// per-scheme proxyFor gate.
package proxy

import (
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpproxy"

	"github.com/restgate/agent/internal/types"
)

// Decision is the outcome of proxy resolution for one target URL.
type Decision struct {
	ProxyURL *url.URL
	Source   string
}

// Off reports whether the decision routes directly.
func (d Decision) Off() bool { return d.ProxyURL == nil }

// ProxyURLString returns the proxy URL, empty when off.
func (d Decision) ProxyURLString() string {
	if d.ProxyURL == nil {
		return ""
	}
	return d.ProxyURL.String()
}

// MatchHost reports whether host matches any rule. A rule matches when it
// equals the host verbatim, or begins with "." and the host equals-or-ends-
// with that suffix, or is "*". Matching is case-insensitive.
func MatchHost(host string, rules []string) bool {
	h := strings.ToLower(host)
	for _, raw := range rules {
		rule := strings.ToLower(strings.TrimSpace(raw))
		if rule == "" {
			continue
		}
		if rule == "*" || rule == h {
			return true
		}
		if strings.HasPrefix(rule, ".") {
			if h == strings.TrimPrefix(rule, ".") || strings.HasSuffix(h, rule) {
				return true
			}
		}
	}
	return false
}

// envProxies abstracts the process environment so tests can inject values.
// The default reads HTTP_PROXY/HTTPS_PROXY/NO_PROXY in both cases via
// httpproxy.FromEnvironment.
type envProxies struct {
	httpProxy  string
	httpsProxy string
	noProxy    string
}

func environment() envProxies {
	env := httpproxy.FromEnvironment()
	return envProxies{
		httpProxy:  env.HTTPProxy,
		httpsProxy: env.HTTPSProxy,
		noProxy:    env.NoProxy,
	}
}

// Resolve decides the route for target under cfg.
func Resolve(target *url.URL, cfg types.AgentConfig) Decision {
	return resolve(target, cfg, environment())
}

func resolve(target *url.URL, cfg types.AgentConfig, env envProxies) Decision {
	host := target.Hostname()
	secure := strings.EqualFold(target.Scheme, "https")

	// App-level exclusions short-circuit everything, including mode "off"
	// vs "off(no_proxy_app)" tagging.
	if MatchHost(host, cfg.NoProxy) {
		return Decision{Source: types.ProxySourceOffNoProxyApp}
	}

	var (
		proxyURL *url.URL
		source   string
	)

	switch cfg.ProxyMode {
	case types.ProxyModeCustom:
		proxyURL = buildCustomProxy(cfg.CustomProxy)
		if proxyURL == nil {
			// Incomplete host/port falls back silently to off.
			return Decision{Source: types.ProxySourceOff}
		}
		source = types.ProxySourceCustom

	case types.ProxyModeEnv, types.ProxyModeSystem:
		raw := envProxyFor(secure, env)
		if raw == "" {
			return Decision{Source: types.ProxySourceOff}
		}
		if MatchHost(host, splitNoProxy(env.noProxy)) {
			return Decision{Source: types.ProxySourceOffNoProxyEnv}
		}
		parsed, err := parseProxyURL(raw)
		if err != nil {
			return Decision{Source: types.ProxySourceOff}
		}
		proxyURL = parsed
		source = types.ProxySourceEnv
		if cfg.ProxyMode == types.ProxyModeSystem {
			source = types.ProxySourceSystemEnv
		}

	default:
		// "off" and anything unrecognized route directly.
		return Decision{Source: types.ProxySourceOff}
	}

	// A usable proxy exists; the per-scheme gate still applies.
	if (secure && !cfg.ProxyFor.HTTPS) || (!secure && !cfg.ProxyFor.HTTP) {
		return Decision{Source: types.ProxySourceOffProxyForOff}
	}

	return Decision{ProxyURL: proxyURL, Source: source}
}

// buildCustomProxy assembles the proxy URL from explicit settings, embedding
// percent-encoded basic-auth credentials when enabled. Returns nil when host
// or port is incomplete.
func buildCustomProxy(cfg types.CustomProxy) *url.URL {
	if cfg.Host == "" || cfg.Port <= 0 || cfg.Port > 65535 {
		return nil
	}
	scheme := strings.ToLower(cfg.Protocol)
	if scheme != "http" && scheme != "https" {
		return nil
	}
	u := &url.URL{
		Scheme: scheme,
		Host:   cfg.Host + ":" + strconv.Itoa(cfg.Port),
	}
	if cfg.Auth.Enabled {
		u.User = url.UserPassword(cfg.Auth.User, cfg.Auth.Pass)
	}
	return u
}

// envProxyFor picks the scheme-specific variable, falling back to the other
// scheme's variable when unset.
func envProxyFor(secure bool, env envProxies) string {
	if secure {
		if env.httpsProxy != "" {
			return env.httpsProxy
		}
		return env.httpProxy
	}
	if env.httpProxy != "" {
		return env.httpProxy
	}
	return env.httpsProxy
}

func splitNoProxy(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	rules := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			rules = append(rules, t)
		}
	}
	return rules
}

// parseProxyURL accepts bare host:port values the way proxy environment
// variables are commonly written.
func parseProxyURL(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	return url.Parse(raw)
}
