package store

import "github.com/restgate/agent/internal/types"

// mergeConfig applies a partial update over a full configuration. Each nested
// section has its own merge function so a schema change here fails to compile
// rather than silently dropping fields.
func mergeConfig(base types.AgentConfig, patch types.AgentConfigPatch) types.AgentConfig {
	out := base
	if patch.ProxyMode != nil {
		out.ProxyMode = *patch.ProxyMode
	}
	if patch.CustomProxy != nil {
		out.CustomProxy = mergeCustomProxy(base.CustomProxy, *patch.CustomProxy)
	}
	if patch.ProxyFor != nil {
		out.ProxyFor = mergeProxyFor(base.ProxyFor, *patch.ProxyFor)
	}
	if patch.NoProxy != nil {
		out.NoProxy = append([]string{}, (*patch.NoProxy)...)
	}
	if patch.TLS != nil {
		out.TLS = mergeTLS(base.TLS, *patch.TLS)
	}
	return out
}

func mergeCustomProxy(base types.CustomProxy, patch types.CustomProxyPatch) types.CustomProxy {
	out := base
	if patch.Protocol != nil {
		out.Protocol = *patch.Protocol
	}
	if patch.Host != nil {
		out.Host = *patch.Host
	}
	if patch.Port != nil {
		out.Port = *patch.Port
	}
	if patch.Auth != nil {
		out.Auth = mergeProxyAuth(base.Auth, *patch.Auth)
	}
	return out
}

func mergeProxyAuth(base types.ProxyAuth, patch types.ProxyAuthPatch) types.ProxyAuth {
	out := base
	if patch.Enabled != nil {
		out.Enabled = *patch.Enabled
	}
	if patch.User != nil {
		out.User = *patch.User
	}
	if patch.Pass != nil {
		out.Pass = *patch.Pass
	}
	return out
}

func mergeProxyFor(base types.ProxyFor, patch types.ProxyForPatch) types.ProxyFor {
	out := base
	if patch.HTTP != nil {
		out.HTTP = *patch.HTTP
	}
	if patch.HTTPS != nil {
		out.HTTPS = *patch.HTTPS
	}
	return out
}

func mergeTLS(base types.TLSConfig, patch types.TLSPatch) types.TLSConfig {
	out := base
	if patch.RejectUnauthorized != nil {
		out.RejectUnauthorized = *patch.RejectUnauthorized
	}
	if patch.CAPem != nil {
		out.CAPem = *patch.CAPem
	}
	if patch.CAPemPath != nil {
		out.CAPemPath = *patch.CAPemPath
	}
	return out
}
