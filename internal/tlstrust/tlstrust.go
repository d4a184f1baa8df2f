// Package tlstrust resolves custom certificate-authority material for
// outbound TLS. Inline PEM text wins over a filesystem path; read failures
// are swallowed so the platform trust store applies.
package tlstrust

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"strings"

	"github.com/restgate/agent/internal/types"
)

// ResolveCA returns the CA bundle for the given TLS settings, or nil when no
// custom trust material is configured or readable. Inline PEM is normalized
// to end with exactly one trailing newline; file content is used verbatim.
func ResolveCA(cfg types.TLSConfig) []byte {
	if strings.TrimSpace(cfg.CAPem) != "" {
		return []byte(strings.TrimRight(cfg.CAPem, "\n") + "\n")
	}
	if cfg.CAPemPath != "" {
		data, err := os.ReadFile(cfg.CAPemPath)
		if err == nil {
			return data
		}
	}
	return nil
}

// ClientConfig builds the tls.Config for outbound connections. A nil CA pool
// leaves the platform trust store in effect.
func ClientConfig(cfg types.TLSConfig) *tls.Config {
	out := &tls.Config{
		InsecureSkipVerify: !cfg.RejectUnauthorized,
	}
	if ca := ResolveCA(cfg); ca != nil {
		pool := x509.NewCertPool()
		if pool.AppendCertsFromPEM(ca) {
			out.RootCAs = pool
		}
	}
	return out
}
