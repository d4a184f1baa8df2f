package tlstrust

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restgate/agent/internal/types"
)

// Minimal self-signed certificate, valid PEM structure only.
const testPEM = `-----BEGIN CERTIFICATE-----
MIIBhTCCASugAwIBAgIQIRi6zePL6mKjOipn+dNuaTAKBggqhkjOPQQDAjASMRAw
DgYDVQQKEwdBY21lIENvMB4XDTE3MTAyMDE5NDMwNloXDTE4MTAyMDE5NDMwNlow
EjEQMA4GA1UEChMHQWNtZSBDbzBZMBMGByqGSM49AgEGCCqGSM49AwEHA0IABD0d
7VNhbWvZLWPuj/RtHFjvtJBEwOkhbN/BnnE8rnZR8+sbwnc/KhCk3FhnpHZnQz7B
5aETbbIgmuvewdjvSBSjYzBhMA4GA1UdDwEB/wQEAwICpDATBgNVHSUEDDAKBggr
BgEFBQcDATAPBgNVHRMBAf8EBTADAQH/MCkGA1UdEQQiMCCCDmxvY2FsaG9zdDo1
NDUzgg4xMjcuMC4wLjE6NTQ1MzAKBggqhkjOPQQDAgNIADBFAiEA2zpJEPQyz6/l
Wf86aX6PepsntZv2GYlA5UpabfT2EZICICpJ5h/iI+i341gBmLiAFQOyTDT+/wQc
6MF9+Yw1Yy0t
-----END CERTIFICATE-----`

func TestResolveCAInlineWinsOverPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.pem")
	require.NoError(t, os.WriteFile(path, []byte("file content"), 0o600))

	ca := ResolveCA(types.TLSConfig{CAPem: testPEM, CAPemPath: path})
	assert.Equal(t, testPEM+"\n", string(ca))
}

func TestResolveCANormalizesTrailingNewlines(t *testing.T) {
	ca := ResolveCA(types.TLSConfig{CAPem: testPEM + "\n\n\n"})
	assert.Equal(t, testPEM+"\n", string(ca))
}

func TestResolveCAWhitespaceOnlyInlineIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, []byte(testPEM), 0o600))

	ca := ResolveCA(types.TLSConfig{CAPem: "  \n ", CAPemPath: path})
	assert.Equal(t, testPEM, string(ca), "file content is used verbatim")
}

func TestResolveCAUnreadablePathSwallowed(t *testing.T) {
	ca := ResolveCA(types.TLSConfig{CAPemPath: filepath.Join(t.TempDir(), "missing.pem")})
	assert.Nil(t, ca)
}

func TestResolveCANoTrustMaterial(t *testing.T) {
	assert.Nil(t, ResolveCA(types.TLSConfig{}))
}

func TestClientConfig(t *testing.T) {
	t.Run("rejectUnauthorized maps to verification", func(t *testing.T) {
		assert.False(t, ClientConfig(types.TLSConfig{RejectUnauthorized: true}).InsecureSkipVerify)
		assert.True(t, ClientConfig(types.TLSConfig{RejectUnauthorized: false}).InsecureSkipVerify)
	})

	t.Run("custom CA installs a root pool", func(t *testing.T) {
		cfg := ClientConfig(types.TLSConfig{RejectUnauthorized: true, CAPem: testPEM})
		assert.NotNil(t, cfg.RootCAs)
	})

	t.Run("unparseable CA leaves platform trust", func(t *testing.T) {
		cfg := ClientConfig(types.TLSConfig{RejectUnauthorized: true, CAPem: "not a certificate"})
		assert.Nil(t, cfg.RootCAs)
	})
}
