package cookies

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restgate/agent/internal/types"
)

func TestParseSetCookie(t *testing.T) {
	reqURL, _ := url.Parse("https://app.example.com/login")
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("bare pair defaults", func(t *testing.T) {
		rec, err := ParseSetCookie("sid=abc123", reqURL, now)
		require.NoError(t, err)
		assert.Equal(t, "sid", rec.Name)
		assert.Equal(t, "abc123", rec.Value)
		assert.Equal(t, "app.example.com", rec.Domain)
		assert.True(t, rec.HostOnly)
		assert.Equal(t, "/", rec.Path)
		assert.False(t, rec.Secure)
		assert.Nil(t, rec.ExpiresAt)
	})

	t.Run("full attribute set", func(t *testing.T) {
		rec, err := ParseSetCookie(
			"sid=abc; Domain=.example.com; Path=/admin; Secure; HttpOnly; SameSite=Lax",
			reqURL, now)
		require.NoError(t, err)
		assert.Equal(t, "example.com", rec.Domain)
		assert.False(t, rec.HostOnly)
		assert.Equal(t, "/admin", rec.Path)
		assert.True(t, rec.Secure)
		assert.True(t, rec.HTTPOnly)
		assert.Equal(t, types.SameSiteLax, rec.SameSite)
	})

	t.Run("expires attribute", func(t *testing.T) {
		rec, err := ParseSetCookie("sid=abc; Expires=Wed, 21 Oct 2026 07:28:00 GMT", reqURL, now)
		require.NoError(t, err)
		require.NotNil(t, rec.ExpiresAt)
		assert.Equal(t, time.Date(2026, 10, 21, 7, 28, 0, 0, time.UTC), *rec.ExpiresAt)
	})

	t.Run("max-age wins over expires", func(t *testing.T) {
		rec, err := ParseSetCookie(
			"sid=abc; Expires=Wed, 21 Oct 2026 07:28:00 GMT; Max-Age=60",
			reqURL, now)
		require.NoError(t, err)
		require.NotNil(t, rec.ExpiresAt)
		assert.Equal(t, now.Add(60*time.Second), *rec.ExpiresAt)
	})

	t.Run("negative max-age expires immediately", func(t *testing.T) {
		rec, err := ParseSetCookie("sid=abc; Max-Age=-1", reqURL, now)
		require.NoError(t, err)
		require.NotNil(t, rec.ExpiresAt)
		assert.True(t, expired(rec, now))
	})

	t.Run("unknown samesite value ignored", func(t *testing.T) {
		rec, err := ParseSetCookie("sid=abc; SameSite=Whatever", reqURL, now)
		require.NoError(t, err)
		assert.Empty(t, rec.SameSite)
	})

	t.Run("relative path ignored", func(t *testing.T) {
		rec, err := ParseSetCookie("sid=abc; Path=admin", reqURL, now)
		require.NoError(t, err)
		assert.Equal(t, "/", rec.Path)
	})

	t.Run("malformed directives rejected", func(t *testing.T) {
		for _, directive := range []string{"", "noequals", "=value", "  ; Secure"} {
			_, err := ParseSetCookie(directive, reqURL, now)
			assert.Error(t, err, "directive %q", directive)
		}
	})
}

func TestSerializePair(t *testing.T) {
	rec := types.CookieRecord{Name: "sid", Value: "abc123"}
	assert.Equal(t, "sid=abc123", SerializePair(rec))
}
