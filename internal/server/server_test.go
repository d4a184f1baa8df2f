package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restgate/agent/internal/config"
	"github.com/restgate/agent/internal/logging"
	"github.com/restgate/agent/internal/shared/paths"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	layout, err := paths.Resolve(t.TempDir())
	require.NoError(t, err)

	s, err := New(config.Default(), layout, logging.NewNop())
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, path, token string, payload any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 && json.Unmarshal(w.Body.Bytes(), &decoded) != nil {
		decoded = nil
	}
	return w, decoded
}

// pair runs the code exchange and returns the bearer token.
func pair(t *testing.T, s *Server) string {
	t.Helper()
	w, resp := do(t, s, http.MethodPost, "/pair", "", gin.H{"pairCode": s.PairCode()})
	require.Equal(t, http.StatusOK, w.Code)
	token, _ := resp["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealth(t *testing.T) {
	s := testServer(t)

	w, resp := do(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, false, resp["paired"])
	assert.Equal(t, "9119", resp["port"])
}

func TestPairingFlow(t *testing.T) {
	s := testServer(t)

	w, resp := do(t, s, http.MethodGet, "/pair", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	code, _ := resp["pairCode"].(string)
	require.NotEmpty(t, code)

	t.Run("wrong code rejected", func(t *testing.T) {
		w, resp := do(t, s, http.MethodPost, "/pair", "", gin.H{"pairCode": "WRONG"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "auth", resp["error"])
	})

	t.Run("exchange succeeds once", func(t *testing.T) {
		w, resp := do(t, s, http.MethodPost, "/pair", "", gin.H{"pairCode": code})
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, resp["token"])

		// The consumed code no longer works.
		w, _ = do(t, s, http.MethodPost, "/pair", "", gin.H{"pairCode": code})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("health reports paired", func(t *testing.T) {
		_, resp := do(t, s, http.MethodGet, "/health", "", nil)
		assert.Equal(t, true, resp["paired"])
	})
}

func TestGatedRoutesRequireToken(t *testing.T) {
	s := testServer(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/config"},
		{http.MethodPost, "/config"},
		{http.MethodPost, "/send"},
		{http.MethodGet, "/jars/default"},
		{http.MethodDelete, "/jars/default"},
		{http.MethodPost, "/jars/default/set-cookies"},
		{http.MethodPost, "/cookies/resolve"},
	} {
		w, resp := do(t, s, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", route.method, route.path)
		assert.Equal(t, "auth", resp["error"])
	}

	// A bogus token is also rejected.
	w, _ := do(t, s, http.MethodGet, "/config", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestConfigRoundTrip(t *testing.T) {
	s := testServer(t)
	token := pair(t, s)

	w, resp := do(t, s, http.MethodGet, "/config", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cfg, _ := resp["config"].(map[string]any)
	require.NotNil(t, cfg)
	assert.Equal(t, "off", cfg["proxyMode"])

	w, resp = do(t, s, http.MethodPost, "/config", token, gin.H{
		"config": gin.H{
			"proxyMode":   "custom",
			"customProxy": gin.H{"host": "proxy.corp.local", "port": 8080},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	cfg, _ = resp["config"].(map[string]any)
	require.NotNil(t, cfg)
	assert.Equal(t, "custom", cfg["proxyMode"])

	// Unpatched sections keep their defaults.
	custom, _ := cfg["customProxy"].(map[string]any)
	require.NotNil(t, custom)
	assert.Equal(t, "http", custom["protocol"])
	assert.Equal(t, "proxy.corp.local", custom["host"])
}

func TestConfigValidation(t *testing.T) {
	s := testServer(t)
	token := pair(t, s)

	tests := []struct {
		name  string
		patch gin.H
	}{
		{"bad proxy mode", gin.H{"proxyMode": "pac"}},
		{"bad protocol", gin.H{"customProxy": gin.H{"protocol": "socks5"}}},
		{"port out of range", gin.H{"customProxy": gin.H{"port": 99999}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := do(t, s, http.MethodPost, "/config", token, gin.H{"config": tt.patch})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "validation", resp["error"])
		})
	}
}

func TestSendEnvelope(t *testing.T) {
	s := testServer(t)
	token := pair(t, s)

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hello":"world"}`))
	}))
	defer target.Close()

	t.Run("success", func(t *testing.T) {
		w, resp := do(t, s, http.MethodPost, "/send", token, gin.H{
			"method": "GET",
			"url":    target.URL,
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, resp["ok"])

		result, _ := resp["result"].(map[string]any)
		require.NotNil(t, result)
		assert.Equal(t, float64(200), result["status"])
		assert.Equal(t, `{"hello":"world"}`, result["body"])
		assert.Equal(t, "off", result["proxySource"])
	})

	t.Run("transport failure stays HTTP 200", func(t *testing.T) {
		w, resp := do(t, s, http.MethodPost, "/send", token, gin.H{
			"method": "GET",
			"url":    "http://127.0.0.1:1",
		})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, resp["ok"])
		assert.NotEmpty(t, resp["error"])
		assert.Contains(t, resp, "elapsedMs")
	})

	t.Run("malformed payload is a validation error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/send", bytes.NewBufferString("{not json"))
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		s.Router().ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestJarLifecycle(t *testing.T) {
	s := testServer(t)
	token := pair(t, s)

	w, resp := do(t, s, http.MethodGet, "/jars/ws1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, resp["cookies"])

	w, resp = do(t, s, http.MethodPost, "/jars/ws1/set-cookies", token, gin.H{
		"url":        "https://app.example.com/login",
		"setCookies": []string{"sid=abc; Secure; HttpOnly", "pref=dark; Path=/settings"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	stored, _ := resp["cookies"].([]any)
	assert.Len(t, stored, 2)

	w, resp = do(t, s, http.MethodPost, "/cookies/resolve", token, gin.H{
		"jarId": "ws1",
		"url":   "https://app.example.com/dash",
	})
	require.Equal(t, http.StatusOK, w.Code)
	resolution, _ := resp["resolution"].(map[string]any)
	require.NotNil(t, resolution)
	assert.Equal(t, "sid=abc", resolution["header"])

	sent, _ := resolution["cookiesSent"].([]any)
	require.Len(t, sent, 1)
	excluded, _ := resolution["cookiesExcluded"].([]any)
	require.Len(t, excluded, 1)

	w, _ = do(t, s, http.MethodDelete, "/jars/ws1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, resp = do(t, s, http.MethodGet, "/jars/ws1", token, nil)
	assert.Empty(t, resp["cookies"])
}

func TestResolveValidation(t *testing.T) {
	s := testServer(t)
	token := pair(t, s)

	w, resp := do(t, s, http.MethodPost, "/cookies/resolve", token, gin.H{
		"jarId": "ws1",
		"url":   "not a url",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", resp["error"])
}

func TestCloseBeforeRun(t *testing.T) {
	s := testServer(t)

	// A shutdown signal can land before the listener goroutine starts; the
	// server must already exist so Close takes effect instead of being lost.
	require.NoError(t, s.Close())

	done := make(chan error, 1)
	go func() { done <- s.Run() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestMetricsEndpointIsPublic(t *testing.T) {
	s := testServer(t)

	w, _ := do(t, s, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "restgate_")
}
