package http

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/restgate/agent/internal/cookies"
	"github.com/restgate/agent/internal/executor"
	"github.com/restgate/agent/internal/logging"
	"github.com/restgate/agent/internal/monitoring"
	"github.com/restgate/agent/internal/pairing"
	"github.com/restgate/agent/internal/store"
	"github.com/restgate/agent/internal/types"
)

// Handlers contains all management API handlers.
type Handlers struct {
	pairing  *pairing.Manager
	store    *store.Store
	jars     *cookies.Store
	executor *executor.Executor
	metrics  *monitoring.Metrics
	log      *logging.Logger
	host     string
	port     string
}

// NewHandlers creates the handler set.
func NewHandlers(
	pair *pairing.Manager,
	st *store.Store,
	jars *cookies.Store,
	exec *executor.Executor,
	metrics *monitoring.Metrics,
	log *logging.Logger,
	host, port string,
) *Handlers {
	return &Handlers{
		pairing:  pair,
		store:    st,
		jars:     jars,
		executor: exec,
		metrics:  metrics,
		log:      log,
		host:     host,
		port:     port,
	}
}

// Health reports liveness and pairing state.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"paired": h.pairing.Paired(),
		"port":   h.port,
		"host":   h.host,
	})
}

// GetPair returns the current pair code without consuming it.
func (h *Handlers) GetPair(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"pairCode": h.pairing.Code(),
	})
}

type pairRequest struct {
	PairCode string `json:"pairCode"`
}

// PostPair exchanges a pair code for the bearer token, rotating the code on
// success.
func (h *Handlers) PostPair(c *gin.Context) {
	var req pairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, "malformed pairing payload")
		return
	}

	token, err := h.pairing.Exchange(req.PairCode)
	if err != nil {
		if errors.Is(err, pairing.ErrAuth) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"ok":      false,
				"error":   "auth",
				"message": "pairing code mismatch",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":      false,
			"error":   "internal",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "token": token})
}

// GetConfig returns the current agent configuration.
func (h *Handlers) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "config": h.store.Config()})
}

type configRequest struct {
	Config types.AgentConfigPatch `json:"config"`
}

// PostConfig merges a partial configuration update and returns the merged
// document.
func (h *Handlers) PostConfig(c *gin.Context) {
	var req configRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, "malformed config payload")
		return
	}
	if msg, ok := validateConfigPatch(req.Config); !ok {
		validationError(c, msg)
		return
	}

	merged, err := h.store.UpdateConfig(req.Config)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":      false,
			"error":   "internal",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "config": merged})
}

// Send dispatches one outbound request. Transport failures come back inside
// the envelope with HTTP 200.
func (h *Handlers) Send(c *gin.Context) {
	var req types.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, "malformed send payload")
		return
	}

	result, sendErr := h.executor.Send(c.Request.Context(), req, h.store.Config())
	if sendErr != nil {
		c.JSON(http.StatusOK, gin.H{
			"ok":        false,
			"error":     sendErr.Code,
			"message":   sendErr.Message,
			"elapsedMs": sendErr.ElapsedMs,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "result": result})
}

// GetJar returns the stored records of a jar.
func (h *Handlers) GetJar(c *gin.Context) {
	records := h.jars.Load(c.Param("id"))
	if records == nil {
		records = []types.CookieRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "cookies": records})
}

// DeleteJar removes a jar entirely.
func (h *Handlers) DeleteJar(c *gin.Context) {
	if err := h.jars.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":      false,
			"error":   "internal",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type setCookiesRequest struct {
	URL        string   `json:"url"`
	SetCookies []string `json:"setCookies"`
}

// SetCookies applies Set-Cookie directives against a jar.
func (h *Handlers) SetCookies(c *gin.Context) {
	var req setCookiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, "malformed set-cookies payload")
		return
	}
	u, err := url.Parse(req.URL)
	if err != nil || u.Hostname() == "" {
		validationError(c, "url must be absolute")
		return
	}

	records, err := h.jars.ApplySetCookie(c.Param("id"), u, req.SetCookies)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":      false,
			"error":   "internal",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "cookies": records})
}

type resolveRequest struct {
	JarID        string `json:"jarId"`
	URL          string `json:"url"`
	SiteOrigin   string `json:"siteOrigin"`
	ManualHeader string `json:"manualHeader"`
}

// ResolveCookies reports what a browser-accurate cookie attachment would
// look like for one request against one jar. Read-only: the caller attaches
// the resulting header itself.
func (h *Handlers) ResolveCookies(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, "malformed resolve payload")
		return
	}
	u, err := url.Parse(req.URL)
	if err != nil || u.Hostname() == "" {
		validationError(c, "url must be absolute")
		return
	}

	records := h.jars.Load(req.JarID)
	resolution := cookies.Resolve(records, cookies.Request{
		URL:            u,
		SiteOriginHost: originHost(req.SiteOrigin),
		ManualHeader:   req.ManualHeader,
	}, time.Now())

	if h.metrics != nil {
		h.metrics.RecordCookieResolution()
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "resolution": resolution})
}

// originHost accepts either a full origin URL or a bare host.
func originHost(origin string) string {
	if origin == "" {
		return ""
	}
	if u, err := url.Parse(origin); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return origin
}

func validationError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"ok":      false,
		"error":   "validation",
		"message": message,
	})
}

// validateConfigPatch rejects values outside the configuration vocabulary
// before they reach the store.
func validateConfigPatch(patch types.AgentConfigPatch) (string, bool) {
	if patch.ProxyMode != nil {
		switch *patch.ProxyMode {
		case types.ProxyModeOff, types.ProxyModeEnv, types.ProxyModeCustom, types.ProxyModeSystem:
		default:
			return "proxyMode must be one of off, env, custom, system", false
		}
	}
	if patch.CustomProxy != nil {
		if p := patch.CustomProxy.Protocol; p != nil && *p != "http" && *p != "https" {
			return "customProxy.protocol must be http or https", false
		}
		if p := patch.CustomProxy.Port; p != nil && (*p < 0 || *p > 65535) {
			return "customProxy.port out of range", false
		}
	}
	return "", true
}
