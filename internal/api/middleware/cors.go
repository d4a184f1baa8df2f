// Package middleware provides the Gin middleware for the management surface:
// caller-origin policy, bearer-token gating and request logging.
package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig defines the caller-origin policy.
type CORSConfig struct {
	AllowedOrigins []string
	AllowAnyOrigin bool
}

// CORS creates the CORS middleware. Unless AllowAnyOrigin is set, only
// allow-listed origins may call the agent.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Authorization",
			"Accept",
			"Origin",
		},
		MaxAge: 12 * time.Hour,
	}
	if cfg.AllowAnyOrigin {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	return cors.New(corsCfg)
}
