package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"policy-backend/internal/shared/telemetry"
)

// Context keys handlers may set for the request log line.
const (
	PolicyIDKey        = "policyId"
	RenderRequestIDKey = "renderRequestId"
	ErrorKindKey       = "errorKind"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		telemetry.Info("request.complete", map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"status":            c.Writer.Status(),
			"duration_ms":       float64(latency.Microseconds()) / 1000.0,
			"organization_id":   OrganizationIDFromContext(c),
			"policy_id":         c.GetString(PolicyIDKey),
			"render_request_id": c.GetString(RenderRequestIDKey),
			"error_kind":        c.GetString(ErrorKindKey),
			"is_guest":          c.GetBool(isGuestKey),
			"client_ip":         c.ClientIP(),
		})
	}
}
