// Package middleware provides the HTTP middleware chain for the sync
// control plane.
package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// Tracing returns OpenTelemetry tracing middleware. Spans are enriched
// with request, tenant and user IDs once authentication has resolved them.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	base := otelgin.Middleware(cfg.ServiceName)

	return func(c *gin.Context) {
		base(c)

		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpan(c, span)
		}
	}
}

func enrichSpan(c *gin.Context, span trace.Span) {
	if requestID := c.GetString("request_id"); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if principal, ok := GetPrincipal(c); ok {
		if principal.IsSystem {
			span.SetAttributes(attribute.Bool("auth.system", true))
		} else {
			span.SetAttributes(attribute.String("tenant_id", principal.TenantID.String()))
			if principal.UserID != nil {
				span.SetAttributes(attribute.String("user_id", principal.UserID.String()))
			}
		}
	}
}
