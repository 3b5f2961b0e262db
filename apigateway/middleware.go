// Package apigateway is the thin ops HTTP surface: health, metrics, and
// admin-keyed endpoints for triggering verification and audit runs by hand.
// None of the entitlement logic lives here.
package apigateway

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with an inbound or generated request id.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := strings.TrimSpace(c.Get(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Locals("request_id", requestID)
		c.Set(RequestIDHeader, requestID)
		return c.Next()
	}
}

func RequestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals("request_id"); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// RequestLogger writes one structured line per completed request.
func RequestLogger(logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		entry := logger.WithFields(logrus.Fields{
			"request_id": RequestIDFromCtx(c),
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"duration":   time.Since(start).String(),
		})
		if err != nil || c.Response().StatusCode() >= http.StatusInternalServerError {
			entry.Error("http request")
		} else {
			entry.Info("http request")
		}
		return err
	}
}

// RequireAdmin guards operator endpoints with a shared key header. With no
// key configured the endpoints are unavailable rather than open.
func RequireAdmin(adminKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if adminKey == "" {
			return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
				"code":    "admin_auth_not_configured",
				"message": "admin auth not configured",
			})
		}
		key := strings.TrimSpace(c.Get("X-Admin-Key"))
		if key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) == 1 {
			return c.Next()
		}
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
			"code":    "unauthorized",
			"message": "unauthorized",
		})
	}
}
