package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bnema/dockmaster/internal/adapters/dto"
	"github.com/bnema/dockmaster/internal/boundaries/out"
	"github.com/bnema/dockmaster/internal/logging"
)

// RateLimit rejects requests once the client's bucket in limiter is empty.
// A nil limiter disables limiting.
func RateLimit(limiter out.RateLimiter, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if limiter == nil {
			return next
		}
		return func(c echo.Context) error {
			ip := c.RealIP()
			if limiter.Allow(c.Request().Context(), "ip:"+ip) {
				return next(c)
			}

			log.Debug().
				Str(logging.FieldLayer, "adapter").
				Str(logging.FieldAdapter, "http").
				Str(logging.FieldClientIP, ip).
				Str(logging.FieldPath, c.Request().URL.Path).
				Msg("request rate limited")

			c.Response().Header().Set(echo.HeaderRetryAfter, "1")
			return c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{Error: "Too Many Requests"})
		}
	}
}
