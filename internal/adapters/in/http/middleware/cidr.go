package middleware

import (
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bnema/dockmaster/internal/adapters/dto"
	"github.com/bnema/dockmaster/internal/logging"
)

var localhostNets = ParseTrustedProxies([]string{"127.0.0.0/8", "::1"})

// CIDRAllowlist restricts the API to clients inside allowed. Loopback is always
// allowed. An empty allowed list lets all traffic through.
func CIDRAllowlist(allowed []*net.IPNet, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if len(allowed) == 0 {
			return next
		}
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ContainsIP(ip, localhostNets) || ContainsIP(ip, allowed) {
				return next(c)
			}

			log.Warn().
				Str(logging.FieldLayer, "adapter").
				Str(logging.FieldAdapter, "http").
				Str(logging.FieldMethod, c.Request().Method).
				Str(logging.FieldPath, c.Request().URL.Path).
				Str(logging.FieldClientIP, ip).
				Msg("access denied by CIDR allowlist")

			return c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		}
	}
}
