package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bnema/dockmaster/internal/adapters/dto"
	"github.com/bnema/dockmaster/internal/logging"
)

// BearerAuth rejects requests whose Authorization header does not carry token.
func BearerAuth(token string, log zerolog.Logger) echo.MiddlewareFunc {
	expected := []byte(token)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			provided, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			// Use constant-time comparison to prevent timing attacks
			if ok && len(expected) > 0 && subtle.ConstantTimeCompare([]byte(provided), expected) == 1 {
				return next(c)
			}

			log.Warn().
				Str(logging.FieldLayer, "adapter").
				Str(logging.FieldAdapter, "http").
				Str(logging.FieldMethod, c.Request().Method).
				Str(logging.FieldPath, c.Request().URL.Path).
				Str(logging.FieldClientIP, c.RealIP()).
				Bool("has_auth_header", c.Request().Header.Get(echo.HeaderAuthorization) != "").
				Msg("unauthorized API access attempt")

			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
			return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
