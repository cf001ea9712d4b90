package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bnema/dockmaster/internal/adapters/dto"
	"github.com/bnema/dockmaster/internal/logging"
)

// maxRequestIDLength bounds a client supplied X-Request-ID.
const maxRequestIDLength = 128

// RequestLogger assigns a request ID, attaches a logger carrying it to the
// request context and logs every request once it completes.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" || len(requestID) > maxRequestIDLength {
				requestID = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			reqLog := log.With().Str(logging.FieldRequestID, requestID).Logger()
			c.SetRequest(req.WithContext(logging.WithCtx(req.Context(), reqLog)))

			err := next(c)
			if err != nil {
				// render now so the logged status is the one sent
				c.Error(err)
			}

			status := c.Response().Status
			event := reqLog.Info()
			if status >= http.StatusInternalServerError {
				event = reqLog.Error()
			} else if status >= http.StatusBadRequest {
				event = reqLog.Warn()
			}
			event.
				Str(logging.FieldLayer, "adapter").
				Str(logging.FieldAdapter, "http").
				Str(logging.FieldMethod, req.Method).
				Str(logging.FieldPath, req.URL.Path).
				Str("route", c.Path()).
				Str(logging.FieldClientIP, c.RealIP()).
				Str("user_agent", req.UserAgent()).
				Int(logging.FieldStatus, status).
				Int64("bytes", c.Response().Size).
				Dur(logging.FieldDuration, time.Since(start)).
				Msg("HTTP request")

			return nil
		}
	}
}

// Recover turns handler panics into a 500 response.
func Recover(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Str(logging.FieldLayer, "adapter").
						Str(logging.FieldAdapter, "http").
						Str("panic", fmt.Sprint(r)).
						Str(logging.FieldMethod, c.Request().Method).
						Str(logging.FieldPath, c.Request().URL.Path).
						Msg("panic recovered")

					err = c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal Server Error"})
				}
			}()
			return next(c)
		}
	}
}
