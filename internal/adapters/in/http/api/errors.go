package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bnema/dockmaster/internal/adapters/dto"
	"github.com/bnema/dockmaster/internal/domain"
	"github.com/bnema/dockmaster/internal/logging"
)

// StatusFor maps an error kind to an HTTP status code.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindInvalid:
		return http.StatusBadRequest
	case domain.KindAuthenticationFailed:
		return http.StatusBadGateway
	case domain.KindEnvironmentUnavailable:
		return http.StatusServiceUnavailable
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponseFor builds the JSON body for err.
func ErrorResponseFor(err error) dto.ErrorResponse {
	de := domain.AsError(err)
	msg := de.Message
	if msg == "" {
		msg = de.Error()
	}
	return dto.ErrorResponse{
		Error:             msg,
		Kind:              string(de.Kind),
		Stage:             string(de.Stage),
		Output:            de.Output,
		NeedsIntervention: de.Kind == domain.KindInconsistent,
	}
}

// ErrorHandler returns an echo.HTTPErrorHandler rendering domain errors as
// JSON with the mapped status code.
func ErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var de *domain.Error
		var he *echo.HTTPError
		if !errors.As(err, &de) && errors.As(err, &he) {
			msg := http.StatusText(he.Code)
			if s, ok := he.Message.(string); ok {
				msg = s
			}
			writeJSON(c, he.Code, dto.ErrorResponse{Error: msg}, log)
			return
		}

		kind := domain.KindOf(err)
		status := StatusFor(kind)

		event := log.Warn()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.Err(err).
			Str(logging.FieldLayer, "adapter").
			Str(logging.FieldAdapter, "http").
			Str("kind", string(kind)).
			Str(logging.FieldMethod, c.Request().Method).
			Str(logging.FieldPath, c.Path()).
			Str(logging.FieldRequestID, c.Response().Header().Get(echo.HeaderXRequestID)).
			Int(logging.FieldStatus, status).
			Msg("request failed")

		writeJSON(c, status, ErrorResponseFor(err), log)
	}
}

func writeJSON(c echo.Context, status int, body any, log zerolog.Logger) {
	var err error
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to write error response")
	}
}
