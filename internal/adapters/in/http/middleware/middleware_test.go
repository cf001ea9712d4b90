package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/dockmaster/internal/logging"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestBearerAuth(t *testing.T) {
	e := echo.New()
	e.GET("/", okHandler, BearerAuth("s3cret-token", zerolog.Nop()))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid", header: "Bearer s3cret-token", want: http.StatusOK},
		{name: "case insensitive scheme", header: "bearer s3cret-token", want: http.StatusOK},
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "wrong token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic czNjcmV0LXRva2Vu", want: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := serve(e, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
				assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
			}
		})
	}
}

func TestBearerAuth_EmptyConfiguredTokenRejectsAll(t *testing.T) {
	e := echo.New()
	e.GET("/", okHandler, BearerAuth("", zerolog.Nop()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer x")

	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	e := echo.New()
	e.Use(RequestLogger(log))

	var ctxLogged bool
	e.GET("/things/:id", func(c echo.Context) error {
		logging.FromCtx(c.Request().Context()).Info().Msg("inside handler")
		ctxLogged = true
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/things/42", nil))

	require.True(t, ctxLogged)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	requestID := rec.Header().Get(echo.HeaderXRequestID)
	assert.Len(t, requestID, 36)

	out := buf.String()
	assert.Contains(t, out, `"message":"inside handler"`)
	assert.Contains(t, out, `"request_id":"`+requestID+`"`)
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"route":"/things/:id"`)
	assert.Contains(t, out, `"level":"warn"`)
}

func TestRequestLogger_ReusesClientRequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestLogger(zerolog.Nop()))
	e.GET("/", okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc-123")

	assert.Equal(t, "abc-123", serve(e, req).Header().Get(echo.HeaderXRequestID))
}

func TestRecover(t *testing.T) {
	e := echo.New()
	e.Use(Recover(zerolog.Nop()))
	e.GET("/", func(echo.Context) error { panic("boom") })

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
}

type countingLimiter struct {
	mu    sync.Mutex
	limit int
	seen  map[string]int
}

func (l *countingLimiter) Allow(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen == nil {
		l.seen = map[string]int{}
	}
	l.seen[key]++
	return l.seen[key] <= l.limit
}

func TestRateLimit(t *testing.T) {
	limiter := &countingLimiter{limit: 1}
	e := echo.New()
	e.GET("/", okHandler, RateLimit(limiter, zerolog.Nop()))

	req := func(addr string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = addr
		return r
	}

	assert.Equal(t, http.StatusOK, serve(e, req("192.0.2.1:1000")).Code)

	rec := serve(e, req("192.0.2.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get(echo.HeaderRetryAfter))

	assert.Equal(t, http.StatusOK, serve(e, req("192.0.2.2:1000")).Code)
	assert.Equal(t, 2, limiter.seen["ip:192.0.2.1"])
}

func TestRateLimit_NilLimiter(t *testing.T) {
	e := echo.New()
	e.GET("/", okHandler, RateLimit(nil, zerolog.Nop()))

	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestSecurityHeaders(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeaders())
	e.GET("/", okHandler)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}
