package context

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func newEchoContext() echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	return e.NewContext(req, httptest.NewRecorder())
}

func TestRequestIDRoundTrip(t *testing.T) {
	c := newEchoContext()

	SetRequestID(c, "req-123")
	assert.Equal(t, "req-123", GetRequestID(c))
}

func TestGetRequestIDGeneratesWhenUnset(t *testing.T) {
	c := newEchoContext()

	id := GetRequestID(c)
	assert.NotEmpty(t, id, "handlers invoked without the middleware still get an id")
}

func TestGetLoggerOrDefault(t *testing.T) {
	fallback := slog.New(slog.NewTextHandler(io.Discard, nil))

	assert.Same(t, fallback, GetLoggerOrDefault(context.Background(), fallback))

	var buf bytes.Buffer
	scoped := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := WithLogger(context.Background(), scoped)

	assert.Same(t, scoped, GetLoggerOrDefault(ctx, fallback))
}
