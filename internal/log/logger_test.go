package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestLogger_ComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentRecurring, Output: &buf})

	fields := NewFields().
		WithOwner("user-1").
		WithOperation(OpExecute).
		WithError(errors.New("boom"))
	logger.LogFields(context.Background(), slog.LevelWarn, "Execution failed", fields)

	out := buf.String()
	for _, want := range []string{"component=recurring", "owner_id=user-1", "operation=execute", "error=boom", "level=WARN"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}
}

func TestLogFields_SkipsEmptyValues(t *testing.T) {
	f := NewFields().WithRequestID("").WithOwner("").WithError(nil)
	if len(f) != 0 {
		t.Errorf("fields = %v, want empty", f)
	}
}

func TestMiddleware_StoresLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: ComponentHTTP, Output: &buf})

	r := gin.New()
	r.Use(Middleware(logger, func(*gin.Context) string { return "req-42" }))
	r.GET("/", func(c *gin.Context) {
		FromContext(c.Request.Context()).Info("inside handler")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), "request_id=req-42") {
		t.Errorf("log output %q missing request id", buf.String())
	}
}

func TestFromContext_Default(t *testing.T) {
	if l := FromContext(context.Background()); l.Component() != "unknown" || l.Logger == nil {
		t.Errorf("FromContext() = %+v", l)
	}
}
