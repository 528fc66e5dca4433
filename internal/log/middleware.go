package log

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
)

type contextKey string

const loggerContextKey contextKey = "logger"

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext returns the request logger, or the default logger when none is set.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// Middleware attaches logger, enriched with the request id when one is
// already set, to every request context.
func Middleware(logger *Logger, requestID func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		l := logger
		if requestID != nil {
			if id := requestID(c); id != "" {
				l = logger.With(FieldRequestID, id)
			}
		}
		c.Request = c.Request.WithContext(WithContext(c.Request.Context(), l))
		c.Next()
	}
}
