package trace

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newRouter(m *Middleware, seen *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(m.Handler())
	r.GET("/ok", func(c *gin.Context) {
		*seen = GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})
	r.GET("/boom", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})
	return r
}

func TestHandler_RequestID(t *testing.T) {
	incoming := uuid.NewString()

	tests := []struct {
		name   string
		header string
		reuse  bool
	}{
		{name: "generated when absent", header: "", reuse: false},
		{name: "reused when valid", header: incoming, reuse: true},
		{name: "replaced when not a uuid", header: "abc", reuse: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			r := newRouter(NewMiddleware(), &seen)

			req := httptest.NewRequest(http.MethodGet, "/ok", nil)
			if tt.header != "" {
				req.Header.Set(HeaderRequestID, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(HeaderRequestID)
			if got != seen {
				t.Errorf("header id %q != context id %q", got, seen)
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Errorf("request id %q is not a uuid", got)
			}
			if tt.reuse && got != tt.header {
				t.Errorf("request id = %q, want %q", got, tt.header)
			}
			if !tt.reuse && got == tt.header {
				t.Errorf("request id %q should have been regenerated", got)
			}
		})
	}
}

func TestHandler_Metrics(t *testing.T) {
	var seen string
	m := NewMiddleware()
	r := newRouter(m, &seen)

	for _, path := range []string{"/ok", "/ok", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	got := m.GetMetrics()
	if got.TotalRequests != 3 {
		t.Errorf("TotalRequests = %d, want 3", got.TotalRequests)
	}
	if got.FailedRequests != 1 {
		t.Errorf("FailedRequests = %d, want 1", got.FailedRequests)
	}
}
