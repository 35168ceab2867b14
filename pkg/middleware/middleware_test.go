package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/affiliateops/pkg/config"
	"github.com/wyfcoding/affiliateops/pkg/logger"
	"github.com/wyfcoding/affiliateops/pkg/ratelimit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type httpRecord struct {
	method, path string
	status       int
}

type fakeCollector struct{ http []httpRecord }

func (f *fakeCollector) RecordHTTPRequest(method, path string, statusCode int, _ float64) {
	f.http = append(f.http, httpRecord{method, path, statusCode})
}
func (f *fakeCollector) RecordGRPCRequest(string, string, float64) {}
func (f *fakeCollector) RecordSignupCreated() {}
func (f *fakeCollector) RecordDecision(string, string) {}
func (f *fakeCollector) RecordProvisionOutcome(string, string) {}
func (f *fakeCollector) RecordProviderCall(string, float64) {}

func TestGinLoggingMiddlewarePropagatesTraceID(t *testing.T) {
	r := gin.New()
	r.Use(GinLoggingMiddleware())
	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = logger.TraceID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Trace-ID", "trace-abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if seen != "trace-abc" {
		t.Fatalf("trace id in context = %q", seen)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID header")
	}
}

func TestGinRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(GinLoggingMiddleware(), GinRecoveryMiddleware())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGinMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	fc := &fakeCollector{}
	r := gin.New()
	r.Use(GinMetricsMiddleware(fc))
	r.GET("/signups/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/signups/SGN-1", nil))
	if len(fc.http) != 1 || fc.http[0].path != "/signups/:id" || fc.http[0].status != http.StatusNoContent {
		t.Fatalf("recorded = %+v", fc.http)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, QPS: 1, Burst: 1}
	r := gin.New()
	r.POST("/decide", RateLimitMiddleware(ratelimit.NewLocalRateLimiter(), cfg, func(c *gin.Context) string {
		return c.GetHeader("X-Actor-ID")
	}), func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(actor string) int {
		req := httptest.NewRequest(http.MethodPost, "/decide", nil)
		req.Header.Set("X-Actor-ID", actor)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := do("u1"); code != http.StatusOK {
		t.Fatalf("first = %d", code)
	}
	if code := do("u1"); code != http.StatusTooManyRequests {
		t.Fatalf("second = %d", code)
	}
	if code := do("u2"); code != http.StatusOK {
		t.Fatalf("other actor = %d", code)
	}
}

func TestRateLimitMiddlewareDisabled(t *testing.T) {
	r := gin.New()
	r.GET("/x", RateLimitMiddleware(ratelimit.NewLocalRateLimiter(), config.RateLimitConfig{}, nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d = %d", i, w.Code)
		}
	}
}
