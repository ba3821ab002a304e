package middleware

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newMWRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	r := newMWRouter()
	r.Use(RequestID())
	var seen string
	r.GET("/x", func(c *gin.Context) {
		v, _ := c.Get("requestID")
		seen, _ = v.(string)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	uuidRE := regexp.MustCompile(`^[0-9a-f-]{36}$`)
	if !uuidRE.MatchString(seen) {
		t.Fatalf("generated request id not a UUID: %q", seen)
	}
	if got := w.Header().Get("X-Request-ID"); got != seen {
		t.Fatalf("response header %q != context id %q", got, seen)
	}
}

func TestRequestID_PropagatesIncoming(t *testing.T) {
	r := newMWRouter()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "client-supplied-id")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-supplied-id" {
		t.Fatalf("incoming id not propagated: %q", got)
	}
}

func TestIdentity_LiftsHeaderIntoContext(t *testing.T) {
	r := newMWRouter()
	r.Use(Identity())
	var uid string
	var present bool
	r.GET("/x", func(c *gin.Context) {
		v, ok := c.Get("userID")
		present = ok
		uid, _ = v.(string)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-User-ID", "  patient1  ")
	r.ServeHTTP(httptest.NewRecorder(), req)
	if !present || uid != "patient1" {
		t.Fatalf("identity not lifted/trimmed: present=%v uid=%q", present, uid)
	}

	// Absent header leaves the context unset (anonymous).
	present, uid = false, ""
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	if present {
		t.Fatalf("anonymous request should not set userID, got %q", uid)
	}
}

func TestLogger_AttachesRequestScopedLogger(t *testing.T) {
	r := newMWRouter()
	r.Use(RequestID(), Identity(), Logger())
	var hadLogger bool
	r.GET("/x", func(c *gin.Context) {
		_, hadLogger = c.Get("logger")
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	if !hadLogger {
		t.Fatalf("request-scoped logger missing from context")
	}
}

func TestLoggerFrom_FallbackWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if LoggerFrom(c) == nil {
		t.Fatalf("LoggerFrom must never return nil")
	}
}

func TestRecovery_ConvertsPanicToJSON500(t *testing.T) {
	r := newMWRouter()
	r.Use(RequestID(), Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d; want 500", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "internal_error") || !strings.Contains(body, "request_id") {
		t.Fatalf("unexpected panic body: %s", body)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc…" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Fatalf("short string changed: %q", got)
	}
	if got := truncate("abc", 0); got != "abc" {
		t.Fatalf("max<=0 should disable truncation: %q", got)
	}
}
