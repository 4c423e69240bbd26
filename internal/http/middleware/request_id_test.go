package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newRequestIDRouter() (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())

	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.Status(http.StatusOK)
	})
	return r, &seen
}

func TestRequestIDGeneratedWhenMissing(t *testing.T) {
	r, seen := newRequestIDRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	got := w.Header().Get("X-Request-ID")
	if got == "" {
		t.Fatal("no X-Request-ID on the response")
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("generated ID %q is not a UUID: %v", got, err)
	}
	if *seen != got {
		t.Fatalf("context carried %q, response carried %q", *seen, got)
	}
}

func TestRequestIDKeepsClientID(t *testing.T) {
	r, seen := newRequestIDRouter()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "trace-1234")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "trace-1234" {
		t.Fatalf("client ID replaced with %q", got)
	}
	if *seen != "trace-1234" {
		t.Fatalf("context carried %q, want the client ID", *seen)
	}
}

func TestRequestIDReplacesOversizedID(t *testing.T) {
	r, _ := newRequestIDRouter()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 65))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	got := w.Header().Get("X-Request-ID")
	if got == strings.Repeat("x", 65) {
		t.Fatal("oversized client ID kept")
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("replacement %q is not a UUID: %v", got, err)
	}
}

func TestGetRequestIDWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if got := GetRequestID(c); got != "" {
		t.Fatalf("bare context returned %q, want empty", got)
	}
}
