package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func limiterRouter(maxRequests int, window time.Duration) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", SimpleRateLimit(maxRequests, window), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func get(r *gin.Engine, ip string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = ip + ":12345"
	r.ServeHTTP(w, req)
	return w.Code
}

func TestSimpleRateLimitBlocksOverLimit(t *testing.T) {
	r := limiterRouter(3, time.Minute)
	ip := "10.1.0.1"

	for i := 0; i < 3; i++ {
		if code := get(r, ip); code != http.StatusOK {
			t.Fatalf("request %d blocked early: %d", i+1, code)
		}
	}
	if code := get(r, ip); code != http.StatusTooManyRequests {
		t.Fatalf("request over the limit = %d; want 429", code)
	}

	// Another client has its own window.
	if code := get(r, "10.1.0.2"); code != http.StatusOK {
		t.Fatalf("unrelated client blocked: %d", code)
	}
}

func TestSimpleRateLimitWindowResets(t *testing.T) {
	r := limiterRouter(1, 10*time.Millisecond)
	ip := "10.2.0.1"

	if code := get(r, ip); code != http.StatusOK {
		t.Fatalf("first request = %d", code)
	}
	if code := get(r, ip); code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d; want 429", code)
	}

	time.Sleep(15 * time.Millisecond)
	if code := get(r, ip); code != http.StatusOK {
		t.Fatalf("request after window reset = %d; want 200", code)
	}
}
