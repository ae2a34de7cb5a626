package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestLimiter(t *testing.T) (*LoginLimiter, *time.Time) {
	t.Helper()
	limiter := NewLoginLimiter(testAuthConfig())
	t.Cleanup(limiter.Stop)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	return limiter, &now
}

func TestLoginLimiter_LocksAfterMaxAttempts(t *testing.T) {
	limiter, _ := newTestLimiter(t)

	for i := 0; i < 2; i++ {
		if locked := limiter.RecordFailure("1.2.3.4", "jane"); locked {
			t.Fatalf("attempt %d should not lock", i+1)
		}
	}
	if locked := limiter.RecordFailure("1.2.3.4", "jane"); !locked {
		t.Fatal("third attempt should lock")
	}

	if allowed, wait := limiter.Allow("1.2.3.4", "JANE"); allowed || wait != time.Minute {
		t.Errorf("Expected lockout of 1m, got allowed=%v wait=%v", allowed, wait)
	}
	if allowed, _ := limiter.Allow("5.6.7.8", "jane"); !allowed {
		t.Error("Other clients should not be locked out")
	}
}

func TestLoginLimiter_LockoutExpires(t *testing.T) {
	limiter, now := newTestLimiter(t)

	for i := 0; i < 3; i++ {
		limiter.RecordFailure("1.2.3.4", "jane")
	}
	*now = now.Add(2 * time.Minute)

	if allowed, _ := limiter.Allow("1.2.3.4", "jane"); !allowed {
		t.Error("Expected lockout to expire")
	}

	limiter.cleanup()
	if len(limiter.attempts) != 0 {
		t.Errorf("Expected expired records to be cleaned up, got %d", len(limiter.attempts))
	}
}

func TestLoginLimiter_SuccessResets(t *testing.T) {
	limiter, _ := newTestLimiter(t)

	limiter.RecordFailure("1.2.3.4", "jane")
	limiter.RecordFailure("1.2.3.4", "jane")
	limiter.RecordSuccess("1.2.3.4", "jane")

	if locked := limiter.RecordFailure("1.2.3.4", "jane"); locked {
		t.Error("Counter should restart after a successful login")
	}
}

func TestLoginLimiter_Reject(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	for i := 0; i < 3; i++ {
		limiter.RecordFailure("192.0.2.1", "jane")
	}

	router := gin.New()
	router.POST("/login", func(c *gin.Context) {
		if limiter.Reject(c, c.Query("username")) {
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/login?username=jane", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Errorf("Expected Retry-After 60, got %q", rr.Header().Get("Retry-After"))
	}

	req = httptest.NewRequest(http.MethodPost, "/login?username=john", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200 for other username, got %d", rr.Code)
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeadersMiddleware(), StrictTransportSecurityMiddleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	for header, want := range map[string]string{
		"X-Frame-Options":           "DENY",
		"X-Content-Type-Options":    "nosniff",
		"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	} {
		if got := rr.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}
