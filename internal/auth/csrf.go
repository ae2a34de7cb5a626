package auth

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

// CSRFTokenHeader is the header name for CSRF token in AJAX requests.
const CSRFTokenHeader = "X-CSRF-Token"

const contextKeyCSRFToken = "csrf_token"

// CSRFMiddleware protects session-authenticated requests against CSRF.
// Checks are skipped for:
//   - requests without a session cookie (nothing ambient to forge with)
//   - requests carrying a valid API token
//
// Safe methods (GET, HEAD, OPTIONS, TRACE) are never rejected, but still
// receive a token through GetCSRFToken.
func CSRFMiddleware(secret []byte, secure bool, sessions *SessionManager, service *Service) gin.HandlerFunc {
	protect := csrf.Protect(
		secret,
		csrf.Secure(secure),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.Path("/"),
		csrf.RequestHeader(CSRFTokenHeader),
		csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)),
	)

	return func(c *gin.Context) {
		if skipCSRF(c, sessions, service) {
			c.Next()
			return
		}

		passed := false
		handler := protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Set(contextKeyCSRFToken, csrf.Token(r))
			c.Request = r
			c.Next()
		}))
		handler.ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}

func skipCSRF(c *gin.Context, sessions *SessionManager, service *Service) bool {
	if key, ok := ExtractToken(c.GetHeader("Authorization")); ok && service != nil {
		if _, err := service.ValidateToken(key); err == nil {
			return true
		}
	}
	isSafe := c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead ||
		c.Request.Method == http.MethodOptions || c.Request.Method == http.MethodTrace
	if isSafe {
		return false
	}
	return sessions == nil || !sessions.HasSessionCookie(c.Request)
}

// csrfErrorHandler handles CSRF validation failures.
func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	reason := "token invalid or missing"
	if err := csrf.FailureReason(r); err != nil {
		reason = err.Error()
	}
	writeCSRFError(w, reason)
}

func writeCSRFError(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(gin.H{"error": "CSRF Failed: " + reason})
}

// GetCSRFToken retrieves the CSRF token from the Gin context.
func GetCSRFToken(c *gin.Context) string {
	if token, exists := c.Get(contextKeyCSRFToken); exists {
		if t, ok := token.(string); ok {
			return t
		}
	}
	return ""
}
