package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupMiddlewareRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()

	svc, _, _ := setupService(t)
	middleware := NewMiddleware(svc, nil)

	router := gin.New()
	router.Use(middleware.Handler())
	router.GET("/public", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "auth_type": GetAuthType(c)})
	})
	router.POST("/private", middleware.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"username": GetUsername(c)})
	})
	return router, svc
}

func TestMiddleware_AnonymousPublic(t *testing.T) {
	router, _ := setupMiddlewareRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
}

func TestMiddleware_RequireAuthRejectsAnonymous(t *testing.T) {
	router, _ := setupMiddlewareRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/private", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rr.Code)
	}
	if got := rr.Header().Get("WWW-Authenticate"); got != "Token" {
		t.Errorf("Expected WWW-Authenticate 'Token', got %q", got)
	}
}

func TestMiddleware_TokenSchemes(t *testing.T) {
	router, svc := setupMiddlewareRouter(t)
	token := registerUser(t, svc, "jane")

	for _, scheme := range []string{"Token", "Bearer", "token"} {
		t.Run(scheme, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/private", nil)
			req.Header.Set("Authorization", scheme+" "+token)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestMiddleware_InvalidTokenRejectedOnPublicRoute(t *testing.T) {
	router, _ := setupMiddlewareRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	req.Header.Set("Authorization", "Token not-a-real-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rr.Code)
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{header: "Token abc", want: "abc", ok: true},
		{header: "Bearer abc", want: "abc", ok: true},
		{header: "BEARER abc", want: "abc", ok: true},
		{header: "Basic dXNlcjpwYXNz", ok: false},
		{header: "Token", ok: false},
		{header: "Token a b", ok: false},
		{header: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := ExtractToken(tt.header)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ExtractToken(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestGetUserID_Anonymous(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if GetUserID(c) != 0 {
		t.Error("Expected 0 for anonymous context")
	}
	if IsAuthenticated(c) {
		t.Error("Expected anonymous context to be unauthenticated")
	}
	if GetAuthType(c) != AuthTypeNone {
		t.Errorf("Expected AuthTypeNone, got %s", GetAuthType(c))
	}
}
