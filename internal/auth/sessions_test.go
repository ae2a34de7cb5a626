package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupSessionManager(t *testing.T) (*SessionManager, *Service) {
	t.Helper()

	svc, _, db := setupService(t)
	sqlDB, err := db.DB.DB()
	if err != nil {
		t.Fatalf("failed to get SQL DB: %v", err)
	}

	sm, err := NewSessionManager(sqlDB, testAuthConfig())
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm, svc
}

func TestNewSessionManager(t *testing.T) {
	sm, _ := setupSessionManager(t)

	if sm.Cookie.Name != SessionCookieName {
		t.Errorf("Expected cookie name %q, got %q", SessionCookieName, sm.Cookie.Name)
	}
	if !sm.Cookie.HttpOnly {
		t.Error("Cookie should be HttpOnly")
	}
	if sm.Cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("Expected SameSiteLaxMode, got %v", sm.Cookie.SameSite)
	}
	if sm.Cookie.Secure {
		t.Error("Cookie should not be Secure when SecureCookies is false")
	}
}

func TestSessionManager_LoginRoundTrip(t *testing.T) {
	sm, svc := setupSessionManager(t)
	registerUser(t, svc, "jane")
	jane, err := svc.users.GetUserByUsername("jane")
	if err != nil {
		t.Fatalf("failed to load user: %v", err)
	}

	middleware := NewMiddleware(svc, sm)
	router := gin.New()
	router.Use(sm.SessionLoadSave(), middleware.Handler())
	router.POST("/login", func(c *gin.Context) {
		if err := sm.CreateSession(c.Request, jane); err != nil {
			t.Errorf("CreateSession failed: %v", err)
		}
		c.Status(http.StatusNoContent)
	})
	router.POST("/logout", func(c *gin.Context) {
		if err := sm.DestroySession(c.Request); err != nil {
			t.Errorf("DestroySession failed: %v", err)
		}
		c.Status(http.StatusNoContent)
	})
	router.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "auth_type": GetAuthType(c)})
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))
	cookies := rr.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("Expected a session cookie after login")
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if body := rr.Body.String(); body != `{"auth_type":"session","user_id":1}` {
		t.Errorf("Unexpected body: %s", body)
	}

	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if body := rr.Body.String(); body != `{"auth_type":"none","user_id":0}` {
		t.Errorf("Expected anonymous after logout, got %s", body)
	}
}

func TestSessionManager_HasSessionCookie(t *testing.T) {
	sm, _ := setupSessionManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if sm.HasSessionCookie(req) {
		t.Error("Expected no session cookie")
	}

	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "abc"})
	if !sm.HasSessionCookie(req) {
		t.Error("Expected session cookie to be detected")
	}
}
