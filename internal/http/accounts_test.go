package http

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/shelf/internal/auth"
	"github.com/mrlokans/shelf/internal/uploads"
	"github.com/mrlokans/shelf/internal/validation"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestAccounts_RegisterAndLogin(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodPost, "/api/accounts/register/", map[string]any{
		"username": "alice", "email": "alice@example.com", "password": testPassword, "bio": "Reader",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	registered := decodeJSON[map[string]any](t, w)
	token := registered["token"].(string)
	assert.Len(t, token, 40)
	user := registered["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "Reader", user["bio"])
	assert.Equal(t, float64(0), user["followers_count"])
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "password_hash")

	t.Run("login returns the same token", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/accounts/login/", map[string]any{"username": "alice", "password": testPassword}, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, token, decodeJSON[AuthResponse](t, w).Token)
	})

	t.Run("form login", func(t *testing.T) {
		w := s.serve(newFormRequest(http.MethodPost, "/api/accounts/login/", map[string]string{
			"username": "alice", "password": testPassword,
		}))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, token, decodeJSON[AuthResponse](t, w).Token)
	})

	invalid := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "not-the-password"},
		{"unknown user", "nobody", testPassword},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/accounts/login/", map[string]any{"username": tt.username, "password": tt.password}, "")
			require.Equal(t, http.StatusBadRequest, w.Code)
			errs := decodeJSON[map[string][]string](t, w)
			assert.Equal(t, []string{validation.MsgInvalidCreds}, errs[validation.NonFieldErrors])
		})
	}

	t.Run("missing credentials", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/accounts/login/", map[string]any{}, "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		errs := decodeJSON[map[string][]string](t, w)
		assert.Contains(t, errs, "username")
		assert.Contains(t, errs, "password")
	})
}

func TestAccounts_RegisterValidation(t *testing.T) {
	s := setupTestServer(t)
	s.register(t, "taken")

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"missing username", map[string]any{"password": testPassword}, "username"},
		{"missing password", map[string]any{"username": "bob"}, "password"},
		{"short password", map[string]any{"username": "bob", "password": "short"}, "password"},
		{"bad email", map[string]any{"username": "bob", "password": testPassword, "email": "nope"}, "email"},
		{"username taken", map[string]any{"username": "taken", "password": testPassword}, "username"},
		{"invalid username", map[string]any{"username": "bad name!", "password": testPassword}, "username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/accounts/register/", tt.body, "")
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, decodeJSON[map[string][]string](t, w), tt.field)
		})
	}
}

func TestAccounts_Logout(t *testing.T) {
	s := setupTestServer(t)
	_, token := s.register(t, "alice")

	w := s.do(t, http.MethodPost, "/api/accounts/logout/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/accounts/logout/", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/accounts/profile/", nil, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/accounts/login/", map[string]any{"username": "alice", "password": testPassword}, "")
	require.Equal(t, http.StatusOK, w.Code)
	fresh := decodeJSON[AuthResponse](t, w).Token
	assert.NotEqual(t, token, fresh)

	w = s.do(t, http.MethodGet, "/api/accounts/profile/", nil, fresh)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAccounts_Profile(t *testing.T) {
	s := setupTestServer(t)
	_, token := s.register(t, "alice")
	s.register(t, "bob")

	t.Run("anonymous", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/accounts/profile/", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("PATCH merges", func(t *testing.T) {
		w := s.do(t, http.MethodPatch, "/api/accounts/profile/", map[string]any{"bio": "Loves sci-fi"}, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decodeJSON[map[string]any](t, w)
		assert.Equal(t, "Loves sci-fi", body["bio"])
		assert.Equal(t, "alice", body["username"])
		assert.Equal(t, "alice@example.com", body["email"])
	})

	t.Run("PUT requires username", func(t *testing.T) {
		w := s.do(t, http.MethodPut, "/api/accounts/profile/", map[string]any{"bio": "x"}, token)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{validation.MsgRequired}, decodeJSON[map[string][]string](t, w)["username"])
	})

	t.Run("username must stay unique", func(t *testing.T) {
		w := s.do(t, http.MethodPatch, "/api/accounts/profile/", map[string]any{"username": "bob"}, token)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeJSON[map[string][]string](t, w), "username")
	})

	t.Run("PUT replaces", func(t *testing.T) {
		w := s.do(t, http.MethodPut, "/api/accounts/profile/", map[string]any{
			"username": "alice2", "first_name": "Alice", "last_name": "Smith",
		}, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decodeJSON[map[string]any](t, w)
		assert.Equal(t, "alice2", body["username"])
		assert.Equal(t, "Alice", body["first_name"])
	})
}

func TestAccounts_ProfilePicture(t *testing.T) {
	s := setupTestServer(t)
	_, token := s.register(t, "alice")

	upload := func(content []byte) *http.Request {
		req := newMultipartRequest(t, http.MethodPatch, "/api/accounts/profile/",
			map[string]string{"first_name": "Alice"}, "profile_picture", "me.png", content)
		req.Header.Set("Authorization", "Token "+token)
		return req
	}

	w := s.serve(upload(pngHeader))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decodeJSON[UserResponse](t, w)
	assert.Equal(t, "Alice", first.FirstName)
	require.True(t, strings.HasPrefix(first.ProfilePicture, uploads.URLPrefix+"/profile_pictures/"), first.ProfilePicture)

	firstPath := filepath.Join(s.uploads.Dir(), strings.TrimPrefix(first.ProfilePicture, uploads.URLPrefix+"/"))
	_, err := os.Stat(firstPath)
	require.NoError(t, err)

	t.Run("served from media", func(t *testing.T) {
		w := s.do(t, http.MethodGet, first.ProfilePicture, nil, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("replacing removes the old file", func(t *testing.T) {
		w := s.serve(upload(pngHeader))
		require.Equal(t, http.StatusOK, w.Code)
		second := decodeJSON[UserResponse](t, w)
		assert.NotEqual(t, first.ProfilePicture, second.ProfilePicture)

		_, err := os.Stat(firstPath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("rejects non-images", func(t *testing.T) {
		w := s.serve(upload([]byte("plain text, not an image")))
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeJSON[map[string][]string](t, w), "profile_picture")
	})
}

func TestAccounts_Follow(t *testing.T) {
	s := setupTestServer(t)
	alice, aliceToken := s.register(t, "alice")
	bob, _ := s.register(t, "bob")
	followPath := fmt.Sprintf("/api/accounts/users/%d/follow/", bob.ID)

	w := s.do(t, http.MethodPost, followPath, nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	for i := 0; i < 2; i++ {
		w = s.do(t, http.MethodPost, followPath, nil, aliceToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		state := decodeJSON[map[string]any](t, w)
		assert.Equal(t, true, state["following"])
		assert.Equal(t, float64(1), state["followers_count"])
	}

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/accounts/users/%d/followers/", bob.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	followers := decodeJSON[[]UserResponse](t, w)
	require.Len(t, followers, 1)
	assert.Equal(t, "alice", followers[0].Username)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/accounts/users/%d/following/", alice.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeJSON[[]UserResponse](t, w), 1)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/accounts/users/%d/", bob.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decodeJSON[UserResponse](t, w).FollowersCount)

	w = s.do(t, http.MethodDelete, followPath, nil, aliceToken)
	require.Equal(t, http.StatusOK, w.Code)
	state := decodeJSON[map[string]any](t, w)
	assert.Equal(t, false, state["following"])
	assert.Equal(t, float64(0), state["followers_count"])

	t.Run("self follow", func(t *testing.T) {
		w := s.do(t, http.MethodPost, fmt.Sprintf("/api/accounts/users/%d/follow/", alice.ID), nil, aliceToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/accounts/users/999/follow/", nil, aliceToken)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = s.do(t, http.MethodGet, "/api/accounts/users/999/followers/", nil, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAccounts_LoginThrottling(t *testing.T) {
	limiter := auth.NewLoginLimiter(testAuthConfig())
	t.Cleanup(limiter.Stop)
	s := setupTestServer(t, func(cfg *RouterConfig) { cfg.LoginLimiter = limiter })
	s.register(t, "alice")

	for i := 0; i < 3; i++ {
		w := s.do(t, http.MethodPost, "/api/accounts/login/", map[string]any{"username": "alice", "password": "wrong-password"}, "")
		require.Equal(t, http.StatusBadRequest, w.Code)
	}

	w := s.do(t, http.MethodPost, "/api/accounts/login/", map[string]any{"username": "alice", "password": testPassword}, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestAccounts_SessionLogin(t *testing.T) {
	var sessions *auth.SessionManager
	s := setupTestServer(t, func(cfg *RouterConfig) {
		sqlDB, err := cfg.Database.DB.DB()
		require.NoError(t, err)
		sessions, err = auth.NewSessionManager(sqlDB, testAuthConfig())
		require.NoError(t, err)
		cfg.SessionManager = sessions
	})
	s.register(t, "alice")

	w := s.do(t, http.MethodPost, "/api/accounts/session/", map[string]any{"username": "alice", "password": testPassword}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	req, err := http.NewRequest(http.MethodGet, "/api/accounts/profile/", nil)
	require.NoError(t, err)
	req.AddCookie(cookie)
	w = s.serve(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", decodeJSON[UserResponse](t, w).Username)
}
