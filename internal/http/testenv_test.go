package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/shelf/internal/auth"
	"github.com/mrlokans/shelf/internal/config"
	"github.com/mrlokans/shelf/internal/crypto"
	"github.com/mrlokans/shelf/internal/database"
	"github.com/mrlokans/shelf/internal/database/blog"
	"github.com/mrlokans/shelf/internal/database/catalog"
	"github.com/mrlokans/shelf/internal/database/library"
	"github.com/mrlokans/shelf/internal/database/users"
	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/uploads"
)

const testPassword = "password12345"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router  *gin.Engine
	db      *database.Database
	catalog *catalog.Repository
	library *library.Repository
	blog    *blog.Repository
	users   *users.Repository
	service *auth.Service
	uploads *uploads.Store
}

func testAuthConfig() config.Auth {
	return config.Auth{
		BcryptCost:       4,
		SessionLifetime:  time.Hour,
		MaxLoginAttempts: 3,
		RateLimitWindow:  time.Minute,
		LockoutDuration:  time.Minute,
	}
}

// setupTestServer builds the full router over a fresh database. configure
// may adjust the router configuration before it is built.
func setupTestServer(t *testing.T, configure ...func(*RouterConfig)) *testServer {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "http.db"), logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sealer, err := crypto.NewSealerFromBase64(key)
	require.NoError(t, err)

	store, err := uploads.NewStore(config.Uploads{Dir: t.TempDir(), MaxSizeBytes: 1 << 20})
	require.NoError(t, err)

	s := &testServer{
		db:      db,
		catalog: catalog.NewRepository(db.DB),
		library: library.NewRepository(db.DB),
		blog:    blog.NewRepository(db.DB),
		users:   users.NewRepository(db.DB),
		uploads: store,
	}
	s.service = auth.NewService(s.users, auth.NewTokens(s.users, sealer), testAuthConfig())

	cfg := RouterConfig{
		Database:       db,
		BookStore:      s.catalog,
		AuthorStore:    s.catalog,
		LibraryStore:   s.library,
		LibrarianStore: s.library,
		PostStore:      s.blog,
		AuthService:    s.service,
		FollowStore:    s.users,
		Uploads:        store,
		Version:        "test",
	}
	for _, fn := range configure {
		fn(&cfg)
	}
	s.router = NewRouter(cfg)
	return s
}

// do sends a request. body may be nil, a raw JSON string or any value to
// encode as JSON.
func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// register creates a user through the service and returns their token.
func (s *testServer) register(t *testing.T, username string) (*entities.User, string) {
	t.Helper()
	user, token, err := s.service.Register(auth.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)
	return user, token
}

func (s *testServer) createAuthor(t *testing.T, name string) *entities.Author {
	t.Helper()
	author := &entities.Author{Name: name}
	require.NoError(t, s.catalog.CreateAuthor(author))
	return author
}

func (s *testServer) createBook(t *testing.T, title string, year int, author *entities.Author) *entities.Book {
	t.Helper()
	book := &entities.Book{Title: title, PublicationYear: year, AuthorID: author.ID}
	require.NoError(t, s.catalog.CreateBook(book))
	return book
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func bookTitles(books []entities.Book) []string {
	titles := make([]string, 0, len(books))
	for _, b := range books {
		titles = append(titles, b.Title)
	}
	return titles
}
