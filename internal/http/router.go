package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelf/internal/auth"
	"github.com/mrlokans/shelf/internal/uploads"
)

// route registers handlers for path with and without a trailing slash, so
// both "/api/books" and "/api/books/" answer without a redirect.
func route(r gin.IRoutes, method, path string, handlers ...gin.HandlerFunc) {
	r.Handle(method, path, handlers...)
	r.Handle(method, path+"/", handlers...)
}

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	// The session must be loaded before auth reads it
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	authMiddleware := auth.NewMiddleware(cfg.AuthService, cfg.SessionManager)
	router.Use(authMiddleware.Handler())

	// CSRF runs after auth so that a bad token is a 401, not a 403
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.SessionManager, cfg.AuthService))
	}

	requireAuth := authMiddleware.RequireAuth()

	// Health endpoints
	health := NewHealthController(cfg.Database, cfg.Version, cfg.TaskClient != nil)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	if cfg.Uploads != nil {
		router.Static(uploads.URLPrefix, cfg.Uploads.Dir())
	}

	api := router.Group("/api")
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Middleware())
	}

	var taskEnqueuer TaskEnqueuer
	var taskStatus TaskStatusReader
	if cfg.TaskClient != nil {
		taskEnqueuer = cfg.TaskClient
		taskStatus = cfg.TaskClient
	}

	// Catalog
	books := NewBooksController(cfg.BookStore, cfg.Audit)
	route(api, http.MethodGet, "/books", books.List)
	route(api, http.MethodPost, "/books", requireAuth, books.Create)
	route(api, http.MethodGet, "/books/:id", books.Get)
	route(api, http.MethodPut, "/books/:id", requireAuth, books.Update)
	route(api, http.MethodPatch, "/books/:id", requireAuth, books.Update)
	route(api, http.MethodDelete, "/books/:id", requireAuth, books.Delete)

	// Route names kept for existing clients
	route(api, http.MethodPost, "/books/create", requireAuth, books.Create)
	route(api, http.MethodPut, "/books/update/:id", requireAuth, books.Update)
	route(api, http.MethodPatch, "/books/update/:id", requireAuth, books.Update)
	route(api, http.MethodDelete, "/books/delete/:id", requireAuth, books.Delete)

	authors := NewAuthorsController(cfg.AuthorStore, cfg.LibraryStore, cfg.Audit)
	route(api, http.MethodGet, "/authors", authors.List)
	route(api, http.MethodPost, "/authors", requireAuth, authors.Create)
	route(api, http.MethodGet, "/authors/books", authors.BooksByName)
	route(api, http.MethodGet, "/authors/:id", authors.Get)
	route(api, http.MethodPut, "/authors/:id", requireAuth, authors.Update)
	route(api, http.MethodPatch, "/authors/:id", requireAuth, authors.Update)
	route(api, http.MethodDelete, "/authors/:id", requireAuth, authors.Delete)
	route(api, http.MethodGet, "/authors/:id/books", authors.Books)

	// Libraries
	libraries := NewLibrariesController(cfg.LibraryStore, cfg.Audit)
	route(api, http.MethodGet, "/libraries", libraries.List)
	route(api, http.MethodPost, "/libraries", requireAuth, libraries.Create)
	route(api, http.MethodGet, "/libraries/:id", libraries.Get)
	route(api, http.MethodPut, "/libraries/:id", requireAuth, libraries.Update)
	route(api, http.MethodPatch, "/libraries/:id", requireAuth, libraries.Update)
	route(api, http.MethodDelete, "/libraries/:id", requireAuth, libraries.Delete)
	route(api, http.MethodGet, "/libraries/:id/books", libraries.Books)
	route(api, http.MethodPost, "/libraries/:id/books", requireAuth, libraries.AddBooks)
	route(api, http.MethodDelete, "/libraries/:id/books/:bookId", requireAuth, libraries.RemoveBook)
	route(api, http.MethodGet, "/libraries/:id/librarian", libraries.Librarian)

	librarians := NewLibrariansController(cfg.LibrarianStore, cfg.Audit)
	route(api, http.MethodGet, "/librarians", librarians.List)
	route(api, http.MethodPost, "/librarians", requireAuth, librarians.Create)
	route(api, http.MethodGet, "/librarians/:id", librarians.Get)
	route(api, http.MethodPut, "/librarians/:id", requireAuth, librarians.Update)
	route(api, http.MethodPatch, "/librarians/:id", requireAuth, librarians.Update)
	route(api, http.MethodDelete, "/librarians/:id", requireAuth, librarians.Delete)

	// Blog
	posts := NewPostsController(cfg.PostStore, cfg.Audit)
	route(api, http.MethodGet, "/posts", posts.List)
	route(api, http.MethodPost, "/posts", requireAuth, posts.Create)
	route(api, http.MethodGet, "/posts/search", posts.Search)
	route(api, http.MethodGet, "/posts/:id", posts.Get)
	route(api, http.MethodPut, "/posts/:id", requireAuth, posts.Update)
	route(api, http.MethodPatch, "/posts/:id", requireAuth, posts.Update)
	route(api, http.MethodDelete, "/posts/:id", requireAuth, posts.Delete)
	route(api, http.MethodGet, "/tags", posts.Tags)
	route(api, http.MethodGet, "/tags/:slug/posts", posts.ByTag)

	// Accounts
	accounts := NewAccountsController(cfg.AuthService, cfg.FollowStore, AccountsOptions{
		Sessions: cfg.SessionManager,
		Limiter:  cfg.LoginLimiter,
		Uploads:  cfg.Uploads,
		Audit:    cfg.Audit,
		Events:   cfg.AuditEvents,
		Tasks:    taskEnqueuer,
	})
	route(api, http.MethodPost, "/accounts/register", accounts.Register)
	route(api, http.MethodPost, "/accounts/login", accounts.Login)
	route(api, http.MethodPost, "/accounts/logout", requireAuth, accounts.Logout)
	route(api, http.MethodPost, "/accounts/session", accounts.SessionLogin)
	route(api, http.MethodDelete, "/accounts/session", accounts.SessionLogout)
	route(api, http.MethodGet, "/accounts/csrf", accounts.CSRFToken)
	route(api, http.MethodGet, "/accounts/profile", requireAuth, accounts.Profile)
	route(api, http.MethodPut, "/accounts/profile", requireAuth, accounts.UpdateProfile)
	route(api, http.MethodPatch, "/accounts/profile", requireAuth, accounts.UpdateProfile)
	route(api, http.MethodGet, "/accounts/events", requireAuth, accounts.Events)
	route(api, http.MethodGet, "/accounts/users/:id", accounts.User)
	route(api, http.MethodGet, "/accounts/users/:id/followers", accounts.Followers)
	route(api, http.MethodGet, "/accounts/users/:id/following", accounts.Following)
	route(api, http.MethodPost, "/accounts/users/:id/follow", requireAuth, accounts.Follow)
	route(api, http.MethodDelete, "/accounts/users/:id/follow", requireAuth, accounts.Unfollow)

	// Maintenance
	if cfg.Maintenance != nil {
		maintenance := NewMaintenanceController(cfg.Maintenance, taskStatus)
		route(api, http.MethodGet, "/maintenance", requireAuth, maintenance.Status)
		route(api, http.MethodPost, "/maintenance/run", requireAuth, maintenance.Run)
		route(api, http.MethodGet, "/tasks/:id", requireAuth, maintenance.TaskStatus)
	}

	return router
}
