package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	auditsvc "github.com/mrlokans/shelf/internal/audit"
	"github.com/mrlokans/shelf/internal/auth"
	"github.com/mrlokans/shelf/internal/config"
	"github.com/mrlokans/shelf/internal/crypto"
	"github.com/mrlokans/shelf/internal/database"
	"github.com/mrlokans/shelf/internal/database/audit"
	"github.com/mrlokans/shelf/internal/database/blog"
	"github.com/mrlokans/shelf/internal/database/catalog"
	"github.com/mrlokans/shelf/internal/database/library"
	"github.com/mrlokans/shelf/internal/database/settings"
	"github.com/mrlokans/shelf/internal/database/users"
	http_controllers "github.com/mrlokans/shelf/internal/http"
	"github.com/mrlokans/shelf/internal/mailer"
	"github.com/mrlokans/shelf/internal/scheduler"
	"github.com/mrlokans/shelf/internal/settingsstore"
	"github.com/mrlokans/shelf/internal/tasks"
	"github.com/mrlokans/shelf/internal/uploads"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill -2 is SIGINT, plain kill is SIGTERM; SIGKILL can't be caught
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	// Background work stops after the last request has drained
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Shelf v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	catalogRepo := catalog.NewRepository(db.DB)
	libraryRepo := library.NewRepository(db.DB)
	blogRepo := blog.NewRepository(db.DB)
	usersRepo := users.NewRepository(db.DB)
	settingsStore := settingsstore.New(settings.NewRepository(db.DB))
	auditService := auditsvc.NewService(audit.NewRepository(db.DB))

	// Secrets come from the environment, or are generated once and kept in
	// the settings table
	tokenKey, err := settingsStore.TokenEncryptionKey(cfg.Auth.TokenKey)
	if err != nil {
		log.Fatalf("Failed to resolve token encryption key: %v", err)
	}
	log.Printf("Token encryption key source: %s", tokenKey.Source)
	sealer, err := crypto.NewSealerFromBase64(tokenKey.Value)
	if err != nil {
		log.Fatalf("Invalid token encryption key: %v", err)
	}

	sessionSecret, err := settingsStore.SessionSecret(cfg.Auth.SessionSecret)
	if err != nil {
		log.Fatalf("Failed to resolve session secret: %v", err)
	}
	log.Printf("Session secret source: %s", sessionSecret.Source)
	csrfSecret, err := hex.DecodeString(sessionSecret.Value)
	if err != nil || len(csrfSecret) != 32 {
		log.Fatalf("Session secret must be 64 hex characters")
	}

	authService := auth.NewService(usersRepo, auth.NewTokens(usersRepo, sealer), cfg.Auth)

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	loginLimiter := auth.NewLoginLimiter(cfg.Auth)
	defer loginLimiter.Stop()

	var rateLimiter *http_controllers.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = http_controllers.NewRateLimiter(cfg.RateLimit)
		defer rateLimiter.Stop()
	}

	uploadStore, err := uploads.NewStore(cfg.Uploads)
	if err != nil {
		log.Fatalf("Failed to initialize uploads: %v", err)
	}

	mail := mailer.New(cfg.Mail)
	if !mail.Enabled() {
		log.Printf("SMTP host not set, welcome emails are logged instead of sent")
	}

	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var maintenance *scheduler.MaintenanceScheduler
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewCleanupAuditEventsQueue(auditService, auditService),
			tasks.NewCleanupOrphanTagsQueue(blogRepo, auditService),
			tasks.NewSendWelcomeEmailQueue(usersRepo, mail),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		maintenance = scheduler.NewMaintenanceScheduler(taskClient, settingsStore, cfg.Maintenance.Schedule, cfg.Audit.RetentionDays)
		if err := maintenance.Start(taskCtx); err != nil {
			log.Printf("WARNING: maintenance scheduler not started: %v", err)
		}
	} else {
		log.Printf("Task queue disabled, welcome emails and scheduled cleanup are off")
	}

	routerCfg := http_controllers.RouterConfig{
		Database:       db,
		BookStore:      catalogRepo,
		AuthorStore:    catalogRepo,
		LibraryStore:   libraryRepo,
		LibrarianStore: libraryRepo,
		PostStore:      blogRepo,
		AuthService:    authService,
		FollowStore:    usersRepo,
		SessionManager: sessionManager,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		LoginLimiter:   loginLimiter,
		RateLimiter:    rateLimiter,
		Audit:          auditService,
		AuditEvents:    auditService,
		Uploads:        uploadStore,
		TaskClient:     taskClient,
		Version:        version,
	}
	if maintenance != nil {
		routerCfg.Maintenance = maintenance
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if maintenance != nil {
			maintenance.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		auditService.Wait()
	}

	Serve(router, cfg, onShutdown)
}
