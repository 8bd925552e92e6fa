package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"photo-rating/internal/config"
	"photo-rating/internal/db"
	"photo-rating/internal/events"
	"photo-rating/internal/handlers"
	"photo-rating/internal/metrics"
	"photo-rating/internal/services"
	"photo-rating/internal/storage"
	"photo-rating/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Users   *services.UserService
	Photos  *services.PhotoService
	Hub     *events.Hub
	Store   handlers.Pinger
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	// UploadDir is served at /uploads when photos live on local disk.
	UploadDir   string
	MaxUploadMB int
}

// NewServer builds the Fiber app with every route registered.
func NewServer(d Deps) *fiber.App {
	bodyLimit := fiber.DefaultBodyLimit
	if d.MaxUploadMB > 0 {
		// leave room for the multipart envelope around the file
		bodyLimit = (d.MaxUploadMB + 1) * 1024 * 1024
	}

	app := fiber.New(fiber.Config{
		AppName:               "photorate",
		BodyLimit:             bodyLimit,
		ErrorHandler:          handlers.ErrorHandler(d.Logger),
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	if d.UploadDir != "" {
		app.Static(storage.URLPrefix, d.UploadDir)
	}
	app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))

	// Routes
	api := app.Group("/api")

	// Public Routes
	api.Get("/status", handlers.StatusHandler)
	api.Get("/health", handlers.HealthHandler(d.Store))
	api.Post("/register", handlers.RegisterHandler(d.Users))
	api.Post("/login", handlers.LoginHandler(d.Users))
	api.Post("/forgot-password", handlers.ForgotPasswordHandler(d.Users))

	// Protected Routes
	auth := handlers.AuthMiddleware(d.Users)
	api.Get("/me", auth, handlers.MeHandler(d.Users))

	photos := api.Group("/photos", auth)
	photos.Post("/upload", handlers.UploadPhotoHandler(d.Photos))
	photos.Get("/to-rate", handlers.PhotosToRateHandler(d.Photos))
	photos.Post("/rate", handlers.RatePhotoHandler(d.Photos))
	photos.Post("/toggle-active", handlers.ToggleActiveHandler(d.Photos))
	photos.Get("/my-photos", handlers.MyPhotosHandler(d.Photos))

	api.Get("/stats/photo/:id", auth, handlers.PhotoStatsHandler(d.Photos))

	// WebSocket Route
	// Note: Middleware order matters. WSUpgradeMiddleware rejects plain
	// requests before the token is checked.
	app.Use("/ws", handlers.WSUpgradeMiddleware)
	app.Use("/ws", auth)
	app.Get("/ws", handlers.WebSocketHandler(d.Hub, d.Users, d.Logger))

	return app
}

// openStore returns the configured store and a cleanup func.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Store, func(), error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("using in-memory store; data is lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	}

	conn, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, conn.SQL); err != nil {
			conn.Close()
			return nil, nil, err
		}
	}
	return store.NewPostgresStore(conn.SQL), conn.Close, nil
}

func openStorage(ctx context.Context, cfg config.Storage) (storage.Storage, string, error) {
	if cfg.Backend == config.StorageS3 {
		s, err := storage.NewS3Storage(ctx, cfg.S3)
		return s, "", err
	}
	local, err := storage.NewLocalStorage(cfg.UploadDir, cfg.BaseURL)
	if err != nil {
		return nil, "", err
	}
	return local, local.Dir(), nil
}

// Run wires every dependency from cfg and serves until ctx is cancelled or
// the process receives SIGINT/SIGTERM.
func Run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	files, uploadDir, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	hub := events.NewHub(log)
	publishers := events.Multi{hub}
	if cfg.NATS.URL != "" {
		nc, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject, log)
		if err != nil {
			return err
		}
		defer nc.Close()
		publishers = append(publishers, nc)
	}

	m := metrics.New()
	tokens := services.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	users := services.NewUserService(st, tokens, cfg.Points.Initial, log)
	photos := services.NewPhotoService(st, files, publishers, m, int64(cfg.Storage.MaxUploadMB)*1024*1024, log)

	app := NewServer(Deps{
		Users:       users,
		Photos:      photos,
		Hub:         hub,
		Store:       st,
		Metrics:     m,
		Logger:      log,
		UploadDir:   uploadDir,
		MaxUploadMB: cfg.Storage.MaxUploadMB,
	})

	// Start Server
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "port", cfg.Port, "store", cfg.Store, "storage", cfg.Storage.Backend)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful Shutdown
	log.Info("gracefully shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server shutdown complete")
	return nil
}
