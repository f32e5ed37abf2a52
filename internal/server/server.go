package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cybercards/apiserver/config"
	"github.com/cybercards/apiserver/internal/db"
	"github.com/cybercards/apiserver/internal/events"
	"github.com/cybercards/apiserver/internal/handlers"
	"github.com/cybercards/apiserver/internal/services"
	"github.com/cybercards/apiserver/internal/storage"
	"github.com/cybercards/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// Rate limit matching the reference server: 100 requests per 15 minutes
// per client IP.
const (
	rateLimitRequests = 100
	rateLimitWindow   = 15 * time.Minute
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	publisher  events.Publisher
}

// New constructs a Server with its store, storage and broker backends
// wired from config.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	var (
		dbConn         *sql.DB
		userRepo       services.UserRepository
		submissionRepo services.SubmissionRepository
	)
	if cfg.Database.Enabled {
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		dbConn = conn
		userRepo = store.NewUserRepository(conn)
		submissionRepo = store.NewSubmissionRepository(conn)
	} else {
		userRepo = store.NewMemoryUserRepository()
		submissionRepo = store.NewMemorySubmissionRepository()
	}

	images, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		closeQuietly(dbConn)
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if err := images.Init(ctx); err != nil {
		closeQuietly(dbConn)
		return nil, fmt.Errorf("init storage: %w", err)
	}

	publisher, err := events.New(ctx, cfg.Events)
	if err != nil {
		closeQuietly(dbConn)
		return nil, fmt.Errorf("init events: %w", err)
	}

	userService := services.NewUserService(userRepo)
	submissionService := services.NewSubmissionService(submissionRepo, userRepo, publisher)

	if err := userService.EnsureSeedUsers(ctx, services.DefaultSeedUsers); err != nil {
		closeQuietly(dbConn)
		_ = publisher.Close()
		return nil, fmt.Errorf("seed users: %w", err)
	}

	authMiddleware := handlers.RequireAuth(jwtSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		}),
		httprate.LimitByIP(rateLimitRequests, rateLimitWindow),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Healthz)
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, userService, jwtSecret)
		})
		r.Route("/cards", func(r chi.Router) {
			handlers.CardRouter(r, submissionService, userService, images, cfg.Storage.PublicURL, authMiddleware)
		})
		r.Route("/admin", func(r chi.Router) {
			handlers.AdminRouter(r, submissionService, authMiddleware)
		})
	})

	// Locally stored card images are served the way the reference served
	// its uploads directory. Object-store backends expose their own URLs.
	if local, ok := images.(*storage.LocalStorage); ok {
		fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(local.Dir())))
		router.Get("/uploads/*", fileServer.ServeHTTP)
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 3001
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		publisher:  publisher,
	}, nil
}

// Router exposes the chi router for route registration and tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	closeQuietly(s.db)
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	return s.httpServer.Close()
}

func closeQuietly(db *sql.DB) {
	if db != nil {
		_ = db.Close()
	}
}
