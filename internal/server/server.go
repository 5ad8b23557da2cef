// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: every dependency is constructed here, in New,
// and handed down explicitly.
//
//	config.Config → sqlite.DB ─┬→ AuthService    → AuthHandler
//	                           ├→ ProfileService → ProfileHandler ← github.Client
//	                           └→ PostService    → PostHandler
//
// Handlers get services, services get repository interfaces. Nothing below
// this package reads configuration.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/devconnect/internal/auth"
	"github.com/sakif/devconnect/internal/config"
	"github.com/sakif/devconnect/internal/github"
	"github.com/sakif/devconnect/internal/handler"
	"github.com/sakif/devconnect/internal/middleware"
	sqliteRepo "github.com/sakif/devconnect/internal/repository/sqlite"
	"github.com/sakif/devconnect/internal/service"
	"github.com/sakif/devconnect/internal/validate"
)

// Server represents the HTTP server and the resources it owns.
// The database and the Redis client are closed by Close (Start calls it on
// the way out).
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	redis   *redis.Client // nil when rate limiting is disabled
	tokens  *auth.TokenService
	metrics *middleware.Metrics
}

// New opens the database, builds every component from cfg and wires the routes.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	mode := auth.Verified
	if !cfg.TokenVerify {
		mode = auth.DecodeOnly
	}
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL, mode)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		tokens:  tokens,
		metrics: middleware.NewMetrics(),
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
		}
		s.redis = redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			// The limiter fails open, so an unreachable Redis is not fatal.
			logger.Warn("redis unreachable, rate limiting will fail open",
				slog.String("error", err.Error()),
			)
		}
	}

	s.setupRoutes()
	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTES:
//
//	GET    /healthz
//	GET    /metrics
//	POST   /api/users                                  register (rate limited)
//	POST   /api/auth                                   login (rate limited)
//	GET    /api/auth                                   current user        [token]
//	GET    /api/profile                                list profiles
//	POST   /api/profile                                create/update own   [token]
//	DELETE /api/profile                                delete own + user   [token]
//	GET    /api/profile/me                             own profile         [token]
//	GET    /api/profile/user/{id}                      profile by user id
//	GET    /api/profile/github/{username}              GitHub repositories
//	PUT    /api/profile/experience                     add experience      [token]
//	DELETE /api/profile/experience/{id}                remove experience   [token]
//	PUT    /api/profile/education                      add education       [token]
//	DELETE /api/profile/education/{id}                 remove education    [token]
//	GET    /api/posts, POST /api/posts                                     [token]
//	GET    /api/posts/{id}, DELETE /api/posts/{id}                         [token]
//	PUT    /api/posts/like/{id}, PUT /api/posts/unlike/{id}                [token]
//	POST   /api/posts/comment/{post_id}                                    [token]
//	DELETE /api/posts/comment/{post_id}/{comment_id}                       [token]
//
// The token gate runs on all of /api: a bad token is rejected everywhere,
// a missing one only where [token] is marked.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(s.metrics.Middleware)
	s.router.Use(chimiddleware.Recoverer)

	v := validate.New()
	passwords := auth.NewPasswordService(s.config.BcryptCost)
	limiter := middleware.NewRateLimiter(s.redis, s.config.RateLimit, s.config.RateWindow, s.metrics, s.logger)
	gh := github.NewClient(s.config.GitHubAPIURL, s.config.GitHubToken)

	authService := service.NewAuthService(s.db, s.tokens, passwords, v, s.logger)
	profileService := service.NewProfileService(s.db, s.db, s.db, v, s.logger)
	postService := service.NewPostService(s.db, s.db, v, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	profileHandler := handler.NewProfileHandler(profileService, gh, s.logger)
	postHandler := handler.NewPostHandler(postService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.Gate(s.tokens, s.logger))

		r.With(limiter.Limit("register")).Post("/users", authHandler.HandleRegister)

		r.Route("/auth", func(r chi.Router) {
			r.With(limiter.Limit("login")).Post("/", authHandler.HandleLogin)
			r.With(auth.RequireIdentity).Get("/", authHandler.HandleMe)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", profileHandler.HandleList)
			r.Get("/user/{id}", profileHandler.HandleGetByUser)
			r.Get("/github/{username}", profileHandler.HandleGitHubRepos)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireIdentity)
				r.Get("/me", profileHandler.HandleMe)
				r.Post("/", profileHandler.HandleUpsert)
				r.Delete("/", profileHandler.HandleDelete)
				r.Put("/experience", profileHandler.HandleAddExperience)
				r.Delete("/experience/{id}", profileHandler.HandleRemoveExperience)
				r.Put("/education", profileHandler.HandleAddEducation)
				r.Delete("/education/{id}", profileHandler.HandleRemoveEducation)
			})
		})

		r.Route("/posts", func(r chi.Router) {
			r.Use(auth.RequireIdentity)
			r.Get("/", postHandler.HandleList)
			r.Post("/", postHandler.HandleCreate)
			r.Get("/{id}", postHandler.HandleGetByID)
			r.Delete("/{id}", postHandler.HandleDelete)
			r.Put("/like/{id}", postHandler.HandleLike)
			r.Put("/unlike/{id}", postHandler.HandleUnlike)
			r.Post("/comment/{post_id}", postHandler.HandleAddComment)
			r.Delete("/comment/{post_id}/{comment_id}", postHandler.HandleRemoveComment)
		})
	})
}

// Handler exposes the router, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and the Redis client.
func (s *Server) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// Start serves HTTP until SIGINT or SIGTERM, then shuts down gracefully:
// stop accepting connections, give in-flight requests 30 seconds, close
// the database.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("env", s.config.Env),
			slog.String("database", s.config.DBPath),
			slog.String("token_mode", s.tokens.Mode().String()),
			slog.Bool("rate_limit", s.redis != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
