// Package server wires the application together: it builds the dependency
// graph (database → repositories → services → handlers), defines the route
// table, and owns the HTTP server lifecycle.
//
// This is the composition root — nothing else constructs dependencies, and
// there is no ambient global state anywhere in the application.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/devconnect/internal/auth"
	"github.com/sakif/devconnect/internal/config"
	"github.com/sakif/devconnect/internal/handler"
	"github.com/sakif/devconnect/internal/middleware"
	sqliteRepo "github.com/sakif/devconnect/internal/repository/sqlite"
	"github.com/sakif/devconnect/internal/service"
)

// Server holds the router and the resources it owns. The database
// connection is closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New builds the full dependency graph and route table.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	render, err := handler.NewRenderer(s.config.TemplateDir, s.config.SessionSecret, s.logger)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	// Repositories share one connection pool; services share the logger.
	users := s.db.Users()
	posts := s.db.Posts()
	edges := s.db.Connections()

	passwords := auth.NewPasswordService()
	accountService := service.NewAccountService(users, passwords, tokens, s.logger)
	connectionService := service.NewConnectionService(edges, users, s.logger)
	postService := service.NewPostService(posts, s.logger)

	var github *auth.GitHubProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	} else {
		s.logger.Warn("GitHub OAuth not configured — running with local accounts only")
	}

	authHandler := handler.NewAuthHandler(accountService, github, render, s.logger)
	pageHandler := handler.NewPageHandler(accountService, render, s.logger)
	profileHandler := handler.NewProfileHandler(accountService, postService, connectionService, render, s.logger)
	connectionHandler := handler.NewConnectionHandler(accountService, connectionService, render, s.logger)
	postHandler := handler.NewPostHandler(accountService, postService, render, s.logger)

	// Public pages. OptionalAuth lets /login and /register bounce
	// already-authenticated browsers back home.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))

		r.Get("/", pageHandler.HandleHome)
		r.Get("/help", pageHandler.HandleHelp)
		r.Get("/about", pageHandler.HandleAbout)
		r.Get("/register", authHandler.HandleRegisterForm)
		r.Post("/register", authHandler.HandleRegister)
		r.Get("/login", authHandler.HandleLoginForm)
		r.Post("/login", authHandler.HandleLogin)
		r.Get("/logout", authHandler.HandleLogout)

		if github != nil {
			r.Get("/auth/github", authHandler.HandleGitHubLogin)
			r.Get("/github", authHandler.HandleGitHubCallback)
		}
	})

	// Everything below requires a valid session.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/profile", profileHandler.HandleOwnProfile)
		r.Post("/profile", profileHandler.HandleCreatePost)
		r.Get("/profile/{username}", profileHandler.HandleUserProfile)

		r.Get("/connections", connectionHandler.HandleConnections)
		r.Post("/connections", connectionHandler.HandleConnections)
		r.Post("/connections/send_request/{username}", connectionHandler.HandleSendRequest)
		r.Post("/connections/accept_request/{username}", connectionHandler.HandleAcceptRequest)
		r.Post("/connections/decline_request/{username}", connectionHandler.HandleDeclineRequest)
		r.Post("/connections/remove_connection/{username}", connectionHandler.HandleRemoveConnection)

		r.Get("/feed", postHandler.HandleFeed)
		r.Post("/feed", postHandler.HandleFeedPost)
		r.Get("/like/{postID}/{action}", postHandler.HandleLike)
		r.Get("/comments/delete", postHandler.HandleDeletePost)
		r.Post("/delete", postHandler.HandleDeleteAccount)
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests (30s
// budget), close the database.
func (s *Server) Start() error {
	defer s.db.Close()

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
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
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

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
