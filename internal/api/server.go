package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"

	"portfoliolab/internal/analytics"
	"portfoliolab/internal/store"
	"portfoliolab/internal/utils"
)

// Server handles HTTP requests for authentication, the stock catalog and the
// portfolio endpoints.
type Server struct {
	router   *mux.Router
	logger   utils.Logger
	config   *utils.Config
	store    *store.Store
	engine   *analytics.Engine
	sessions *sessions.CookieStore
}

// NewServer creates and initializes a new API server instance.
func NewServer(logger utils.Logger, config *utils.Config, st *store.Store, engine *analytics.Engine) *Server {
	cookieStore := sessions.NewCookieStore([]byte(config.Session.Secret))
	cookieStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   config.Session.MaxAge,
		HttpOnly: true,
		Secure:   config.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	server := &Server{
		router:   mux.NewRouter(),
		logger:   logger,
		config:   config,
		store:    st,
		engine:   engine,
		sessions: cookieStore,
	}

	server.setupMiddleware()
	server.setupRoutes()
	return server
}

// setupRoutes configures APIs for the server.
func (s *Server) setupRoutes() {
	s.logger.Debug("Setting up routes...")

	// Auth and session routes
	s.router.HandleFunc("/register", s.Register).Methods("POST")
	s.router.HandleFunc("/login", s.Login).Methods("POST")
	s.router.HandleFunc("/logout", s.Logout).Methods("POST")
	s.router.HandleFunc("/current_user", s.CurrentUser).Methods("GET")

	// Stock and reference data routes
	s.router.HandleFunc("/stocks", s.GetSymbols).Methods("GET")
	s.router.HandleFunc("/health", s.healthCheck).Methods("GET")

	apiRouter := s.router.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/stocks", s.GetStocks).Methods("GET")
	apiRouter.HandleFunc("/stocks", s.AddStock).Methods("POST")
	apiRouter.HandleFunc("/companies", s.GetCompanies).Methods("GET")
	apiRouter.HandleFunc("/metrics", s.GetMetrics).Methods("GET")
	apiRouter.HandleFunc("/data", s.GetData).Methods("GET")
	apiRouter.HandleFunc("/company/prices/{id:[0-9]+}", s.GetCompanyPrices).Methods("GET")
	apiRouter.HandleFunc("/company/stats/{id:[0-9]+}", s.GetCompanyStats).Methods("GET")

	// Portfolio routes
	apiRouter.HandleFunc("/portfolio", s.GetPortfolio).Methods("GET")
	apiRouter.HandleFunc("/portfolio/add", s.AddToPortfolio).Methods("POST")
	apiRouter.HandleFunc("/portfolio/update/{id:[0-9]+}", s.UpdatePortfolioStock).Methods("PUT")
	apiRouter.HandleFunc("/portfolio/delete/{id:[0-9]+}", s.DeleteFromPortfolio).Methods("DELETE")

	s.logger.Info("Routes setup completed")
}

// setupMiddleware wires CORS and request logging. Cookie credentials require
// echoing the caller's origin rather than a wildcard.
func (s *Server) setupMiddleware() {
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && s.originAllowed(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding")
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			s.logger.Debug("Request completed: %s %s (%v)", r.Method, r.URL.Path, time.Since(start))
		})
	})
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.config.Server.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.config.Server.AllowedOrigins {
		if allowed == origin || allowed == "*" {
			return true
		}
	}
	return false
}

// Start begins listening for HTTP requests and blocks until shutdown.
func (s *Server) Start() error {
	s.logger.Info("Starting API server on port %s", s.config.Server.Port)

	srv := &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening on http://localhost:%s", s.config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
		s.logger.Info("Shutdown signal received")
	}

	s.logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Error("Server shutdown failed: %v", err)
		return err
	}

	s.logger.Info("Server stopped gracefully")
	return nil
}

// Router exposes the handler tree for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		s.respondWithError(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": "1.0.0",
	})
}
