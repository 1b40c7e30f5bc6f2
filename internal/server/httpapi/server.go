// Package httpapi exposes the authentication endpoints and handles the
// session cookie on protected routes.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avolkovs/cookiegate/internal/logging"
	"github.com/avolkovs/cookiegate/internal/server/services"
	"github.com/avolkovs/cookiegate/internal/server/session"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "cg_session"

const shutdownTimeout = 5 * time.Second

type Server struct {
	addr     string
	auth     *services.AuthService
	sessions *session.Issuer
	policy   session.Policy
	logger   logging.Logger
	router   *gin.Engine
}

func NewServer(addr string, auth *services.AuthService, issuer *session.Issuer, policy session.Policy, logger logging.Logger) *Server {
	s := &Server{
		addr:     addr,
		auth:     auth,
		sessions: issuer,
		policy:   policy,
		logger:   logger.With("module", "http_server"),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.currentSession())

	r.POST("/api/login", s.handleLogin)
	r.POST("/api/logout", s.handleLogout)
	r.POST("/api/password", s.requireAuth(), s.handlePasswordChange)
	r.GET("/api/me", s.requireAuth(), s.handleMe)
	r.GET("/api/admin/users/:username", s.requireRole("Admin"), s.handleUserProfile)

	s.router = r
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{Addr: s.addr, Handler: s.router}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
