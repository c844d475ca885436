// Package recordsrv is a small reference server for the remote record
// collection. It serves the PostgREST-style subset the client uses, backed
// by SQLite, with HS256 bearer tokens whose subject owns the rows.
package recordsrv

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

type Server struct {
	echo   *echo.Echo
	repo   *Repository
	secret string
	log    *zap.Logger
	now    func() time.Time
}

func New(repo *Repository, secret string, opts ...Option) *Server {
	s := &Server{
		repo:   repo,
		secret: secret,
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, fn := range opts {
		fn(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(accessLog(s.log))

	e.GET("/health", s.health)

	api := e.Group("/rest/v1")
	api.Use(jwtAuth(secret))
	api.GET("/shooting_sessions", s.listSessions)
	api.POST("/shooting_sessions", s.insertSessions)
	api.PATCH("/shooting_sessions", s.updateSessions)
	api.DELETE("/shooting_sessions", s.deleteSessions)
	api.GET("/leaderboard", s.leaderboard)

	s.echo = e
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.log.Info("record server listening", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
