// Package web serves the calendar views as JSON over HTTP.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"eventcal/internal/config"
	appLog "eventcal/internal/log"
	"eventcal/internal/metrics"
	"eventcal/internal/views"
)

const shutdownTimeout = 10 * time.Second

// Server routes HTTP requests to the calendar views.
type Server struct {
	cfg     *config.Config
	debug   bool
	views   *views.Views
	metrics *metrics.Metrics
	engine  *gin.Engine
}

// NewServer constructs a new Server. m may be a disabled metrics instance.
func NewServer(cfg *config.Config, v *views.Views, m *metrics.Metrics, debug bool) *Server {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:     cfg,
		debug:   debug,
		views:   v,
		metrics: m,
		engine:  gin.New(),
	}
	s.engine.Use(gin.Recovery(), requestID(), s.observe())
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+cfg.Listen)
		s.engine.Use(s.basicAuth())
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)
	if s.metrics.Enabled() {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	events := s.engine.Group("/events")
	events.GET("/", s.handleCalendarList)

	cal := events.Group("/:calendar_slug")
	cal.GET("/", s.handleEventList)
	cal.GET("/past/", s.handlePastEventList)
	cal.GET("/year/:year/month/:month/day/:day/", s.handleEventListByDate)
	cal.GET("/categories/", s.handleEventCategoryList)
	cal.GET("/categories/:slug/", s.handleEventListByCategory)
	cal.GET("/locations/", s.handleEventLocationList)
	cal.GET("/locations/:pk/", s.handleEventListByLocation)
	cal.GET("/:pk/", s.handleEventDetail)

	s.engine.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "not found")
	})
}

// StartServer serves on cfg.Listen until ctx is cancelled, then shuts
// down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, v *views.Views, m *metrics.Metrics, debug bool) error {
	s := NewServer(cfg, v, m, debug)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen, "debug", debug)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	appLog.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
