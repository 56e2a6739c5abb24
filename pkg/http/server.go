package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"CryptoRNN/pkg/http/middleware"
	applogger "CryptoRNN/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerOption configures Server.
type ServerOption func(*ServerConfig)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	SlowThreshold   time.Duration
	Logger          *applogger.Logger
	Limiter         middleware.Limiter
	SweepInterval   time.Duration
	IdleAge         time.Duration
}

// Server wraps Echo HTTP server.
type Server struct {
	echo   *echo.Echo
	config *ServerConfig
	addr   string
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewServer creates a new HTTP server with Echo and mounts /metrics.
func NewServer(handler Handler, opts ...ServerOption) *Server {
	cfg := &ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		SlowThreshold:   time.Second,
		Logger:          applogger.Nop(),
		SweepInterval:   time.Minute,
		IdleAge:         10 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(middleware.Recover(cfg.Logger))
	e.Use(middleware.RequestLogging(cfg.Logger))
	e.Use(middleware.Metrics(cfg.Logger, cfg.SlowThreshold))
	if cfg.Limiter != nil {
		e.Use(middleware.RateLimit(cfg.Logger, cfg.Limiter))
	}

	if handler != nil {
		handler.RegisterRoutes(e)
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return &Server{
		echo:   e,
		config: cfg,
		addr:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
}

// Start binds the listener synchronously and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.echo.Listener = ln

	if s.config.Limiter != nil && s.config.SweepInterval > 0 {
		s.stop = make(chan struct{})
		s.wg.Add(1)
		go s.sweep(s.stop)
	}

	go func() {
		s.config.Logger.Info("http server listening", applogger.String("addr", ln.Addr().String()))
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.config.Logger.Error("http server error", applogger.Error(err))
		}
	}()
	return nil
}

// sweep forgets idle limiter buckets until stop is closed.
func (s *Server) sweep(stop <-chan struct{}) {
	defer s.wg.Done()
	t := time.NewTicker(s.config.SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if n := s.config.Limiter.Forget(s.config.IdleAge); n > 0 {
				s.config.Logger.Debug("rate limiter swept", applogger.Int("keys", n))
			}
		}
	}
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.stop != nil {
		close(s.stop)
		s.wg.Wait()
		s.stop = nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.config.Logger.Info("http server stopped")
	return nil
}

// WithHost sets server host.
func WithHost(host string) ServerOption {
	return func(c *ServerConfig) {
		c.Host = host
	}
}

// WithPort sets server port.
func WithPort(port int) ServerOption {
	return func(c *ServerConfig) {
		c.Port = port
	}
}

// WithTimeouts sets read/write/shutdown timeouts.
func WithTimeouts(read, write, shutdown time.Duration) ServerOption {
	return func(c *ServerConfig) {
		c.ReadTimeout = read
		c.WriteTimeout = write
		c.ShutdownTimeout = shutdown
	}
}

// WithLogger sets the request and lifecycle logger.
func WithLogger(l *applogger.Logger) ServerOption {
	return func(c *ServerConfig) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithRateLimiter limits requests per client IP. Every sweep interval the
// server forgets clients idle for longer than idle. A zero sweep disables it.
func WithRateLimiter(l middleware.Limiter, sweep, idle time.Duration) ServerOption {
	return func(c *ServerConfig) {
		c.Limiter = l
		c.SweepInterval = sweep
		if idle > 0 {
			c.IdleAge = idle
		}
	}
}
