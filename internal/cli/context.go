// Package cli implements the habitlens commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/j-veylop/habitlens/internal/config"
	"github.com/j-veylop/habitlens/internal/logger"
	"github.com/j-veylop/habitlens/internal/metrics"
	"github.com/j-veylop/habitlens/internal/services"
)

// Context carries what every command needs. Config is loaded lazily so that
// commands such as keyring work with an incomplete configuration.
type Context struct {
	Ctx        context.Context
	In         io.Reader
	Out        io.Writer
	LoadConfig func() (*config.Config, error)

	// Options are passed to every manager this context opens.
	Options []services.Option

	cfg     *config.Config
	mgr     *services.Manager
	closers []io.Closer
}

// Config loads the configuration once.
func (c *Context) Config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := c.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	c.cfg = cfg

	if cfg.LogDir != "" {
		closer, err := logger.Init(logger.Config{Dir: cfg.LogDir, Debug: cfg.Debug})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logging: %w", err)
		}
		c.closers = append(c.closers, closer)
	}
	return cfg, nil
}

// Manager opens the service manager once, together with the metrics server
// when one is configured. It is closed by Close.
func (c *Context) Manager() (*services.Manager, error) {
	if c.mgr != nil {
		return c.mgr, nil
	}
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}

	opts := append([]services.Option(nil), c.Options...)
	if cfg.MetricsAddr != "" {
		exporter := metrics.New()
		opts = append(opts, services.WithMetrics(exporter))
		c.closers = append(c.closers, serveMetrics(cfg.MetricsAddr, exporter))
	}

	mgr, err := services.NewManager(c.Ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	c.mgr = mgr
	c.closers = append(c.closers, mgr)
	return mgr, nil
}

// Close releases everything opened through the context, newest first.
func (c *Context) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	c.mgr = nil
	return errors.Join(errs...)
}

type metricsServer struct {
	srv *http.Server
}

// serveMetrics exposes the exporter on addr under /metrics.
func serveMetrics(addr string, exporter *metrics.Exporter) *metricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter.Handler())
	s := &metricsServer{srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}}

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", "addr", addr, "error", err)
		}
	}()
	logger.Info("Serving metrics", "addr", addr)
	return s
}

func (s *metricsServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
