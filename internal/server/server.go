package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/voyager/config"
	"github.com/mohammad-safakhou/voyager/internal/brightdata"
	"github.com/mohammad-safakhou/voyager/internal/flights"
	"github.com/mohammad-safakhou/voyager/internal/jobs"
	"github.com/mohammad-safakhou/voyager/provider"
)

// Run wires the registry, pipelines and dispatcher, and serves the HTTP API
// until SIGINT/SIGTERM.
func Run(cfg *config.Config) error {
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	registry, cleanup, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	llm, err := provider.NewProvider(cfg.LLM)
	if err != nil {
		return err
	}

	flightPipeline := flights.NewPipeline(cfg.Browser, llm, log.New(log.Writer(), "[FLIGHTS] ", log.LstdFlags))
	hotelClient := brightdata.New(cfg.BrightData, log.New(log.Writer(), "[BRD] ", log.LstdFlags))
	dispatcher := jobs.NewDispatcher(registry, flightPipeline, hotelClient, log.New(log.Writer(), "[DISPATCH] ", log.LstdFlags))

	h := &SearchHandler{Dispatcher: dispatcher, LLM: llm, Logger: baseLogger}
	h.Register(e.Group("/api"))

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(cfg.Server.Address); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		baseLogger.Printf("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return err
	}

	// In-flight jobs finish on their own schedule; give them the same
	// shutdown budget before letting the process exit.
	done := make(chan struct{})
	go func() {
		dispatcher.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		baseLogger.Printf("shutdown timeout reached with jobs still in flight")
	}
	return nil
}

func buildRegistry(cfg *config.Config) (jobs.Registry, func(), error) {
	switch cfg.Registry.Backend {
	case "redis":
		reg, err := jobs.NewRedisRegistry(context.Background(), cfg.Registry.Redis, cfg.Registry.TTL)
		if err != nil {
			return nil, nil, err
		}
		return reg, func() { _ = reg.Close() }, nil
	default:
		reg := jobs.NewMemoryRegistry(cfg.Registry.TTL, log.New(log.Writer(), "[REGISTRY] ", log.LstdFlags))
		if err := reg.StartJanitor(cfg.Registry.EvictionCron); err != nil {
			return nil, nil, err
		}
		return reg, reg.Close, nil
	}
}
