package main

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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/sync/errgroup"

	rag_http "rubric-orchestrator/internal/adapter/rag_http"
	"rubric-orchestrator/internal/di"
	"rubric-orchestrator/internal/infra/config"
	"rubric-orchestrator/internal/infra/logger"
	"rubric-orchestrator/internal/infra/otel"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. OpenTelemetry
	otelCfg := otel.ConfigFromEnv("rubric-orchestrator")
	otelShutdown, err := otel.InitProvider(ctx, otelCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize OpenTelemetry: %v\n", err)
		otelCfg.Enabled = false
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if otelShutdown != nil {
			_ = otelShutdown(shutdownCtx)
		}
	}()

	// 2. Logger
	log := logger.New(logger.Options{
		Level:       os.Getenv("LOG_LEVEL"),
		ServiceName: otelCfg.ServiceName,
		EnableOTel:  otelCfg.Enabled,
	})
	slog.SetDefault(log)

	// 3. Config
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid_configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Components
	app, err := di.NewApplicationComponents(ctx, cfg, log)
	if err != nil {
		log.Error("failed_to_wire_components", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer app.Close()

	// 5. Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if otelCfg.Enabled {
		e.Use(otelecho.Middleware(otelCfg.ServiceName))
	}
	e.Use(middleware.RequestID())
	e.Use(rag_http.RequestIDContext())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			reqCtx := c.Request().Context()
			if v.Error == nil {
				log.InfoContext(reqCtx, "request_completed",
					slog.String("method", v.Method),
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.Int64("latency_ms", v.Latency.Milliseconds()))
			} else {
				log.ErrorContext(reqCtx, "request_failed",
					slog.String("method", v.Method),
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.Int64("latency_ms", v.Latency.Milliseconds()),
					slog.String("error", v.Error.Error()))
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())

	limiter := rag_http.NewRateLimiter(ctx, cfg.Server.RateLimitPerMinute, cfg.Server.RateLimitBurst)
	rag_http.RegisterRoutes(e, app.Handler, limiter.Middleware())

	// 6. Worker
	if app.Worker != nil {
		app.Worker.Start()
	}

	// 7. Serve until signalled
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Info("starting_server", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting_down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()
		err := e.Shutdown(shutdownCtx)
		if app.Worker != nil {
			app.Worker.Stop()
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server_exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
