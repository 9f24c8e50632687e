package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bryanwahyu/pentest-report/internal/bootstrap"
	"github.com/bryanwahyu/pentest-report/internal/config"
	"github.com/bryanwahyu/pentest-report/internal/infra/httpserver"
	"github.com/bryanwahyu/pentest-report/internal/logging"
	"github.com/bryanwahyu/pentest-report/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log := logging.InitLogger(cfg.Server.LogLevel)
	defer log.Sync()

	ctx := context.Background()

	app, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("init services", zap.Error(err))
	}
	defer app.Close()

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.PerSecond, cfg.Server.RateLimit.Burst)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			limiter.Sweep(10 * time.Minute)
		}
	}()

	// init router
	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(app.Records, app.Reports, httpserver.Options{
		DownloadsDir: cfg.Storage.DownloadsDir,
		APIKeys:      cfg.Server.APIKeys,
		CORSOrigins:  cfg.Server.CORSOrigins,
		Limiter:      limiter,
		Metrics:      app.Metrics,
		Checkers:     app.Checkers,
		Log:          log.Named("http"),
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // exports with many screenshots are slow
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
}
