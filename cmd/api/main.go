package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/vaultpass/passgen-go/internal/config"
	"github.com/vaultpass/passgen-go/internal/crypto"
	"github.com/vaultpass/passgen-go/internal/handler"
	"github.com/vaultpass/passgen-go/internal/middleware"
	"github.com/vaultpass/passgen-go/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := config.Load()

	src, err := crypto.NewSource(cfg.RandomSource)
	if err != nil {
		slog.Error("random source unavailable", "source", cfg.RandomSource, "error", err)
		os.Exit(1)
	}

	genService := service.NewGeneratorService(crypto.NewGenerator(src), service.Limits{
		DefaultLength: cfg.DefaultLength,
		MinLength:     cfg.MinLength,
		MaxLength:     cfg.MaxLength,
		MaxCount:      cfg.MaxCount,
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var limiter *middleware.IPRateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		go limiter.Run(ctx, time.Minute)
	} else {
		slog.Warn("rate limiting disabled")
	}

	r := handler.NewRouter(handler.RouterOptions{
		Generator: genService,
		Defaults:  cfg.DefaultClasses,
		Session: service.SessionOptions{
			Selection:       cfg.DefaultClasses,
			Length:          cfg.DefaultLength,
			LoadingDelay:    cfg.LoadingDelay,
			FeedbackTimeout: cfg.FeedbackTimeout,
			AutoRegenerate:  cfg.AutoRegenerate,
		},
		RateLimiter: limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env, "config", cfg.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
