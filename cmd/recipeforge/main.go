// Package main runs the RecipeForge recipe generation service
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alchemorsel/recipeforge/internal/infrastructure/config"
	"github.com/alchemorsel/recipeforge/internal/infrastructure/container"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: search config.yaml)")
	flag.Parse()

	os.Exit(run(*configPath))
}

func run(configPath string) int {
	var shutdownTimeout time.Duration

	app := fx.New(
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx").WithOptions(zap.IncreaseLevel(zap.WarnLevel))}
		}),
		container.Options(configPath),
		fx.Invoke(func(cfg *config.Config) {
			shutdownTimeout = cfg.Server.ShutdownTimeout
		}),
	)
	if err := app.Err(); err != nil {
		log.Printf("Failed to build application: %v", err)
		return 1
	}

	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(ctx, 15*time.Second)
	defer startCancel()
	if err := app.Start(startCtx); err != nil {
		log.Printf("Failed to start RecipeForge: %v", err)
		return 1
	}

	// Wait for a signal or an fx shutdown request
	exitCode := 0
	select {
	case <-ctx.Done():
	case sig := <-app.Wait():
		exitCode = sig.ExitCode
	}

	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		log.Printf("Failed to stop RecipeForge gracefully: %v", err)
		exitCode = 1
	}
	return exitCode
}
