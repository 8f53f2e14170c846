package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/community-directory/internal/app/mailer"
	"github.com/magabrotheeeer/community-directory/internal/config"
	"github.com/magabrotheeeer/community-directory/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.SetupLogger(cfg.Env)

	logger.Info("starting mailer", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := mailer.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize mailer", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("mailer stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("mailer stopped gracefully")
}
