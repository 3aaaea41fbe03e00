package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/zosmf-probe/internal/cli"
	"github.com/samvad-hq/zosmf-probe/internal/config"
	"github.com/samvad-hq/zosmf-probe/internal/logger"
	"github.com/samvad-hq/zosmf-probe/pkg/zosmf"
)

func main() {
	if err := run(); err != nil {
		if !errors.Is(err, cli.ErrAlreadyHandled) {
			fmt.Fprintf(os.Stderr, "zosmf-probe failed: %v\n", err)
		}
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.DebugObj("zosmf-probe starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checker := zosmf.NewCheckStatus(
		zosmf.WithTimeout(cfg.RequestTimeout),
		zosmf.WithLogger(log),
		zosmf.WithTransportLogger(log.Sugar()),
	)

	return cli.Execute(ctx, &cli.Deps{
		Config:  cfg,
		Log:     log,
		Checker: checker,
	}, os.Args[1:])
}
