package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/overhuman/replyd/internal/daemon"
	"github.com/overhuman/replyd/internal/httpapi"
	"github.com/overhuman/replyd/internal/observability"
)

type serveFlags struct {
	addr    string
	pidFile string
}

func newServeCmd(root *rootFlags) *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serves POST /user-summary, POST /generate-reply, POST /generate-embeddings
and GET /health until SIGINT or SIGTERM. In-flight requests get 5s to finish.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), root.configPath, flags)
		},
	}
	cmd.Flags().StringVar(&flags.addr, "addr", "", "Listen address (overrides config and REPLYD_ADDR)")
	cmd.Flags().StringVar(&flags.pidFile, "pidfile", "", "Write the server PID here and refuse to start if another server holds it")
	return cmd
}

func runServe(ctx context.Context, configPath string, flags serveFlags) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if flags.addr != "" {
		cfg.Addr = flags.addr
	}
	logger := newLogger(cfg, os.Stderr)

	if flags.pidFile != "" {
		pf := daemon.NewPIDFile(flags.pidFile)
		if err := pf.Acquire(); err != nil {
			return err
		}
		defer pf.Release()
	}

	enabled, err := observability.InitSentry(observability.SentryConfig{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		Release:     appName + "@" + version,
	})
	if err != nil {
		return err
	}
	if enabled {
		logger.Info("sentry enabled", "environment", cfg.Sentry.Environment)
		defer observability.FlushSentry(2 * time.Second)
	}

	p, err := bootstrap(cfg, logger)
	if err != nil {
		return err
	}
	srv := httpapi.New(p, httpapi.Options{
		Addr:         cfg.Addr,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Version:      version,
		Logger:       logger,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return srv.Stop()
	})
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
