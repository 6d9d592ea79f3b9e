package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goliatone/go-subscriptions/core"
	"github.com/goliatone/go-subscriptions/graph"
	"github.com/spf13/cobra"
)

const (
	accessTokenEnv  = "SUBSCRIPTIONS_ACCESS_TOKEN"
	shutdownTimeout = 10 * time.Second
)

type serveFlags struct {
	addr        string
	accessToken string
}

func newServeCommand(root *rootFlags) *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook receiver, worker and renewal schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, root, flags)
		},
	}
	cmd.Flags().StringVar(&flags.addr, "addr", "", "http listen address")
	cmd.Flags().StringVar(&flags.accessToken, "access-token", "", "provider bearer token (defaults to $"+accessTokenEnv+")")
	return cmd
}

func runServe(ctx context.Context, root *rootFlags, flags *serveFlags) error {
	logger := newLogger(os.Stderr, root.verbose)
	cfg, err := loadConfig(ctx, root, core.Config{HTTP: core.HTTPConfig{Addr: flags.addr}})
	if err != nil {
		return err
	}

	token := strings.TrimSpace(flags.accessToken)
	if token == "" {
		token = strings.TrimSpace(os.Getenv(accessTokenEnv))
	}
	if token == "" {
		return fmt.Errorf("go-subscriptions: access token is required (--access-token or $%s)", accessTokenEnv)
	}

	a, err := newApp(ctx, cfg, appOptions{
		Logger:         logger,
		LoggerProvider: logger,
		Tokens:         graph.StaticTokenSource(token),
	})
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	err = a.Run(ctx, srv)
	logger.Info("shutting down", "service", cfg.ServiceName)
	return err
}

// loadConfig layers defaults, SUBSCRIPTIONS_* environment values and the
// command line flags, in that order.
func loadConfig(ctx context.Context, root *rootFlags, runtime core.Config) (core.Config, error) {
	runtime.Persistence = core.PersistenceConfig{Driver: root.driver, DSN: root.dsn}
	cfg, err := core.LoadConfig(ctx, core.NewCfgxConfigProvider(core.NewEnvRawConfigLoader()), nil, runtime)
	if err != nil {
		return core.Config{}, fmt.Errorf("go-subscriptions: load config: %w", err)
	}
	return cfg, nil
}
