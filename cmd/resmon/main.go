package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hazz-dev/resmon/internal/cache"
	"github.com/hazz-dev/resmon/internal/check"
	"github.com/hazz-dev/resmon/internal/config"
	"github.com/hazz-dev/resmon/internal/engine"
	"github.com/hazz-dev/resmon/internal/notify"
	"github.com/hazz-dev/resmon/internal/scheduler"
	"github.com/hazz-dev/resmon/internal/server"
	"github.com/hazz-dev/resmon/internal/version"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "resmon",
		Short:        "Resource health monitor",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Optional .env for local development; missing file is fine.
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "config.yml", "config file path")

	root.AddCommand(versionCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(checkCmd())

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("resmon %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the resource monitor",
		RunE:  runServe,
	}
}

// buildService wires the engine: definitions, registry, cache, checker,
// notifier, and delivery. The returned closer releases the cache backend.
func buildService(cfg *config.Config, logger *slog.Logger) (*engine.Service, func() error, error) {
	resultCache, closeCache, err := buildCache(cfg.Cache)
	if err != nil {
		return nil, nil, err
	}

	checker := engine.NewChecker(check.Defaults(), resultCache, logger)
	notifier := notify.New(logger)

	var deliverer notify.Deliverer
	if url := cfg.Notifications.Webhook.URL; url != "" {
		deliverer = notify.NewWebhook(url, cfg.Notifications.Webhook.Cooldown.Duration, logger)
	}

	svc := engine.NewService(cfg.Resources, checker, notifier, deliverer, logger)
	return svc, closeCache, nil
}

func buildCache(cfg config.CacheConfig) (cache.Cache, func() error, error) {
	switch cfg.Backend {
	case "memory":
		return cache.NewMemory(), func() error { return nil }, nil
	case "redis":
		c, err := cache.NewRedis(cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	case "sqlite":
		c, err := cache.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q (must be memory, redis, or sqlite)", cfg.Backend)
	}
}

func loadConfig(logger *slog.Logger) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	for _, dropped := range cfg.Dropped {
		logger.Warn("dropped invalid resource definition", "reason", dropped.Error())
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := slog.Default()

	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}
	logger.Info("config loaded", "resources", len(cfg.Resources), "dropped", len(cfg.Dropped))

	svc, closeCache, err := buildService(cfg, logger)
	if err != nil {
		return fmt.Errorf("building health service: %w", err)
	}
	defer closeCache()

	sched := scheduler.New(svc, cfg.Scheduler.Interval.Duration, logger)
	apiServer := server.New(svc, cfg.Resources, logger)

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: apiServer.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	sched.Start(ctx)
	logger.Info("scheduler started", "interval", cfg.Scheduler.Interval.Duration)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.Server.Address)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("HTTP server: %w", err)
	}

	sched.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [resource]",
		Short: "Run a one-off check of all resources, or a single one",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}

	svc, closeCache, err := buildService(cfg, logger)
	if err != nil {
		return fmt.Errorf("building health service: %w", err)
	}
	defer closeCache()

	name := ""
	if len(args) == 1 {
		name = args[0]
	}
	return executeCheck(cmd.OutOrStdout(), svc, name)
}
