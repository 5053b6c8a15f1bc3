package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"veria-hq/arbiter/pkg/audit"
	"veria-hq/arbiter/pkg/cache"
	"veria-hq/arbiter/pkg/cli"
	"veria-hq/arbiter/pkg/config"
	"veria-hq/arbiter/pkg/gateway"
	"veria-hq/arbiter/pkg/policy"
	"veria-hq/arbiter/pkg/ratelimit"
	"veria-hq/arbiter/pkg/rules"
	"veria-hq/arbiter/pkg/server"
	"veria-hq/arbiter/pkg/telemetry/logging"
	"veria-hq/arbiter/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the decision engine server",
	Long: `Start the decision engine server with the specified configuration.

The server enforces the access policy ruleset on the compliance API, keeps
the compliance rule set hot-reloaded, and records every decision to the
audit store.

Examples:
  # Start with default config
  arbiter run

  # Start with custom config
  arbiter run --config /etc/arbiter/config.yaml

  # Override listen address
  arbiter run --listen 0.0.0.0:8080

  # Validate config without starting server
  arbiter run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger := logging.Setup(&cfg.Telemetry.Logging)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Arbiter v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
	}

	// Audit store
	var store audit.Store
	switch cfg.Audit.Backend {
	case "sqlite":
		sqliteConfig := &audit.SQLiteConfig{
			Path:        cfg.Audit.SQLite.Path,
			Driver:      cfg.Audit.SQLite.Driver,
			WALMode:     cfg.Audit.SQLite.WALMode,
			BusyTimeout: cfg.Audit.SQLite.BusyTimeout,
		}
		store, err = audit.NewSQLiteStore(sqliteConfig)
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
	case "memory":
		store = audit.NewMemoryStore()
	default:
		return fmt.Errorf("unsupported audit backend: %s", cfg.Audit.Backend)
	}
	defer store.Close()
	fmt.Printf("✓ Audit store initialized (%s)\n", cfg.Audit.Backend)

	// Retention scheduler
	if cfg.Audit.Retention.PruneSchedule != "" {
		retentionConfig := &audit.RetentionConfig{
			RetentionDays: cfg.Audit.Retention.RetentionDays,
			MaxRecords:    cfg.Audit.Retention.MaxRecords,
			PruneSchedule: cfg.Audit.Retention.PruneSchedule,
		}
		pruner := audit.NewPruner(store, retentionConfig)
		scheduler := audit.NewScheduler(pruner)
		if err := scheduler.Start(ctx); err != nil {
			logger.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer scheduler.Stop()
		}
	}

	// Compliance rule engine
	var ruleSource rules.Source = rules.NewFileSource(
		rules.DefaultFileSourceConfig(cfg.Rules.Path), logger)
	if !cfg.Rules.Watch {
		// Hide the Watch method so auto-reload sticks to the ticker.
		ruleSource = struct{ rules.Source }{ruleSource}
	}
	engineConfig := &rules.EngineConfig{
		RingCapacity:    cfg.Rules.RingCapacity,
		AuditBuffer:     cfg.Rules.AuditBuffer,
		LoadTimeout:     cfg.Rules.LoadTimeout,
		RefreshInterval: cfg.Rules.RefreshInterval,
	}
	engine := rules.NewEngine(engineConfig, ruleSource, store, logger)
	defer engine.Close()
	if collector != nil {
		engine.SetMetrics(collector)
	}
	engine.StartAutoReload(ctx)
	fmt.Printf("✓ Rule engine loaded (%d rules)\n", len(engine.Rules()))

	// Policy ruleset provider
	loader := &policy.FileLoader{Path: cfg.Policy.RulesetPath}
	provider := policy.NewProvider(&policy.ProviderConfig{
		TTL:         cfg.Policy.CacheTTL,
		LoadTimeout: cfg.Policy.LoadTimeout,
	}, loader, logger)
	if cfg.Policy.Watch {
		go func() {
			if err := provider.WatchFile(ctx, cfg.Policy.RulesetPath); err != nil {
				logger.Warn("policy file watch stopped", "error", err)
			}
		}()
	}

	// Decision cache and rate limiter
	decisionCache := cache.New(&cache.Config{
		MaxSize:       cfg.Cache.MaxSize,
		DefaultTTL:    cfg.Cache.DefaultTTL,
		SweepInterval: cfg.Cache.SweepInterval,
	})
	defer decisionCache.Close()

	limiter := ratelimit.NewFixedWindowLimiter()
	go pruneLimiter(ctx, limiter)

	// Gateway
	gw := gateway.New(gateway.Config{
		Provider:            provider,
		Cache:               decisionCache,
		Limiter:             limiter,
		Sink:                store,
		Metrics:             gatewayMetrics(collector),
		DefaultJurisdiction: cfg.Policy.DefaultJurisdiction,
	}, logger)

	// HTTP server
	var metricsHandler = gatewayMetricsHandler(collector)
	srv := server.NewServer(&cfg.Server, engine, gw, metricsHandler, logger)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Server.ListenAddress)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
			return cli.NewCommandError("run", err)
		}

		fmt.Println("✓ Server stopped")
		return nil
	}
}

// pruneLimiter drops idle rate-limit keys so the key map stays bounded under
// churning identities.
func pruneLimiter(ctx context.Context, limiter *ratelimit.FixedWindowLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Prune(10 * time.Minute)
		}
	}
}

// gatewayMetrics adapts the collector to the gateway without handing it a
// typed-nil interface when metrics are disabled.
func gatewayMetrics(collector *metrics.Collector) gateway.MetricsRecorder {
	if collector == nil {
		return nil
	}
	return collector
}

func gatewayMetricsHandler(collector *metrics.Collector) http.Handler {
	if collector == nil {
		return nil
	}
	return collector.Handler()
}
