// Confiabar - CNPJ trust checks for bars and restaurants.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/confiabar/confiabar/internal/api"
	"github.com/confiabar/confiabar/internal/bus"
	"github.com/confiabar/confiabar/internal/cache"
	"github.com/confiabar/confiabar/internal/domain"
	"github.com/confiabar/confiabar/internal/lookup"
	"github.com/confiabar/confiabar/internal/provider"
	"github.com/confiabar/confiabar/internal/scoring"
	"github.com/confiabar/confiabar/internal/store"
	"github.com/confiabar/confiabar/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("CONFIABAR_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting confiabar",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("CONFIABAR_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}
	applyEnvOverrides(cfg)

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"store", cfg.Store.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Store
	st, err := store.New(cfg.Store)
	if err != nil {
		slog.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	slog.Info("store initialized", "driver", cfg.Store.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize registry providers and the lookup orchestrator
	gateway, err := buildGateway(cfg.Providers, logger)
	if err != nil {
		slog.Error("failed to build provider cascade", "error", err)
		os.Exit(1)
	}
	client := provider.NewClient(cfg.Providers.RequestTimeout)
	viacep := provider.NewViaCEP(client, cfg.Providers.ViaCEPURL)
	lookupSvc := lookup.NewService(st, cacheImpl, gateway, viacep, cfg.Cache.RecordTTL, logger)
	slog.Info("lookup service initialized", "providers", cfg.Providers.Order)

	// Initialize Rule Engine
	engine, err := scoring.NewRuleEngine()
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	// Load rules from database (no hardcoded defaults - configure via API)
	if err := loadRulesFromDatabase(ctx, st, engine); err != nil {
		slog.Error("failed to load rules", "error", err)
		os.Exit(1)
	}
	slog.Info("rule engine initialized", "rules_count", engine.RulesCount())

	// Initialize stats worker
	statsWorker := worker.NewStatsWorker(busImpl, st)
	if err := statsWorker.Start(); err != nil {
		slog.Error("failed to start stats worker", "error", err)
		os.Exit(1)
	}

	// Initialize Server
	handler := api.NewHandler(st, cacheImpl, busImpl, lookupSvc, engine, Version)
	srv := api.NewServer(cfg.Server, handler)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("confiabar is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	if err := statsWorker.Stop(); err != nil {
		slog.Error("failed to stop stats worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("confiabar shutdown complete")
}

// buildGateway assembles the provider cascade in configured order.
func buildGateway(cfg domain.ProvidersConfig, logger *slog.Logger) (*provider.Gateway, error) {
	client := provider.NewClient(cfg.RequestTimeout)

	var providers []provider.Provider
	for _, id := range cfg.Order {
		switch id {
		case domain.ProviderBrasilAPI:
			providers = append(providers, provider.NewBrasilAPI(client, cfg.BrasilAPIURL))
		case domain.ProviderReceitaWS:
			providers = append(providers, provider.NewReceitaWS(client, cfg.ReceitaWSURL))
		default:
			return nil, fmt.Errorf("unknown provider id %q", id)
		}
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no registry providers configured")
	}

	return provider.NewGateway(logger, providers...), nil
}

// loadRulesFromDatabase loads alert rules from the database into the engine.
// All rules must be configured via POST /rules API - no hardcoded defaults.
func loadRulesFromDatabase(ctx context.Context, st domain.Store, engine *scoring.RuleEngine) error {
	dbRules, err := st.ListAlertRules(ctx)
	if err != nil {
		slog.Warn("failed to list rules from database", "error", err)
		return nil // Start with empty rules - they can be added via API
	}

	if len(dbRules) > 0 {
		slog.Info("loading alert rules from database", "count", len(dbRules))
		return engine.ReloadRules(dbRules)
	}

	slog.Info("no alert rules in database - configure via POST /rules API")
	return nil
}

// applyEnvOverrides tweaks the tier defaults from the environment.
func applyEnvOverrides(cfg *domain.Config) {
	if v := os.Getenv("CONFIABAR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CONFIABAR_SQLITE_PATH"); v != "" {
		cfg.Store.SQLitePath = v
	}
	if v := os.Getenv("CONFIABAR_POSTGRES_HOST"); v != "" {
		cfg.Store.PostgresHost = v
	}
	if v := os.Getenv("CONFIABAR_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("CONFIABAR_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  confiabar - trust checks for bars and restaurants")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    GET  /lookup/{cnpj}                      - Look up a CNPJ in the registry")
	fmt.Println("    GET  /score/{cnpj}                       - Trust score with signals")
	fmt.Println("    GET  /cep/{cep}                          - Resolve a postal code")
	fmt.Println("    POST /establishments/{cnpj}/reports      - Submit a community report")
	fmt.Println("    GET  /establishments/{cnpj}/reports      - List reports and aggregates")
	fmt.Println("    POST /establishments/{cnpj}/penalties    - Register a penalty")
	fmt.Println("    GET  /history                            - Recent searches")
	fmt.Println("    GET  /stats                              - Aggregate stats snapshot")
	fmt.Println("    GET  /export                             - Data export")
	fmt.Println("    GET  /rules                              - List alert rules")
	fmt.Println("    POST /rules                              - Create an alert rule")
	fmt.Println("    POST /rules/reload                       - Hot-reload rules from database")
	fmt.Println("    GET  /health                             - Health check")
	fmt.Println()
}
