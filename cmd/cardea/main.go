// Cardea - rule-driven health risk assessment service.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/openhealth-tools/cardea/internal/advice"
	"github.com/openhealth-tools/cardea/internal/api"
	"github.com/openhealth-tools/cardea/internal/assess"
	"github.com/openhealth-tools/cardea/internal/bus"
	"github.com/openhealth-tools/cardea/internal/cache"
	"github.com/openhealth-tools/cardea/internal/config"
	"github.com/openhealth-tools/cardea/internal/domain"
	"github.com/openhealth-tools/cardea/internal/history"
	"github.com/openhealth-tools/cardea/internal/repository"
	"github.com/openhealth-tools/cardea/internal/risk"
	"github.com/openhealth-tools/cardea/internal/rulestore"
	"github.com/openhealth-tools/cardea/internal/worker"
)

// Set at build time via ldflags.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ./cardea.yaml if present)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging)

	slog.Info("starting cardea",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"rules_source", cfg.Rules.Source,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	store, err := buildRuleStore(ctx, cfg, repo)
	if err != nil {
		slog.Error("failed to initialize rule store", "error", err)
		os.Exit(1)
	}

	ruleSet, err := store.Rules(ctx)
	if err != nil {
		slog.Error("failed to load rule tables", "error", err)
		os.Exit(1)
	}
	adviceSet, _ := store.AdviceRules(ctx)
	slog.Info("rule tables loaded",
		"rule_count", ruleSet.Len(),
		"advice_count", adviceSet.Len(),
		"categories", len(ruleSet.Categories()),
	)

	// Assessment pipeline
	engine := risk.NewEngine(store)
	advisor := advice.New(store, engine.Evaluator())
	processor := assess.NewProcessor(engine, advisor)
	hist := history.NewService(repo, cacheImpl)
	slog.Info("assessment pipeline initialized")

	// Async scoring is a Pro feature but can be forced on for testing
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("CARDEA_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, repo, processor, hist)
		if err := asyncWorker.Start(); err != nil {
			slog.Error("failed to start async worker", "error", err)
		}
	}

	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, store, engine, processor, hist, Version)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("cardea is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	// The worker unsubscribes before the HTTP server drains
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("cardea shutdown complete")
}

// setupLogger configures the default slog logger from config. A file
// target gets size-based rotation via lumberjack.
func setupLogger(cfg domain.LoggingConfig) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
			Compress:   true,
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// buildRuleStore wires the store to CSV files or the repository. A
// repository source with empty tables is seeded from the CSV paths when
// they are configured, so a Pro deployment bootstraps from the same
// files the Community tier reads directly.
func buildRuleStore(ctx context.Context, cfg *domain.Config, repo domain.Repository) (*rulestore.Store, error) {
	switch cfg.Rules.Source {
	case "csv":
		return rulestore.New(&rulestore.CSVSource{
			HealthRulesPath: cfg.Rules.HealthRulesPath,
			AdviceRulesPath: cfg.Rules.AdviceRulesPath,
		}), nil

	case "repository":
		existing, err := repo.ListRules(ctx)
		if err != nil {
			return nil, err
		}
		if len(existing) == 0 && cfg.Rules.HealthRulesPath != "" {
			csvSource := &rulestore.CSVSource{
				HealthRulesPath: cfg.Rules.HealthRulesPath,
				AdviceRulesPath: cfg.Rules.AdviceRulesPath,
			}
			if err := rulestore.SeedFromCSV(ctx, csvSource, repo); err != nil {
				return nil, fmt.Errorf("seeding rule tables: %w", err)
			}
			slog.Info("rule tables seeded from csv",
				"health_rules", cfg.Rules.HealthRulesPath,
				"advice_rules", cfg.Rules.AdviceRulesPath,
			)
		}
		return rulestore.New(&rulestore.RepositorySource{Repo: repo}), nil

	default:
		return nil, fmt.Errorf("unsupported rules source: %s", cfg.Rules.Source)
	}
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ==============================================")
	fmt.Println("                   CARDEA")
	fmt.Println("        Health Risk Assessment Engine")
	fmt.Println("  ==============================================")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /analyze                 - Assess a metrics snapshot")
	fmt.Println("    GET  /patients/{id}/history   - Risk and metric trends")
	fmt.Println("    GET  /patients/{id}/latest    - Latest record + assessment")
	fmt.Println("    GET  /rules                   - List scoring rules")
	fmt.Println("    GET  /advice-rules            - List advice rules")
	fmt.Println("    POST /rules/reload            - Hot-reload rule tables")
	fmt.Println("    GET  /health                  - Health check")
	fmt.Println()
}
