// Command solace runs the therapeutic conversation service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"solace/pkg/catalog"
	"solace/pkg/config"
	"solace/pkg/controller"
	"solace/pkg/llm/factory"
	"solace/pkg/logx"
	"solace/pkg/metrics"
	"solace/pkg/persistence"
	"solace/pkg/version"
)

const (
	modeServe   = "serve"
	modeChat    = "chat"
	modeSeed    = "seed"
	modeSecrets = "secrets"
)

func main() {
	var (
		mode        = flag.String("mode", modeServe, "serve | chat | seed | secrets")
		configPath  = flag.String("config", "", "Path to a JSON config file (optional)")
		envFile     = flag.String("env", ".env", "dotenv file loaded before config")
		dir         = flag.String("dir", ".", "Directory holding .solace/secrets.json.enc")
		userID      = flag.String("user", "local", "User ID for chat mode")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("solace %s\n", version.Get())
		return
	}

	os.Exit(run(*mode, *configPath, *envFile, *dir, *userID))
}

// run holds the program body so deferred cleanup executes before os.Exit.
func run(mode, configPath, envFile, dir, userID string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", envFile, err)
		return 1
	}

	if mode == modeSecrets {
		if err := writeSecrets(dir, os.Stdin); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write secrets: %v\n", err)
			return 1
		}
		return 0
	}

	if err := unlockSecrets(dir); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unlock secrets: %v\n", err)
		return 1
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	logx.SetDebug(cfg.Debug.Enabled)
	if len(cfg.Debug.Domains) > 0 {
		logx.SetDebugDomains(cfg.Debug.Domains)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		return 1
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", closeErr)
		}
	}()

	switch mode {
	case modeSeed:
		fmt.Println("✅ Catalog seeded")
		return 0
	case modeServe, modeChat:
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode %q\n", mode)
		return 2
	}

	var (
		recorder metrics.Recorder = metrics.Nop()
		registry *prometheus.Registry
	)
	if cfg.Metrics.Enabled {
		registry = metrics.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(registry)
	}

	client, err := factory.New(cfg, recorder).CreateClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create model client: %v\n", err)
		return 1
	}

	ctrl := controller.New(store, client,
		controller.WithConversationConfig(cfg.Conversation),
		controller.WithModelConfig(cfg.Model),
		controller.WithRecorder(recorder),
		controller.WithDeclineCooldown(cfg.Gate.DeclineCooldown.Std()),
	)

	if mode == modeChat {
		err = runChat(ctx, ctrl, userID, os.Stdin, os.Stdout)
	} else {
		err = serve(ctx, cfg, ctrl, store, registry)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "solace %s failed: %v\n", mode, err)
		return 1
	}
	return 0
}

// openStore opens the configured backend and seeds the exercise catalog into it.
func openStore(ctx context.Context, cfg *config.Config) (persistence.Store, error) {
	var store persistence.Store
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		store = persistence.NewMemoryStore()
	default:
		if d := filepath.Dir(cfg.Storage.Path); d != "." {
			if err := os.MkdirAll(d, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		sqlite, err := persistence.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		store = sqlite
	}

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := store.SeedCatalog(ctx, cat); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to seed catalog: %w", err)
	}
	return store, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
	}
	return cat, nil
}
