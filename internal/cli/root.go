package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/movement-kit/internal/control"
	"github.com/vietddude/movement-kit/internal/core/config"
	"github.com/vietddude/movement-kit/internal/core/domain"
	"github.com/vietddude/movement-kit/internal/events"
)

var (
	cfgPath string
	isDebug bool
	network string
)

var rootCmd = &cobra.Command{
	Use:   "movement",
	Short: "Movement client toolkit",
	Long:  `movement talks to Movement fullnodes and indexers: queries, view calls, event streams and a health server.`,
	Run:   runServe,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&network, "network", "", "override the configured network (mainnet, testnet, devnet, local)")
}

// loadConfig loads cfgPath, falling back to defaults when the file is missing.
func loadConfig() (*config.AppConfig, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, err
	}

	if network != "" && domain.NetworkName(network) != cfg.Network {
		// Endpoints follow the network unless they were set explicitly.
		net, ok := domain.LookupNetwork(domain.NetworkName(network))
		if !ok {
			return nil, fmt.Errorf("unknown network %q", network)
		}
		cfg.Network = net.Name
		cfg.Node.Providers = []config.ProviderConfig{{Name: "movement-" + string(net.Name), URL: net.NodeURL, Timeout: config.DefaultProviderTimeout}}
		cfg.Indexer.URL = net.IndexerURL
	}
	return cfg, nil
}

func setupLogging(cfg *config.AppConfig) {
	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}

	if cfg.Logging.Format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})))
		return
	}
	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
}

// newClient loads configuration, sets up logging and builds the client.
// Failures are logged and exit the process.
func newClient() (*control.Client, *config.AppConfig) {
	cfg, err := loadConfig()
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	app, err := control.NewClient(control.Config{App: cfg, Logger: slog.Default()})
	if err != nil {
		slog.Error("Failed to initialize client", "error", err)
		os.Exit(1)
	}
	return app, cfg
}

// logEvent is the handler used by serve and watch.
func logEvent(e domain.Event) error {
	slog.Info("Event",
		"type", e.Type,
		"sequence", e.SequenceNumber,
		"version", e.Version,
		"account", e.AccountAddress,
		"data", e.Data,
	)
	return nil
}

// runServe starts the health server and the configured subscriptions until
// SIGINT or SIGTERM.
func runServe(cmd *cobra.Command, args []string) {
	app, cfg := newClient()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start client", "error", err)
		os.Exit(1)
	}

	for _, sub := range cfg.Events.Subscriptions {
		id, err := app.Events().Subscribe(events.SubscriptionConfig{
			AccountAddress: sub.Account,
			EventType:      sub.EventType,
			Handler:        logEvent,
		})
		if err != nil {
			slog.Error("Failed to subscribe", "event_type", sub.EventType, "error", err)
			continue
		}
		slog.Info("Subscribed", "id", id, "event_type", sub.EventType, "account", sub.Account)
	}

	slog.Info("Movement client serving", "config", cfgPath, "port", cfg.Server.Port)

	sig := <-sigChan
	slog.Info("Received signal, shutting down...", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}
}
