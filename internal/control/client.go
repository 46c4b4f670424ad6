package control

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/movement-kit/internal/contract"
	"github.com/vietddude/movement-kit/internal/core/config"
	"github.com/vietddude/movement-kit/internal/core/domain"
	"github.com/vietddude/movement-kit/internal/core/errs"
	"github.com/vietddude/movement-kit/internal/events"
	"github.com/vietddude/movement-kit/internal/health"
	"github.com/vietddude/movement-kit/internal/infra/chain"
	"github.com/vietddude/movement-kit/internal/infra/chain/movement"
	redisclient "github.com/vietddude/movement-kit/internal/infra/redis"
	"github.com/vietddude/movement-kit/internal/infra/rpc"
	"github.com/vietddude/movement-kit/internal/infra/storage"
	"github.com/vietddude/movement-kit/internal/infra/storage/memory"
	"github.com/vietddude/movement-kit/internal/tx"
	"github.com/vietddude/movement-kit/internal/wallet/manager"
	"github.com/vietddude/movement-kit/internal/wallet/standard"
)

// ledgerRefreshInterval is how often Start refreshes the ledger gauge.
const ledgerRefreshInterval = 30 * time.Second

// Config holds the client configuration.
type Config struct {
	App *config.AppConfig
	// Registry is the wallet-standard registry. Nil means an empty
	// in-memory registry, which suits servers and CLIs.
	Registry standard.Registry
	Logger   *slog.Logger
}

// Client is the main application struct wiring every SDK component.
type Client struct {
	cfg          *config.AppConfig
	network      domain.Network
	rpc          *rpc.Client
	chain        *movement.Client
	store        storage.KV
	redisClient  *redisclient.Client
	wallets      *manager.Manager
	txs          *tx.Builder
	events       *events.Listener
	healthMon    *health.Monitor
	healthServer *health.Server
	log          *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewClient creates a new Client with all dependencies initialized.
func NewClient(cfg Config) (*Client, error) {
	app := cfg.App
	if app == nil {
		app = config.Default()
	}
	if err := app.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	// 1. RPC providers
	router := rpc.NewRouter()
	for _, p := range app.Node.Providers {
		prov := rpc.NewHTTPProvider(p.Name, p.URL, p.Timeout)
		setAPIKey(prov, app.Node.APIKey)
		router.AddProvider(rpc.PoolNode, prov)
	}
	if app.Indexer.URL != "" {
		prov := rpc.NewHTTPProvider("indexer", app.Indexer.URL, app.Indexer.Timeout)
		setAPIKey(prov, app.Node.APIKey)
		router.AddProvider(rpc.PoolIndexer, prov)
	}
	rpcClient := rpc.NewClient(router)
	chainClient := movement.NewClient(rpcClient, log)

	// 2. Wallet storage
	var store storage.KV
	var redisClient *redisclient.Client
	switch app.Wallet.Storage {
	case config.StorageRedis:
		var err error
		redisClient, err = redisclient.NewClient(app.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		store = redisClient
		log.Info("Using Redis wallet storage")
	default:
		store = memory.NewStore()
		log.Info("Using Memory wallet storage")
	}

	// 3. Core components
	registry := cfg.Registry
	if registry == nil {
		registry = standard.NewMemoryRegistry()
	}
	walletOpts := []manager.Option{manager.WithStorage(store), manager.WithLogger(log)}
	if app.Wallet.StorageKey != "" {
		walletOpts = append(walletOpts, manager.WithStorageKey(app.Wallet.StorageKey))
	}
	wallets := manager.New(registry, walletOpts...)
	txs := tx.New(wallets, chainClient, tx.WithLogger(log))
	listener := events.NewListener(chainClient,
		events.WithPollInterval(app.Events.PollInterval),
		events.WithEventLimit(app.Events.Limit),
		events.WithLogger(log),
	)

	// 4. Health
	monitorOpts := []health.MonitorOption{
		health.WithProviders(rpcClient),
		health.WithSubscriptions(listener),
	}
	if redisClient != nil {
		monitorOpts = append(monitorOpts, health.WithStore(redisClient))
	}
	network := app.NetworkInfo()
	healthMon := health.NewMonitor(network, chainClient, monitorOpts...)

	return &Client{
		cfg:          app,
		network:      network,
		rpc:          rpcClient,
		chain:        chainClient,
		store:        store,
		redisClient:  redisClient,
		wallets:      wallets,
		txs:          txs,
		events:       listener,
		healthMon:    healthMon,
		healthServer: health.NewServer(healthMon, app.Server.Port),
		log:          log,
	}, nil
}

func setAPIKey(p *rpc.HTTPProvider, key string) {
	if key != "" {
		p.SetHeader("Authorization", "Bearer "+key)
	}
}

// Network returns the configured network.
func (c *Client) Network() domain.Network { return c.network }

// Wallets returns the wallet manager.
func (c *Client) Wallets() *manager.Manager { return c.wallets }

// Transactions returns the transaction builder.
func (c *Client) Transactions() *tx.Builder { return c.txs }

// Events returns the event listener.
func (c *Client) Events() *events.Listener { return c.events }

// Chain returns the chain client.
func (c *Client) Chain() *movement.Client { return c.chain }

// RPC returns the resilient RPC client.
func (c *Client) RPC() *rpc.Client { return c.rpc }

// Health returns the health monitor.
func (c *Client) Health() *health.Monitor { return c.healthMon }

// Contract binds moduleAddress::moduleName. Empty arguments fall back to the
// configured contract.
func (c *Client) Contract(moduleAddress, moduleName string) (*contract.Contract, error) {
	if moduleAddress == "" {
		moduleAddress = c.cfg.Contract.ModuleAddress
	}
	if moduleName == "" {
		moduleName = c.cfg.Contract.ModuleName
	}
	return contract.New(moduleAddress, moduleName, c.txs, c.chain)
}

// ValidateAddress checks that address is a 0x-prefixed account address.
func (c *Client) ValidateAddress(address string) error {
	if !domain.IsValidAddress(address) {
		return errs.New(errs.CodeInvalidAddress, fmt.Sprintf("invalid address %q", address), map[string]any{
			"address": address,
		})
	}
	return nil
}

// GetAccountResources returns every resource of address.
func (c *Client) GetAccountResources(ctx context.Context, address string) ([]chain.Resource, error) {
	if err := c.ValidateAddress(address); err != nil {
		return nil, err
	}
	res, err := c.chain.GetAccountResources(ctx, address)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeNetworkError, "failed to get account resources", map[string]any{
			"address": address,
		})
	}
	return res, nil
}

// GetBalance returns the balance of coinType (native coin when empty) in
// the coin's smallest unit.
func (c *Client) GetBalance(ctx context.Context, address, coinType string) (string, error) {
	if err := c.ValidateAddress(address); err != nil {
		return "", err
	}
	balance, err := c.chain.GetBalance(ctx, address, coinType)
	if err != nil {
		return "", errs.Wrap(err, errs.CodeNetworkError, "failed to get balance", map[string]any{
			"address":  address,
			"coinType": coinType,
		})
	}
	return balance, nil
}

// Start starts the health server and background refreshers, and restores
// the last wallet when auto-connect is enabled.
func (c *Client) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	if c.cfg.Wallet.AutoConnect {
		c.wallets.AutoConnect(ctx)
	}

	go func() {
		c.log.Info("Starting health server", "port", c.cfg.Server.Port)
		if err := c.healthServer.Start(); err != nil {
			c.log.Error("Health server failed", "error", err)
		}
	}()

	go c.runLedgerUpdater(ctx)

	c.log.Info("Movement client started", "network", c.network.Name, "chain_id", c.network.ChainID)
	return nil
}

// Stop stops polling, the health server and closes storage.
func (c *Client) Stop(ctx context.Context) error {
	c.log.Info("Stopping Movement client...")

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	c.events.Close()
	c.wallets.Close()

	// Close Redis
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			c.log.Warn("Failed to close Redis", "error", err)
		}
	}

	// Stop Health Server
	return c.healthServer.Stop(ctx)
}

func (c *Client) runLedgerUpdater(ctx context.Context) {
	ticker := time.NewTicker(ledgerRefreshInterval)
	defer ticker.Stop()

	for {
		if _, err := c.chain.GetLedgerInfo(ctx); err != nil && ctx.Err() == nil {
			c.log.Debug("Ledger refresh failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
