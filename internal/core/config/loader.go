package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/movement-kit/internal/core/domain"
)

// Defaults applied by Load and Default.
const (
	DefaultNetwork         = domain.NetworkTestnet
	DefaultPollInterval    = 5 * time.Second
	DefaultEventLimit      = 100
	DefaultServerPort      = 9090
	DefaultProviderTimeout = 30 * time.Second
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration, expanding environment variables first.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *AppConfig {
	cfg := &AppConfig{}
	// The default network is always known.
	_ = cfg.applyDefaults()
	return cfg
}

func (c *AppConfig) applyDefaults() error {
	if c.Network == "" {
		c.Network = DefaultNetwork
	}
	net, ok := domain.LookupNetwork(c.Network)
	if !ok {
		return fmt.Errorf("unknown network %q", c.Network)
	}

	if len(c.Node.Providers) == 0 {
		c.Node.Providers = []ProviderConfig{{Name: "movement-" + string(net.Name), URL: net.NodeURL}}
	}
	for i := range c.Node.Providers {
		p := &c.Node.Providers[i]
		if p.Name == "" {
			p.Name = fmt.Sprintf("node-%d", i)
		}
		if p.Timeout == 0 {
			p.Timeout = DefaultProviderTimeout
		}
	}

	if c.Indexer.URL == "" {
		c.Indexer.URL = net.IndexerURL
	}
	if c.Indexer.Timeout == 0 {
		c.Indexer.Timeout = DefaultProviderTimeout
	}

	if c.Events.PollInterval == 0 {
		c.Events.PollInterval = DefaultPollInterval
	}
	if c.Events.Limit == 0 {
		c.Events.Limit = DefaultEventLimit
	}

	if c.Wallet.Storage == "" {
		c.Wallet.Storage = StorageMemory
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	return nil
}

// Validate checks values that defaults cannot fix.
func (c *AppConfig) Validate() error {
	if _, ok := domain.LookupNetwork(c.Network); !ok {
		return fmt.Errorf("unknown network %q", c.Network)
	}
	for _, p := range c.Node.Providers {
		if p.URL == "" {
			return fmt.Errorf("node provider %s has no url", p.Name)
		}
	}
	if c.Events.PollInterval < 0 {
		return fmt.Errorf("events.poll_interval must be positive, got %s", c.Events.PollInterval)
	}

	switch c.Wallet.Storage {
	case StorageMemory:
	case StorageRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("wallet.storage is redis but redis.url is empty")
		}
	default:
		return fmt.Errorf("unknown wallet.storage %q (want %s or %s)", c.Wallet.Storage, StorageMemory, StorageRedis)
	}

	if c.Contract.ModuleAddress != "" && !domain.IsValidAddress(c.Contract.ModuleAddress) {
		return fmt.Errorf("invalid contract.module_address %q", c.Contract.ModuleAddress)
	}
	return nil
}

// NetworkInfo returns the static description of the configured network.
func (c *AppConfig) NetworkInfo() domain.Network {
	net, _ := domain.LookupNetwork(c.Network)
	return net
}
