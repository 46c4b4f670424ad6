package config

import (
	"time"

	"github.com/vietddude/movement-kit/internal/core/domain"
	redisclient "github.com/vietddude/movement-kit/internal/infra/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Network  domain.NetworkName `yaml:"network"`
	Node     NodeConfig         `yaml:"node"`
	Indexer  IndexerConfig      `yaml:"indexer"`
	Events   EventsConfig       `yaml:"events"`
	Wallet   WalletConfig       `yaml:"wallet"`
	Redis    redisclient.Config `yaml:"redis"`
	Contract ContractConfig     `yaml:"contract"`
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// NodeConfig holds the fullnode providers, tried in order with failover.
type NodeConfig struct {
	Providers []ProviderConfig `yaml:"providers"`
	// APIKey is sent as a bearer token to every node and indexer provider.
	APIKey string `yaml:"api_key"`
}

// ProviderConfig holds settings for an RPC provider.
type ProviderConfig struct {
	Name    string        `yaml:"name"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// IndexerConfig holds the GraphQL indexer endpoint.
type IndexerConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// EventsConfig holds event polling settings.
type EventsConfig struct {
	PollInterval  time.Duration        `yaml:"poll_interval"`
	Limit         int                  `yaml:"limit"`
	Subscriptions []SubscriptionConfig `yaml:"subscriptions"` // started by `serve`
}

// SubscriptionConfig is an event subscription declared in the config file.
type SubscriptionConfig struct {
	Account   string `yaml:"account"`
	EventType string `yaml:"event_type"`
}

// Wallet storage backends.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// WalletConfig holds wallet manager settings.
type WalletConfig struct {
	Storage     string `yaml:"storage"`     // memory, redis
	StorageKey  string `yaml:"storage_key"` // empty uses the manager default
	AutoConnect bool   `yaml:"auto_connect"`
}

// ContractConfig selects the module bound by the contract interface.
type ContractConfig struct {
	ModuleAddress string `yaml:"module_address"`
	ModuleName    string `yaml:"module_name"`
}
