package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/movement-kit/internal/core/domain"
)

func TestLoad_EnvSubstitution(t *testing.T) {
	// Setup env var
	t.Setenv("TEST_REDIS_URL", "redis://localhost:6380/1")
	t.Setenv("TEST_NODE_URL", "https://rpc.example.com/v1")

	// Create temp config file
	configContent := `
network: mainnet
node:
  providers:
    - name: primary
      url: ${TEST_NODE_URL}
wallet:
  storage: redis
redis:
  url: ${TEST_REDIS_URL}
`
	tmpFile, err := os.CreateTemp("", "config_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write([]byte(configContent)); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	tmpFile.Close()

	// Load config
	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Redis.URL != "redis://localhost:6380/1" {
		t.Errorf("Expected redis URL redis://localhost:6380/1, got %s", cfg.Redis.URL)
	}
	if cfg.Node.Providers[0].URL != "https://rpc.example.com/v1" {
		t.Errorf("Expected node URL https://rpc.example.com/v1, got %s", cfg.Node.Providers[0].URL)
	}
	if cfg.NetworkInfo().ChainID != 126 {
		t.Errorf("Expected mainnet chain id 126, got %d", cfg.NetworkInfo().ChainID)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Network != domain.NetworkTestnet {
		t.Errorf("Expected testnet, got %s", cfg.Network)
	}
	if len(cfg.Node.Providers) != 1 || cfg.Node.Providers[0].URL != domain.Networks[domain.NetworkTestnet].NodeURL {
		t.Errorf("Expected the testnet node provider, got %+v", cfg.Node.Providers)
	}
	if cfg.Node.Providers[0].Timeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %s", cfg.Node.Providers[0].Timeout)
	}
	if cfg.Indexer.URL != domain.Networks[domain.NetworkTestnet].IndexerURL {
		t.Errorf("Expected the testnet indexer, got %s", cfg.Indexer.URL)
	}
	if cfg.Events.PollInterval != 5*time.Second {
		t.Errorf("Expected 5s poll interval, got %s", cfg.Events.PollInterval)
	}
	if cfg.Wallet.Storage != StorageMemory {
		t.Errorf("Expected memory storage, got %s", cfg.Wallet.Storage)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
}

func TestParse_Durations(t *testing.T) {
	cfg, err := Parse([]byte(`
events:
  poll_interval: 750ms
  subscriptions:
    - account: "0x1"
      event_type: 0x1::coin::DepositEvent
node:
  providers:
    - url: http://127.0.0.1:8080/v1
      timeout: 2s
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Events.PollInterval != 750*time.Millisecond {
		t.Errorf("Expected 750ms, got %s", cfg.Events.PollInterval)
	}
	if cfg.Node.Providers[0].Timeout != 2*time.Second {
		t.Errorf("Expected 2s, got %s", cfg.Node.Providers[0].Timeout)
	}
	if cfg.Node.Providers[0].Name != "node-0" {
		t.Errorf("Expected generated name node-0, got %s", cfg.Node.Providers[0].Name)
	}
	if len(cfg.Events.Subscriptions) != 1 || cfg.Events.Subscriptions[0].EventType != "0x1::coin::DepositEvent" {
		t.Errorf("Unexpected subscriptions %+v", cfg.Events.Subscriptions)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown network", "network: moonnet", "unknown network"},
		{"unknown storage", "wallet:\n  storage: disk", "unknown wallet.storage"},
		{"redis without url", "wallet:\n  storage: redis", "redis.url is empty"},
		{"bad module address", "contract:\n  module_address: cafe", "module_address"},
		{"provider without url", "node:\n  providers:\n    - name: a", "has no url"},
		{"negative interval", "events:\n  poll_interval: -1s", "poll_interval"},
		{"bad yaml", "network: [", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
