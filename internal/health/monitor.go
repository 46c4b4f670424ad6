package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/movement-kit/internal/core/domain"
	"github.com/vietddude/movement-kit/internal/infra/chain"
	"github.com/vietddude/movement-kit/internal/infra/rpc"
)

// DefaultCacheTTL bounds how often a check reaches the node.
const DefaultCacheTTL = 10 * time.Second

// LedgerFetcher fetches the node's ledger head.
type LedgerFetcher interface {
	GetLedgerInfo(ctx context.Context) (*chain.LedgerInfo, error)
}

// ProviderLister lists the providers of a pool.
type ProviderLister interface {
	Providers(pool string) []rpc.Provider
}

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SubscriptionCounter reports live event subscriptions.
type SubscriptionCounter interface {
	GetSubscriptionCount() int
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithProviders reports per-pool provider availability.
func WithProviders(p ProviderLister) MonitorOption {
	return func(m *Monitor) { m.providers = p }
}

// WithStore reports the wallet storage backend.
func WithStore(p Pinger) MonitorOption {
	return func(m *Monitor) { m.store = p }
}

// WithSubscriptions reports the event listener.
func WithSubscriptions(s SubscriptionCounter) MonitorOption {
	return func(m *Monitor) { m.subs = s }
}

// WithCacheTTL sets how long a report is reused.
func WithCacheTTL(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.ttl = d }
}

// Monitor aggregates health status from the client's dependencies.
type Monitor struct {
	network   domain.Network
	ledger    LedgerFetcher
	providers ProviderLister
	store     Pinger
	subs      SubscriptionCounter
	ttl       time.Duration

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport *HealthReport
}

// NewMonitor creates a new health monitor for network.
func NewMonitor(network domain.Network, ledger LedgerFetcher, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		network: network,
		ledger:  ledger,
		ttl:     DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CheckHealth performs a health check of every configured component.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastReport != nil && time.Since(m.lastCheck) < m.ttl {
		return *m.lastReport
	}

	report := HealthReport{
		SystemStatus: StatusHealthy,
		Network:      string(m.network.Name),
		CheckedAt:    time.Now(),
		Components:   make(map[string]ComponentHealth),
	}
	add := func(c ComponentHealth) {
		report.Components[c.Name] = c
		report.SystemStatus = worst(report.SystemStatus, c.Status)
	}

	add(m.checkNode(ctx))
	if m.providers != nil {
		add(m.checkPool(rpc.PoolNode, StatusCritical))
		add(m.checkPool(rpc.PoolIndexer, StatusDegraded))
	}
	if m.store != nil {
		add(m.checkStore(ctx))
	}
	if m.subs != nil {
		add(ComponentHealth{
			Name:    "events",
			Status:  StatusHealthy,
			Details: map[string]any{"subscriptions": m.subs.GetSubscriptionCount()},
		})
	}

	m.lastCheck = time.Now()
	m.lastReport = &report
	return report
}

func (m *Monitor) checkNode(ctx context.Context) ComponentHealth {
	h := ComponentHealth{Name: "node", Status: StatusHealthy}

	start := time.Now()
	info, err := m.ledger.GetLedgerInfo(ctx)
	h.Latency = time.Since(start)
	if err != nil {
		h.Status = StatusCritical
		h.Error = err.Error()
		return h
	}

	h.Details = map[string]any{
		"chain_id":       info.ChainID,
		"ledger_version": info.LedgerVersion,
		"block_height":   info.BlockHeight,
	}
	// A node on another chain would sign transactions for the wrong network.
	if m.network.ChainID != 0 && info.ChainID != m.network.ChainID {
		h.Status = StatusCritical
		h.Error = "chain id mismatch"
		h.Details["expected_chain_id"] = m.network.ChainID
	}
	return h
}

func (m *Monitor) checkPool(pool string, whenDown SystemStatus) ComponentHealth {
	h := ComponentHealth{Name: "rpc_" + pool, Status: StatusHealthy}

	providers := m.providers.Providers(pool)
	available := 0
	details := make(map[string]any, len(providers))
	for _, p := range providers {
		ph := p.GetHealth()
		if p.IsAvailable() {
			available++
		}
		details[p.GetName()] = map[string]any{
			"available":  p.IsAvailable(),
			"error_rate": ph.ErrorRate,
			"latency":    ph.Latency.String(),
		}
	}
	h.Details = details

	switch {
	case available == 0:
		h.Status = whenDown
		h.Error = "no available providers"
	case available < len(providers):
		h.Status = StatusDegraded
	}
	return h
}

func (m *Monitor) checkStore(ctx context.Context) ComponentHealth {
	h := ComponentHealth{Name: "storage", Status: StatusHealthy}

	start := time.Now()
	err := m.store.Ping(ctx)
	h.Latency = time.Since(start)
	if err != nil {
		// Wallet persistence is best effort, so a broken store only degrades.
		h.Status = StatusDegraded
		h.Error = err.Error()
	}
	return h
}
