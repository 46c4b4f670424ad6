package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vietddude/movement-kit/internal/core/domain"
	"github.com/vietddude/movement-kit/internal/infra/chain"
	"github.com/vietddude/movement-kit/internal/infra/rpc"
)

// =============================================================================
// Mocks
// =============================================================================

type mockLedger struct {
	info  *chain.LedgerInfo
	err   error
	calls int
}

func (m *mockLedger) GetLedgerInfo(ctx context.Context) (*chain.LedgerInfo, error) {
	m.calls++
	return m.info, m.err
}

type stubProvider struct {
	name      string
	available bool
}

func (s *stubProvider) GetName() string             { return s.name }
func (s *stubProvider) GetHealth() rpc.HealthStatus { return rpc.HealthStatus{Available: s.available} }
func (s *stubProvider) IsAvailable() bool           { return s.available }
func (s *stubProvider) HasQuotaRemaining() bool     { return true }
func (s *stubProvider) Close() error                { return nil }
func (s *stubProvider) Execute(context.Context, rpc.Operation) (any, error) {
	return nil, errors.New("not used")
}

type stubPools map[string][]rpc.Provider

func (s stubPools) Providers(pool string) []rpc.Provider { return s[pool] }

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubSubs int

func (s stubSubs) GetSubscriptionCount() int { return int(s) }

var testnet = domain.Networks[domain.NetworkTestnet]

func healthyLedger() *mockLedger {
	return &mockLedger{info: &chain.LedgerInfo{ChainID: testnet.ChainID, LedgerVersion: "100", BlockHeight: "10"}}
}

// =============================================================================
// Tests
// =============================================================================

func TestMonitor_Healthy(t *testing.T) {
	m := NewMonitor(testnet, healthyLedger(),
		WithProviders(stubPools{
			rpc.PoolNode:    {&stubProvider{name: "a", available: true}},
			rpc.PoolIndexer: {&stubProvider{name: "idx", available: true}},
		}),
		WithStore(stubPinger{}),
		WithSubscriptions(stubSubs(2)),
	)

	report := m.CheckHealth(context.Background())
	if report.SystemStatus != StatusHealthy {
		t.Fatalf("expected healthy, got %s: %+v", report.SystemStatus, report.Components)
	}
	for _, name := range []string{"node", "rpc_node", "rpc_indexer", "storage", "events"} {
		if _, ok := report.Components[name]; !ok {
			t.Errorf("missing component %s", name)
		}
	}
	if got := report.Components["events"].Details["subscriptions"]; got != 2 {
		t.Errorf("expected 2 subscriptions, got %v", got)
	}
}

func TestMonitor_NodeDown(t *testing.T) {
	m := NewMonitor(testnet, &mockLedger{err: errors.New("connection refused")})

	report := m.CheckHealth(context.Background())
	if report.SystemStatus != StatusCritical {
		t.Errorf("expected critical, got %s", report.SystemStatus)
	}
	if report.Components["node"].Error == "" {
		t.Error("expected node error to be reported")
	}
}

func TestMonitor_ChainIDMismatch(t *testing.T) {
	ledger := &mockLedger{info: &chain.LedgerInfo{ChainID: 126}}
	m := NewMonitor(testnet, ledger)

	report := m.CheckHealth(context.Background())
	if report.SystemStatus != StatusCritical {
		t.Errorf("expected critical, got %s", report.SystemStatus)
	}
}

func TestMonitor_Degraded(t *testing.T) {
	tests := []struct {
		name string
		opts []MonitorOption
	}{
		{
			name: "one node provider down",
			opts: []MonitorOption{WithProviders(stubPools{
				rpc.PoolNode: {&stubProvider{name: "a", available: true}, &stubProvider{name: "b"}},
			})},
		},
		{
			name: "indexer down",
			opts: []MonitorOption{WithProviders(stubPools{
				rpc.PoolNode:    {&stubProvider{name: "a", available: true}},
				rpc.PoolIndexer: {&stubProvider{name: "idx"}},
			})},
		},
		{
			name: "storage down",
			opts: []MonitorOption{WithStore(stubPinger{err: errors.New("redis gone")})},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(testnet, healthyLedger(), tt.opts...)
			report := m.CheckHealth(context.Background())
			if report.SystemStatus != StatusDegraded {
				t.Errorf("expected degraded, got %s: %+v", report.SystemStatus, report.Components)
			}
		})
	}
}

func TestMonitor_NoNodeProviders(t *testing.T) {
	m := NewMonitor(testnet, healthyLedger(), WithProviders(stubPools{
		rpc.PoolIndexer: {&stubProvider{name: "idx", available: true}},
	}))

	report := m.CheckHealth(context.Background())
	if report.SystemStatus != StatusCritical {
		t.Errorf("expected critical, got %s", report.SystemStatus)
	}
}

func TestMonitor_CachesReport(t *testing.T) {
	ledger := healthyLedger()
	m := NewMonitor(testnet, ledger)

	m.CheckHealth(context.Background())
	m.CheckHealth(context.Background())
	if ledger.calls != 1 {
		t.Errorf("expected 1 ledger call, got %d", ledger.calls)
	}

	m = NewMonitor(testnet, ledger, WithCacheTTL(0))
	m.CheckHealth(context.Background())
	m.CheckHealth(context.Background())
	if ledger.calls != 3 {
		t.Errorf("expected 3 ledger calls, got %d", ledger.calls)
	}
}

func TestServer_Endpoints(t *testing.T) {
	tests := []struct {
		name   string
		ledger *mockLedger
		code   int
		status SystemStatus
	}{
		{"healthy", healthyLedger(), http.StatusOK, StatusHealthy},
		{"critical", &mockLedger{err: errors.New("down")}, http.StatusServiceUnavailable, StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(NewMonitor(testnet, tt.ledger), 0)

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			if rec.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, rec.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["status"] != string(tt.status) {
				t.Errorf("expected %s, got %s", tt.status, body["status"])
			}

			rec = httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))
			var report HealthReport
			if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
				t.Fatal(err)
			}
			if report.Network != "testnet" {
				t.Errorf("expected testnet, got %s", report.Network)
			}
		})
	}
}

func TestServer_Metrics(t *testing.T) {
	srv := NewServer(NewMonitor(testnet, healthyLedger()), 0)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
