// Package routing handles provider selection and failover.
//
// This package contains:
//   - Router: interface for provider selection and health tracking
//   - DefaultRouter: round-robin selection with a circuit breaker
//   - Retry: retry logic with exponential backoff and failover
package routing

import (
	"fmt"
	"sync"
	"time"

	"github.com/vietddude/movement-kit/internal/infra/rpc/provider"
)

// Router handles provider selection and health tracking.
// Providers are grouped by pool, e.g. "node" and "indexer".
type Router interface {
	// AddProvider registers a provider in a pool
	AddProvider(pool string, p provider.Provider)

	// GetProvider returns the best available provider for a pool
	GetProvider(pool string) (provider.Provider, error)

	// RotateProvider moves the pool on to its next provider
	RotateProvider(pool string) (provider.Provider, error)

	// GetAllProviders returns the pool's providers, preferred first
	GetAllProviders(pool string) []provider.Provider

	// RecordSuccess tracks successful calls
	RecordSuccess(providerName string, latency time.Duration)

	// RecordFailure tracks failed calls
	RecordFailure(providerName string, err error)
}

const (
	circuitThreshold = 5
	circuitCooldown  = 30 * time.Second
)

type providerMetrics struct {
	successCount     int
	failureCount     int
	totalLatency     time.Duration
	lastSuccessAt    time.Time
	lastFailureAt    time.Time
	consecutiveFails int
	circuitOpen      bool
}

// circuitClosed reports whether the provider may be tried. An open circuit
// half-opens after the cooldown.
func (m *providerMetrics) circuitClosed(now time.Time) bool {
	return !m.circuitOpen || now.Sub(m.lastFailureAt) >= circuitCooldown
}

// DefaultRouter implements round-robin provider selection with circuit breaker.
type DefaultRouter struct {
	mu             sync.RWMutex
	poolProviders  map[string][]provider.Provider
	providerHealth map[string]*providerMetrics
	current        map[string]int
}

// NewRouter creates a new router.
func NewRouter() *DefaultRouter {
	return &DefaultRouter{
		poolProviders:  make(map[string][]provider.Provider),
		providerHealth: make(map[string]*providerMetrics),
		current:        make(map[string]int),
	}
}

var _ Router = (*DefaultRouter)(nil)

// AddProvider registers a provider in a pool.
func (r *DefaultRouter) AddProvider(pool string, p provider.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.poolProviders[pool] = append(r.poolProviders[pool], p)
	r.providerHealth[p.GetName()] = &providerMetrics{
		lastSuccessAt: time.Now(),
	}
}

// GetProvider returns the first usable provider starting at the current one.
func (r *DefaultRouter) GetProvider(pool string) (provider.Provider, error) {
	ordered := r.GetAllProviders(pool)
	if len(ordered) == 0 {
		return nil, fmt.Errorf("no providers for pool %s", pool)
	}

	for _, p := range ordered {
		if r.usable(p) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no available providers for pool %s", pool)
}

// RotateProvider advances the pool's current provider.
func (r *DefaultRouter) RotateProvider(pool string) (provider.Provider, error) {
	r.mu.Lock()
	if n := len(r.poolProviders[pool]); n > 1 {
		r.current[pool] = (r.current[pool] + 1) % n
	}
	r.mu.Unlock()

	return r.GetProvider(pool)
}

// GetAllProviders returns the pool's providers starting at the current one.
func (r *DefaultRouter) GetAllProviders(pool string) []provider.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := r.poolProviders[pool]
	result := make([]provider.Provider, 0, len(providers))
	start := r.current[pool]
	for i := range providers {
		result = append(result, providers[(start+i)%len(providers)])
	}
	return result
}

// RecordSuccess records a successful call.
func (r *DefaultRouter) RecordSuccess(providerName string, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	metrics, ok := r.providerHealth[providerName]
	if !ok {
		return
	}

	metrics.successCount++
	metrics.totalLatency += latency
	metrics.lastSuccessAt = time.Now()
	metrics.consecutiveFails = 0
	metrics.circuitOpen = false
}

// RecordFailure records a failed call.
func (r *DefaultRouter) RecordFailure(providerName string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	metrics, ok := r.providerHealth[providerName]
	if !ok {
		return
	}

	metrics.failureCount++
	metrics.lastFailureAt = time.Now()
	metrics.consecutiveFails++

	if metrics.consecutiveFails >= circuitThreshold {
		metrics.circuitOpen = true
	}
}

// IsCircuitOpen reports whether calls to the provider are suspended.
func (r *DefaultRouter) IsCircuitOpen(providerName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.providerHealth[providerName]
	return ok && !m.circuitClosed(time.Now())
}

func (r *DefaultRouter) usable(p provider.Provider) bool {
	if hp, ok := p.(*provider.HTTPProvider); ok {
		if hp.Monitor.CheckProviderStatus() == provider.StatusBlocked {
			return false
		}
	}
	return !r.IsCircuitOpen(p.GetName())
}
