// Package rpc provides a resilient client for Movement fullnodes and indexers.
//
// This package offers:
//   - Multiple provider support per pool (node, indexer)
//   - Automatic failover and rotation
//   - Retry with exponential backoff
//   - Health monitoring and prometheus metrics
//
// # Quick Start
//
//	import "github.com/vietddude/movement-kit/internal/infra/rpc"
//
//	router := rpc.NewRouter()
//	router.AddProvider(rpc.PoolNode, rpc.NewHTTPProvider("movement", nodeURL, 30*time.Second))
//	router.AddProvider(rpc.PoolIndexer, rpc.NewHTTPProvider("indexer", indexerURL, 30*time.Second))
//
//	client := rpc.NewClient(router)
//	result, err := client.Execute(ctx, rpc.PoolNode, rpc.NewRESTOperation("accounts/0x1", http.MethodGet, nil))
//
// # Package Structure
//
//   - provider/ - HTTPProvider and monitoring
//   - routing/  - Provider selection, circuit breaking, retry logic
//
// Most types are re-exported at the root level for convenience.
package rpc

import (
	"time"

	"github.com/vietddude/movement-kit/internal/infra/rpc/provider"
	"github.com/vietddude/movement-kit/internal/infra/rpc/routing"
)

// Provider pools.
const (
	PoolNode    = "node"
	PoolIndexer = "indexer"
)

// =============================================================================
// Re-exported types from provider package
// =============================================================================

// Provider is the core interface for endpoints.
type Provider = provider.Provider

// HTTPProvider implements Provider for REST and GraphQL over HTTP.
type HTTPProvider = provider.HTTPProvider

// ProviderMonitor tracks provider health and rate limiting.
type ProviderMonitor = provider.ProviderMonitor

// ProviderStatus represents the health state of a provider.
type ProviderStatus = provider.ProviderStatus

// MonitorStats holds monitoring statistics for a provider.
type MonitorStats = provider.MonitorStats

// HealthStatus represents the health state of a provider.
type HealthStatus = provider.HealthStatus

// Operation represents a call to execute (transport-agnostic).
type Operation = provider.Operation

// HTTPError is a non-2xx response from a node or indexer.
type HTTPError = provider.HTTPError

// GraphQLError is an indexer error response.
type GraphQLError = provider.GraphQLError

// Provider status constants
const (
	StatusHealthy   = provider.StatusHealthy
	StatusDegraded  = provider.StatusDegraded
	StatusThrottled = provider.StatusThrottled
	StatusBlocked   = provider.StatusBlocked
)

// NewHTTPProvider creates a new HTTP provider.
func NewHTTPProvider(name, endpoint string, timeout time.Duration) *HTTPProvider {
	return provider.NewHTTPProvider(name, endpoint, timeout)
}

// Decode unmarshals a provider result into out.
var Decode = provider.Decode

// =============================================================================
// Re-exported types from routing package
// =============================================================================

// Router handles provider selection and health tracking.
type Router = routing.Router

// DefaultRouter implements round-robin selection with circuit breaker.
type DefaultRouter = routing.DefaultRouter

// RetryConfig defines retry behavior.
type RetryConfig = routing.RetryConfig

// DefaultRetryConfig provides sensible retry defaults.
var DefaultRetryConfig = routing.DefaultRetryConfig

// NewRouter creates a new router.
func NewRouter() *DefaultRouter {
	return routing.NewRouter()
}

// CallWithRetry executes an operation with exponential backoff.
var CallWithRetry = routing.CallWithRetry

// CallWithRetryAndFailover tries multiple providers with retry.
var CallWithRetryAndFailover = routing.CallWithRetryAndFailover
