// Package provider implements the transport to Movement fullnodes and indexers.
//
// This package contains:
//   - Provider interface: core abstraction for an endpoint
//   - HTTPProvider: REST and GraphQL over HTTP
//   - ProviderMonitor: health and rate tracking
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Operation represents a call to execute against a provider.
// It abstracts the transport for unified routing and retry logic.
type Operation struct {
	// Name identifies the operation. For REST calls it is the path relative
	// to the provider endpoint (e.g. "accounts/0x1/resources").
	Name string

	// Cost is the quota cost for this operation (default 1)
	Cost int

	// Params is the JSON body for REST calls, or the variables for GraphQL.
	Params any

	// IsREST indicates a REST call. Only REST and GraphQL are spoken by
	// Movement nodes and indexers.
	IsREST bool

	// RESTMethod specifies the HTTP method for REST calls. Defaults to GET
	// without Params and POST with them.
	RESTMethod string

	// Query holds URL query parameters for REST calls.
	Query map[string]string

	// GraphQL holds the query document for indexer calls.
	GraphQL string

	// Invoke, when set, takes precedence over the HTTP fields.
	Invoke func(ctx context.Context) (any, error)
}

// Provider defines the interface for an endpoint.
type Provider interface {
	// GetName returns provider identifier (e.g., "movement-labs", "local")
	GetName() string

	// GetHealth returns current health metrics
	GetHealth() HealthStatus

	// IsAvailable checks if the provider is healthy enough to use
	IsAvailable() bool

	// HasQuotaRemaining checks if the provider has not exceeded its rate limits
	HasQuotaRemaining() bool

	// Execute performs the operation. HTTP providers return json.RawMessage.
	Execute(ctx context.Context, op Operation) (any, error)

	// Close cleans up resources
	Close() error
}

// HealthStatus represents the health state of a provider.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at"`
	MonitorStats  *MonitorStats `json:"monitor_stats,omitempty"`
}

// HTTPError is a non-2xx response from a node or indexer.
type HTTPError struct {
	StatusCode int
	// Message and ErrorCode are taken from the node's JSON error body when present.
	Message   string
	ErrorCode string
	Body      string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		if e.ErrorCode != "" {
			return fmt.Sprintf("http %d: %s (%s)", e.StatusCode, e.Message, e.ErrorCode)
		}
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

// GraphQLError is returned when an indexer answers with an errors array.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	if len(e.Messages) == 0 {
		return "graphql error"
	}
	return "graphql error: " + e.Messages[0]
}

// Decode unmarshals a provider result into out. Results that are not raw
// JSON (from Invoke) are round-tripped through encoding/json.
func Decode(result any, out any) error {
	var raw []byte
	switch r := result.(type) {
	case json.RawMessage:
		raw = r
	case []byte:
		raw = r
	default:
		b, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		raw = b
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
