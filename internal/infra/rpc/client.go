package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vietddude/movement-kit/internal/infra/rpc/provider"
	"github.com/vietddude/movement-kit/internal/infra/rpc/routing"
	"github.com/vietddude/movement-kit/internal/metrics"
)

// Client is the high-level interface for making calls.
// This is what application layers should use.
type Client struct {
	router routing.Router
	retry  routing.RetryConfig
	logger *slog.Logger
}

// NewClient creates a new client over router.
func NewClient(router routing.Router) *Client {
	return &Client{
		router: router,
		retry:  routing.DefaultRetryConfig,
		logger: slog.Default().With("component", "rpc"),
	}
}

// WithRetry returns a copy of the client using cfg.
func (c *Client) WithRetry(cfg RetryConfig) *Client {
	cp := *c
	cp.retry = cfg
	return &cp
}

// Execute runs op against the pool with retry and failover.
func (c *Client) Execute(ctx context.Context, pool string, op Operation) (any, error) {
	start := time.Now()
	label := metricName(op)

	result, err := routing.CallWithRetryAndFailover(ctx, c.router, pool, op, c.retry)

	providerName := pool
	if p, perr := c.router.GetProvider(pool); perr == nil {
		providerName = p.GetName()
	}
	metrics.RPCCallsTotal.WithLabelValues(providerName, label).Inc()
	metrics.RPCLatency.WithLabelValues(providerName, label).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RPCErrorsTotal.WithLabelValues(providerName, routing.ClassifyError(err).String()).Inc()
		c.logger.Debug("RPC call failed", "pool", pool, "op", label, "error", err)
		return nil, err
	}
	return result, nil
}

// Call runs op and decodes the result into out.
func (c *Client) Call(ctx context.Context, pool string, op Operation, out any) error {
	result, err := c.Execute(ctx, pool, op)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return provider.Decode(result, out)
}

// GetProviderStats returns monitoring stats for all providers of pool.
func (c *Client) GetProviderStats(pool string) map[string]provider.MonitorStats {
	providers := c.router.GetAllProviders(pool)
	stats := make(map[string]provider.MonitorStats)

	for _, p := range providers {
		if httpProv, ok := p.(*provider.HTTPProvider); ok {
			stats[p.GetName()] = httpProv.Monitor.GetStats()
		}
	}

	return stats
}

// Providers returns every provider of pool.
func (c *Client) Providers(pool string) []provider.Provider {
	return c.router.GetAllProviders(pool)
}

// PrintMonitorDashboard returns a formatted dashboard string.
func (c *Client) PrintMonitorDashboard(pools ...string) string {
	var sb strings.Builder

	for _, pool := range pools {
		sb.WriteString(fmt.Sprintf("\n=== RPC Monitor Dashboard (Pool: %s) ===\n\n", pool))

		for _, p := range c.router.GetAllProviders(pool) {
			httpProv, ok := p.(*provider.HTTPProvider)
			if !ok {
				continue
			}

			stats := httpProv.Monitor.GetStats()

			sb.WriteString(fmt.Sprintf("Provider: %s (%s)\n", p.GetName(), httpProv.Endpoint()))
			sb.WriteString(fmt.Sprintf("  Status: %s\n", strings.ToUpper(stats.Status.String())))
			sb.WriteString(fmt.Sprintf("  Avg Latency: %v\n", stats.AverageLatency))
			sb.WriteString(fmt.Sprintf("  429 Errors: %d\n", stats.ThrottleCount429))
			sb.WriteString(fmt.Sprintf("  403 Errors: %d\n", stats.ThrottleCount403))
			sb.WriteString(fmt.Sprintf("  Requests (1h/24h): %d/%d\n",
				stats.RequestsLast1Hour,
				stats.RequestsLast24Hours))
			if stats.QuotaLimit > 0 {
				sb.WriteString(fmt.Sprintf("  Quota: %d/%d remaining (%.1f%% used)\n",
					stats.QuotaRemaining, stats.QuotaLimit, stats.UsagePercentage))
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// metricName keeps label cardinality bounded: REST paths carry addresses,
// so only their first segment is used.
func metricName(op Operation) string {
	if op.GraphQL != "" || !op.IsREST {
		return op.Name
	}
	name := strings.TrimLeft(op.Name, "/")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		name = name[:i]
	}
	return name
}
