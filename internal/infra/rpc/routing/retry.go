package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/vietddude/movement-kit/internal/infra/rpc/provider"
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    500 * time.Millisecond,
	MaxDelay:        10 * time.Second,
	BackoffMultiple: 2.0,
}

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFailover
	ActionFatal
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFailover:
		return "failover"
	case ActionFatal:
		return "fatal"
	}
	return "unknown"
}

// nodeErrorActions maps fullnode error_code values whose meaning differs
// from their HTTP status.
var nodeErrorActions = map[string]ErrorAction{
	"mempool_is_full":         ActionRetry,
	"internal_error":          ActionRetry,
	"health_check_failed":     ActionFailover,
	"version_pruned":          ActionFailover,
	"block_pruned":            ActionFailover,
	"sequence_number_too_old": ActionFatal,
	"vm_error":                ActionFatal,
	"invalid_input":           ActionFatal,
}

// ClassifyError determines the action for a given error.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionRetry // Should not happen
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ActionFatal
	}

	// Request issues: the node understood and refused it, another try or
	// another node will answer the same.
	var httpErr *provider.HTTPError
	if errors.As(err, &httpErr) {
		if action, ok := nodeErrorActions[httpErr.ErrorCode]; ok {
			return action
		}
		switch {
		case httpErr.StatusCode == http.StatusTooManyRequests,
			httpErr.StatusCode == http.StatusForbidden,
			httpErr.StatusCode == http.StatusUnauthorized:
			return ActionFailover
		case httpErr.StatusCode == http.StatusRequestTimeout:
			return ActionRetry
		case httpErr.StatusCode >= 400 && httpErr.StatusCode < 500:
			return ActionFatal
		}
		return ActionRetry
	}
	var gqlErr *provider.GraphQLError
	if errors.As(err, &gqlErr) {
		return ActionFatal
	}

	s := err.Error()
	sLower := strings.ToLower(s)

	// Failover (Provider specific issues)
	if strings.Contains(s, "429") || strings.Contains(sLower, "too many requests") ||
		strings.Contains(s, "403") || strings.Contains(sLower, "forbidden") ||
		strings.Contains(sLower, "quota") || strings.Contains(sLower, "plan limit") ||
		strings.Contains(sLower, "unauthorized") ||
		strings.Contains(sLower, "rate limit") ||
		strings.Contains(sLower, "throttle") ||
		strings.Contains(sLower, "count exceeded") {
		return ActionFailover
	}

	// Default to Retry (Network, 5xx, etc)
	return ActionRetry
}

// CallWithRetry executes op with exponential backoff.
func CallWithRetry(
	ctx context.Context,
	p provider.Provider,
	op provider.Operation,
	config RetryConfig,
) (any, error) {
	var lastErr error
	attempts := config.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		result, err := p.Execute(ctx, op)
		if err == nil {
			return result, nil
		}

		lastErr = err

		// Classify error
		action := ClassifyError(err)
		if action == ActionFatal {
			return nil, err // Stop immediately, do not retry
		}
		if action == ActionFailover {
			return nil, err // Return error immediately to try next provider
		}

		// ActionRetry: continue loop
		if attempt == attempts-1 {
			break
		}

		delay := calculateBackoff(attempt, config)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// CallWithRetryAndFailover tries each provider of the pool with retry.
func CallWithRetryAndFailover(
	ctx context.Context,
	router Router,
	pool string,
	op provider.Operation,
	config RetryConfig,
) (any, error) {
	providers := router.GetAllProviders(pool)
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers for pool %s", pool)
	}

	var lastErr error
	for _, p := range providers {
		if dr, ok := router.(*DefaultRouter); ok && !dr.usable(p) {
			continue
		}

		start := time.Now()
		result, err := CallWithRetry(ctx, p, op, config)
		latency := time.Since(start)
		if err == nil {
			router.RecordSuccess(p.GetName(), latency)
			return result, nil
		}

		lastErr = err

		// Fatal errors are the request's fault, not the provider's.
		if ClassifyError(err) == ActionFatal {
			return nil, err
		}
		router.RecordFailure(p.GetName(), err)
	}

	if lastErr == nil {
		return nil, fmt.Errorf("no available providers for pool %s", pool)
	}
	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}

func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.BackoffMultiple, float64(attempt))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}
