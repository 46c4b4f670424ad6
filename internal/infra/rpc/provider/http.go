package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries a per-request id so node logs can be correlated.
const RequestIDHeader = "X-Request-ID"

// HTTPProvider implements Provider for REST and GraphQL over HTTP.
type HTTPProvider struct {
	name       string
	endpoint   string
	httpClient *http.Client
	headers    map[string]string

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int

	Monitor *ProviderMonitor
}

var _ Provider = (*HTTPProvider)(nil)

// NewHTTPProvider creates a new HTTP provider rooted at endpoint.
func NewHTTPProvider(name, endpoint string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		name:     name,
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		headers: make(map[string]string),
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
		Monitor: NewProviderMonitor(),
	}
}

// SetHeader adds a header sent with every request, e.g. an API key.
func (p *HTTPProvider) SetHeader(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.headers[key] = value
}

// Execute performs op and returns the response body as json.RawMessage.
// GraphQL responses are unwrapped to their data field.
func (p *HTTPProvider) Execute(ctx context.Context, op Operation) (any, error) {
	if op.Invoke != nil {
		start := time.Now()
		result, err := op.Invoke(ctx)
		if err != nil {
			p.recordFailure()
			return nil, err
		}
		p.Monitor.RecordRequest(time.Since(start))
		p.recordSuccess(time.Since(start))
		return result, nil
	}

	// Pre-call checks
	if status := p.Monitor.CheckProviderStatus(); status == StatusThrottled || status == StatusBlocked {
		return nil, fmt.Errorf("provider throttled, retry after: %v", p.Monitor.GetRetryAfter())
	}

	req, err := p.newRequest(ctx, op)
	if err != nil {
		p.recordFailure()
		return nil, err
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.recordFailure()
		return nil, fmt.Errorf("%s: %w", op.Name, err)
	}
	defer resp.Body.Close()

	latency := time.Since(start)
	p.Monitor.RecordQuota(resp.Header)

	// Rate limit detection
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		p.Monitor.RecordThrottle(http.StatusTooManyRequests, retryAfter)
		p.recordFailure()
		return nil, fmt.Errorf("rate limited (429), retry after: %s", retryAfter)
	}

	// IP blocked detection
	if resp.StatusCode == http.StatusForbidden {
		p.Monitor.RecordThrottle(http.StatusForbidden, "")
		p.recordFailure()
		return nil, fmt.Errorf("ip blocked (403)")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.recordFailure()
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.recordFailure()
		if p.Monitor.DetectThrottlePattern(string(body)) {
			return nil, fmt.Errorf("throttle detected in response: %s", string(body))
		}
		return nil, newHTTPError(resp.StatusCode, body)
	}

	if op.GraphQL != "" {
		data, err := unwrapGraphQL(body)
		if err != nil {
			p.recordFailure()
			return nil, err
		}
		body = data
	}

	p.Monitor.RecordRequest(latency)
	p.recordSuccess(latency)

	return json.RawMessage(body), nil
}

func (p *HTTPProvider) newRequest(ctx context.Context, op Operation) (*http.Request, error) {
	target := p.endpoint
	method := http.MethodPost
	var payload any

	switch {
	case op.GraphQL != "":
		payload = map[string]any{
			"query":     op.GraphQL,
			"variables": op.Params,
		}
	case op.IsREST:
		target = p.endpoint + "/" + strings.TrimLeft(op.Name, "/")
		payload = op.Params
		method = op.RESTMethod
		if method == "" {
			method = http.MethodGet
			if payload != nil {
				method = http.MethodPost
			}
		}
	default:
		return nil, fmt.Errorf("operation %s has no transport", op.Name)
	}

	if len(op.Query) > 0 {
		q := url.Values{}
		for k, v := range op.Query {
			q.Set(k, v)
		}
		target += "?" + q.Encode()
	}

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())

	p.mu.RLock()
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
	p.mu.RUnlock()

	return req, nil
}

func newHTTPError(status int, body []byte) *HTTPError {
	e := &HTTPError{StatusCode: status, Body: string(body)}
	var nodeErr struct {
		Message   string `json:"message"`
		ErrorCode string `json:"error_code"`
	}
	if json.Unmarshal(body, &nodeErr) == nil {
		e.Message = nodeErr.Message
		e.ErrorCode = nodeErr.ErrorCode
	}
	return e
}

func unwrapGraphQL(body []byte) (json.RawMessage, error) {
	var gqlResp struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return nil, fmt.Errorf("parse graphql response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		gqlErr := &GraphQLError{}
		for _, e := range gqlResp.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return nil, gqlErr
	}
	return gqlResp.Data, nil
}

// GetName returns the provider's name.
func (p *HTTPProvider) GetName() string {
	return p.name
}

// Endpoint returns the provider's base URL.
func (p *HTTPProvider) Endpoint() string {
	return p.endpoint
}

// GetHealth returns the provider's health status.
func (p *HTTPProvider) GetHealth() HealthStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h := p.health
	stats := p.Monitor.GetStats()
	h.MonitorStats = &stats
	return h
}

// Close cleans up resources.
func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// HasQuotaRemaining checks if this provider has quota remaining.
func (p *HTTPProvider) HasQuotaRemaining() bool {
	status := p.Monitor.CheckProviderStatus()
	return status != StatusThrottled && status != StatusBlocked
}

// IsAvailable checks if the provider is available.
func (p *HTTPProvider) IsAvailable() bool {
	status := p.Monitor.CheckProviderStatus()
	return status == StatusHealthy || status == StatusDegraded
}

func (p *HTTPProvider) recordSuccess(latency time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.successCount++
	p.requestCount++
	p.totalLatency += latency
	p.health.LastSuccessAt = time.Now()
	p.health.Available = true

	if p.requestCount > 0 {
		p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	}
	if p.successCount > 0 {
		p.health.Latency = p.totalLatency / time.Duration(p.successCount)
	}
}

func (p *HTTPProvider) recordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failureCount++
	p.requestCount++
	p.health.LastFailureAt = time.Now()

	if p.requestCount > 0 {
		p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	}

	if p.health.ErrorRate > 0.5 {
		p.health.Available = false
	}
}
