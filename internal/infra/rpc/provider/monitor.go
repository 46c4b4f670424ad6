package provider

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ProviderStatus represents the health state of a provider.
type ProviderStatus int

const (
	StatusHealthy   ProviderStatus = iota // Provider is working normally
	StatusDegraded                        // Provider is slow but working
	StatusThrottled                       // Provider is rate limiting
	StatusBlocked                         // Provider has blocked this client
)

func (s ProviderStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	case StatusBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Rate limit headers sent by the Movement and Aptos API gateways.
const (
	HeaderRateLimit     = "X-Ratelimit-Limit"
	HeaderRateRemaining = "X-Ratelimit-Remaining"
	HeaderRateReset     = "X-Ratelimit-Reset"
)

const (
	latencyWindow       = 100
	dayMinutes          = 24 * 60
	slowResponse        = 3 * time.Second
	defaultRetryAfter   = time.Minute
	blockedRetryAfter   = 10 * time.Minute
	throttledAfter429s  = 3
	quotaExhaustedRatio = 0.95
)

var throttleMessages = []string{
	"rate limit",
	"too many requests",
	"quota exceeded",
	"compute unit limit",
}

// MonitorStats holds monitoring statistics for a provider.
type MonitorStats struct {
	Status              ProviderStatus
	AverageLatency      time.Duration
	ThrottleCount429    int
	ThrottleCount403    int
	RequestsLast1Hour   int
	RequestsLast24Hours int
	// Quota fields are zero until the gateway reports rate limit headers.
	QuotaLimit      int
	QuotaRemaining  int
	QuotaResetAt    time.Time
	UsagePercentage float64
}

type minuteBucket struct {
	minute int64
	count  int
}

// ProviderMonitor tracks latency, throttling and the gateway's quota for one
// provider. Request counts are kept in per-minute buckets covering a day.
type ProviderMonitor struct {
	mu  sync.RWMutex
	now func() time.Time

	latencies  [latencyWindow]time.Duration
	latencyLen int
	latencyPos int

	buckets [dayMinutes]minuteBucket

	status429Count int
	status403Count int
	recent429s     int
	lastThrottle   time.Time
	retryAfter     time.Duration
	blocked        bool

	quotaLimit     int
	quotaRemaining int
	quotaResetAt   time.Time
}

// NewProviderMonitor creates a new monitor.
func NewProviderMonitor() *ProviderMonitor {
	return &ProviderMonitor{now: time.Now}
}

// RecordRequest records a successful request with its latency.
func (pm *ProviderMonitor) RecordRequest(latency time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.latencies[pm.latencyPos] = latency
	pm.latencyPos = (pm.latencyPos + 1) % latencyWindow
	if pm.latencyLen < latencyWindow {
		pm.latencyLen++
	}

	minute := pm.now().Unix() / 60
	b := &pm.buckets[minute%dayMinutes]
	if b.minute != minute {
		*b = minuteBucket{minute: minute}
	}
	b.count++

	pm.recent429s = 0
}

// RecordThrottle records a rate limiting or blocking response.
// retryAfter is the raw Retry-After header, in seconds or as an HTTP date.
func (pm *ProviderMonitor) RecordThrottle(statusCode int, retryAfter string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.lastThrottle = pm.now()

	switch statusCode {
	case http.StatusTooManyRequests:
		pm.status429Count++
		pm.recent429s++
		pm.retryAfter = parseRetryAfter(retryAfter, pm.lastThrottle)
	case http.StatusForbidden:
		pm.status403Count++
		pm.blocked = true
		pm.retryAfter = blockedRetryAfter
	}
}

// RecordQuota reads the gateway's rate limit headers. Responses without
// them leave the last known quota untouched.
func (pm *ProviderMonitor) RecordQuota(h http.Header) {
	limit, err := strconv.Atoi(h.Get(HeaderRateLimit))
	if err != nil || limit <= 0 {
		return
	}
	remaining, err := strconv.Atoi(h.Get(HeaderRateRemaining))
	if err != nil {
		return
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.quotaLimit = limit
	pm.quotaRemaining = max(remaining, 0)
	pm.quotaResetAt = time.Time{}
	if secs, err := strconv.Atoi(h.Get(HeaderRateReset)); err == nil && secs >= 0 {
		pm.quotaResetAt = pm.now().Add(time.Duration(secs) * time.Second)
	}
}

func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return defaultRetryAfter
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return defaultRetryAfter
}

// DetectThrottlePattern reports whether an error body reads like a rate
// limit rejection.
func (pm *ProviderMonitor) DetectThrottlePattern(message string) bool {
	lower := strings.ToLower(message)
	for _, pattern := range throttleMessages {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// CheckProviderStatus returns the current status of the provider.
func (pm *ProviderMonitor) CheckProviderStatus() ProviderStatus {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.statusLocked(pm.now())
}

func (pm *ProviderMonitor) statusLocked(now time.Time) ProviderStatus {
	cooling := now.Sub(pm.lastThrottle) < pm.retryAfter
	switch {
	case pm.blocked && cooling:
		return StatusBlocked
	case pm.recent429s >= throttledAfter429s && cooling:
		return StatusThrottled
	case pm.quotaExhaustedLocked(now):
		return StatusThrottled
	case pm.latencyLen > 10 && pm.averageLatencyLocked() > slowResponse:
		return StatusDegraded
	}
	return StatusHealthy
}

func (pm *ProviderMonitor) quotaExhaustedLocked(now time.Time) bool {
	if pm.quotaLimit == 0 {
		return false
	}
	if !pm.quotaResetAt.IsZero() && !now.Before(pm.quotaResetAt) {
		return false
	}
	used := float64(pm.quotaLimit-pm.quotaRemaining) / float64(pm.quotaLimit)
	return pm.quotaRemaining == 0 || used >= quotaExhaustedRatio
}

// GetRetryAfter returns remaining time before retry is allowed.
func (pm *ProviderMonitor) GetRetryAfter() time.Duration {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	now := pm.now()
	if remaining := pm.retryAfter - now.Sub(pm.lastThrottle); remaining > 0 {
		return remaining
	}
	if pm.quotaExhaustedLocked(now) && !pm.quotaResetAt.IsZero() {
		return pm.quotaResetAt.Sub(now)
	}
	return 0
}

// GetAverageLatency returns the average latency of recent requests.
func (pm *ProviderMonitor) GetAverageLatency() time.Duration {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.averageLatencyLocked()
}

func (pm *ProviderMonitor) averageLatencyLocked() time.Duration {
	if pm.latencyLen == 0 {
		return 0
	}
	var total time.Duration
	for _, lat := range pm.latencies[:pm.latencyLen] {
		total += lat
	}
	return total / time.Duration(pm.latencyLen)
}

// GetRequestCount returns the number of successful requests in the last d,
// at minute granularity and capped at one day.
func (pm *ProviderMonitor) GetRequestCount(d time.Duration) int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.requestCountLocked(d)
}

func (pm *ProviderMonitor) requestCountLocked(d time.Duration) int {
	now := pm.now().Unix() / 60
	oldest := now - int64(min(d, 24*time.Hour)/time.Minute)
	count := 0
	for _, b := range pm.buckets {
		if b.minute > oldest && b.minute <= now {
			count += b.count
		}
	}
	return count
}

// GetStats returns current monitoring statistics.
func (pm *ProviderMonitor) GetStats() MonitorStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	stats := MonitorStats{
		Status:              pm.statusLocked(pm.now()),
		AverageLatency:      pm.averageLatencyLocked(),
		ThrottleCount429:    pm.status429Count,
		ThrottleCount403:    pm.status403Count,
		RequestsLast1Hour:   pm.requestCountLocked(time.Hour),
		RequestsLast24Hours: pm.requestCountLocked(24 * time.Hour),
		QuotaLimit:          pm.quotaLimit,
		QuotaRemaining:      pm.quotaRemaining,
		QuotaResetAt:        pm.quotaResetAt,
	}
	if pm.quotaLimit > 0 {
		stats.UsagePercentage = float64(pm.quotaLimit-pm.quotaRemaining) / float64(pm.quotaLimit) * 100
	}
	return stats
}
