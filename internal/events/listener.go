// Package events polls the chain for events and delivers each one to its
// subscriber exactly once, in sequence number order.
package events

import (
	"context"
	"log/slog"
	"math/big"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/movement-kit/internal/core/domain"
	"github.com/vietddude/movement-kit/internal/core/errs"
	"github.com/vietddude/movement-kit/internal/infra/chain"
	"github.com/vietddude/movement-kit/internal/metrics"
)

const (
	// DefaultPollInterval is the interval between polls of one subscription.
	DefaultPollInterval = 5 * time.Second

	// DefaultEventLimit is the page size requested per poll.
	DefaultEventLimit = 100
)

// Handler receives events. Errors and panics are logged and counted; they
// never stop the subscription.
type Handler func(domain.Event) error

// SubscriptionConfig describes a subscription. EventHandle is the legacy
// address::module::Struct form and is only used when EventType is empty.
type SubscriptionConfig struct {
	AccountAddress string
	EventType      string
	EventHandle    string
	Handler        Handler
}

type subscription struct {
	id             uint64
	accountAddress string
	eventType      string
	handler        Handler
	ctx            context.Context
	cancel         context.CancelFunc

	// Watermarks keyed by emitting account. Sequence numbers are only
	// ordered within one account's stream. Owned by the poll goroutine.
	last map[string]*big.Int
}

// Listener runs one polling goroutine per subscription.
type Listener struct {
	source   chain.EventSource
	interval time.Duration
	limit    int
	logger   *slog.Logger

	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64
	wg     sync.WaitGroup
}

// Option configures a Listener.
type Option func(*Listener)

// WithPollInterval sets the poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithEventLimit sets how many events are requested per poll.
func WithEventLimit(n int) Option {
	return func(l *Listener) {
		if n > 0 {
			l.limit = n
		}
	}
}

// WithLogger sets the listener logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewListener creates a Listener reading from source.
func NewListener(source chain.EventSource, opts ...Option) *Listener {
	l := &Listener{
		source:   source,
		interval: DefaultPollInterval,
		limit:    DefaultEventLimit,
		logger:   slog.Default(),
		subs:     make(map[uint64]*subscription),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "event_listener")
	return l
}

// Subscribe starts polling for cfg and returns the subscription id. The
// first poll runs immediately.
func (l *Listener) Subscribe(cfg SubscriptionConfig) (uint64, error) {
	if cfg.Handler == nil {
		return 0, errs.New(errs.CodeInvalidArgument, "subscription needs a handler", nil)
	}

	account, eventType := cfg.AccountAddress, cfg.EventType
	if eventType == "" {
		if strings.TrimSpace(cfg.EventHandle) == "" {
			return 0, errs.New(errs.CodeInvalidEventHandle, "subscription needs an event type or handle", nil)
		}
		account, eventType = ParseEventHandle(cfg.EventHandle)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &subscription{
		accountAddress: account,
		eventType:      eventType,
		handler:        cfg.Handler,
		ctx:            ctx,
		cancel:         cancel,
		last:           make(map[string]*big.Int),
	}

	l.mu.Lock()
	l.nextID++
	s.id = l.nextID
	l.subs[s.id] = s
	l.wg.Add(1)
	l.mu.Unlock()

	metrics.ActiveSubscriptions.Inc()
	l.logger.Info("Subscribed to events", "id", s.id, "event_type", eventType, "account", account)

	go l.run(s)
	return s.id, nil
}

// Unsubscribe stops subscription id. Results of a poll still in flight are
// discarded. It reports whether the subscription existed.
func (l *Listener) Unsubscribe(id uint64) bool {
	l.mu.Lock()
	s, ok := l.subs[id]
	delete(l.subs, id)
	l.mu.Unlock()

	if !ok {
		return false
	}
	s.cancel()
	metrics.ActiveSubscriptions.Dec()
	l.logger.Info("Unsubscribed from events", "id", id, "event_type", s.eventType)
	return true
}

// UnsubscribeAll stops every subscription.
func (l *Listener) UnsubscribeAll() {
	l.mu.Lock()
	subs := l.subs
	l.subs = make(map[uint64]*subscription)
	l.mu.Unlock()

	for _, s := range subs {
		s.cancel()
		metrics.ActiveSubscriptions.Dec()
	}
	if len(subs) > 0 {
		l.logger.Info("Unsubscribed from all events", "count", len(subs))
	}
}

// Close stops every subscription and waits for the poll goroutines to exit.
// It must not be called from a Handler.
func (l *Listener) Close() {
	l.UnsubscribeAll()
	l.wg.Wait()
}

// GetSubscriptionCount returns the number of live subscriptions.
func (l *Listener) GetSubscriptionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

// HasSubscription reports whether id is live.
func (l *Listener) HasSubscription(id uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.subs[id]
	return ok
}

// ParseEventHandle splits a legacy event handle. A handle with at least
// three :: separated segments and a non-empty first segment yields that
// segment as the account; anything else is used verbatim for both.
func ParseEventHandle(handle string) (accountAddress, eventType string) {
	parts := strings.Split(handle, "::")
	if len(parts) >= 3 && parts[0] != "" {
		return parts[0], handle
	}
	return handle, handle
}

func (l *Listener) run(s *subscription) {
	defer l.wg.Done()

	l.poll(s)

	// Polls run on this goroutine only, so a slow poll delays the next tick
	// instead of overlapping it.
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			l.poll(s)
		}
	}
}

type sequenced struct {
	seq   *big.Int
	event domain.Event
}

func (l *Listener) poll(s *subscription) {
	events, err := l.source.GetEventsByEventType(s.ctx, s.accountAddress, s.eventType, l.limit)
	if s.ctx.Err() != nil {
		return
	}
	if err != nil {
		metrics.EventPolls.WithLabelValues(s.eventType, metrics.StatusFailure).Inc()
		l.logger.Warn("Event poll failed", "id", s.id, "event_type", s.eventType, "error", err)
		return
	}
	metrics.EventPolls.WithLabelValues(s.eventType, metrics.StatusSuccess).Inc()

	batch := make([]sequenced, 0, len(events))
	for _, e := range events {
		seq, ok := new(big.Int).SetString(strings.TrimSpace(e.SequenceNumber), 10)
		if !ok {
			l.logger.Warn("Skipping event with invalid sequence number",
				"id", s.id, "event_type", s.eventType, "sequence_number", e.SequenceNumber)
			continue
		}
		batch = append(batch, sequenced{seq: seq, event: e})
	}
	slices.SortStableFunc(batch, func(a, b sequenced) int { return a.seq.Cmp(b.seq) })

	for _, item := range batch {
		stream := s.streamKey(item.event)
		if last, ok := s.last[stream]; ok && item.seq.Cmp(last) <= 0 {
			continue
		}
		if s.ctx.Err() != nil {
			return
		}
		l.dispatch(s, normalizeEvent(item.event))
		s.last[stream] = item.seq

		f, _ := new(big.Float).SetInt(item.seq).Float64()
		metrics.EventWatermark.WithLabelValues(s.eventType).Set(f)
	}
}

// streamKey names the sequence number stream an event belongs to. Events
// without an emitter count against the subscription's own account.
func (s *subscription) streamKey(e domain.Event) string {
	account := e.AccountAddress
	if account == "" {
		account = s.accountAddress
	}
	if full, ok := domain.NormalizeAddress(account); ok {
		return full
	}
	return strings.ToLower(strings.TrimSpace(account))
}

func (l *Listener) dispatch(s *subscription, e domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.EventCallbackErrors.WithLabelValues(s.eventType).Inc()
			l.logger.Error("Event handler panicked",
				"id", s.id, "event_type", s.eventType, "sequence_number", e.SequenceNumber, "panic", r)
		}
	}()

	metrics.EventsDispatched.WithLabelValues(s.eventType).Inc()
	if err := s.handler(e); err != nil {
		metrics.EventCallbackErrors.WithLabelValues(s.eventType).Inc()
		l.logger.Warn("Event handler failed",
			"id", s.id, "event_type", s.eventType, "sequence_number", e.SequenceNumber, "error", err)
	}
}

// normalizeEvent gives handlers a non-nil data map and a trimmed sequence number.
func normalizeEvent(e domain.Event) domain.Event {
	e.SequenceNumber = strings.TrimSpace(e.SequenceNumber)
	if e.Data == nil {
		e.Data = map[string]any{}
	}
	return e
}
