// Package manager owns the wallet connection state machine.
//
// The manager is Disconnected until Connect succeeds, then Connected until
// Disconnect is called or the wallet reports that no account is selected.
// Transaction failures never touch the connection state; only account and
// network change notifications do.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vietddude/movement-kit/internal/core/domain"
	"github.com/vietddude/movement-kit/internal/core/errs"
	"github.com/vietddude/movement-kit/internal/infra/storage"
	"github.com/vietddude/movement-kit/internal/metrics"
	"github.com/vietddude/movement-kit/internal/wallet/adapter"
	"github.com/vietddude/movement-kit/internal/wallet/normalize"
	"github.com/vietddude/movement-kit/internal/wallet/standard"
)

// DefaultStorageKey is the key the last connected wallet type is stored under.
const DefaultStorageKey = "movement_last_wallet"

// ConnectEvent is emitted after a successful connect.
type ConnectEvent struct {
	Wallet    domain.WalletType
	Address   string
	PublicKey string
}

// AdapterFactory builds the adapter for a discovered wallet.
type AdapterFactory func(t domain.WalletType, d domain.WalletDescriptor) adapter.Adapter

// Option configures a Manager.
type Option func(*Manager)

// WithStorage sets the store used to remember the last connected wallet.
func WithStorage(kv storage.KV) Option {
	return func(m *Manager) {
		if kv != nil {
			m.store = kv
		}
	}
}

// WithStorageKey overrides DefaultStorageKey.
func WithStorageKey(key string) Option {
	return func(m *Manager) {
		if key != "" {
			m.storageKey = key
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithAdapterFactory replaces adapter.New.
func WithAdapterFactory(f AdapterFactory) Option {
	return func(m *Manager) {
		if f != nil {
			m.newAdapter = f
		}
	}
}

// Manager tracks discovered wallets and the active connection.
type Manager struct {
	registry   standard.Registry
	store      storage.KV
	storageKey string
	logger     *slog.Logger
	newAdapter AdapterFactory

	mu            sync.Mutex
	wallets       map[domain.WalletType]domain.WalletDescriptor
	unsubRegister func()
	state         domain.ConnectionState
	current       adapter.Adapter
	currentType   domain.WalletType
	releaseWatch  []func()
	network       string
	connecting    bool

	onConnect        observers[ConnectEvent]
	onDisconnect     observers[struct{}]
	onAccountChanged observers[*domain.AccountInfo]
	onNetworkChanged observers[string]
}

// New creates a manager over registry. Without WithStorage nothing is persisted.
func New(registry standard.Registry, opts ...Option) *Manager {
	m := &Manager{
		registry:   registry,
		store:      storage.Nop{},
		storageKey: DefaultStorageKey,
		logger:     slog.Default(),
		wallets:    make(map[domain.WalletType]domain.WalletDescriptor),
		state:      domain.DisconnectedState(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "wallet_manager")
	if m.newAdapter == nil {
		logger := m.logger
		m.newAdapter = func(t domain.WalletType, d domain.WalletDescriptor) adapter.Adapter {
			return adapter.New(t, d, adapter.WithLogger(logger))
		}
	}
	return m
}

// DetectWallets refreshes the supported wallets from the registry and
// (re)subscribes to new registrations. It never fails; registry errors are
// logged and whatever was found is returned.
func (m *Manager) DetectWallets() []domain.WalletType {
	unsub := m.registry.OnRegister(func(d domain.WalletDescriptor) {
		m.logger.Debug("Wallet registered", "name", d.Name)
		m.refresh()
	})

	m.mu.Lock()
	prev := m.unsubRegister
	m.unsubRegister = unsub
	m.mu.Unlock()
	if prev != nil {
		prev()
	}

	return m.refresh()
}

func (m *Manager) refresh() (available []domain.WalletType) {
	found := make(map[domain.WalletType]domain.WalletDescriptor)
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Wallet discovery panicked", "panic", r)
			available = m.cacheWallets(found)
		}
	}()

	descriptors, err := m.registry.Wallets()
	if err != nil {
		m.logger.Warn("Wallet discovery failed", "error", err)
	}
	for _, d := range descriptors {
		t, ok := domain.ParseWalletType(d.Name)
		if !ok {
			continue
		}
		if _, dup := found[t]; !dup {
			found[t] = d
		}
	}
	return m.cacheWallets(found)
}

// cacheWallets caches found and returns its types in display order.
func (m *Manager) cacheWallets(found map[domain.WalletType]domain.WalletDescriptor) []domain.WalletType {
	m.mu.Lock()
	m.wallets = found
	m.mu.Unlock()

	out := make([]domain.WalletType, 0, len(found))
	for _, t := range domain.SupportedWalletTypes {
		if _, ok := found[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// GetWalletInfo describes every wallet found by the last discovery.
func (m *Manager) GetWalletInfo() []domain.WalletInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.WalletInfo, 0, len(m.wallets))
	for _, t := range domain.SupportedWalletTypes {
		if d, ok := m.wallets[t]; ok {
			out = append(out, walletInfo(t, d))
		}
	}
	return out
}

// Connect connects to the wallet of type t.
func (m *Manager) Connect(ctx context.Context, t domain.WalletType) error {
	available := m.DetectWallets()

	m.mu.Lock()
	d, ok := m.wallets[t]
	if !ok {
		m.mu.Unlock()
		return errs.New(errs.CodeWalletNotFound, fmt.Sprintf("wallet %q is not available", t), map[string]any{
			"requested": t,
			"available": available,
		})
	}
	if m.connecting {
		m.mu.Unlock()
		return errs.New(errs.CodeWalletConnectionFailed, "another connection attempt is in progress", map[string]any{
			"wallet": t,
		})
	}
	m.connecting = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.connecting = false
		m.mu.Unlock()
	}()

	a := m.newAdapter(t, d)
	account, err := a.Connect(ctx)
	metrics.WalletOperations.WithLabelValues(string(t), "connect", metrics.Status(err)).Inc()
	if err != nil {
		m.logger.Warn("Wallet connect failed", "wallet", t, "error", err)
		return errs.Wrap(err, errs.CodeWalletConnectionFailed, fmt.Sprintf("failed to connect to %s", t), map[string]any{
			"wallet":   t,
			"rejected": normalize.IsRejection(err),
		})
	}

	m.mu.Lock()
	prev := m.current
	prevWatch := m.releaseWatch
	m.current = a
	m.currentType = t
	m.releaseWatch = nil
	m.state = domain.ConnectedState(account)
	m.mu.Unlock()

	// The previous connection's listeners go in every case. Switching
	// families also disconnects the previous wallet; reconnecting the same
	// family must not, since both adapters drive the same extension.
	release(prevWatch)
	if prev != nil && prev.Type() != t {
		prev.Disconnect(ctx)
	}

	if err := m.store.Set(ctx, m.storageKey, string(t)); err != nil {
		m.logger.Debug("Could not persist last wallet", "error", err)
	}

	m.watch(a)

	m.logger.Info("Wallet connected", "wallet", t, "address", domain.ShortAddress(account.Address))
	m.onConnect.emit(m.logger, "connect", ConnectEvent{
		Wallet:    t,
		Address:   account.Address,
		PublicKey: account.PublicKey,
	})
	return nil
}

// Disconnect drops the active connection. It always succeeds and emits the
// disconnect event even when nothing was connected.
func (m *Manager) Disconnect(ctx context.Context) {
	m.mu.Lock()
	a := m.current
	watch := m.releaseWatch
	m.current = nil
	m.currentType = ""
	m.releaseWatch = nil
	m.network = ""
	m.state = domain.DisconnectedState()
	m.mu.Unlock()

	release(watch)
	if a != nil {
		a.Disconnect(ctx)
		metrics.WalletOperations.WithLabelValues(string(a.Type()), "disconnect", metrics.StatusSuccess).Inc()
	}
	if err := m.store.Delete(ctx, m.storageKey); err != nil {
		m.logger.Debug("Could not clear last wallet", "error", err)
	}

	m.onDisconnect.emit(m.logger, "disconnect", struct{}{})
}

// AutoConnect reconnects to the last used wallet when it is available.
// Failures clear the remembered wallet and are never returned.
func (m *Manager) AutoConnect(ctx context.Context) {
	last, found, err := m.store.Get(ctx, m.storageKey)
	if err != nil {
		m.logger.Debug("Could not read last wallet", "error", err)
		return
	}
	if !found || last == "" {
		return
	}

	t := domain.WalletType(last)
	if !t.IsValid() {
		m.forget(ctx)
		return
	}
	if m.GetState().Connected {
		return
	}

	available := false
	for _, at := range m.DetectWallets() {
		if at == t {
			available = true
			break
		}
	}
	if !available {
		return
	}

	if err := m.Connect(ctx, t); err != nil {
		m.logger.Info("Auto-connect failed", "wallet", t, "error", err)
		m.forget(ctx)
	}
}

func (m *Manager) forget(ctx context.Context) {
	if err := m.store.Delete(ctx, m.storageKey); err != nil {
		m.logger.Debug("Could not clear last wallet", "error", err)
	}
}

// GetState returns a copy of the connection state.
func (m *Manager) GetState() domain.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// GetWallet describes the connected wallet, or returns nil.
func (m *Manager) GetWallet() *domain.WalletInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	info := walletInfo(m.currentType, m.wallets[m.currentType])
	if info.Name == "" {
		info.Name = m.current.Name()
	}
	return &info
}

// GetAdapter returns the connected adapter, or nil.
func (m *Manager) GetAdapter() adapter.Adapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Network returns the last network reported by the wallet.
func (m *Manager) Network() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.network
}

func (m *Manager) OnConnect(fn func(ConnectEvent)) func() {
	return m.onConnect.add(fn)
}

func (m *Manager) OnDisconnect(fn func()) func() {
	return m.onDisconnect.add(func(struct{}) { fn() })
}

// OnAccountChanged is called with the new account, or nil when the wallet
// no longer exposes one.
func (m *Manager) OnAccountChanged(fn func(*domain.AccountInfo)) func() {
	return m.onAccountChanged.add(fn)
}

func (m *Manager) OnNetworkChanged(fn func(string)) func() {
	return m.onNetworkChanged.add(fn)
}

// Close removes the registry subscription.
func (m *Manager) Close() {
	m.mu.Lock()
	unsub := m.unsubRegister
	m.unsubRegister = nil
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// watch installs the account and network listeners for a. Listeners are
// released when a stops being the current adapter.
func (m *Manager) watch(a adapter.Adapter) {
	var fns []func()
	if stop, err := a.OnAccountChange(func(acc *domain.AccountInfo) { m.handleAccountChange(a, acc) }); err != nil {
		m.logger.Debug("Account change notifications unavailable", "wallet", a.Type(), "error", err)
	} else {
		fns = append(fns, stop)
	}
	if stop, err := a.OnNetworkChange(func(n string) { m.handleNetworkChange(a, n) }); err != nil {
		m.logger.Debug("Network change notifications unavailable", "wallet", a.Type(), "error", err)
	} else {
		fns = append(fns, stop)
	}

	m.mu.Lock()
	if m.current != a {
		// Replaced or disconnected while registering.
		m.mu.Unlock()
		release(fns)
		return
	}
	m.releaseWatch = fns
	m.mu.Unlock()
}

func release(fns []func()) {
	for _, fn := range fns {
		if fn != nil {
			fn()
		}
	}
}

func (m *Manager) handleAccountChange(src adapter.Adapter, acc *domain.AccountInfo) {
	m.mu.Lock()
	if m.current != src {
		m.mu.Unlock()
		return
	}
	var watch []func()
	if acc == nil {
		watch = m.releaseWatch
		m.current = nil
		m.currentType = ""
		m.releaseWatch = nil
		m.network = ""
		m.state = domain.DisconnectedState()
	} else {
		m.state = domain.ConnectedState(*acc)
	}
	m.mu.Unlock()

	release(watch)
	if acc == nil {
		m.logger.Info("Wallet reported no account, disconnected")
		m.onAccountChanged.emit(m.logger, "accountChanged", nil)
		m.onDisconnect.emit(m.logger, "disconnect", struct{}{})
		return
	}
	cp := *acc
	m.onAccountChanged.emit(m.logger, "accountChanged", &cp)
}

func (m *Manager) handleNetworkChange(src adapter.Adapter, network string) {
	m.mu.Lock()
	if m.current != src {
		m.mu.Unlock()
		return
	}
	m.network = network
	m.mu.Unlock()

	m.onNetworkChanged.emit(m.logger, "networkChanged", network)
}

func walletInfo(t domain.WalletType, d domain.WalletDescriptor) domain.WalletInfo {
	return domain.WalletInfo{
		Type: t,
		Name: d.Name,
		Icon: d.Icon,
		URL:  d.URL,
	}
}
