package manager

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/movement-kit/internal/core/domain"
	"github.com/vietddude/movement-kit/internal/core/errs"
	"github.com/vietddude/movement-kit/internal/infra/storage/memory"
	"github.com/vietddude/movement-kit/internal/wallet/standard"
)

// fakeWallet builds a descriptor whose features are driven by the test.
type fakeWallet struct {
	mu            sync.Mutex
	name          string
	address       string
	connectErr    error
	submitErr     error
	disconnects   int
	accountChange func(any)
	networkChange func(any)
}

func (f *fakeWallet) descriptor() domain.WalletDescriptor {
	return domain.WalletDescriptor{
		Name: f.name,
		Icon: "data:image/svg+xml;base64,",
		Features: map[domain.Feature]any{
			domain.FeatureConnect: func(context.Context) (any, error) {
				f.mu.Lock()
				defer f.mu.Unlock()
				if f.connectErr != nil {
					return nil, f.connectErr
				}
				return map[string]any{
					"status": "Approved",
					"args":   map[string]any{"address": f.address, "publicKey": "0xpk"},
				}, nil
			},
			domain.FeatureDisconnect: func(context.Context) error {
				f.mu.Lock()
				defer f.mu.Unlock()
				f.disconnects++
				return errors.New("disconnect is flaky")
			},
			domain.FeatureSignAndSubmit: func(context.Context, any) (any, error) {
				return nil, f.submitErr
			},
			domain.FeatureOnAccountChange: func(cb func(any)) {
				f.mu.Lock()
				defer f.mu.Unlock()
				f.accountChange = cb
			},
			domain.FeatureOnNetworkChange: func(cb func(any)) {
				f.mu.Lock()
				defer f.mu.Unlock()
				f.networkChange = cb
			},
		},
	}
}

func newTestManager(t *testing.T, wallets ...*fakeWallet) (*Manager, *standard.MemoryRegistry, *memory.Store) {
	t.Helper()
	reg := standard.NewMemoryRegistry()
	for _, w := range wallets {
		reg.Register(w.descriptor())
	}
	store := memory.NewStore()
	m := New(reg, WithStorage(store))
	t.Cleanup(m.Close)
	return m, reg, store
}

func TestDetectWallets(t *testing.T) {
	m, reg, _ := newTestManager(t,
		&fakeWallet{name: "Razor Wallet"},
		&fakeWallet{name: "Phantom"},
		&fakeWallet{name: "PETRA"},
	)

	assert.Equal(t, []domain.WalletType{domain.WalletPetra, domain.WalletRazor}, m.DetectWallets())

	// New registrations are picked up without another explicit call.
	reg.Register((&fakeWallet{name: "Nightly"}).descriptor())
	info := m.GetWalletInfo()
	require.Len(t, info, 3)
	assert.Equal(t, domain.WalletNightly, info[1].Type)
	assert.Equal(t, "Nightly", info[1].Name)

	// Repeated detection keeps a single registry subscription.
	m.DetectWallets()
	m.DetectWallets()
	assert.Equal(t, 1, reg.ListenerCount())
}

type failingRegistry struct{ *standard.MemoryRegistry }

func (failingRegistry) Wallets() ([]domain.WalletDescriptor, error) {
	return nil, errors.New("registry unavailable")
}

func TestDetectWallets_RegistryFailure(t *testing.T) {
	m := New(failingRegistry{MemoryRegistry: standard.NewMemoryRegistry()})
	assert.Empty(t, m.DetectWallets())
}

func TestConnect_NotFound(t *testing.T) {
	m, _, _ := newTestManager(t, &fakeWallet{name: "Petra", address: "0x1"})

	err := m.Connect(context.Background(), domain.WalletRazor)
	require.Error(t, err)

	var me *errs.MovementError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, errs.CodeWalletNotFound, me.Code)
	assert.Equal(t, domain.WalletRazor, me.Details["requested"])
	assert.Equal(t, m.DetectWallets(), me.Details["available"])
	assert.False(t, m.GetState().Connected)
}

func TestConnect_Success(t *testing.T) {
	w := &fakeWallet{name: "Nightly", address: "0xabc"}
	m, _, store := newTestManager(t, w)

	var events []ConnectEvent
	m.OnConnect(func(e ConnectEvent) { events = append(events, e) })

	require.NoError(t, m.Connect(context.Background(), domain.WalletNightly))

	s := m.GetState()
	assert.True(t, s.Connected)
	assert.Equal(t, "0xabc", s.AddressValue())
	assert.Equal(t, "0xpk", s.PublicKeyValue())
	require.Len(t, events, 1)
	assert.Equal(t, "0xabc", events[0].Address)
	assert.Equal(t, domain.WalletNightly, events[0].Wallet)

	last, found, _ := store.Get(context.Background(), DefaultStorageKey)
	assert.True(t, found)
	assert.Equal(t, "nightly", last)

	require.NotNil(t, m.GetAdapter())
	require.NotNil(t, m.GetWallet())
	assert.Equal(t, "Nightly", m.GetWallet().Name)
}

func TestConnect_FailureLeavesNoAdapter(t *testing.T) {
	w := &fakeWallet{name: "Petra", connectErr: errors.New("User rejected the request")}
	m, _, store := newTestManager(t, w)

	err := m.Connect(context.Background(), domain.WalletPetra)
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeWalletConnectionFailed))

	var me *errs.MovementError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, w.connectErr, me.Details[errs.DetailOriginalError])
	assert.Equal(t, true, me.Details["rejected"])

	assert.Nil(t, m.GetAdapter())
	assert.Nil(t, m.GetWallet())
	assert.False(t, m.GetState().Connected)
	assert.Equal(t, 0, store.Len())
}

func TestGetState_ReturnsCopy(t *testing.T) {
	m, _, _ := newTestManager(t, &fakeWallet{name: "Petra", address: "0x1"})
	require.NoError(t, m.Connect(context.Background(), domain.WalletPetra))

	s := m.GetState()
	*s.Address = "0xdead"
	s.Connected = false
	s.PublicKey = nil

	again := m.GetState()
	assert.True(t, again.Connected)
	assert.Equal(t, "0x1", again.AddressValue())
	assert.Equal(t, "0xpk", again.PublicKeyValue())
}

func TestDisconnect(t *testing.T) {
	w := &fakeWallet{name: "Petra", address: "0x1"}
	m, _, store := newTestManager(t, w)

	disconnects := 0
	m.OnDisconnect(func() { disconnects++ })

	require.NoError(t, m.Connect(context.Background(), domain.WalletPetra))
	m.Disconnect(context.Background())

	assert.Equal(t, domain.DisconnectedState(), m.GetState())
	assert.Nil(t, m.GetAdapter())
	assert.Equal(t, 1, w.disconnects)
	assert.Equal(t, 0, store.Len())

	// Idempotent, still emits.
	m.Disconnect(context.Background())
	assert.Equal(t, 2, disconnects)
	assert.Equal(t, 1, w.disconnects)
}

func TestAccountChange(t *testing.T) {
	w := &fakeWallet{name: "Petra", address: "0x1"}
	m, _, _ := newTestManager(t, w)

	var accounts []*domain.AccountInfo
	m.OnAccountChanged(func(a *domain.AccountInfo) { accounts = append(accounts, a) })
	disconnected := false
	m.OnDisconnect(func() { disconnected = true })

	require.NoError(t, m.Connect(context.Background(), domain.WalletPetra))

	w.accountChange(map[string]any{"address": "0x2", "publicKey": "0xpk2"})
	assert.Equal(t, "0x2", m.GetState().AddressValue())

	w.accountChange(nil)
	assert.False(t, m.GetState().Connected)
	assert.Nil(t, m.GetState().Address)
	assert.True(t, disconnected)

	require.Len(t, accounts, 2)
	assert.Equal(t, "0x2", accounts[0].Address)
	assert.Nil(t, accounts[1])
}

func TestNetworkChange(t *testing.T) {
	w := &fakeWallet{name: "Petra", address: "0x1"}
	m, _, _ := newTestManager(t, w)

	var networks []string
	m.OnNetworkChanged(func(n string) { networks = append(networks, n) })

	require.NoError(t, m.Connect(context.Background(), domain.WalletPetra))
	w.networkChange(map[string]any{"name": "testnet"})

	assert.Equal(t, []string{"testnet"}, networks)
	assert.Equal(t, "testnet", m.Network())
	assert.True(t, m.GetState().Connected)
}

func TestStaleListenersIgnored(t *testing.T) {
	petra := &fakeWallet{name: "Petra", address: "0x1"}
	nightly := &fakeWallet{name: "Nightly", address: "0x2"}
	m, _, _ := newTestManager(t, petra, nightly)

	require.NoError(t, m.Connect(context.Background(), domain.WalletPetra))
	require.NoError(t, m.Connect(context.Background(), domain.WalletNightly))
	assert.Equal(t, 1, petra.disconnects)

	petra.accountChange(nil)
	s := m.GetState()
	assert.True(t, s.Connected)
	assert.Equal(t, "0x2", s.AddressValue())
}

// listenerSet is a wallet change feature that supports removal.
type listenerSet struct {
	mu   sync.Mutex
	next int
	cbs  map[int]func(any)
}

func (s *listenerSet) subscribe(cb func(any)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cbs == nil {
		s.cbs = make(map[int]func(any))
	}
	s.next++
	id := s.next
	s.cbs[id] = cb
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.cbs, id)
	}
}

func (s *listenerSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cbs)
}

func TestReconnectReleasesListeners(t *testing.T) {
	w := &fakeWallet{name: "Razor", address: "0x9"}
	accounts, networks := &listenerSet{}, &listenerSet{}
	d := w.descriptor()
	d.Features[domain.FeatureOnAccountChange] = standard.AccountChangeFunc(accounts.subscribe)
	d.Features[domain.FeatureOnNetworkChange] = standard.NetworkChangeFunc(networks.subscribe)

	reg := standard.NewMemoryRegistry()
	reg.Register(d)
	m := New(reg)
	t.Cleanup(m.Close)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, m.Connect(ctx, domain.WalletRazor))
		assert.Equal(t, 1, accounts.len())
		assert.Equal(t, 1, networks.len())
	}
	assert.Equal(t, 0, w.disconnects)

	m.Disconnect(ctx)
	assert.Equal(t, 0, accounts.len())
	assert.Equal(t, 0, networks.len())
}

func TestAccountLossReleasesListeners(t *testing.T) {
	w := &fakeWallet{name: "Razor", address: "0x9"}
	accounts := &listenerSet{}
	d := w.descriptor()
	d.Features[domain.FeatureOnAccountChange] = func(cb func(any)) func() { return accounts.subscribe(cb) }

	reg := standard.NewMemoryRegistry()
	reg.Register(d)
	m := New(reg)
	t.Cleanup(m.Close)

	require.NoError(t, m.Connect(context.Background(), domain.WalletRazor))
	require.Equal(t, 1, accounts.len())

	var emit func(any)
	accounts.mu.Lock()
	for _, cb := range accounts.cbs {
		emit = cb
	}
	accounts.mu.Unlock()

	emit(nil)
	assert.False(t, m.GetState().Connected)
	assert.Equal(t, 0, accounts.len())
}

func TestAutoConnect(t *testing.T) {
	w := &fakeWallet{name: "Razor", address: "0x9"}
	m, _, store := newTestManager(t, w)
	ctx := context.Background()

	// Nothing remembered.
	m.AutoConnect(ctx)
	assert.False(t, m.GetState().Connected)

	require.NoError(t, store.Set(ctx, DefaultStorageKey, "razor"))
	m.AutoConnect(ctx)
	assert.True(t, m.GetState().Connected)
	assert.Equal(t, "0x9", m.GetState().AddressValue())
}

func TestAutoConnect_FailureClearsStorage(t *testing.T) {
	w := &fakeWallet{name: "Razor", connectErr: errors.New("locked")}
	m, _, store := newTestManager(t, w)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, DefaultStorageKey, "razor"))
	m.AutoConnect(ctx)

	assert.False(t, m.GetState().Connected)
	_, found, _ := store.Get(ctx, DefaultStorageKey)
	assert.False(t, found)
}

func TestAutoConnect_UnknownOrUnavailable(t *testing.T) {
	m, _, store := newTestManager(t, &fakeWallet{name: "Petra", address: "0x1"})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, DefaultStorageKey, "nightly"))
	m.AutoConnect(ctx)
	assert.False(t, m.GetState().Connected)
	_, found, _ := store.Get(ctx, DefaultStorageKey)
	assert.True(t, found, "an unavailable wallet may register later")

	require.NoError(t, store.Set(ctx, DefaultStorageKey, "metamask"))
	m.AutoConnect(ctx)
	_, found, _ = store.Get(ctx, DefaultStorageKey)
	assert.False(t, found)
}

func TestObserverUnsubscribe(t *testing.T) {
	m, _, _ := newTestManager(t, &fakeWallet{name: "Petra", address: "0x1"})

	calls := 0
	off := m.OnDisconnect(func() { calls++ })
	m.OnDisconnect(func() { panic("observer bug") })

	m.Disconnect(context.Background())
	off()
	off()
	m.Disconnect(context.Background())

	assert.Equal(t, 1, calls)
}
