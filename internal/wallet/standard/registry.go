package standard

import (
	"sync"

	"github.com/vietddude/movement-kit/internal/core/domain"
)

// MemoryRegistry is an in-process Registry. Hosts that discover wallets
// out of band (a bridge process, tests) push descriptors into it.
type MemoryRegistry struct {
	mu        sync.Mutex
	wallets   []domain.WalletDescriptor
	listeners map[uint64]func(domain.WalletDescriptor)
	nextID    uint64
}

func NewMemoryRegistry(wallets ...domain.WalletDescriptor) *MemoryRegistry {
	return &MemoryRegistry{
		wallets:   append([]domain.WalletDescriptor(nil), wallets...),
		listeners: make(map[uint64]func(domain.WalletDescriptor)),
	}
}

var _ Registry = (*MemoryRegistry)(nil)

func (r *MemoryRegistry) Wallets() ([]domain.WalletDescriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.WalletDescriptor(nil), r.wallets...), nil
}

// Register adds a wallet, replacing any with the same name, and notifies
// listeners outside the lock.
func (r *MemoryRegistry) Register(w domain.WalletDescriptor) {
	r.mu.Lock()
	replaced := false
	for i := range r.wallets {
		if r.wallets[i].Name == w.Name {
			r.wallets[i] = w
			replaced = true
			break
		}
	}
	if !replaced {
		r.wallets = append(r.wallets, w)
	}
	listeners := make([]func(domain.WalletDescriptor), 0, len(r.listeners))
	for _, fn := range r.listeners {
		listeners = append(listeners, fn)
	}
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(w)
	}
}

// Unregister removes the wallet named name.
func (r *MemoryRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.wallets {
		if r.wallets[i].Name == name {
			r.wallets = append(r.wallets[:i], r.wallets[i+1:]...)
			return
		}
	}
}

func (r *MemoryRegistry) OnRegister(fn func(domain.WalletDescriptor)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.listeners, id)
			r.mu.Unlock()
		})
	}
}

// ListenerCount returns the number of active register listeners.
func (r *MemoryRegistry) ListenerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}
