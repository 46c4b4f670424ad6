// Package standard models the AIP-62 wallet-standard surface: the typed
// shapes of each capability a wallet may register and the discovery
// registry that reports wallets as they appear.
package standard

import (
	"context"

	"github.com/vietddude/movement-kit/internal/core/domain"
)

// Capability implementations as registered under domain.Feature keys.
// Wallets return loosely shaped values; the adapter normalizes them.
// Change listeners return a func that removes cb, or nil when the wallet
// cannot remove listeners.
type (
	ConnectFunc         func(ctx context.Context) (any, error)
	DisconnectFunc      func(ctx context.Context) error
	SignAndSubmitFunc   func(ctx context.Context, input any) (any, error)
	SignTransactionFunc func(ctx context.Context, input any) (any, error)
	AccountChangeFunc   func(cb func(account any)) (unsubscribe func())
	NetworkChangeFunc   func(cb func(network any)) (unsubscribe func())
)

// Registry is the wallet discovery registry.
type Registry interface {
	// Wallets returns a snapshot of every registered wallet.
	Wallets() ([]domain.WalletDescriptor, error)

	// OnRegister calls fn for each wallet registered from now on.
	// The returned func removes the listener.
	OnRegister(fn func(domain.WalletDescriptor)) func()
}
