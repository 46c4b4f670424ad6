// Package adapter wraps discovered wallets behind one capability interface.
//
// Capabilities are looked up lazily: construction always succeeds and a
// missing feature only fails the call that needs it.
package adapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/movement-kit/internal/core/domain"
)

// Adapter is the unified wallet capability interface.
type Adapter interface {
	Type() domain.WalletType
	Name() string

	// Connect asks the wallet for access and returns the selected account.
	Connect(ctx context.Context) (domain.AccountInfo, error)

	// Disconnect releases the wallet. It never fails.
	Disconnect(ctx context.Context)

	// SignAndSubmitTransaction has the wallet sign and submit payload.
	SignAndSubmitTransaction(ctx context.Context, payload domain.TransactionPayload) (domain.TransactionResult, error)

	// SignTransaction returns the signed authenticator bytes. An ambiguous
	// wallet response yields an empty slice rather than an error.
	SignTransaction(ctx context.Context, payload domain.TransactionPayload) ([]byte, error)

	// OnAccountChange registers cb for account switches. A nil account
	// means the wallet no longer exposes one. The returned func stops cb
	// and may be called more than once.
	OnAccountChange(cb func(account *domain.AccountInfo)) (func(), error)

	// OnNetworkChange registers cb for network switches.
	OnNetworkChange(cb func(network string)) (func(), error)
}

// UnsupportedError is returned when a wallet lacks the feature a call needs.
type UnsupportedError struct {
	Wallet  string
	Feature domain.Feature
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("wallet does not support %s", e.Feature)
}

// Option configures a wallet adapter.
type Option func(*Wallet)

// WithLogger sets the logger used for swallowed wallet failures.
func WithLogger(l *slog.Logger) Option {
	return func(w *Wallet) {
		if l != nil {
			w.logger = l
		}
	}
}

// payloadFormat is one of the two transaction payload shapes wallets accept.
type payloadFormat int

const (
	formatStandard payloadFormat = iota
	formatLegacy
)

func (f payloadFormat) String() string {
	if f == formatLegacy {
		return "legacy"
	}
	return "standard"
}

func (f payloadFormat) other() payloadFormat {
	if f == formatLegacy {
		return formatStandard
	}
	return formatLegacy
}

// family holds the per-wallet-family behavior.
type family struct {
	primary payloadFormat
}

var families = map[domain.WalletType]family{
	domain.WalletPetra:   {primary: formatLegacy},
	domain.WalletNightly: {primary: formatStandard},
	domain.WalletRazor:   {primary: formatStandard},
}

// legacyNames are wallet names that still expect the flat payload, matched
// against the descriptor name in case the family tag is wrong.
var legacyNames = []string{"petra"}

// New builds the adapter for a wallet of type t described by d.
func New(t domain.WalletType, d domain.WalletDescriptor, opts ...Option) *Wallet {
	fam, ok := families[t]
	if !ok {
		fam = family{primary: formatStandard}
	}
	if sniffLegacy(d.Name) {
		fam.primary = formatLegacy
	}

	w := &Wallet{
		walletType: t,
		descriptor: d,
		family:     fam,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "wallet_adapter", "wallet", d.Name)
	return w
}
