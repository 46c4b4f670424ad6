// Package tx builds entry function payloads and drives them through the
// connected wallet and the chain client.
package tx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/vietddude/movement-kit/internal/core/domain"
	"github.com/vietddude/movement-kit/internal/core/errs"
	"github.com/vietddude/movement-kit/internal/infra/chain"
	"github.com/vietddude/movement-kit/internal/metrics"
	"github.com/vietddude/movement-kit/internal/wallet/adapter"
	"github.com/vietddude/movement-kit/internal/wallet/normalize"
)

const (
	transferFunction      = "0x1::aptos_account::transfer"
	transferCoinsFunction = "0x1::aptos_account::transfer_coins"

	// DefaultWaitInterval is the polling interval of WaitForTransaction.
	DefaultWaitInterval = time.Second
)

// Wallets is the part of the wallet manager the builder reads.
type Wallets interface {
	GetState() domain.ConnectionState
	GetAdapter() adapter.Adapter
}

// ChainClient simulates and looks up transactions.
type ChainClient interface {
	chain.Simulator
	chain.TransactionReader
}

// TransferOptions describes a coin transfer.
type TransferOptions struct {
	To     string
	Amount uint64
	// CoinType selects a coin other than the native one.
	CoinType string
}

// BuildOptions describes an arbitrary entry function call.
type BuildOptions struct {
	Function      string
	TypeArguments []string
	Arguments     []any
}

// Builder builds payloads and submits them through the connected wallet.
// Failures never touch the wallet connection state.
type Builder struct {
	wallets      Wallets
	chain        ChainClient
	logger       *slog.Logger
	waitInterval time.Duration
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithWaitInterval sets how often WaitForTransaction polls the node.
func WithWaitInterval(d time.Duration) Option {
	return func(b *Builder) {
		if d > 0 {
			b.waitInterval = d
		}
	}
}

// New creates a Builder.
func New(wallets Wallets, client ChainClient, opts ...Option) *Builder {
	b := &Builder{
		wallets:      wallets,
		chain:        client,
		logger:       slog.Default(),
		waitInterval: DefaultWaitInterval,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "tx_builder")
	return b
}

// Transfer builds a transfer payload. No validation is done on the inputs.
func (b *Builder) Transfer(opts TransferOptions) domain.TransactionPayload {
	args := []any{opts.To, strconv.FormatUint(opts.Amount, 10)}
	if opts.CoinType == "" {
		return domain.TransactionPayload{
			Function:          transferFunction,
			TypeArguments:     []string{},
			FunctionArguments: args,
		}
	}
	return domain.TransactionPayload{
		Function:          transferCoinsFunction,
		TypeArguments:     []string{opts.CoinType},
		FunctionArguments: args,
	}
}

// Build builds a payload for an arbitrary entry function.
func (b *Builder) Build(opts BuildOptions) domain.TransactionPayload {
	p := domain.TransactionPayload{
		Function:          opts.Function,
		TypeArguments:     opts.TypeArguments,
		FunctionArguments: opts.Arguments,
	}.Clone()
	if p.TypeArguments == nil {
		p.TypeArguments = []string{}
	}
	if p.FunctionArguments == nil {
		p.FunctionArguments = []any{}
	}
	return p
}

// SignAndSubmit has the connected wallet sign and submit payload.
func (b *Builder) SignAndSubmit(ctx context.Context, payload domain.TransactionPayload) (domain.TransactionResult, error) {
	a, _, err := b.connected()
	if err != nil {
		return domain.TransactionResult{}, err
	}

	res, err := a.SignAndSubmitTransaction(ctx, payload.Clone())
	metrics.WalletOperations.WithLabelValues(string(a.Type()), "sign_and_submit", metrics.Status(err)).Inc()
	if err != nil {
		rejected := normalize.IsRejection(err)
		msg := "transaction failed"
		if rejected {
			msg = "transaction rejected by user"
		}
		b.logger.Warn("Transaction failed", "function", payload.Function, "rejected", rejected, "error", err)
		return domain.TransactionResult{}, errs.Wrap(err, errs.CodeTransactionFailed, msg, map[string]any{
			"function": payload.Function,
			"rejected": rejected,
		})
	}

	b.logger.Info("Transaction submitted", "function", payload.Function, "hash", res.Hash)
	return res, nil
}

// Simulate dry-runs payload as the connected account. Missing fields in the
// node's answer default to a failed, zero-gas, unknown-status result.
func (b *Builder) Simulate(ctx context.Context, payload domain.TransactionPayload) (domain.SimulationResult, error) {
	_, state, err := b.connected()
	if err != nil {
		return domain.SimulationResult{}, err
	}

	txs, err := b.chain.Simulate(ctx, chain.SimulateRequest{
		Sender:    state.AddressValue(),
		PublicKey: state.PublicKeyValue(),
		Payload:   payload.Clone(),
	})
	if err != nil {
		return domain.SimulationResult{}, errs.Wrap(err, errs.CodeSimulationFailed, "simulation failed", map[string]any{
			"function": payload.Function,
		})
	}

	out := domain.SimulationResult{Success: false, GasUsed: "0", VMStatus: "unknown"}
	if len(txs) == 0 {
		return out, nil
	}
	first := txs[0]
	if first.Success != nil {
		out.Success = *first.Success
	}
	if first.GasUsed != "" {
		out.GasUsed = first.GasUsed
	}
	if first.VMStatus != "" {
		out.VMStatus = first.VMStatus
	}
	return out, nil
}

// WaitForTransaction polls the node until hash is committed or ctx ends.
// A committed but failed transaction is returned together with a
// TRANSACTION_FAILED error.
func (b *Builder) WaitForTransaction(ctx context.Context, hash string) (domain.CommittedTransaction, error) {
	ticker := time.NewTicker(b.waitInterval)
	defer ticker.Stop()

	for {
		tx, err := b.chain.GetTransactionByHash(ctx, hash)
		switch {
		case err == nil && !tx.IsPending():
			return committed(tx)
		case err != nil && !errors.Is(err, chain.ErrTransactionNotFound):
			if ctx.Err() == nil {
				return domain.CommittedTransaction{}, errs.Wrap(err, errs.CodeNetworkError, "failed to look up transaction", map[string]any{
					"hash": hash,
				})
			}
		}

		select {
		case <-ctx.Done():
			return domain.CommittedTransaction{}, errs.Wrap(ctx.Err(), errs.CodeTimeout, "transaction not committed in time", map[string]any{
				"hash": hash,
			})
		case <-ticker.C:
		}
	}
}

func committed(tx *chain.Transaction) (domain.CommittedTransaction, error) {
	out := domain.CommittedTransaction{
		Hash:     tx.Hash,
		Version:  tx.Version,
		Success:  tx.Success != nil && *tx.Success,
		VMStatus: tx.VMStatus,
		GasUsed:  tx.GasUsed,
	}
	if !out.Success {
		return out, errs.New(errs.CodeTransactionFailed, fmt.Sprintf("transaction %s failed: %s", tx.Hash, tx.VMStatus), map[string]any{
			"hash":     tx.Hash,
			"vmStatus": tx.VMStatus,
		})
	}
	return out, nil
}

func (b *Builder) connected() (adapter.Adapter, domain.ConnectionState, error) {
	state := b.wallets.GetState()
	a := b.wallets.GetAdapter()
	if !state.Connected || a == nil {
		return nil, state, errs.New(errs.CodeWalletNotConnected, "no wallet connected", nil)
	}
	return a, state, nil
}
