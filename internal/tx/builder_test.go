package tx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/movement-kit/internal/core/domain"
	"github.com/vietddude/movement-kit/internal/core/errs"
	"github.com/vietddude/movement-kit/internal/infra/chain"
	"github.com/vietddude/movement-kit/internal/wallet/adapter"
	"github.com/vietddude/movement-kit/internal/wallet/manager"
	"github.com/vietddude/movement-kit/internal/wallet/standard"
)

type fakeAdapter struct {
	submitted []domain.TransactionPayload
	result    domain.TransactionResult
	err       error
}

var _ adapter.Adapter = (*fakeAdapter)(nil)

func (f *fakeAdapter) Type() domain.WalletType    { return domain.WalletNightly }
func (f *fakeAdapter) Name() string               { return "Nightly" }
func (f *fakeAdapter) Disconnect(context.Context) {}

func (f *fakeAdapter) OnAccountChange(func(*domain.AccountInfo)) (func(), error) { return func() {}, nil }
func (f *fakeAdapter) OnNetworkChange(func(string)) (func(), error)              { return func() {}, nil }

func (f *fakeAdapter) Connect(context.Context) (domain.AccountInfo, error) {
	return domain.AccountInfo{Address: "0xa", PublicKey: "0xpk"}, nil
}

func (f *fakeAdapter) SignAndSubmitTransaction(_ context.Context, p domain.TransactionPayload) (domain.TransactionResult, error) {
	f.submitted = append(f.submitted, p)
	return f.result, f.err
}

func (f *fakeAdapter) SignTransaction(context.Context, domain.TransactionPayload) ([]byte, error) {
	return nil, nil
}

type fakeWallets struct {
	state   domain.ConnectionState
	adapter adapter.Adapter
}

func (w *fakeWallets) GetState() domain.ConnectionState { return w.state.Clone() }
func (w *fakeWallets) GetAdapter() adapter.Adapter      { return w.adapter }

func connectedWallets(a adapter.Adapter) *fakeWallets {
	return &fakeWallets{
		state:   domain.ConnectedState(domain.AccountInfo{Address: "0xa", PublicKey: "0xpk"}),
		adapter: a,
	}
}

type fakeChain struct {
	mu       sync.Mutex
	simReq   chain.SimulateRequest
	simTxs   []chain.Transaction
	simErr   error
	lookups  int
	lookupFn func(n int) (*chain.Transaction, error)
}

func (c *fakeChain) Simulate(_ context.Context, req chain.SimulateRequest) ([]chain.Transaction, error) {
	c.simReq = req
	return c.simTxs, c.simErr
}

func (c *fakeChain) GetTransactionByHash(context.Context, string) (*chain.Transaction, error) {
	c.mu.Lock()
	c.lookups++
	n := c.lookups
	c.mu.Unlock()
	return c.lookupFn(n)
}

func boolPtr(b bool) *bool { return &b }

func TestBuilder_Transfer(t *testing.T) {
	b := New(&fakeWallets{}, &fakeChain{})

	p := b.Transfer(TransferOptions{To: "0xb", Amount: 100})
	assert.Equal(t, "0x1::aptos_account::transfer", p.Function)
	assert.Empty(t, p.TypeArguments)
	assert.Equal(t, []any{"0xb", "100"}, p.FunctionArguments)

	p = b.Transfer(TransferOptions{To: "0xb", Amount: 5, CoinType: "0xc::usdc::USDC"})
	assert.Equal(t, "0x1::aptos_account::transfer_coins", p.Function)
	assert.Equal(t, []string{"0xc::usdc::USDC"}, p.TypeArguments)
	assert.Equal(t, []any{"0xb", "5"}, p.FunctionArguments)
}

func TestBuilder_Build(t *testing.T) {
	b := New(&fakeWallets{}, &fakeChain{})

	args := []any{"x"}
	p := b.Build(BuildOptions{Function: "0x1::m::f", Arguments: args})
	assert.Equal(t, "0x1::m::f", p.Function)
	assert.NotNil(t, p.TypeArguments)
	assert.Empty(t, p.TypeArguments)

	args[0] = "changed"
	assert.Equal(t, "x", p.FunctionArguments[0])
}

func TestBuilder_NotConnected(t *testing.T) {
	wallets := manager.New(standard.NewMemoryRegistry())
	t.Cleanup(wallets.Close)
	b := New(wallets, &fakeChain{})
	payload := b.Transfer(TransferOptions{To: "0xb", Amount: 1})

	require.False(t, wallets.GetState().Connected)

	_, err := b.SignAndSubmit(t.Context(), payload)
	assert.True(t, errs.IsCode(err, errs.CodeWalletNotConnected))

	_, err = b.Simulate(t.Context(), payload)
	assert.True(t, errs.IsCode(err, errs.CodeWalletNotConnected))

	assert.False(t, wallets.GetState().Connected)
}

func TestBuilder_SignAndSubmit(t *testing.T) {
	a := &fakeAdapter{result: domain.TransactionResult{Hash: "0xhash"}}
	b := New(connectedWallets(a), &fakeChain{})

	payload := b.Transfer(TransferOptions{To: "0xb", Amount: 1})
	res, err := b.SignAndSubmit(t.Context(), payload)
	require.NoError(t, err)
	assert.Equal(t, "0xhash", res.Hash)
	require.Len(t, a.submitted, 1)
	assert.Equal(t, payload, a.submitted[0])
}

func TestBuilder_SignAndSubmitFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		rejected bool
	}{
		{"rejected", errors.New("User rejected the request"), true},
		{"cancelled", errors.New("user cancelled"), true},
		{"technical", errors.New("insufficient balance for gas"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wallets := connectedWallets(&fakeAdapter{err: tt.err})
			b := New(wallets, &fakeChain{})

			_, err := b.SignAndSubmit(t.Context(), b.Build(BuildOptions{Function: "0x1::m::f"}))
			require.Error(t, err)

			var me *errs.MovementError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, errs.CodeTransactionFailed, me.Code)
			assert.Equal(t, tt.rejected, me.Details["rejected"])
			assert.Equal(t, "0x1::m::f", me.Details["function"])
			assert.ErrorIs(t, err, tt.err)

			assert.True(t, wallets.GetState().Connected)
			assert.Equal(t, "0xa", wallets.GetState().AddressValue())
		})
	}
}

func TestBuilder_SignAndSubmitKeepsManagerState(t *testing.T) {
	reg := standard.NewMemoryRegistry()
	reg.Register(domain.WalletDescriptor{
		Name: "Nightly",
		Features: map[domain.Feature]any{
			domain.FeatureConnect: func(context.Context) (any, error) {
				return map[string]any{"address": "0xa", "publicKey": "0xpk"}, nil
			},
			domain.FeatureSignAndSubmit: func(context.Context, any) (any, error) {
				return nil, errors.New("user rejected the request")
			},
		},
	})
	wallets := manager.New(reg)
	t.Cleanup(wallets.Close)
	require.NoError(t, wallets.Connect(t.Context(), domain.WalletNightly))
	before := wallets.GetState()

	b := New(wallets, &fakeChain{})
	_, err := b.SignAndSubmit(t.Context(), b.Transfer(TransferOptions{To: "0xb", Amount: 1}))
	assert.True(t, errs.IsCode(err, errs.CodeTransactionFailed))

	assert.Equal(t, before, wallets.GetState())
}

func TestBuilder_Simulate(t *testing.T) {
	c := &fakeChain{simTxs: []chain.Transaction{{Success: boolPtr(true), GasUsed: "42", VMStatus: "Executed successfully"}}}
	b := New(connectedWallets(&fakeAdapter{}), c)

	payload := b.Transfer(TransferOptions{To: "0xb", Amount: 1})
	res, err := b.Simulate(t.Context(), payload)
	require.NoError(t, err)
	assert.Equal(t, domain.SimulationResult{Success: true, GasUsed: "42", VMStatus: "Executed successfully"}, res)
	assert.Equal(t, "0xa", c.simReq.Sender)
	assert.Equal(t, "0xpk", c.simReq.PublicKey)
	assert.Equal(t, payload, c.simReq.Payload)
}

func TestBuilder_SimulateDefaults(t *testing.T) {
	want := domain.SimulationResult{Success: false, GasUsed: "0", VMStatus: "unknown"}

	for _, txs := range [][]chain.Transaction{nil, {{}}} {
		b := New(connectedWallets(&fakeAdapter{}), &fakeChain{simTxs: txs})
		res, err := b.Simulate(t.Context(), b.Build(BuildOptions{Function: "0x1::m::f"}))
		require.NoError(t, err)
		assert.Equal(t, want, res)
	}
}

func TestBuilder_SimulateError(t *testing.T) {
	cause := errors.New("node unreachable")
	b := New(connectedWallets(&fakeAdapter{}), &fakeChain{simErr: cause})

	_, err := b.Simulate(t.Context(), b.Build(BuildOptions{Function: "0x1::m::f"}))
	assert.True(t, errs.IsCode(err, errs.CodeSimulationFailed))
	assert.ErrorIs(t, err, cause)
}

func TestBuilder_WaitForTransaction(t *testing.T) {
	c := &fakeChain{lookupFn: func(n int) (*chain.Transaction, error) {
		switch n {
		case 1:
			return nil, fmt.Errorf("0xh: %w", chain.ErrTransactionNotFound)
		case 2:
			return &chain.Transaction{Type: chain.TxTypePending, Hash: "0xh"}, nil
		default:
			return &chain.Transaction{
				Type: chain.TxTypeUser, Hash: "0xh", Version: "9",
				Success: boolPtr(true), VMStatus: "Executed successfully", GasUsed: "7",
			}, nil
		}
	}}
	b := New(&fakeWallets{}, c, WithWaitInterval(time.Millisecond))

	res, err := b.WaitForTransaction(t.Context(), "0xh")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "9", res.Version)
	assert.Equal(t, 3, c.lookups)
}

func TestBuilder_WaitForTransactionFailed(t *testing.T) {
	c := &fakeChain{lookupFn: func(int) (*chain.Transaction, error) {
		return &chain.Transaction{Type: chain.TxTypeUser, Hash: "0xh", Success: boolPtr(false), VMStatus: "Move abort"}, nil
	}}
	b := New(&fakeWallets{}, c)

	res, err := b.WaitForTransaction(t.Context(), "0xh")
	assert.True(t, errs.IsCode(err, errs.CodeTransactionFailed))
	assert.False(t, res.Success)
	assert.Equal(t, "Move abort", res.VMStatus)
}

func TestBuilder_WaitForTransactionTimeout(t *testing.T) {
	c := &fakeChain{lookupFn: func(int) (*chain.Transaction, error) {
		return &chain.Transaction{Type: chain.TxTypePending}, nil
	}}
	b := New(&fakeWallets{}, c, WithWaitInterval(time.Millisecond))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	_, err := b.WaitForTransaction(ctx, "0xh")
	assert.True(t, errs.IsCode(err, errs.CodeTimeout))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBuilder_WaitForTransactionLookupError(t *testing.T) {
	c := &fakeChain{lookupFn: func(int) (*chain.Transaction, error) {
		return nil, errors.New("503 from node")
	}}
	b := New(&fakeWallets{}, c)

	_, err := b.WaitForTransaction(t.Context(), "0xh")
	assert.True(t, errs.IsCode(err, errs.CodeNetworkError))
}
