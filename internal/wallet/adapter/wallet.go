package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"

	"github.com/vietddude/movement-kit/internal/core/domain"
	"github.com/vietddude/movement-kit/internal/wallet/normalize"
	"github.com/vietddude/movement-kit/internal/wallet/standard"
)

// Wallet adapts one wallet-standard descriptor.
type Wallet struct {
	walletType domain.WalletType
	descriptor domain.WalletDescriptor
	family     family
	logger     *slog.Logger
}

var _ Adapter = (*Wallet)(nil)

func (w *Wallet) Type() domain.WalletType { return w.walletType }

func (w *Wallet) Name() string { return w.descriptor.Name }

func (w *Wallet) unsupported(f domain.Feature) error {
	return &UnsupportedError{Wallet: w.descriptor.Name, Feature: f}
}

func (w *Wallet) Connect(ctx context.Context) (domain.AccountInfo, error) {
	raw, _ := w.descriptor.Feature(domain.FeatureConnect)
	connect, ok := standard.AsConnect(raw)
	if !ok {
		return domain.AccountInfo{}, w.unsupported(domain.FeatureConnect)
	}

	res, err := connect(ctx)
	if err != nil {
		return domain.AccountInfo{}, err
	}
	res, err = normalize.ExtractUserResponse(res)
	if err != nil {
		return domain.AccountInfo{}, err
	}

	account, err := toAccount(res)
	if err != nil {
		return domain.AccountInfo{}, errors.Wrap(err, "invalid connect response")
	}
	return account, nil
}

func (w *Wallet) Disconnect(ctx context.Context) {
	raw, _ := w.descriptor.Feature(domain.FeatureDisconnect)
	disconnect, ok := standard.AsDisconnect(raw)
	if !ok {
		return
	}
	if err := disconnect(ctx); err != nil {
		w.logger.Warn("Wallet disconnect failed", "error", err)
	}
}

// SignAndSubmitTransaction tries the family's preferred payload shape first
// and the other shape once on failure. When both fail the first error is
// returned.
func (w *Wallet) SignAndSubmitTransaction(
	ctx context.Context,
	payload domain.TransactionPayload,
) (domain.TransactionResult, error) {
	raw, _ := w.descriptor.Feature(domain.FeatureSignAndSubmit)
	submit, ok := standard.AsSignAndSubmit(raw)
	if !ok {
		return domain.TransactionResult{}, w.unsupported(domain.FeatureSignAndSubmit)
	}

	primary := w.family.primary
	res, firstErr := submit(ctx, buildInput(primary, payload))
	if firstErr != nil {
		fallback := primary.other()
		w.logger.Debug("Retrying with other payload format",
			"primary", primary, "fallback", fallback, "error", firstErr)

		var err error
		res, err = submit(ctx, buildInput(fallback, payload))
		if err != nil {
			w.logger.Debug("Fallback payload format failed", "format", fallback, "error", err)
			return domain.TransactionResult{}, firstErr
		}
	}

	res, err := normalize.ExtractUserResponse(res)
	if err != nil {
		return domain.TransactionResult{}, err
	}
	hash, err := extractHash(res)
	if err != nil {
		return domain.TransactionResult{}, err
	}
	return domain.TransactionResult{Hash: hash}, nil
}

func (w *Wallet) SignTransaction(ctx context.Context, payload domain.TransactionPayload) ([]byte, error) {
	raw, _ := w.descriptor.Feature(domain.FeatureSignTransaction)
	sign, ok := standard.AsSignTransaction(raw)
	if !ok {
		return nil, w.unsupported(domain.FeatureSignTransaction)
	}

	res, err := sign(ctx, buildInput(formatStandard, payload))
	if err != nil {
		return nil, err
	}
	res, err = normalize.ExtractUserResponse(res)
	if err != nil {
		return nil, err
	}

	if b, ok := asBytes(res); ok {
		return b, nil
	}
	if m, ok := res.(map[string]any); ok {
		for _, field := range []string{"authenticator", "signature"} {
			if b, ok := asBytes(m[field]); ok {
				return b, nil
			}
		}
	}
	return []byte{}, nil
}

func (w *Wallet) OnAccountChange(cb func(account *domain.AccountInfo)) (func(), error) {
	raw, _ := w.descriptor.Feature(domain.FeatureOnAccountChange)
	subscribe, ok := standard.AsAccountChange(raw)
	if !ok {
		return nil, w.unsupported(domain.FeatureOnAccountChange)
	}

	l := &listener{}
	l.unsubscribe = subscribe(func(v any) {
		if !l.active() {
			return
		}
		if v == nil {
			cb(nil)
			return
		}
		account, err := toAccount(v)
		if err != nil {
			w.logger.Warn("Ignoring unreadable account change", "error", err)
			return
		}
		cb(&account)
	})
	return l.stop, nil
}

func (w *Wallet) OnNetworkChange(cb func(network string)) (func(), error) {
	raw, _ := w.descriptor.Feature(domain.FeatureOnNetworkChange)
	subscribe, ok := standard.AsNetworkChange(raw)
	if !ok {
		return nil, w.unsupported(domain.FeatureOnNetworkChange)
	}

	l := &listener{}
	l.unsubscribe = subscribe(func(v any) {
		if l.active() {
			cb(networkName(v))
		}
	})
	return l.stop, nil
}

// listener is one registered change callback. Wallets that cannot remove
// listeners keep calling it after stop, so it also mutes itself.
type listener struct {
	stopped     atomic.Bool
	unsubscribe func()
}

func (l *listener) active() bool { return !l.stopped.Load() }

func (l *listener) stop() {
	if l.stopped.Swap(true) || l.unsubscribe == nil {
		return
	}
	l.unsubscribe()
}

// buildInput renders payload in the given wallet-facing shape.
func buildInput(f payloadFormat, p domain.TransactionPayload) map[string]any {
	typeArgs := p.TypeArguments
	if typeArgs == nil {
		typeArgs = []string{}
	}
	args := p.FunctionArguments
	if args == nil {
		args = []any{}
	}

	if f == formatLegacy {
		return map[string]any{
			"type":           "entry_function_payload",
			"function":       p.Function,
			"type_arguments": typeArgs,
			"arguments":      args,
		}
	}
	return map[string]any{
		"payload": map[string]any{
			"function":          p.Function,
			"typeArguments":     typeArgs,
			"functionArguments": args,
		},
	}
}

func sniffLegacy(name string) bool {
	name = strings.ToLower(name)
	for _, n := range legacyNames {
		if strings.Contains(name, n) {
			return true
		}
	}
	return false
}

// extractHash checks a direct string, then the hash fields of an object,
// then falls back to full normalization.
func extractHash(res any) (string, error) {
	if s, ok := res.(string); ok {
		return normalize.NormalizeHash(s)
	}
	if m, ok := res.(map[string]any); ok {
		for _, field := range []string{"hash", "txnHash", "transactionHash"} {
			if s, ok := m[field].(string); ok && strings.TrimSpace(s) != "" {
				return normalize.NormalizeHash(s)
			}
		}
	}
	return normalize.NormalizeHash(res)
}

// toAccount coerces a wallet account value into the canonical shape.
// The address is required; a missing public key is left empty.
func toAccount(v any) (domain.AccountInfo, error) {
	switch a := v.(type) {
	case domain.AccountInfo:
		return a, nil
	case *domain.AccountInfo:
		if a == nil {
			return domain.AccountInfo{}, errors.New("nil account")
		}
		return *a, nil
	case map[string]any:
		addr, err := normalize.ToHexString(a["address"])
		if err != nil {
			return domain.AccountInfo{}, errors.Wrap(err, "address")
		}
		var pk string
		if a["publicKey"] != nil {
			pk, err = normalize.ToHexString(a["publicKey"])
			if err != nil {
				return domain.AccountInfo{}, errors.Wrap(err, "public key")
			}
		}
		return domain.AccountInfo{Address: addr, PublicKey: pk}, nil
	}
	return domain.AccountInfo{}, errors.Errorf("unexpected account value of type %T", v)
}

func networkName(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case map[string]any:
		if name, ok := n["name"].(string); ok {
			return name
		}
		if name, ok := n["network"].(string); ok {
			return name
		}
	case fmt.Stringer:
		return n.String()
	}
	return fmt.Sprint(v)
}

// asBytes accepts raw bytes or hex text.
func asBytes(v any) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return b, b != nil
	case string:
		s := strings.TrimSpace(b)
		if !strings.HasPrefix(s, "0x") {
			s = "0x" + s
		}
		out, err := hexutil.Decode(s)
		if err != nil {
			return nil, false
		}
		return out, true
	}
	return nil, false
}
