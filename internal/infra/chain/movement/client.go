// Package movement implements chain.Client against a Movement fullnode REST
// API and its GraphQL indexer.
package movement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vietddude/movement-kit/internal/core/domain"
	"github.com/vietddude/movement-kit/internal/infra/chain"
	"github.com/vietddude/movement-kit/internal/infra/rpc"
	"github.com/vietddude/movement-kit/internal/metrics"
)

const (
	// DefaultEventLimit is used when a caller passes a non-positive limit.
	DefaultEventLimit = 25

	defaultMaxGasAmount = 200_000
	defaultGasUnitPrice = 100
	simulationExpiry    = 30 * time.Second
)

// Executor runs operations against a provider pool.
type Executor interface {
	Call(ctx context.Context, pool string, op rpc.Operation, out any) error
}

// Client talks to a Movement fullnode (rpc.PoolNode) and indexer (rpc.PoolIndexer).
type Client struct {
	exec   Executor
	logger *slog.Logger
	now    func() time.Time
}

// Ensure Client implements chain.Client
var _ chain.Client = (*Client)(nil)

// NewClient creates a new Movement client.
func NewClient(exec Executor, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		exec:   exec,
		logger: logger.With("component", "movement_client"),
		now:    time.Now,
	}
}

// GetLedgerInfo returns the ledger head and records its version.
func (c *Client) GetLedgerInfo(ctx context.Context) (*chain.LedgerInfo, error) {
	var info chain.LedgerInfo
	if err := c.exec.Call(ctx, rpc.PoolNode, rpc.NewRESTOperation("", http.MethodGet, nil), &info); err != nil {
		return nil, fmt.Errorf("failed to get ledger info: %w", err)
	}
	if v, err := strconv.ParseFloat(info.LedgerVersion, 64); err == nil {
		metrics.LedgerVersion.Set(v)
	}
	return &info, nil
}

// EstimateGasPrice returns gas unit price estimates.
func (c *Client) EstimateGasPrice(ctx context.Context) (*chain.GasEstimate, error) {
	var est chain.GasEstimate
	if err := c.exec.Call(ctx, rpc.PoolNode, rpc.NewRESTOperation("estimate_gas_price", http.MethodGet, nil), &est); err != nil {
		return nil, fmt.Errorf("failed to estimate gas price: %w", err)
	}
	return &est, nil
}

// GetAccount returns the account record.
func (c *Client) GetAccount(ctx context.Context, address string) (*chain.AccountData, error) {
	if !domain.IsValidAddress(address) {
		return nil, fmt.Errorf("invalid address %q", address)
	}
	var acc chain.AccountData
	if err := c.exec.Call(ctx, rpc.PoolNode, rpc.NewRESTOperation("accounts/"+address, http.MethodGet, nil), &acc); err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", address, err)
	}
	return &acc, nil
}

// GetAccountResources returns every resource of the account.
func (c *Client) GetAccountResources(ctx context.Context, address string) ([]chain.Resource, error) {
	if !domain.IsValidAddress(address) {
		return nil, fmt.Errorf("invalid address %q", address)
	}
	var res []chain.Resource
	op := rpc.NewRESTOperation("accounts/"+address+"/resources", http.MethodGet, nil)
	if err := c.exec.Call(ctx, rpc.PoolNode, op, &res); err != nil {
		return nil, fmt.Errorf("failed to get resources of %s: %w", address, err)
	}
	return res, nil
}

// GetAccountResource returns one resource of the account.
func (c *Client) GetAccountResource(ctx context.Context, address, resourceType string) (*chain.Resource, error) {
	if !domain.IsValidAddress(address) {
		return nil, fmt.Errorf("invalid address %q", address)
	}
	var res chain.Resource
	path := "accounts/" + address + "/resource/" + url.PathEscape(resourceType)
	if err := c.exec.Call(ctx, rpc.PoolNode, rpc.NewRESTOperation(path, http.MethodGet, nil), &res); err != nil {
		return nil, fmt.Errorf("failed to get resource %s of %s: %w", resourceType, address, err)
	}
	return &res, nil
}

// GetBalance returns the balance of coinType held by address, in the
// coin's smallest unit. An empty coinType means the native coin.
func (c *Client) GetBalance(ctx context.Context, address, coinType string) (string, error) {
	if coinType == "" {
		coinType = domain.NativeCoinType
	}
	out, err := c.View(ctx, domain.TransactionPayload{
		Function:          "0x1::coin::balance",
		TypeArguments:     []string{coinType},
		FunctionArguments: []any{address},
	})
	if err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", fmt.Errorf("empty balance response for %s", address)
	}
	return fmt.Sprint(out[0]), nil
}

// View executes a view function and returns its decoded return values.
func (c *Client) View(ctx context.Context, payload domain.TransactionPayload) ([]any, error) {
	body := map[string]any{
		"function":       payload.Function,
		"type_arguments": nonNilStrings(payload.TypeArguments),
		"arguments":      nonNilArgs(payload.FunctionArguments),
	}
	var raw json.RawMessage
	if err := c.exec.Call(ctx, rpc.PoolNode, rpc.NewRESTOperation("view", http.MethodPost, body), &raw); err != nil {
		return nil, fmt.Errorf("view %s failed: %w", payload.Function, err)
	}
	var out []any
	if err := decodeNumbers(raw, &out); err != nil {
		return nil, fmt.Errorf("decode view %s result: %w", payload.Function, err)
	}
	return out, nil
}

// Simulate dry-runs payload as req.Sender. The request is signed with an
// all-zero ed25519 signature, which the node accepts for simulation only.
func (c *Client) Simulate(ctx context.Context, req chain.SimulateRequest) ([]chain.Transaction, error) {
	if req.PublicKey == "" {
		return nil, errors.New("simulation requires the sender public key")
	}
	acc, err := c.GetAccount(ctx, req.Sender)
	if err != nil {
		return nil, err
	}

	query := map[string]string{}
	maxGas := req.MaxGasAmount
	if maxGas == 0 {
		maxGas = defaultMaxGasAmount
		query["estimate_max_gas_amount"] = "true"
	}
	gasPrice := req.GasUnitPrice
	if gasPrice == 0 {
		gasPrice = defaultGasUnitPrice
		query["estimate_gas_unit_price"] = "true"
	}

	body := map[string]any{
		"sender":                    req.Sender,
		"sequence_number":           acc.SequenceNumber,
		"max_gas_amount":            strconv.FormatUint(maxGas, 10),
		"gas_unit_price":            strconv.FormatUint(gasPrice, 10),
		"expiration_timestamp_secs": strconv.FormatInt(c.now().Add(simulationExpiry).Unix(), 10),
		"payload":                   entryFunctionPayload(req.Payload),
		"signature": map[string]any{
			"type":       "ed25519_signature",
			"public_key": req.PublicKey,
			"signature":  "0x" + strings.Repeat("00", 64),
		},
	}

	op := rpc.NewRESTOperation("transactions/simulate", http.MethodPost, body)
	op.Query = query

	var txs []chain.Transaction
	if err := c.exec.Call(ctx, rpc.PoolNode, op, &txs); err != nil {
		return nil, fmt.Errorf("simulate %s failed: %w", req.Payload.Function, err)
	}
	return txs, nil
}

// GetTransactionByHash returns the transaction, pending or committed.
func (c *Client) GetTransactionByHash(ctx context.Context, hash string) (*chain.Transaction, error) {
	var tx chain.Transaction
	err := c.exec.Call(ctx, rpc.PoolNode, rpc.NewRESTOperation("transactions/by_hash/"+hash, http.MethodGet, nil), &tx)
	if err != nil {
		var httpErr *rpc.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", hash, chain.ErrTransactionNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction %s: %w", hash, err)
	}
	return &tx, nil
}

func entryFunctionPayload(p domain.TransactionPayload) map[string]any {
	return map[string]any{
		"type":           "entry_function_payload",
		"function":       p.Function,
		"type_arguments": nonNilStrings(p.TypeArguments),
		"arguments":      nonNilArgs(p.FunctionArguments),
	}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilArgs(a []any) []any {
	if a == nil {
		return []any{}
	}
	return a
}

// decodeNumbers keeps large integers intact as json.Number.
func decodeNumbers(raw []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(out)
}
