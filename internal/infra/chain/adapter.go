package chain

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/vietddude/movement-kit/internal/core/domain"
)

// ErrTransactionNotFound is returned for a hash the node does not know (yet).
var ErrTransactionNotFound = errors.New("transaction not found")

// Client defines the remote chain boundary used by the SDK core.
// Consumers depend on the narrow interfaces below rather than on Client.
type Client interface {
	AccountReader
	EventSource
	Viewer
	Simulator
	TransactionReader

	// GetLedgerInfo returns the node's view of the ledger head
	GetLedgerInfo(ctx context.Context) (*LedgerInfo, error)

	// EstimateGasPrice returns the node's current gas unit price estimates
	EstimateGasPrice(ctx context.Context) (*GasEstimate, error)
}

// AccountReader reads account state.
type AccountReader interface {
	// GetAccount returns the account's sequence number and authentication key
	GetAccount(ctx context.Context, address string) (*AccountData, error)

	// GetAccountResources returns every resource stored under the account
	GetAccountResources(ctx context.Context, address string) ([]Resource, error)

	// GetAccountResource returns one resource by its fully qualified struct tag
	GetAccountResource(ctx context.Context, address, resourceType string) (*Resource, error)
}

// EventSource fetches events for an account and event type.
// Implementations may return events in any order.
type EventSource interface {
	GetEventsByEventType(ctx context.Context, accountAddress, eventType string, limit int) ([]domain.Event, error)
}

// Viewer executes view functions.
type Viewer interface {
	View(ctx context.Context, payload domain.TransactionPayload) ([]any, error)
}

// Simulator dry-runs an unsigned transaction.
type Simulator interface {
	Simulate(ctx context.Context, req SimulateRequest) ([]Transaction, error)
}

// TransactionReader looks up submitted transactions.
type TransactionReader interface {
	// GetTransactionByHash returns ErrTransactionNotFound while the node has not seen the hash
	GetTransactionByHash(ctx context.Context, hash string) (*Transaction, error)
}

// AccountData is the on-chain account record.
type AccountData struct {
	SequenceNumber    string `json:"sequence_number"`
	AuthenticationKey string `json:"authentication_key"`
}

// Resource is a Move resource stored under an account.
type Resource struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// LedgerInfo is the node's ledger head.
type LedgerInfo struct {
	ChainID             uint8  `json:"chain_id"`
	Epoch               string `json:"epoch"`
	LedgerVersion       string `json:"ledger_version"`
	OldestLedgerVersion string `json:"oldest_ledger_version"`
	LedgerTimestamp     string `json:"ledger_timestamp"`
	NodeRole            string `json:"node_role"`
	BlockHeight         string `json:"block_height"`
}

// GasEstimate holds gas unit price estimates in octas.
type GasEstimate struct {
	GasEstimate              uint64 `json:"gas_estimate"`
	DeprioritizedGasEstimate uint64 `json:"deprioritized_gas_estimate"`
	PrioritizedGasEstimate   uint64 `json:"prioritized_gas_estimate"`
}

// SimulateRequest describes a transaction to simulate.
// Zero gas fields let the node estimate them.
type SimulateRequest struct {
	Sender       string
	PublicKey    string
	Payload      domain.TransactionPayload
	MaxGasAmount uint64
	GasUnitPrice uint64
}

// Transaction is a user transaction as reported by the node.
// Pending transactions carry only the hash, sender and type.
type Transaction struct {
	Type           string `json:"type"`
	Hash           string `json:"hash"`
	Version        string `json:"version"`
	Sender         string `json:"sender"`
	SequenceNumber string `json:"sequence_number"`
	Success        *bool  `json:"success"`
	VMStatus       string `json:"vm_status"`
	GasUsed        string `json:"gas_used"`
}

// Transaction types reported by the node.
const (
	TxTypePending = "pending_transaction"
	TxTypeUser    = "user_transaction"
)

// IsPending reports whether the transaction has not been committed yet.
func (t *Transaction) IsPending() bool {
	return t.Type == TxTypePending
}
