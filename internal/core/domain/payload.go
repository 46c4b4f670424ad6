package domain

import (
	"strings"
)

// TransactionPayload is an entry function call.
type TransactionPayload struct {
	Function          string
	TypeArguments     []string
	FunctionArguments []any
}

// Clone returns a copy whose slices are independent of p.
func (p TransactionPayload) Clone() TransactionPayload {
	out := TransactionPayload{Function: p.Function}
	if p.TypeArguments != nil {
		out.TypeArguments = make([]string, len(p.TypeArguments))
		copy(out.TypeArguments, p.TypeArguments)
	}
	if p.FunctionArguments != nil {
		out.FunctionArguments = make([]any, len(p.FunctionArguments))
		copy(out.FunctionArguments, p.FunctionArguments)
	}
	return out
}

// IsValidFunctionID reports whether id has the address::module::name shape.
func IsValidFunctionID(id string) bool {
	parts := strings.Split(id, "::")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// TransactionResult is returned once a wallet has submitted a transaction.
type TransactionResult struct {
	Hash string
}

// SimulationResult summarizes the first simulated transaction.
type SimulationResult struct {
	Success  bool
	GasUsed  string
	VMStatus string
}

// CommittedTransaction is the outcome of a transaction once it is on chain.
type CommittedTransaction struct {
	Hash     string
	Version  string
	Success  bool
	VMStatus string
	GasUsed  string
}
