// Package contract binds view and entry function calls to one Move module.
package contract

import (
	"context"
	"fmt"
	"strings"

	"github.com/vietddude/movement-kit/internal/core/domain"
	"github.com/vietddude/movement-kit/internal/core/errs"
	"github.com/vietddude/movement-kit/internal/infra/chain"
	"github.com/vietddude/movement-kit/internal/tx"
)

// Submitter builds and submits entry function payloads.
type Submitter interface {
	Build(opts tx.BuildOptions) domain.TransactionPayload
	SignAndSubmit(ctx context.Context, payload domain.TransactionPayload) (domain.TransactionResult, error)
}

// Contract calls functions of the module at Address::Module.
type Contract struct {
	address string
	module  string
	txs     Submitter
	viewer  chain.Viewer
}

// New creates a Contract for moduleAddress::moduleName.
func New(moduleAddress, moduleName string, txs Submitter, viewer chain.Viewer) (*Contract, error) {
	if !domain.IsValidAddress(moduleAddress) {
		return nil, errs.New(errs.CodeInvalidAddress, fmt.Sprintf("invalid module address %q", moduleAddress), map[string]any{
			"address": moduleAddress,
		})
	}
	if moduleName == "" || strings.Contains(moduleName, "::") {
		return nil, errs.New(errs.CodeInvalidArgument, fmt.Sprintf("invalid module name %q", moduleName), map[string]any{
			"module": moduleName,
		})
	}
	return &Contract{
		address: moduleAddress,
		module:  moduleName,
		txs:     txs,
		viewer:  viewer,
	}, nil
}

// GetFullFunctionName qualifies fn with the module. Already qualified
// function ids are returned unchanged.
func (c *Contract) GetFullFunctionName(fn string) string {
	if strings.Contains(fn, "::") {
		return fn
	}
	return c.address + "::" + c.module + "::" + fn
}

// View calls a view function and returns its return values.
func (c *Contract) View(ctx context.Context, fn string, args []any, typeArgs []string) ([]any, error) {
	function := c.GetFullFunctionName(fn)
	payload := c.txs.Build(tx.BuildOptions{
		Function:      function,
		TypeArguments: typeArgs,
		Arguments:     args,
	})

	out, err := c.viewer.View(ctx, payload)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeViewFunctionFailed, fmt.Sprintf("view function %s failed", function), map[string]any{
			"function": function,
			"args":     payload.FunctionArguments,
		})
	}
	return out, nil
}

// Call submits an entry function through the connected wallet.
func (c *Contract) Call(ctx context.Context, fn string, args []any, typeArgs []string) (domain.TransactionResult, error) {
	payload := c.txs.Build(tx.BuildOptions{
		Function:      c.GetFullFunctionName(fn),
		TypeArguments: typeArgs,
		Arguments:     args,
	})
	return c.txs.SignAndSubmit(ctx, payload)
}
