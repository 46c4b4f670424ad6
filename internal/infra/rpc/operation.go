package rpc

import (
	"context"

	"github.com/vietddude/movement-kit/internal/infra/rpc/provider"
)

// NewOperation creates an Operation with a custom Invoke function.
func NewOperation(name string, invoke func(ctx context.Context) (any, error)) Operation {
	return provider.Operation{
		Name:   name,
		Cost:   1,
		Invoke: invoke,
	}
}

// NewRESTOperation creates an Operation for a fullnode REST call.
// path is relative to the node's /v1 root.
func NewRESTOperation(path string, method string, body any) Operation {
	return provider.Operation{
		Name:       path,
		Cost:       1,
		Params:     body,
		IsREST:     true,
		RESTMethod: method,
	}
}

// NewRESTQueryOperation is NewRESTOperation for a GET with query parameters.
func NewRESTQueryOperation(path string, query map[string]string) Operation {
	op := NewRESTOperation(path, "GET", nil)
	op.Query = query
	return op
}

// NewGraphQLOperation creates an Operation for an indexer GraphQL query.
func NewGraphQLOperation(name, query string, variables map[string]any) Operation {
	return provider.Operation{
		Name:    name,
		Cost:    1,
		GraphQL: query,
		Params:  variables,
	}
}
