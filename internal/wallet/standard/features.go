package standard

import (
	"context"
)

// The As* helpers accept both the named capability types and the equivalent
// unnamed func literals, since wallets built outside this module register
// plain funcs.

func AsConnect(v any) (ConnectFunc, bool) {
	switch f := v.(type) {
	case ConnectFunc:
		return f, f != nil
	case func(context.Context) (any, error):
		return f, f != nil
	}
	return nil, false
}

func AsDisconnect(v any) (DisconnectFunc, bool) {
	switch f := v.(type) {
	case DisconnectFunc:
		return f, f != nil
	case func(context.Context) error:
		return f, f != nil
	}
	return nil, false
}

func AsSignAndSubmit(v any) (SignAndSubmitFunc, bool) {
	switch f := v.(type) {
	case SignAndSubmitFunc:
		return f, f != nil
	case func(context.Context, any) (any, error):
		return f, f != nil
	}
	return nil, false
}

func AsSignTransaction(v any) (SignTransactionFunc, bool) {
	switch f := v.(type) {
	case SignTransactionFunc:
		return f, f != nil
	case func(context.Context, any) (any, error):
		return f, f != nil
	}
	return nil, false
}

// AsAccountChange also accepts listeners registered as func(func(any)),
// which have no way to unsubscribe.
func AsAccountChange(v any) (AccountChangeFunc, bool) {
	switch f := v.(type) {
	case AccountChangeFunc:
		return f, f != nil
	case func(func(any)) func():
		return f, f != nil
	case func(func(any)):
		if f == nil {
			return nil, false
		}
		return func(cb func(any)) func() { f(cb); return nil }, true
	}
	return nil, false
}

func AsNetworkChange(v any) (NetworkChangeFunc, bool) {
	switch f := v.(type) {
	case NetworkChangeFunc:
		return f, f != nil
	case func(func(any)) func():
		return f, f != nil
	case func(func(any)):
		if f == nil {
			return nil, false
		}
		return func(cb func(any)) func() { f(cb); return nil }, true
	}
	return nil, false
}
