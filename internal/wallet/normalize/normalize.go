// Package normalize converts the loosely shaped values returned by wallet
// extensions into canonical hashes, hex strings and unwrapped payloads.
//
// Wallet families disagree on where they put the transaction hash (hash,
// txnHash, transactionHash, output), whether they return hex text or raw
// bytes, and whether they honor the wallet-standard UserResponse envelope.
// The functions here are pure and never panic on unexpected shapes.
package normalize

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// ObjectPlaceholder is the string form of a value with no useful representation.
const ObjectPlaceholder = "[object Object]"

var (
	// ErrHashNotFound is returned when no hash can be extracted from a value.
	ErrHashNotFound = errors.New("could not extract hash")

	// ErrEmptyResponse is returned for a nil wallet response.
	ErrEmptyResponse = errors.New("empty response from wallet")

	// ErrUserRejected is returned when the user declined the request in the wallet.
	ErrUserRejected = errors.New("user rejected the request")

	// ErrNotHex is returned when a value cannot be coerced to a hex string.
	ErrNotHex = errors.New("could not convert value to hex string")
)

// hashFields are checked in order on object results.
var hashFields = []string{"hash", "txnHash", "transactionHash", "output"}

// envelopeFields are checked in order when unwrapping a UserResponse.
// The order matters for wallets that populate more than one of them.
var envelopeFields = []string{"args", "output", "result", "data"}

// rejectionKeywords mark a wallet error as a user decision rather than a fault.
var rejectionKeywords = []string{"rejected", "cancelled", "canceled", "denied"}

// NormalizeHash returns data as a 0x-prefixed hex hash.
//
// Strings are trimmed and prefixed, byte sequences are hex encoded, objects
// are searched for hash, txnHash, transactionHash and output (recursively, in
// that order), and fmt.Stringer values fall back to their string form.
func NormalizeHash(data any) (string, error) {
	if isNil(data) {
		return "", ErrHashNotFound
	}

	switch v := data.(type) {
	case string:
		return prefixHex(v, ErrHashNotFound)
	case []byte:
		return hexutil.Encode(v), nil
	case map[string]any:
		for _, field := range hashFields {
			if inner, ok := v[field]; ok && !isNil(inner) {
				return NormalizeHash(inner)
			}
		}
		return "", errors.Wrap(ErrHashNotFound, "object has no hash field")
	case fmt.Stringer:
		s := v.String()
		if s == ObjectPlaceholder {
			return "", errors.Wrapf(ErrHashNotFound, "%T has no usable string form", data)
		}
		return prefixHex(s, ErrHashNotFound)
	}

	if b, ok := byteArray(data); ok {
		return NormalizeHash(b)
	}
	return "", errors.Wrapf(ErrHashNotFound, "unsupported value of type %T", data)
}

// ExtractUserResponse unwraps a wallet-standard UserResponse envelope.
//
// Nil and blank strings fail with ErrEmptyResponse. Other non-object values
// pass through unchanged. A rejected status fails with
// ErrUserRejected; an error marker fails with the carried message. Otherwise
// the first present of args, output, result and data is returned, or the
// input itself when none is present.
func ExtractUserResponse(response any) (any, error) {
	if isNil(response) {
		return nil, ErrEmptyResponse
	}
	if s, ok := response.(string); ok && strings.TrimSpace(s) == "" {
		return nil, ErrEmptyResponse
	}

	m, ok := response.(map[string]any)
	if !ok {
		return response, nil
	}

	status, _ := m["status"].(string)
	if strings.EqualFold(status, "rejected") {
		return nil, ErrUserRejected
	}
	if e, ok := m["error"]; ok && !isNil(e) {
		return nil, errors.Errorf("wallet error: %s", messageOf(e))
	}
	if strings.EqualFold(status, "error") {
		msg := "unknown wallet error"
		if m["message"] != nil {
			msg = messageOf(m["message"])
		}
		return nil, errors.Errorf("wallet error: %s", msg)
	}

	for _, field := range envelopeFields {
		if v, ok := m[field]; ok && !isNil(v) {
			return v, nil
		}
	}
	return response, nil
}

// ToHexString coerces an address or public key value to 0x-prefixed hex.
// It accepts the same strings, bytes and Stringers as NormalizeHash and
// objects carrying the key material under data or key.
func ToHexString(v any) (string, error) {
	if isNil(v) {
		return "", ErrNotHex
	}

	switch val := v.(type) {
	case string:
		return prefixHex(val, ErrNotHex)
	case []byte:
		if len(val) == 0 {
			return "", ErrNotHex
		}
		return hexutil.Encode(val), nil
	case map[string]any:
		for _, field := range []string{"data", "key"} {
			if inner, ok := val[field]; ok && !isNil(inner) {
				return ToHexString(inner)
			}
		}
		return "", errors.Wrap(ErrNotHex, "object has no key material")
	case fmt.Stringer:
		s := val.String()
		if s == ObjectPlaceholder {
			return "", errors.Wrapf(ErrNotHex, "%T has no usable string form", v)
		}
		return prefixHex(s, ErrNotHex)
	}

	if b, ok := byteArray(v); ok {
		return ToHexString(b)
	}
	return "", errors.Wrapf(ErrNotHex, "unsupported value of type %T", v)
}

// IsRejection reports whether err reads like a user decision in the wallet.
func IsRejection(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUserRejected) {
		return true
	}
	return IsRejectionMessage(err.Error())
}

// IsRejectionMessage reports whether msg contains a rejection keyword.
func IsRejectionMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, kw := range rejectionKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

func prefixHex(s string, errEmpty error) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errEmpty
	}
	if strings.HasPrefix(s, "0x") {
		return s, nil
	}
	return "0x" + s, nil
}

func messageOf(v any) string {
	switch e := v.(type) {
	case string:
		return e
	case error:
		return e.Error()
	case map[string]any:
		if msg, ok := e["message"].(string); ok {
			return msg
		}
	}
	return fmt.Sprint(v)
}

// byteArray copies fixed-size byte arrays such as [32]byte into a slice.
func byteArray(v any) ([]byte, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Array || rv.Type().Elem().Kind() != reflect.Uint8 {
		return nil, false
	}
	out := make([]byte, rv.Len())
	for i := range out {
		out[i] = byte(rv.Index(i).Uint())
	}
	return out, true
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
