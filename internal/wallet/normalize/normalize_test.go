package normalize

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stringerHash string

func (s stringerHash) String() string { return string(s) }

func TestNormalizeHash(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"prefixed string", "0xabc", "0xabc"},
		{"bare string", "abc", "0xabc"},
		{"padded string", "  abc \n", "0xabc"},
		{"bytes", []byte{0x0a, 0xff, 0x00}, "0x0aff00"},
		{"fixed array", [4]byte{0xde, 0xad, 0xbe, 0xef}, "0xdeadbeef"},
		{"hash field", map[string]any{"hash": "0x1"}, "0x1"},
		{"txnHash field", map[string]any{"txnHash": "2"}, "0x2"},
		{"transactionHash field", map[string]any{"transactionHash": "0x3"}, "0x3"},
		{"output field", map[string]any{"output": []byte{0x04}}, "0x04"},
		{"priority order", map[string]any{"output": "0xlast", "hash": "0xfirst"}, "0xfirst"},
		{"nested", map[string]any{"hash": map[string]any{"hash": "abc"}}, "0xabc"},
		{"stringer", stringerHash("beef"), "0xbeef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeHash(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeHash_Failures(t *testing.T) {
	inputs := []any{
		nil,
		"",
		"   ",
		map[string]any{"other": "x"},
		stringerHash(ObjectPlaceholder),
		42,
		[]byte(nil),
	}

	for _, in := range inputs {
		_, err := NormalizeHash(in)
		require.Error(t, err, "input %#v", in)
		assert.True(t, errors.Is(err, ErrHashNotFound))
		assert.Contains(t, err.Error(), "could not extract hash")
	}
}

func TestNormalizeHash_BytesRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		b := make([]byte, r.Intn(64))
		r.Read(b)

		h, err := NormalizeHash(b)
		require.NoError(t, err)
		assert.Len(t, h, 2*len(b)+2)
		assert.True(t, strings.HasPrefix(h, "0x"))
		assert.Equal(t, strings.ToLower(h), h)

		decoded, err := hexutil.Decode(h)
		if len(b) == 0 {
			// hexutil refuses the bare "0x" prefix.
			assert.Equal(t, "0x", h)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, b, decoded)
	}
}

func TestNormalizeHash_StringPrefixRule(t *testing.T) {
	for _, s := range []string{"0x", "0x00", "0xABCdef", "0xnot-hex"} {
		got, err := NormalizeHash(s)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	for _, s := range []string{"ab", "x0", "ABC"} {
		got, err := NormalizeHash(s)
		require.NoError(t, err)
		assert.Equal(t, "0x"+s, got)
	}
}

func TestExtractUserResponse(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  any
	}{
		{"string passthrough", "0xabc", "0xabc"},
		{"bytes passthrough", []byte{1, 2}, []byte{1, 2}},
		{"args", map[string]any{"status": "Approved", "args": "a"}, "a"},
		{"output", map[string]any{"status": "Approved", "output": "o"}, "o"},
		{"result", map[string]any{"result": "r"}, "r"},
		{"data", map[string]any{"data": "d"}, "d"},
		{"args wins", map[string]any{"data": "d", "result": "r", "output": "o", "args": "a"}, "a"},
		{"output beats result", map[string]any{"data": "d", "result": "r", "output": "o"}, "o"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractUserResponse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	plain := map[string]any{"address": "0x1"}
	got, err := ExtractUserResponse(plain)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestExtractUserResponse_Rejected(t *testing.T) {
	for _, status := range []string{"rejected", "Rejected", "REJECTED"} {
		_, err := ExtractUserResponse(map[string]any{"status": status, "args": "ignored"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rejected")
		assert.True(t, IsRejection(err))
	}
}

func TestExtractUserResponse_Errors(t *testing.T) {
	_, err := ExtractUserResponse(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")

	_, err = ExtractUserResponse(map[string]any(nil))
	assert.ErrorIs(t, err, ErrEmptyResponse)

	for _, blank := range []string{"", "  "} {
		_, err = ExtractUserResponse(blank)
		assert.ErrorIs(t, err, ErrEmptyResponse, "input %q", blank)
	}

	_, err = ExtractUserResponse(map[string]any{"error": map[string]any{"message": "insufficient balance"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient balance")
	assert.False(t, IsRejection(err))

	_, err = ExtractUserResponse(map[string]any{"status": "error", "message": "node down"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node down")
}

func TestToHexString(t *testing.T) {
	got, err := ToHexString([]byte{0xab, 0xcd})
	require.NoError(t, err)
	assert.Equal(t, "0xabcd", got)

	got, err = ToHexString("1")
	require.NoError(t, err)
	assert.Equal(t, "0x1", got)

	got, err = ToHexString(map[string]any{"data": []byte{0x01}})
	require.NoError(t, err)
	assert.Equal(t, "0x01", got)

	// Hash fields are not consulted for addresses.
	_, err = ToHexString(map[string]any{"hash": "0x1"})
	assert.ErrorIs(t, err, ErrNotHex)

	_, err = ToHexString(nil)
	assert.ErrorIs(t, err, ErrNotHex)
}

func TestIsRejectionMessage(t *testing.T) {
	assert.True(t, IsRejectionMessage("User Cancelled the prompt"))
	assert.True(t, IsRejectionMessage("request canceled"))
	assert.True(t, IsRejectionMessage("Access denied"))
	assert.False(t, IsRejectionMessage("gas too low"))
	assert.False(t, IsRejection(nil))
}
