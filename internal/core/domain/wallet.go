package domain

import (
	"slices"
	"strings"
)

// WalletType is the closed set of supported wallet families.
type WalletType string

const (
	WalletPetra   WalletType = "petra"
	WalletNightly WalletType = "nightly"
	WalletRazor   WalletType = "razor"
)

// SupportedWalletTypes lists every family discovery may report, in display order.
var SupportedWalletTypes = []WalletType{WalletPetra, WalletNightly, WalletRazor}

// walletAliases maps normalized wallet names to their family.
// Keys are lowercased with spaces, dashes and underscores removed.
var walletAliases = map[string]WalletType{
	"petra":         WalletPetra,
	"petrawallet":   WalletPetra,
	"nightly":       WalletNightly,
	"nightlywallet": WalletNightly,
	"nightlyapp":    WalletNightly,
	"razor":         WalletRazor,
	"razorwallet":   WalletRazor,
	"razorkit":      WalletRazor,
}

// ParseWalletType resolves a discovered wallet name to its family.
// Matching is case-insensitive and ignores separators, so "Razor Wallet",
// "razorwallet" and "RAZOR" all resolve to WalletRazor.
func ParseWalletType(name string) (WalletType, bool) {
	t, ok := walletAliases[normalizeWalletName(name)]
	return t, ok
}

// WalletAliases returns the normalized names that resolve to t, sorted.
func WalletAliases(t WalletType) []string {
	var out []string
	for alias, wt := range walletAliases {
		if wt == t {
			out = append(out, alias)
		}
	}
	slices.Sort(out)
	return out
}

func normalizeWalletName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(name)
}

// IsValid reports whether t is one of the supported families.
func (t WalletType) IsValid() bool {
	for _, s := range SupportedWalletTypes {
		if s == t {
			return true
		}
	}
	return false
}

func (t WalletType) String() string {
	return string(t)
}

// Feature names a wallet-standard capability.
type Feature string

const (
	FeatureConnect         Feature = "aptos:connect"
	FeatureDisconnect      Feature = "aptos:disconnect"
	FeatureSignAndSubmit   Feature = "aptos:signAndSubmitTransaction"
	FeatureSignTransaction Feature = "aptos:signTransaction"
	FeatureOnAccountChange Feature = "aptos:onAccountChange"
	FeatureOnNetworkChange Feature = "aptos:onNetworkChange"
)

// WalletDescriptor is a wallet as reported by the discovery registry.
// Features holds the raw capability implementations keyed by feature name.
type WalletDescriptor struct {
	Name     string
	Icon     string
	URL      string
	Features map[Feature]any
}

// Feature returns the raw implementation registered for f.
func (d WalletDescriptor) Feature(f Feature) (any, bool) {
	if d.Features == nil {
		return nil, false
	}
	v, ok := d.Features[f]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// WalletInfo describes the currently selected wallet.
type WalletInfo struct {
	Type WalletType
	Name string
	Icon string
	URL  string
}
