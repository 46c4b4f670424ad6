package domain

// AccountInfo is the canonical account shape returned by wallets.
type AccountInfo struct {
	Address   string
	PublicKey string
}

// ConnectionState is the externally visible wallet connection state.
// A disconnected state never carries an address or public key.
type ConnectionState struct {
	Connected bool
	Address   *string
	PublicKey *string
}

// DisconnectedState returns the all-empty disconnected shape.
func DisconnectedState() ConnectionState {
	return ConnectionState{}
}

// ConnectedState returns the connected shape for account. PublicKey stays
// nil when the wallet reported no key.
func ConnectedState(account AccountInfo) ConnectionState {
	addr := account.Address
	s := ConnectionState{Connected: true, Address: &addr}
	if account.PublicKey != "" {
		pk := account.PublicKey
		s.PublicKey = &pk
	}
	return s
}

// Clone returns a deep copy that shares no pointers with s.
func (s ConnectionState) Clone() ConnectionState {
	out := ConnectionState{Connected: s.Connected}
	if s.Address != nil {
		addr := *s.Address
		out.Address = &addr
	}
	if s.PublicKey != nil {
		pk := *s.PublicKey
		out.PublicKey = &pk
	}
	return out
}

// AddressValue returns the address or "" when disconnected.
func (s ConnectionState) AddressValue() string {
	if s.Address == nil {
		return ""
	}
	return *s.Address
}

// PublicKeyValue returns the public key or "" when there is none.
func (s ConnectionState) PublicKeyValue() string {
	if s.PublicKey == nil {
		return ""
	}
	return *s.PublicKey
}
