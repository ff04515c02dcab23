package identity

import "github.com/davidlazar/go-crypto/encoding/base32"

// String renders a public key as base32 for logging, matching the
// encoding used throughout this module's log output instead of hex.
func (a Address) String() string {
	return base32.EncodeToString(a.PublicKey[:])
}

// KeyString renders a raw public key as base32 for logging.
func KeyString(key [KeySize]byte) string {
	return base32.EncodeToString(key[:])
}
