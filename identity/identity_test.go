package identity_test

import (
	"testing"

	"github.com/dlazar-im/toxcore/identity"
)

func validKey() [identity.KeySize]byte {
	var k [identity.KeySize]byte
	for i := range k {
		k[i] = byte(i + 1)
	}
	return k
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	addr := identity.Address{PublicKey: validKey(), Nospam: 0xDEADBEEF}
	wire := identity.Encode(addr)

	got, err := identity.Decode(wire[:])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.PublicKey != addr.PublicKey || got.Nospam != addr.Nospam {
		t.Fatalf("roundtrip mismatch: got %+v, want %+v", got, addr)
	}
}

func TestDecodeWrongSize(t *testing.T) {
	_, err := identity.Decode(make([]byte, identity.AddressSize-1))
	if err != identity.ErrWrongSize {
		t.Fatalf("expected ErrWrongSize, got %v", err)
	}
}

func TestDecodeFlippedBitFails(t *testing.T) {
	addr := identity.Address{PublicKey: validKey(), Nospam: 42}
	wire := identity.Encode(addr)

	for i := 0; i < identity.AddressSize; i++ {
		corrupt := wire
		corrupt[i] ^= 0x01
		if _, err := identity.Decode(corrupt[:]); err == nil {
			t.Fatalf("flipping bit 0 of byte %d did not fail", i)
		}
	}
}

func TestValidateKeyRejectsZeroKey(t *testing.T) {
	var zero [identity.KeySize]byte
	if err := identity.ValidateKey(zero); err != identity.ErrBadKey {
		t.Fatalf("expected ErrBadKey for zero key, got %v", err)
	}
}

func TestValidateKeyAcceptsOrdinaryKey(t *testing.T) {
	if err := identity.ValidateKey(validKey()); err != nil {
		t.Fatalf("expected ordinary key to validate, got %v", err)
	}
}
