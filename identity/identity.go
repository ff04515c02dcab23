// Package identity encodes and decodes the 38-byte friend address
// (public key, nospam, checksum) used to introduce a friend out of band,
// and validates Curve25519 public keys before they are trusted as a
// friend's or device's identity.
package identity

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/curve25519"

	"github.com/dlazar-im/toxcore/errors"
)

const (
	// KeySize is the length in bytes of a Curve25519 public key.
	KeySize = 32
	// NospamSize is the length in bytes of the nospam tag.
	NospamSize = 4
	// ChecksumSize is the length in bytes of the address checksum.
	ChecksumSize = 2
	// AddressSize is the total length of an encoded friend address.
	AddressSize = KeySize + NospamSize + ChecksumSize
)

// Address is a decoded 38-byte friend address.
type Address struct {
	PublicKey [KeySize]byte
	Nospam    uint32
}

// checksum returns the 2-byte XOR fold of the 36 bytes publicKey followed
// by little-endian nospam: byte i is XORed into sum[i%2].
func checksum(publicKey [KeySize]byte, nospam uint32) [ChecksumSize]byte {
	var buf [KeySize + NospamSize]byte
	copy(buf[:], publicKey[:])
	binary.LittleEndian.PutUint32(buf[KeySize:], nospam)

	var sum [ChecksumSize]byte
	for i, b := range buf {
		sum[i%ChecksumSize] ^= b
	}
	return sum
}

// Encode produces the 38-byte wire representation of addr.
func Encode(addr Address) [AddressSize]byte {
	var out [AddressSize]byte
	copy(out[:KeySize], addr.PublicKey[:])
	binary.LittleEndian.PutUint32(out[KeySize:KeySize+NospamSize], addr.Nospam)
	sum := checksum(addr.PublicKey, addr.Nospam)
	copy(out[KeySize+NospamSize:], sum[:])
	return out
}

// ErrBadChecksum is returned by Decode when the trailing checksum does
// not match the address's public key and nospam.
var ErrBadChecksum = errors.New("identity: bad checksum")

// ErrBadKey is returned by Decode (or by ValidateKey) when a public key
// is not usable as a Curve25519 Diffie-Hellman key: the all-zero key or
// one of the well-known low-order points.
var ErrBadKey = errors.New("identity: bad public key")

// ErrWrongSize is returned by Decode when the input is not exactly
// AddressSize bytes.
var ErrWrongSize = errors.New("identity: address must be %d bytes", AddressSize)

// Decode parses a 38-byte friend address, validating the checksum and
// the public key.
func Decode(raw []byte) (Address, error) {
	if len(raw) != AddressSize {
		return Address{}, ErrWrongSize
	}

	var addr Address
	copy(addr.PublicKey[:], raw[:KeySize])
	addr.Nospam = binary.LittleEndian.Uint32(raw[KeySize : KeySize+NospamSize])

	want := checksum(addr.PublicKey, addr.Nospam)
	if !equalBytes(want[:], raw[KeySize+NospamSize:]) {
		return Address{}, ErrBadChecksum
	}

	if err := ValidateKey(addr.PublicKey); err != nil {
		return Address{}, err
	}

	return addr, nil
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// lowOrderPoints are well-known Curve25519 points of small order that
// must never be accepted as a peer's Diffie-Hellman public key: an
// attacker who gets a victim to perform X25519 against one of these
// produces a small, guessable shared secret regardless of the victim's
// own private scalar.
var lowOrderPoints = [][KeySize]byte{
	{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
	{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
	{0xe0, 0xeb, 0x7a, 0x7c, 0x3b, 0x41, 0xb8, 0xae, 0x16, 0x56, 0xe3, 0xfa, 0xf1, 0x9f, 0xc4, 0x6a, 0xda, 0x09, 0x8d, 0xeb, 0x9c, 0x32, 0xb1, 0xfd, 0x86, 0x62, 0x05, 0x16, 0x5f, 0x49, 0xb8, 0x00},
	{0x5f, 0x9c, 0x95, 0xbc, 0xa3, 0x50, 0x8c, 0x24, 0xb1, 0xd0, 0xb1, 0x55, 0x9c, 0x83, 0xef, 0x5b, 0x04, 0x44, 0x5c, 0xc4, 0x58, 0x1c, 0x8e, 0x86, 0xd8, 0x22, 0x4e, 0xdd, 0xd0, 0x9f, 0x11, 0x57},
}

// DecodeHexKey parses a hex-encoded public key, the textual form used by
// bootstrap-node lists and debug tooling. It does not validate the key as
// a usable Diffie-Hellman point; call ValidateKey separately.
func DecodeHexKey(s string) ([KeySize]byte, error) {
	var key [KeySize]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return key, errors.Wrap(err, "identity: bad hex key")
	}
	if len(raw) != KeySize {
		return key, errors.New("identity: hex key must be %d bytes", KeySize)
	}
	copy(key[:], raw)
	return key, nil
}

// ValidateKey reports whether key is usable as a Curve25519
// Diffie-Hellman public key.
func ValidateKey(key [KeySize]byte) error {
	for _, low := range lowOrderPoints {
		if key == low {
			return ErrBadKey
		}
	}
	return nil
}

// DeriveSharedSecret runs the X25519 Diffie-Hellman agreement between
// our private scalar and a peer's validated public key, as the transport
// layer does to key a per-friend NetCrypto connection. The core never
// calls this directly (NetCrypto is out of scope), but the helper exists
// so callers building a FriendConn/NetCrypto implementation against this
// package's key material don't need a second Curve25519 import.
func DeriveSharedSecret(ourPrivate, theirPublic [KeySize]byte) ([KeySize]byte, error) {
	if err := ValidateKey(theirPublic); err != nil {
		return [KeySize]byte{}, err
	}
	var shared [KeySize]byte
	out, err := curve25519.X25519(ourPrivate[:], theirPublic[:])
	if err != nil {
		return [KeySize]byte{}, errors.Wrap(err, "identity: X25519 agreement failed")
	}
	copy(shared[:], out)
	return shared, nil
}
