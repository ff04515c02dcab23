package persist

import (
	"crypto/rand"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	"github.com/dlazar-im/toxcore/errors"
)

const (
	containerMagic = "TOXESAVE"
	saltSize       = 32
	nonceSize      = 24
	keySize        = 32

	scryptN = 16384
	scryptR = 8
	scryptP = 1
)

var (
	ErrNotEncrypted = errors.New("persist: blob is not an encrypted save container")
	ErrWrongPassphrase = errors.New("persist: wrong passphrase or corrupt container")
)

// IsEncrypted reports whether data begins with the encrypted-container
// magic, so a caller can decide between DecryptSave and a direct Load.
func IsEncrypted(data []byte) bool {
	return len(data) >= len(containerMagic) && string(data[:len(containerMagic)]) == containerMagic
}

func deriveKey(passphrase string, salt []byte) ([keySize]byte, error) {
	var key [keySize]byte
	raw, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return key, errors.Wrap(err, "persist: scrypt key derivation failed")
	}
	copy(key[:], raw)
	return key, nil
}

// EncryptSave wraps an already-serialized save blob (as produced by
// Save) in a passphrase-sealed container: magic, a random salt, a random
// nonce, then a secretbox-sealed copy of data.
func EncryptSave(data []byte, passphrase string) ([]byte, error) {
	var salt [saltSize]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, errors.Wrap(err, "persist: generating salt")
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, errors.Wrap(err, "persist: generating nonce")
	}

	key, err := deriveKey(passphrase, salt[:])
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(containerMagic)+saltSize+nonceSize+len(data)+secretbox.Overhead)
	out = append(out, containerMagic...)
	out = append(out, salt[:]...)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, data, &nonce, &key)
	return out, nil
}

// DecryptSave opens a container produced by EncryptSave. A wrong
// passphrase or corrupt/tampered container fails closed with
// ErrWrongPassphrase; it never returns a partially-decrypted blob.
func DecryptSave(data []byte, passphrase string) ([]byte, error) {
	if !IsEncrypted(data) {
		return nil, ErrNotEncrypted
	}
	data = data[len(containerMagic):]
	if len(data) < saltSize+nonceSize {
		return nil, ErrWrongPassphrase
	}
	salt := data[:saltSize]
	var nonce [nonceSize]byte
	copy(nonce[:], data[saltSize:saltSize+nonceSize])
	sealed := data[saltSize+nonceSize:]

	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}

	plain, ok := secretbox.Open(nil, sealed, &nonce, &key)
	if !ok {
		return nil, ErrWrongPassphrase
	}
	return plain, nil
}
