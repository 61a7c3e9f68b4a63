package seal

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

const bundleKeyInfo = "txpacker-bundle-key"

// Argon2id cost parameters for passphrase stretching.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

var ErrEmptyPassphrase = errors.New("seal: empty passphrase")

// DeriveKey expands secret into length bytes with HKDF-SHA256.
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	hk := hkdf.New(sha256.New, secret, salt, info)
	key := make([]byte, length)
	if _, err := io.ReadFull(hk, key); err != nil {
		return nil, err
	}
	return key, nil
}

// KeyFromPassphrase derives the bundle key for a pack. The same passphrase
// yields different keys for packs with different UUIDs.
func KeyFromPassphrase(passphrase, packUUID string) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	salt := sha256.Sum256([]byte("txpacker:" + packUUID))
	stretched := argon2.IDKey([]byte(passphrase), salt[:], argonTime, argonMemory, argonThreads, KeySize)
	return DeriveKey(stretched, []byte(packUUID), []byte(bundleKeyInfo), KeySize)
}
