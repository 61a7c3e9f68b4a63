// Package identity holds publisher signing keys.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrInvalidKey = errors.New("identity: invalid key")

// KeyPair is an Ed25519 keypair used to sign bundles.
type KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// KeyPairFromSeed rebuilds a keypair from its 32-byte seed.
func KeyPairFromSeed(seed []byte) (KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return KeyPair{}, fmt.Errorf("%w: seed is %d bytes", ErrInvalidKey, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return KeyPair{PublicKey: priv.Public().(ed25519.PublicKey), PrivateKey: priv}, nil
}

// LoadKeyFile reads a hex-encoded seed written by SaveKeyFile.
func LoadKeyFile(path string) (KeyPair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return KeyPair{}, err
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return KeyPairFromSeed(seed)
}

// SaveKeyFile writes the keypair seed as hex, readable only by the owner.
func SaveKeyFile(path string, kp KeyPair) error {
	if len(kp.PrivateKey) != ed25519.PrivateKeySize {
		return ErrInvalidKey
	}
	return os.WriteFile(path, []byte(hex.EncodeToString(kp.PrivateKey.Seed())+"\n"), 0o600)
}

func (kp KeyPair) PublisherID() PublisherID {
	return PublisherIDFromPublicKey(kp.PublicKey)
}

func (kp KeyPair) Sign(message []byte) []byte {
	return ed25519.Sign(kp.PrivateKey, message)
}

// Verify reports whether signature is valid; malformed keys never verify.
func Verify(publicKey ed25519.PublicKey, message, signature []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(publicKey, message, signature)
}
