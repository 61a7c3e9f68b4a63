package seal

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the length of a sealing key.
const KeySize = chacha20poly1305.KeySize

var (
	ErrInvalidKey         = errors.New("seal: invalid key size")
	ErrCiphertextTooShort = errors.New("seal: ciphertext too short")
	ErrDecryptionFailed   = errors.New("seal: decryption failed")
)

// AEAD is ChaCha20-Poly1305 with managed nonces: a random 32-bit prefix
// followed by a 64-bit counter. It is safe for concurrent use.
type AEAD struct {
	aead   cipher.AEAD
	prefix [4]byte
	seq    atomic.Uint64
}

// NewAEAD creates a cipher from a KeySize key.
func NewAEAD(key []byte) (*AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKey, len(key))
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	a := &AEAD{aead: aead}
	if _, err := io.ReadFull(rand.Reader, a.prefix[:]); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *AEAD) nextNonce() []byte {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	copy(nonce[:4], a.prefix[:])
	binary.BigEndian.PutUint64(nonce[4:], a.seq.Add(1))
	return nonce
}

// Seal returns nonce || ciphertext || tag.
func (a *AEAD) Seal(plaintext, additionalData []byte) []byte {
	nonce := a.nextNonce()
	out := make([]byte, len(nonce), len(nonce)+len(plaintext)+a.aead.Overhead())
	copy(out, nonce)
	return a.aead.Seal(out, nonce, plaintext, additionalData)
}

// Open reverses Seal.
func (a *AEAD) Open(ciphertext, additionalData []byte) ([]byte, error) {
	nonceSize := chacha20poly1305.NonceSize
	if len(ciphertext) < nonceSize+a.aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	plaintext, err := a.aead.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], additionalData)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// Overhead is the number of bytes Seal adds to a plaintext.
func (a *AEAD) Overhead() int { return chacha20poly1305.NonceSize + a.aead.Overhead() }
