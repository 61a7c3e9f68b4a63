package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// PublisherID identifies who signed a bundle: SHA-256 of the public key.
type PublisherID [32]byte

func PublisherIDFromPublicKey(publicKey []byte) PublisherID {
	return PublisherID(sha256.Sum256(publicKey))
}

func ParsePublisherID(s string) (PublisherID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PublisherID{}, err
	}
	if len(b) != len(PublisherID{}) {
		return PublisherID{}, fmt.Errorf("%w: publisher id is %d bytes", ErrInvalidKey, len(b))
	}
	return PublisherID(b), nil
}

func (id PublisherID) String() string {
	return hex.EncodeToString(id[:])
}

// Short is the first 8 hex digits, for logs.
func (id PublisherID) Short() string {
	return id.String()[:8]
}
