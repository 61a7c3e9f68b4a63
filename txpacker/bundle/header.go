package bundle

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/noxpeteam/TXPacker/txpacker/identity"
)

var (
	ErrUnsigned          = errors.New("bundle: header is not signed")
	ErrPublisherMismatch = errors.New("bundle: publisher id does not match public key")
	ErrBadSignature      = errors.New("bundle: invalid header signature")
)

const (
	// HeaderMagic starts a bundle file ("TXBH").
	HeaderMagic = uint32(0x54584248)
	// MaxHeaderSize bounds the JSON header.
	MaxHeaderSize = 64 * 1024
	// MaxChunks bounds the chunk count a header may announce.
	MaxChunks = 1 << 20
)

// Header describes a bundle. The signature, when present, is computed over
// SigningBytes and therefore commits to the Merkle root.
type Header struct {
	Name         string `json:"name"`
	PackUUID     string `json:"pack_uuid,omitempty"`
	Size         int64  `json:"size"`
	ChunkSize    int    `json:"chunk_size"`
	ChunkCount   int    `json:"chunk_count"`
	Root         []byte `json:"root"`
	Sealed       bool   `json:"sealed,omitempty"`
	ParityData   int    `json:"parity_data,omitempty"`
	ParityShards int    `json:"parity_shards,omitempty"`
	CreatedSec   int64  `json:"created_sec"`
	Publisher    string `json:"publisher,omitempty"`
	PublicKey    []byte `json:"public_key,omitempty"`
	Signature    []byte `json:"signature,omitempty"`
}

func putString(b *bytes.Buffer, s string) {
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(s)))
	b.Write(l[:])
	b.WriteString(s)
}

// SigningBytes is the canonical byte form of the signed fields.
func (h Header) SigningBytes() []byte {
	var b bytes.Buffer
	b.WriteString("txpacker-bundle-v1")
	putString(&b, h.Name)
	putString(&b, h.PackUUID)

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(h.Size))
	b.Write(n[:])
	binary.BigEndian.PutUint32(n[:4], uint32(h.ChunkSize))
	b.Write(n[:4])
	binary.BigEndian.PutUint32(n[:4], uint32(h.ChunkCount))
	b.Write(n[:4])
	b.Write(h.Root)
	if h.Sealed {
		b.WriteByte(1)
	} else {
		b.WriteByte(0)
	}
	binary.BigEndian.PutUint64(n[:], uint64(h.CreatedSec))
	b.Write(n[:])
	return b.Bytes()
}

func (h Header) Signed() bool { return len(h.Signature) > 0 }

// Sign stamps the publisher fields and signs the header.
func (h *Header) Sign(kp identity.KeyPair) {
	h.Publisher = kp.PublisherID().String()
	h.PublicKey = append([]byte(nil), kp.PublicKey...)
	h.Signature = kp.Sign(h.SigningBytes())
}

// Verify checks the publisher binding and the signature.
func (h Header) Verify() error {
	if !h.Signed() {
		return ErrUnsigned
	}
	if len(h.PublicKey) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: bad public key", ErrBadSignature)
	}
	claimed, err := identity.ParsePublisherID(h.Publisher)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPublisherMismatch, err)
	}
	if identity.PublisherIDFromPublicKey(h.PublicKey) != claimed {
		return ErrPublisherMismatch
	}
	if !identity.Verify(ed25519.PublicKey(h.PublicKey), h.SigningBytes(), h.Signature) {
		return ErrBadSignature
	}
	return nil
}

// Validate checks that the header fields are mutually consistent.
func (h Header) Validate() error {
	switch {
	case h.Size <= 0:
		return fmt.Errorf("%w: size %d", ErrInvalidBundle, h.Size)
	case h.ChunkSize <= 0 || h.ChunkSize > MaxChunkSize:
		return fmt.Errorf("%w: chunk size %d", ErrInvalidBundle, h.ChunkSize)
	case h.ChunkCount > MaxChunks:
		return fmt.Errorf("%w: %d chunks", ErrInvalidBundle, h.ChunkCount)
	case int64(h.ChunkCount) != (h.Size+int64(h.ChunkSize)-1)/int64(h.ChunkSize):
		return fmt.Errorf("%w: chunk count %d for size %d", ErrInvalidBundle, h.ChunkCount, h.Size)
	case len(h.Root) != 32:
		return fmt.Errorf("%w: merkle root", ErrInvalidBundle)
	}
	return nil
}

func EncodeHeader(h Header) ([]byte, error) {
	return json.Marshal(h)
}

func DecodeHeader(b []byte) (Header, error) {
	var h Header
	if err := json.Unmarshal(b, &h); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	if err := h.Validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

// WriteHeader writes magic, length and the JSON header.
func WriteHeader(w io.Writer, h Header) error {
	payload, err := EncodeHeader(h)
	if err != nil {
		return err
	}
	if len(payload) > MaxHeaderSize {
		return fmt.Errorf("%w: header too large", ErrInvalidBundle)
	}
	buf := make([]byte, 8, 8+len(payload))
	binary.BigEndian.PutUint32(buf[0:], HeaderMagic)
	binary.BigEndian.PutUint32(buf[4:], uint32(len(payload)))
	_, err = w.Write(append(buf, payload...))
	return err
}

func ReadHeader(r io.Reader) (Header, error) {
	var prefix [8]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return Header{}, err
	}
	if binary.BigEndian.Uint32(prefix[0:]) != HeaderMagic {
		return Header{}, fmt.Errorf("%w: bad magic", ErrInvalidBundle)
	}
	n := binary.BigEndian.Uint32(prefix[4:])
	if n > MaxHeaderSize {
		return Header{}, fmt.Errorf("%w: header too large", ErrInvalidBundle)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Header{}, err
	}
	return DecodeHeader(payload)
}
