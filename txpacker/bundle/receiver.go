package bundle

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/noxpeteam/TXPacker/txpacker/seal"
)

// Receiver collects chunks of one bundle, in any order, and verifies each
// one before accepting it. It is safe for concurrent use.
type Receiver struct {
	header Header
	aead   *seal.AEAD

	mu       sync.Mutex
	chunks   []Chunk
	have     []bool
	received int
}

// NewReceiver prepares to receive the bundle described by h. key is required
// when the bundle is sealed and ignored otherwise.
func NewReceiver(h Header, key []byte) (*Receiver, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	r := &Receiver{
		header: h,
		chunks: make([]Chunk, h.ChunkCount),
		have:   make([]bool, h.ChunkCount),
	}
	if h.Sealed {
		if key == nil {
			return nil, ErrKeyRequired
		}
		aead, err := seal.NewAEAD(key)
		if err != nil {
			return nil, err
		}
		r.aead = aead
	}
	return r, nil
}

// Receive opens, decompresses and verifies a chunk. Duplicates are ignored.
func (r *Receiver) Receive(ec EncodedChunk) error {
	if ec.Index < 0 || ec.Index >= r.header.ChunkCount {
		return fmt.Errorf("%w: chunk index %d", ErrInvalidBundle, ec.Index)
	}
	if ec.Sealed() != r.header.Sealed {
		return fmt.Errorf("%w: chunk %d seal flag", ErrIntegrityCheckFailed, ec.Index)
	}
	if ec.Sealed() {
		plain, err := r.aead.Open(ec.Data, sealAD(ec.Index, ec.OrigHash))
		if err != nil {
			return fmt.Errorf("%w: chunk %d: %v", ErrIntegrityCheckFailed, ec.Index, err)
		}
		ec.Data = plain
		ec.Flags &^= FlagSealed
	}
	chunk, err := DecodeChunk(ec, r.header.ChunkSize)
	if err != nil {
		return fmt.Errorf("chunk %d: %w", ec.Index, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.have[chunk.Index] {
		return nil
	}
	r.chunks[chunk.Index] = chunk
	r.have[chunk.Index] = true
	r.received++
	return nil
}

// ReceiveBatch receives every chunk of b, stopping at the first error.
func (r *Receiver) ReceiveBatch(b *Batch) error {
	for _, ec := range b.Chunks {
		if err := r.Receive(ec); err != nil {
			return err
		}
	}
	return nil
}

// Progress is the received fraction in [0, 1].
func (r *Receiver) Progress() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return float64(r.received) / float64(r.header.ChunkCount)
}

func (r *Receiver) Complete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.received == r.header.ChunkCount
}

// Missing lists the indexes not yet received.
func (r *Receiver) Missing() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int
	for i, ok := range r.have {
		if !ok {
			out = append(out, i)
		}
	}
	return out
}

// Assemble checks the Merkle root and returns the payload.
func (r *Receiver) Assemble() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.received != r.header.ChunkCount {
		return nil, fmt.Errorf("%w: have %d of %d", ErrIncomplete, r.received, r.header.ChunkCount)
	}

	hashes := make([][]byte, len(r.chunks))
	for i, c := range r.chunks {
		hashes[i] = c.Hash
	}
	root, err := MerkleRoot(hashes)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(root, r.header.Root) {
		return nil, fmt.Errorf("%w: merkle root mismatch", ErrIntegrityCheckFailed)
	}

	data := Reassemble(r.chunks)
	if int64(len(data)) != r.header.Size {
		return nil, fmt.Errorf("%w: size %d, want %d", ErrIntegrityCheckFailed, len(data), r.header.Size)
	}
	return data, nil
}
