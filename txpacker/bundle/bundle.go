package bundle

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noxpeteam/TXPacker/txpacker/bundle/erasure"
	"github.com/noxpeteam/TXPacker/txpacker/identity"
	"github.com/noxpeteam/TXPacker/txpacker/seal"
)

var (
	ErrIntegrityCheckFailed = errors.New("bundle: integrity check failed")
	ErrInvalidBundle        = errors.New("bundle: invalid bundle")
	ErrInvalidConfig        = errors.New("bundle: invalid config")
	ErrEmptyPayload         = errors.New("bundle: empty payload")
	ErrSealed               = errors.New("bundle: chunk is sealed")
	ErrKeyRequired          = errors.New("bundle: key required for sealed bundle")
	ErrIncomplete           = errors.New("bundle: missing chunks")
)

// Config controls how bundles are built.
type Config struct {
	ChunkSize   int
	Compression CompressionLevel

	// ParityData and ParityShards enable Reed-Solomon parity when both are
	// positive.
	ParityData   int
	ParityShards int

	// Key seals chunk payloads when set; it must be seal.KeySize bytes.
	Key []byte
	// Signer signs the header when set.
	Signer *identity.KeyPair
}

func DefaultConfig() Config {
	return Config{
		ChunkSize:   DefaultChunkSize,
		Compression: CompressionDefault,
	}
}

func (c Config) Validate() error {
	if c.ChunkSize <= 0 || c.ChunkSize > MaxChunkSize {
		return fmt.Errorf("%w: chunk size %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.Compression < CompressionFast || c.Compression > CompressionBest {
		return fmt.Errorf("%w: compression %d", ErrInvalidConfig, c.Compression)
	}
	if (c.ParityData > 0) != (c.ParityShards > 0) || c.ParityData < 0 || c.ParityShards < 0 {
		return fmt.Errorf("%w: parity %d+%d", ErrInvalidConfig, c.ParityData, c.ParityShards)
	}
	if c.Key != nil && len(c.Key) != seal.KeySize {
		return fmt.Errorf("%w: key is %d bytes", ErrInvalidConfig, len(c.Key))
	}
	// Parity shards hold the plaintext payload.
	if c.Key != nil && c.ParityShards > 0 {
		return fmt.Errorf("%w: parity cannot be combined with sealing", ErrInvalidConfig)
	}
	return nil
}

// Bundle is a built bundle held in memory.
type Bundle struct {
	Header Header
	Chunks []EncodedChunk
	// Parity is kept apart from the chunk stream; see WriteParity.
	Parity *erasure.Parity
}

// EncodedSize is the total size of the chunk payloads.
func (bd *Bundle) EncodedSize() int64 {
	var n int64
	for _, ec := range bd.Chunks {
		n += int64(len(ec.Data))
	}
	return n
}

// CompressionRatio is EncodedSize over the original size.
func (bd *Bundle) CompressionRatio() float64 {
	if bd.Header.Size == 0 {
		return 1
	}
	return float64(bd.EncodedSize()) / float64(bd.Header.Size)
}

// Builder turns payloads into bundles.
type Builder struct {
	config  Config
	chunker *Chunker
	aead    *seal.AEAD
	workers int
}

func NewBuilder(cfg Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Builder{
		config:  cfg,
		chunker: NewChunker(cfg.ChunkSize),
		workers: runtime.GOMAXPROCS(0),
	}
	if cfg.Key != nil {
		aead, err := seal.NewAEAD(cfg.Key)
		if err != nil {
			return nil, err
		}
		b.aead = aead
	}
	return b, nil
}

// sealAD binds a sealed chunk to its position and original hash.
func sealAD(index int, origHash []byte) []byte {
	ad := binary.BigEndian.AppendUint32(nil, uint32(index))
	return append(ad, origHash...)
}

// Build chunks, compresses, seals and signs data. Chunks are encoded
// concurrently.
func (b *Builder) Build(name, packUUID string, data []byte) (*Bundle, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}

	chunks := b.chunker.Split(data)
	if len(chunks) > MaxChunks {
		return nil, fmt.Errorf("%w: %d chunks", ErrInvalidConfig, len(chunks))
	}
	hashes := make([][]byte, len(chunks))
	for i, c := range chunks {
		hashes[i] = c.Hash
	}
	root, err := MerkleRoot(hashes)
	if err != nil {
		return nil, err
	}

	encoded := make([]EncodedChunk, len(chunks))
	var g errgroup.Group
	g.SetLimit(b.workers)
	for i, c := range chunks {
		i, c := i, c // per-iteration copies (go directive is 1.21)
		g.Go(func() error {
			ec := EncodeChunk(c, b.config.Compression)
			if b.aead != nil {
				ec.Data = b.aead.Seal(ec.Data, sealAD(ec.Index, ec.OrigHash))
				ec.Flags |= FlagSealed
			}
			encoded[i] = ec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bd := &Bundle{
		Header: Header{
			Name:       name,
			PackUUID:   packUUID,
			Size:       int64(len(data)),
			ChunkSize:  b.chunker.ChunkSize(),
			ChunkCount: len(chunks),
			Root:       root,
			Sealed:     b.aead != nil,
			CreatedSec: time.Now().Unix(),
		},
		Chunks: encoded,
	}

	if b.config.ParityShards > 0 {
		parity, err := erasure.Protect(data, b.config.ParityData, b.config.ParityShards)
		if err != nil {
			return nil, fmt.Errorf("bundle: parity: %w", err)
		}
		bd.Parity = parity
		bd.Header.ParityData = b.config.ParityData
		bd.Header.ParityShards = b.config.ParityShards
	}

	if b.config.Signer != nil {
		bd.Header.Sign(*b.config.Signer)
	}
	return bd, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// WriteTo writes the header followed by the chunk batches.
func (bd *Bundle) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	if err := WriteHeader(cw, bd.Header); err != nil {
		return cw.n, err
	}
	err := WriteChunks(cw, bd.Chunks)
	return cw.n, err
}

// WriteChunks packs chunks into as few batches as MaxBatchSize allows.
func WriteChunks(w io.Writer, chunks []EncodedChunk) error {
	batch := NewBatch()
	for _, ec := range chunks {
		if len(batch.Chunks) > 0 && !batch.Fits(ec) {
			if err := WriteBatch(w, batch); err != nil {
				return err
			}
			batch = NewBatch()
		}
		batch.Add(ec)
	}
	if len(batch.Chunks) == 0 {
		return nil
	}
	return WriteBatch(w, batch)
}

// ReadChunks reads batches until all of the header's chunks have arrived.
func ReadChunks(r io.Reader, h Header) ([]EncodedChunk, error) {
	chunks := make([]EncodedChunk, h.ChunkCount)
	seen := make([]bool, h.ChunkCount)
	remaining := h.ChunkCount
	for remaining > 0 {
		batch, err := ReadBatch(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: %d chunks not received", ErrIncomplete, remaining)
			}
			return nil, err
		}
		if len(batch.Chunks) == 0 {
			return nil, fmt.Errorf("%w: empty batch", ErrInvalidBundle)
		}
		for _, ec := range batch.Chunks {
			if ec.Index < 0 || ec.Index >= h.ChunkCount || seen[ec.Index] {
				return nil, fmt.Errorf("%w: chunk index %d", ErrInvalidBundle, ec.Index)
			}
			seen[ec.Index] = true
			chunks[ec.Index] = ec
			remaining--
		}
	}
	return chunks, nil
}

// ReadBundle reads a bundle written by WriteTo.
func ReadBundle(r io.Reader) (*Bundle, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	chunks, err := ReadChunks(r, h)
	if err != nil {
		return nil, err
	}
	return &Bundle{Header: h, Chunks: chunks}, nil
}

// WriteParity writes the parity set, if any.
func (bd *Bundle) WriteParity(w io.Writer) error {
	if bd.Parity == nil {
		return fmt.Errorf("%w: no parity", ErrInvalidBundle)
	}
	_, err := bd.Parity.WriteTo(w)
	return err
}

// Open verifies and reassembles the payload. A signed header must verify.
// When chunks fail their integrity checks and parity is attached, the
// payload is rebuilt from parity and checked against the Merkle root.
func (bd *Bundle) Open(key []byte) ([]byte, error) {
	if bd.Header.Signed() {
		if err := bd.Header.Verify(); err != nil {
			return nil, err
		}
	}
	data, err := bd.assemble(key)
	if err == nil || bd.Parity == nil || errors.Is(err, ErrKeyRequired) {
		return data, err
	}
	recovered, perr := bd.Parity.Recover()
	if perr != nil {
		return nil, errors.Join(err, perr)
	}
	if verr := VerifyPayload(bd.Header, recovered); verr != nil {
		return nil, verr
	}
	return recovered, nil
}

func (bd *Bundle) assemble(key []byte) ([]byte, error) {
	rx, err := NewReceiver(bd.Header, key)
	if err != nil {
		return nil, err
	}
	for _, ec := range bd.Chunks {
		if err := rx.Receive(ec); err != nil {
			return nil, err
		}
	}
	return rx.Assemble()
}

// VerifyPayload re-chunks data and checks it against the header.
func VerifyPayload(h Header, data []byte) error {
	if int64(len(data)) != h.Size {
		return fmt.Errorf("%w: size %d, want %d", ErrIntegrityCheckFailed, len(data), h.Size)
	}
	chunks := NewChunker(h.ChunkSize).Split(data)
	hashes := make([][]byte, len(chunks))
	for i, c := range chunks {
		hashes[i] = c.Hash
	}
	root, err := MerkleRoot(hashes)
	if err != nil {
		return err
	}
	if !bytes.Equal(root, h.Root) {
		return fmt.Errorf("%w: merkle root mismatch", ErrIntegrityCheckFailed)
	}
	return nil
}
