package bundle

import (
	"bytes"
	"slices"
)

const (
	// DefaultChunkSize is used when no chunk size is configured (256 KiB).
	DefaultChunkSize = 256 * 1024
	// MaxChunkSize keeps a single chunk well inside one batch.
	MaxChunkSize = 1 << 20
)

// Chunker splits data into fixed-size chunks.
type Chunker struct {
	chunkSize int
}

// NewChunker returns a chunker; sizes outside (0, MaxChunkSize] fall back to
// DefaultChunkSize.
func NewChunker(chunkSize int) *Chunker {
	if chunkSize <= 0 || chunkSize > MaxChunkSize {
		chunkSize = DefaultChunkSize
	}
	return &Chunker{chunkSize: chunkSize}
}

// ChunkSize returns the configured chunk size.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Chunk is one slice of a bundle payload.
type Chunk struct {
	Index int
	Data  []byte
	Hash  []byte
}

// Split cuts data into chunks. The chunks alias data.
func (c *Chunker) Split(data []byte) []Chunk {
	chunks := make([]Chunk, 0, (len(data)+c.chunkSize-1)/c.chunkSize)
	for off := 0; off < len(data); off += c.chunkSize {
		part := data[off:min(off+c.chunkSize, len(data))]
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Data:  part,
			Hash:  HashChunk(part),
		})
	}
	return chunks
}

// Reassemble concatenates chunks in index order.
func Reassemble(chunks []Chunk) []byte {
	sorted := slices.Clone(chunks)
	slices.SortFunc(sorted, func(a, b Chunk) int { return a.Index - b.Index })

	var buf bytes.Buffer
	for _, c := range sorted {
		buf.Write(c.Data)
	}
	return buf.Bytes()
}
