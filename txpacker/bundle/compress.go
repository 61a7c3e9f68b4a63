package bundle

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/noxpeteam/TXPacker/txpacker/optimize"
)

var (
	ErrCompressionFailed   = errors.New("bundle: compression failed")
	ErrDecompressionFailed = errors.New("bundle: decompression failed")
	ErrChunkTooLarge       = errors.New("bundle: chunk exceeds chunk size")
)

// CompressionLevel trades speed for ratio.
type CompressionLevel int

const (
	CompressionFast CompressionLevel = iota
	CompressionDefault
	CompressionBest
)

// CompressionFor picks the LZ4 level matching an optimization level: the
// harder a pack was optimized, the harder its bundle is compressed.
func CompressionFor(level optimize.Level) CompressionLevel {
	switch level {
	case optimize.LevelAdvanced:
		return CompressionDefault
	case optimize.LevelMax:
		return CompressionBest
	default:
		return CompressionFast
	}
}

func (l CompressionLevel) lz4Level() lz4.CompressionLevel {
	switch l {
	case CompressionFast:
		return lz4.Fast
	case CompressionBest:
		return lz4.Level9
	default:
		return lz4.Level4
	}
}

var compressorPool = sync.Pool{
	New: func() any { return lz4.NewWriter(nil) },
}

var decompressorPool = sync.Pool{
	New: func() any { return lz4.NewReader(nil) },
}

// Compress LZ4-compresses data.
func Compress(data []byte, level CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	w := compressorPool.Get().(*lz4.Writer)
	defer compressorPool.Put(w)

	w.Reset(&buf)
	if err := w.Apply(lz4.CompressionLevelOption(level.lz4Level())); err != nil {
		return nil, ErrCompressionFailed
	}
	if _, err := w.Write(data); err != nil {
		return nil, ErrCompressionFailed
	}
	if err := w.Close(); err != nil {
		return nil, ErrCompressionFailed
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress, reading at most limit bytes of output.
func Decompress(data []byte, limit int) ([]byte, error) {
	r := decompressorPool.Get().(*lz4.Reader)
	defer decompressorPool.Put(r)

	r.Reset(bytes.NewReader(data))
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, ErrDecompressionFailed
	}
	if n > int64(limit) {
		return nil, fmt.Errorf("%w: inflates past %d bytes", ErrChunkTooLarge, limit)
	}
	return buf.Bytes(), nil
}

// Chunk flags.
const (
	FlagCompressed uint8 = 1 << iota
	FlagSealed
)

// EncodedChunk is a chunk as stored in a bundle: possibly compressed,
// possibly sealed, always carrying the hash of the original bytes.
type EncodedChunk struct {
	Index    int
	Flags    uint8
	Data     []byte
	OrigHash []byte
}

func (ec EncodedChunk) Compressed() bool { return ec.Flags&FlagCompressed != 0 }
func (ec EncodedChunk) Sealed() bool     { return ec.Flags&FlagSealed != 0 }

// EncodeChunk compresses a chunk when that makes it smaller.
func EncodeChunk(chunk Chunk, level CompressionLevel) EncodedChunk {
	ec := EncodedChunk{
		Index:    chunk.Index,
		Data:     chunk.Data,
		OrigHash: chunk.Hash,
	}
	compressed, err := Compress(chunk.Data, level)
	if err == nil && len(compressed) < len(chunk.Data) {
		ec.Flags |= FlagCompressed
		ec.Data = compressed
	}
	return ec
}

// DecodeChunk decompresses an unsealed chunk and checks its hash. Chunks
// longer than limit bytes are rejected before hashing.
func DecodeChunk(ec EncodedChunk, limit int) (Chunk, error) {
	if ec.Sealed() {
		return Chunk{}, ErrSealed
	}
	data := ec.Data
	if ec.Compressed() {
		var err error
		if data, err = Decompress(ec.Data, limit); err != nil {
			return Chunk{}, err
		}
	} else if len(data) > limit {
		return Chunk{}, fmt.Errorf("%w: %d bytes", ErrChunkTooLarge, len(data))
	}
	hash := HashChunk(data)
	if !bytes.Equal(hash, ec.OrigHash) {
		return Chunk{}, ErrIntegrityCheckFailed
	}
	return Chunk{Index: ec.Index, Data: data, Hash: hash}, nil
}
