package bundle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrBatchTooLarge = errors.New("bundle: batch exceeds maximum size")
	ErrInvalidBatch  = errors.New("bundle: invalid batch")
)

const (
	// MaxBatchSize is the maximum encoded batch size (4 MiB).
	MaxBatchSize = 4 * 1024 * 1024
	// BatchMagic identifies a batch frame ("TXPB").
	BatchMagic = uint32(0x54585042)

	batchHeaderSize = 4 + 4
	// index + flags + hash length + data length
	chunkOverhead = 4 + 1 + 2 + 4
)

// Batch groups chunks into one frame.
type Batch struct {
	Chunks []EncodedChunk
}

func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) Add(ec EncodedChunk) {
	b.Chunks = append(b.Chunks, ec)
}

// Fits reports whether ec can be added without exceeding MaxBatchSize.
func (b *Batch) Fits(ec EncodedChunk) bool {
	return b.Size()+encodedSize(ec) <= MaxBatchSize
}

func encodedSize(ec EncodedChunk) int {
	return chunkOverhead + len(ec.OrigHash) + len(ec.Data)
}

// Size is the encoded size of the batch.
func (b *Batch) Size() int {
	size := batchHeaderSize
	for _, ec := range b.Chunks {
		size += encodedSize(ec)
	}
	return size
}

// Encode serializes the batch.
// Format:
//
//	4 bytes: magic
//	4 bytes: chunk count
//	per chunk:
//		4 bytes: index
//		1 byte:  flags
//		2 bytes: hash length, then hash
//		4 bytes: data length, then data
func (b *Batch) Encode() ([]byte, error) {
	size := b.Size()
	if size > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}

	buf := make([]byte, 0, size)
	buf = binary.BigEndian.AppendUint32(buf, BatchMagic)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(b.Chunks)))
	for _, ec := range b.Chunks {
		buf = binary.BigEndian.AppendUint32(buf, uint32(ec.Index))
		buf = append(buf, ec.Flags)
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(ec.OrigHash)))
		buf = append(buf, ec.OrigHash...)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(ec.Data)))
		buf = append(buf, ec.Data...)
	}
	return buf, nil
}

// DecodeBatch parses an encoded batch. The returned chunks do not alias data.
func DecodeBatch(data []byte) (*Batch, error) {
	if len(data) < batchHeaderSize {
		return nil, fmt.Errorf("%w: too short", ErrInvalidBatch)
	}
	if binary.BigEndian.Uint32(data[:4]) != BatchMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidBatch)
	}
	count := int(binary.BigEndian.Uint32(data[4:8]))
	if count > (len(data)-batchHeaderSize)/chunkOverhead {
		return nil, fmt.Errorf("%w: chunk count %d", ErrInvalidBatch, count)
	}

	b := &Batch{Chunks: make([]EncodedChunk, 0, count)}
	rest := data[batchHeaderSize:]
	for i := 0; i < count; i++ {
		if len(rest) < 4+1+2 {
			return nil, fmt.Errorf("%w: truncated", ErrInvalidBatch)
		}
		ec := EncodedChunk{
			Index: int(binary.BigEndian.Uint32(rest)),
			Flags: rest[4],
		}
		hashLen := int(binary.BigEndian.Uint16(rest[5:]))
		rest = rest[7:]
		if len(rest) < hashLen+4 {
			return nil, fmt.Errorf("%w: truncated", ErrInvalidBatch)
		}
		ec.OrigHash = append([]byte(nil), rest[:hashLen]...)
		dataLen := int(binary.BigEndian.Uint32(rest[hashLen:]))
		rest = rest[hashLen+4:]
		if len(rest) < dataLen {
			return nil, fmt.Errorf("%w: truncated", ErrInvalidBatch)
		}
		ec.Data = append([]byte(nil), rest[:dataLen]...)
		rest = rest[dataLen:]
		b.Chunks = append(b.Chunks, ec)
	}
	return b, nil
}

// WriteBatch writes a length-prefixed batch.
func WriteBatch(w io.Writer, b *Batch) error {
	data, err := b.Encode()
	if err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ReadBatch reads one length-prefixed batch.
func ReadBatch(r io.Reader) (*Batch, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return DecodeBatch(data)
}
