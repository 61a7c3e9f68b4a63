package erasure

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ParityMagic identifies a parity file ("TXPE").
const ParityMagic = uint32(0x54585045)

// maxShardSize caps a single shard read from disk.
const maxShardSize = 256 << 20

var ErrInvalidParity = errors.New("erasure: invalid parity data")

// Parity is a payload protected by Reed-Solomon shards.
type Parity struct {
	DataShards   int
	ParityShards int
	Size         int
	Shards       [][]byte
	Hashes       [][]byte
}

// Protect encodes data into dataShards+parityShards hashed shards.
func Protect(data []byte, dataShards, parityShards int) (*Parity, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidConfig)
	}
	codec, err := NewCodec(dataShards, parityShards)
	if err != nil {
		return nil, err
	}
	// Split aliases its input.
	shards, err := codec.EncodeData(bytes.Clone(data))
	if err != nil {
		return nil, err
	}
	p := &Parity{
		DataShards:   dataShards,
		ParityShards: parityShards,
		Size:         len(data),
		Shards:       shards,
		Hashes:       make([][]byte, len(shards)),
	}
	for i, s := range shards {
		h := sha256.Sum256(s)
		p.Hashes[i] = h[:]
	}
	return p, nil
}

// Damaged returns the indexes of shards that are missing or fail their hash.
func (p *Parity) Damaged() []int {
	var bad []int
	for i, s := range p.Shards {
		if s == nil {
			bad = append(bad, i)
			continue
		}
		h := sha256.Sum256(s)
		if !bytes.Equal(h[:], p.Hashes[i]) {
			bad = append(bad, i)
		}
	}
	return bad
}

// Recover rebuilds damaged shards in place and returns the payload.
func (p *Parity) Recover() ([]byte, error) {
	codec, err := NewCodec(p.DataShards, p.ParityShards)
	if err != nil {
		return nil, err
	}
	if len(p.Shards) != codec.TotalShards() || len(p.Hashes) != codec.TotalShards() {
		return nil, ErrInvalidParity
	}
	damaged := p.Damaged()
	if len(damaged) > p.ParityShards {
		return nil, ErrTooManyLost
	}
	if len(damaged) > 0 {
		for _, i := range damaged {
			p.Shards[i] = nil
		}
		if err := codec.Reconstruct(p.Shards); err != nil {
			return nil, err
		}
	}
	return codec.Join(p.Shards, p.Size), nil
}

// WriteTo writes the parity set.
// Format:
//
//	4 bytes: magic
//	1 byte:  data shards
//	1 byte:  parity shards
//	8 bytes: payload size
//	4 bytes: shard size
//	per shard: 32-byte hash, then shard bytes
func (p *Parity) WriteTo(w io.Writer) (int64, error) {
	if len(p.Shards) == 0 || len(p.Shards) != len(p.Hashes) {
		return 0, ErrInvalidParity
	}
	shardSize := len(p.Shards[0])

	hdr := make([]byte, 18)
	binary.BigEndian.PutUint32(hdr[0:], ParityMagic)
	hdr[4] = byte(p.DataShards)
	hdr[5] = byte(p.ParityShards)
	binary.BigEndian.PutUint64(hdr[6:], uint64(p.Size))
	binary.BigEndian.PutUint32(hdr[14:], uint32(shardSize))

	var written int64
	n, err := w.Write(hdr)
	written += int64(n)
	if err != nil {
		return written, err
	}
	for i, s := range p.Shards {
		if len(s) != shardSize || len(p.Hashes[i]) != sha256.Size {
			return written, fmt.Errorf("%w: shard %d", ErrInvalidParity, i)
		}
		for _, b := range [][]byte{p.Hashes[i], s} {
			n, err := w.Write(b)
			written += int64(n)
			if err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

// ReadParity reads a parity set written by WriteTo. Shards are not checked;
// call Recover to validate and repair them.
func ReadParity(r io.Reader) (*Parity, error) {
	hdr := make([]byte, 18)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, err
	}
	if binary.BigEndian.Uint32(hdr[0:]) != ParityMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidParity)
	}
	p := &Parity{
		DataShards:   int(hdr[4]),
		ParityShards: int(hdr[5]),
		Size:         int(binary.BigEndian.Uint64(hdr[6:])),
	}
	shardSize := int(binary.BigEndian.Uint32(hdr[14:]))
	total := p.DataShards + p.ParityShards
	if p.DataShards == 0 || p.ParityShards == 0 || shardSize == 0 || shardSize > maxShardSize ||
		p.Size > shardSize*p.DataShards {
		return nil, fmt.Errorf("%w: bad header", ErrInvalidParity)
	}

	p.Shards = make([][]byte, total)
	p.Hashes = make([][]byte, total)
	for i := 0; i < total; i++ {
		p.Hashes[i] = make([]byte, sha256.Size)
		if _, err := io.ReadFull(r, p.Hashes[i]); err != nil {
			return nil, err
		}
		p.Shards[i] = make([]byte, shardSize)
		if _, err := io.ReadFull(r, p.Shards[i]); err != nil {
			return nil, err
		}
	}
	return p, nil
}
