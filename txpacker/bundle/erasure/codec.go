package erasure

import (
	"errors"

	"github.com/klauspost/reedsolomon"
)

var (
	ErrTooManyLost   = errors.New("erasure: too many shards lost, cannot recover")
	ErrInvalidConfig = errors.New("erasure: invalid data/parity configuration")
)

// MaxShards bounds data+parity shards; the on-disk format stores each count
// in one byte.
const MaxShards = 255

// Codec wraps a Reed-Solomon encoder.
type Codec struct {
	enc          reedsolomon.Encoder
	dataShards   int
	parityShards int
}

// NewCodec creates a codec with the given shard counts.
func NewCodec(dataShards, parityShards int) (*Codec, error) {
	if dataShards <= 0 || parityShards <= 0 || dataShards+parityShards > MaxShards {
		return nil, ErrInvalidConfig
	}
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, err
	}
	return &Codec{
		enc:          enc,
		dataShards:   dataShards,
		parityShards: parityShards,
	}, nil
}

func (c *Codec) DataShards() int   { return c.dataShards }
func (c *Codec) ParityShards() int { return c.parityShards }
func (c *Codec) TotalShards() int  { return c.dataShards + c.parityShards }

// EncodeData splits data into data shards (padding the last) and computes
// parity. It returns all TotalShards shards.
func (c *Codec) EncodeData(data []byte) ([][]byte, error) {
	shards, err := c.enc.Split(data)
	if err != nil {
		return nil, err
	}
	if err := c.enc.Encode(shards); err != nil {
		return nil, err
	}
	return shards, nil
}

// Verify reports whether parity matches the data shards.
func (c *Codec) Verify(shards [][]byte) (bool, error) {
	return c.enc.Verify(shards)
}

// Reconstruct rebuilds shards that are nil.
func (c *Codec) Reconstruct(shards [][]byte) error {
	if err := c.enc.Reconstruct(shards); err != nil {
		if errors.Is(err, reedsolomon.ErrTooFewShards) {
			return ErrTooManyLost
		}
		return err
	}
	return nil
}

// Join concatenates the data shards and trims the padding.
func (c *Codec) Join(shards [][]byte, size int) []byte {
	out := make([]byte, 0, size)
	for i := 0; i < c.dataShards && len(out) < size; i++ {
		n := min(len(shards[i]), size-len(out))
		out = append(out, shards[i][:n]...)
	}
	return out
}

// ShardSize is the per-shard size for a payload of dataSize bytes.
func (c *Codec) ShardSize(dataSize int) int {
	return (dataSize + c.dataShards - 1) / c.dataShards
}

// Overhead is the storage ratio, e.g. 1.4 for 10+4.
func (c *Codec) Overhead() float64 {
	return float64(c.TotalShards()) / float64(c.dataShards)
}
