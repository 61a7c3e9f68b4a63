package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolCheckoutAllocatesLazily(t *testing.T) {
	p := NewPool()
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, int64(0), p.Stats().Allocated)

	b := p.Checkout()
	assert.Len(t, b, BlockSize)
	assert.Equal(t, int64(1), p.Stats().Allocated)
}

func TestPoolLIFO(t *testing.T) {
	p := NewPool()
	first := p.Checkout()
	second := p.Checkout()
	first[0], second[0] = 1, 2

	p.Return(first)
	p.Return(second)

	got := p.Checkout()
	assert.Equal(t, byte(2), got[0], "most recently returned block comes back first")
	got = p.Checkout()
	assert.Equal(t, byte(1), got[0])
	assert.Equal(t, int64(2), p.Stats().Reused)
}

func TestPoolBounded(t *testing.T) {
	p := NewPool()
	blocks := make([][]byte, 0, MaxPoolBlocks+3)
	for i := 0; i < MaxPoolBlocks+3; i++ {
		blocks = append(blocks, p.Checkout())
	}
	for _, b := range blocks {
		p.Return(b)
		require.LessOrEqual(t, p.Len(), MaxPoolBlocks)
	}

	stats := p.Stats()
	assert.Equal(t, MaxPoolBlocks, stats.Parked)
	assert.Equal(t, int64(3), stats.Dropped)
}

func TestPoolRejectsForeignBlocks(t *testing.T) {
	p := NewPool()
	p.Return(make([]byte, 1024))
	p.Return(nil)
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, int64(2), p.Stats().Dropped)

	// A resliced pool block still belongs to the pool.
	p.Return(p.Checkout()[:10])
	require.Equal(t, 1, p.Len())
	assert.Len(t, p.Checkout(), BlockSize)
}

func TestPoolResetAndRelease(t *testing.T) {
	p := NewPool()
	out := p.Checkout()
	p.Return(p.Checkout())
	p.Return(p.Checkout())

	p.Reset()
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, MaxPoolBlocks, p.Reserved())

	// Checked-out blocks are not tracked and can still come back.
	p.Return(out)
	assert.Equal(t, 1, p.Len())

	p.Release()
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 0, p.Reserved())
}
