package optimize

import (
	"sync"
	"sync/atomic"
)

const (
	// BlockSize is the size of every pooled staging block (512 KiB).
	BlockSize = 512 * 1024
	// MaxPoolBlocks caps the number of blocks parked in a Pool.
	MaxPoolBlocks = 5
)

// PoolStats is a snapshot of pool activity.
type PoolStats struct {
	Allocated int64 // blocks created because the pool was empty
	Reused    int64 // checkouts served from parked blocks
	Dropped   int64 // returned blocks left to the GC
	Parked    int   // blocks currently held
}

// Pool is a bounded LIFO stack of BlockSize staging blocks.
// The most recently returned block is handed out first so reuse stays cache hot.
// Checked-out blocks are not tracked; a caller that never returns one simply
// leaves it to the GC.
type Pool struct {
	mu     sync.Mutex
	blocks [][]byte

	allocated atomic.Int64
	reused    atomic.Int64
	dropped   atomic.Int64
}

// NewPool returns an empty pool reserved for MaxPoolBlocks blocks.
func NewPool() *Pool {
	p := &Pool{}
	p.Reset()
	return p
}

// Checkout pops the most recently returned block, or allocates a new one.
func (p *Pool) Checkout() []byte {
	p.mu.Lock()
	if n := len(p.blocks); n > 0 {
		b := p.blocks[n-1]
		p.blocks[n-1] = nil
		p.blocks = p.blocks[:n-1]
		p.mu.Unlock()
		p.reused.Add(1)
		return b
	}
	p.mu.Unlock()

	p.allocated.Add(1)
	return make([]byte, BlockSize)
}

// Return parks b for reuse while the pool holds fewer than MaxPoolBlocks
// blocks. Otherwise, or if b is not a pool block, it is dropped.
func (p *Pool) Return(b []byte) {
	if cap(b) != BlockSize {
		p.dropped.Add(1)
		return
	}
	b = b[:BlockSize]

	p.mu.Lock()
	if len(p.blocks) < MaxPoolBlocks {
		p.blocks = append(p.blocks, b)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.dropped.Add(1)
}

// Reset drops every parked block and reserves room for MaxPoolBlocks.
// No block is allocated until the next Checkout.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.blocks)
	p.blocks = make([][]byte, 0, MaxPoolBlocks)
}

// Release drops every parked block together with the reserved storage.
func (p *Pool) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.blocks)
	p.blocks = nil
}

// Len returns the number of parked blocks.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.blocks)
}

// Reserved returns how many blocks the pool can park without growing.
func (p *Pool) Reserved() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cap(p.blocks)
}

// Stats returns the pool counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Allocated: p.allocated.Load(),
		Reused:    p.reused.Load(),
		Dropped:   p.dropped.Load(),
		Parked:    p.Len(),
	}
}
