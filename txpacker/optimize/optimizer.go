package optimize

import (
	"log/slog"
	"runtime"
	"sync"
)

// Optimizer owns the active level and the staging pool.
// It is safe for concurrent use; the level is sampled once per Process call.
type Optimizer struct {
	mu      sync.Mutex
	level   Level
	pool    *Pool
	workers int
	logger  *slog.Logger
}

// New returns an Optimizer at DefaultLevel unless WithLevel says otherwise.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{
		level:   DefaultLevel,
		pool:    &Pool{},
		workers: runtime.GOMAXPROCS(0),
		logger:  discardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.transition(o.level)
	return o
}

// IsAvailable always reports true: every level runs on any device.
func (o *Optimizer) IsAvailable() bool { return true }

// Level returns the active level.
func (o *Optimizer) Level() Level {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.level
}

// SetLevel adopts requested when it names a valid level and runs the pool
// lifecycle: entering LevelBasic resets the pool, any other level releases it.
// Out-of-range values are ignored.
func (o *Optimizer) SetLevel(requested int) {
	l := Level(requested)
	if !l.Valid() {
		o.logger.Debug("ignoring out-of-range optimization level", "level", requested)
		return
	}

	o.mu.Lock()
	o.level = l
	o.transition(l)
	o.mu.Unlock()
	o.logger.Debug("optimization level set", "level", l.String())
}

func (o *Optimizer) transition(l Level) {
	if l == LevelBasic {
		o.pool.Reset()
		return
	}
	o.pool.Release()
}

// Pool exposes the staging pool, mainly for stats.
func (o *Optimizer) Pool() *Pool { return o.pool }

// Process rewrites buf[:size] in place according to the active level.
// A nil buffer or a non-positive size is logged and ignored. A size past the
// end of buf is clamped.
func (o *Optimizer) Process(buf []byte, size int) {
	if buf == nil || size <= 0 {
		o.logger.Warn("invalid texture data", "nil", buf == nil, "size", size)
		return
	}
	if size > len(buf) {
		o.logger.Warn("texture size exceeds buffer, clamping", "size", size, "len", len(buf))
		size = len(buf)
	}
	if size == 0 {
		return
	}

	level := o.Level()
	data := buf[:size]
	switch lp := levels[level]; {
	case level == LevelNone:
	case lp.staged:
		o.processStaged(data, lp)
	case lp.parallelThreshold > 0 && size > lp.parallelThreshold && o.workers > 1:
		blendParallel(data, lp, o.workers)
	default:
		blend(data, lp.weight, lp.signed)
	}
}

// ProcessAll is Process over the whole of buf.
func (o *Optimizer) ProcessAll(buf []byte) { o.Process(buf, len(buf)) }

// processStaged copies data through one pool block, BlockSize bytes at a time.
func (o *Optimizer) processStaged(data []byte, lp levelParams) {
	block := o.pool.Checkout()
	defer o.pool.Return(block)

	for off := 0; off < len(data); off += len(block) {
		n := copy(block, data[off:])
		blend(block[:n], lp.weight, lp.signed)
		copy(data[off:off+n], block[:n])
	}
}
