package texture

import "github.com/noxpeteam/TXPacker/txpacker/optimize"

const (
	// LowMemoryMB and MediumMemoryMB split devices into optimization tiers.
	LowMemoryMB    = 2048
	MediumMemoryMB = 3072

	// lowMemoryChunk is the slice size used when a low-memory device
	// processes a texture.
	lowMemoryChunk = optimize.BlockSize
)

// MemoryProfile describes the device a texture is optimized for.
// A zero TotalMB means unknown.
type MemoryProfile struct {
	TotalMB int
}

// Low reports whether the device is below LowMemoryMB.
func (p MemoryProfile) Low() bool { return p.TotalMB > 0 && p.TotalMB < LowMemoryMB }

// AutoLevel picks the level for a device: basic below LowMemoryMB, advanced
// below MediumMemoryMB, otherwise current is kept.
func AutoLevel(p MemoryProfile, current optimize.Level) optimize.Level {
	switch {
	case p.TotalMB <= 0:
		return current
	case p.TotalMB < LowMemoryMB:
		return optimize.LevelBasic
	case p.TotalMB < MediumMemoryMB:
		return optimize.LevelAdvanced
	default:
		return current
	}
}

// Optimize returns a processed copy of data. Low-memory devices process the
// copy in lowMemoryChunk slices, one Process call each.
func Optimize(opt *optimize.Optimizer, data []byte, p MemoryProfile) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	optimizeInPlace(opt, out, p)
	return out
}

func optimizeInPlace(opt *optimize.Optimizer, data []byte, p MemoryProfile) {
	if !p.Low() {
		opt.ProcessAll(data)
		return
	}
	for off := 0; off < len(data); off += lowMemoryChunk {
		opt.ProcessAll(data[off:min(off+lowMemoryChunk, len(data))])
	}
}
