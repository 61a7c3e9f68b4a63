package optimize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidLevel = errors.New("optimize: invalid optimization level")

// Level selects the smoothing strategy applied to a texture buffer.
type Level int

const (
	LevelNone     Level = iota // passthrough
	LevelBasic                 // staged through pool blocks, for low-end devices
	LevelAdvanced              // 3:1 blend in 16-byte blocks
	LevelMax                   // 7:1 blend in 32-byte blocks
)

// DefaultLevel is the level a new Optimizer starts at.
const DefaultLevel = LevelBasic

// Valid reports whether l is one of the four defined levels.
func (l Level) Valid() bool { return l >= LevelNone && l <= LevelMax }

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelBasic:
		return "basic"
	case LevelAdvanced:
		return "advanced"
	case LevelMax:
		return "max"
	default:
		return "level(" + strconv.Itoa(int(l)) + ")"
	}
}

// ParseLevel accepts a level name ("basic") or its number ("1").
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if n, err := strconv.Atoi(s); err == nil {
		if l := Level(n); l.Valid() {
			return l, nil
		}
		return 0, fmt.Errorf("%w: %d", ErrInvalidLevel, n)
	}
	for l := LevelNone; l <= LevelMax; l++ {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// levelParams holds the blend parameters of one level.
// A byte v with predecessor prev becomes (weight*v + prev) / (weight+1).
type levelParams struct {
	weight            int
	blockSize         int  // bytes per independent block
	parallelThreshold int  // blocks run concurrently above this many bytes, 0 = never
	staged            bool // copy through a pool block instead of working in place
	signed            bool // bytes are two's complement values
}

var levels = [...]levelParams{
	LevelNone:     {},
	LevelBasic:    {weight: 1, blockSize: BlockSize, staged: true},
	LevelAdvanced: {weight: 3, blockSize: 16, parallelThreshold: 1 << 20, signed: true},
	LevelMax:      {weight: 7, blockSize: 32, parallelThreshold: 512 << 10, signed: true},
}
