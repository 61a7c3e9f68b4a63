package txpacker

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/noxpeteam/TXPacker/txpacker/bundle"
	"github.com/noxpeteam/TXPacker/txpacker/optimize"
)

var ErrInvalidConfig = errors.New("txpacker: invalid config")

// Config controls a Packer.
type Config struct {
	// Level is the requested optimization level. On devices with little
	// memory it is lowered, see texture.AutoLevel.
	Level optimize.Level
	// MemoryMB is the device memory; zero means unknown.
	MemoryMB int
	// Workers is the goroutine count the optimizer splits each parallel
	// level pass across. Textures are rewritten one at a time.
	Workers int

	Bundle bundle.Config
	// Passphrase seals exported bundles when set. The key is derived per
	// pack from the pack UUID.
	Passphrase string
}

func DefaultConfig() Config {
	return Config{
		Level:   optimize.DefaultLevel,
		Workers: runtime.GOMAXPROCS(0),
		Bundle:  bundle.DefaultConfig(),
	}
}

func (c Config) Validate() error {
	if !c.Level.Valid() {
		return fmt.Errorf("%w: level %d", ErrInvalidConfig, c.Level)
	}
	if c.MemoryMB < 0 {
		return fmt.Errorf("%w: memory %d MB", ErrInvalidConfig, c.MemoryMB)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers %d", ErrInvalidConfig, c.Workers)
	}
	if c.Passphrase != "" && c.Bundle.ParityShards > 0 {
		return fmt.Errorf("%w: parity cannot be combined with a passphrase", ErrInvalidConfig)
	}
	if err := c.Bundle.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
