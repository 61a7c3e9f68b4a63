package txpacker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/noxpeteam/TXPacker/txpacker/bundle"
	"github.com/noxpeteam/TXPacker/txpacker/optimize"
	"github.com/noxpeteam/TXPacker/txpacker/pack"
	"github.com/noxpeteam/TXPacker/txpacker/seal"
	"github.com/noxpeteam/TXPacker/txpacker/texture"
)

// Packer ties together manifest repair, texture optimization and bundling.
// It is safe for concurrent use; all calls share one Optimizer.
type Packer struct {
	cfg     Config
	profile texture.MemoryProfile
	opt     *optimize.Optimizer
	logger  *slog.Logger
}

type Option func(*Packer)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Packer) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewPacker(cfg Config, opts ...Option) (*Packer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Packer{
		cfg:     cfg,
		profile: texture.MemoryProfile{TotalMB: cfg.MemoryMB},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}

	level := texture.AutoLevel(p.profile, cfg.Level)
	if level != cfg.Level {
		p.logger.Info("optimization level adjusted for device memory",
			"requested", cfg.Level.String(), "level", level.String(), "memory_mb", cfg.MemoryMB)
	}
	p.opt = optimize.New(
		optimize.WithLevel(level),
		optimize.WithWorkers(cfg.Workers),
		optimize.WithLogger(p.logger),
	)
	return p, nil
}

// Optimizer exposes the shared optimizer, e.g. to change its level.
func (p *Packer) Optimizer() *optimize.Optimizer { return p.opt }

// Result describes one processed pack.
type Result struct {
	Info   pack.Info
	Report texture.Report
	Level  optimize.Level
	// Written is the size of the rewritten archive.
	Written int64
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(b []byte) (int, error) {
	n, err := cw.w.Write(b)
	cw.n += int64(n)
	return n, err
}

// Process reads the pack in r, repairs its manifest if it cannot be parsed,
// optimizes its textures and writes the result to w.
func (p *Packer) Process(ctx context.Context, r io.ReaderAt, size int64, w io.Writer) (Result, error) {
	a, err := pack.NewArchive(r, size)
	if err != nil {
		return Result{}, err
	}
	info, a, err := pack.ParseOrFix(a)
	if err != nil {
		return Result{}, fmt.Errorf("txpacker: parse pack: %w", err)
	}
	if info.WasFixed {
		p.logger.WarnContext(ctx, "pack manifest repaired", "name", info.Name, "uuid", info.UUID)
	}

	rw := texture.NewRewriter(p.opt, p.logger)
	rw.SetProfile(p.profile)
	cw := &countingWriter{w: w}
	rep, err := rw.Rewrite(ctx, a, cw)
	if err != nil {
		return Result{}, fmt.Errorf("txpacker: rewrite %q: %w", info.Name, err)
	}
	return Result{
		Info:    info,
		Report:  rep,
		Level:   p.opt.Level(),
		Written: cw.n,
	}, nil
}

// Bundle exports a processed pack. Compression follows the current
// optimization level; a configured passphrase seals the bundle.
func (p *Packer) Bundle(info pack.Info, data []byte) (*bundle.Bundle, error) {
	cfg := p.cfg.Bundle
	cfg.Compression = bundle.CompressionFor(p.opt.Level())
	if p.cfg.Passphrase != "" {
		key, err := seal.KeyFromPassphrase(p.cfg.Passphrase, info.UUID)
		if err != nil {
			return nil, err
		}
		cfg.Key = key
	}

	b, err := bundle.NewBuilder(cfg)
	if err != nil {
		return nil, err
	}
	bd, err := b.Build(info.Name, info.UUID, data)
	if err != nil {
		return nil, fmt.Errorf("txpacker: bundle %q: %w", info.Name, err)
	}
	p.logger.Info("bundle built",
		"name", info.Name,
		"chunks", bd.Header.ChunkCount,
		"ratio", fmt.Sprintf("%.3f", bd.CompressionRatio()),
		"sealed", bd.Header.Sealed,
		"signed", bd.Header.Signed())
	return bd, nil
}

// BundlePack processes the pack in data and bundles the result, so the
// bundle carries the repaired manifest and optimized textures its header
// describes.
func (p *Packer) BundlePack(ctx context.Context, data []byte) (Result, *bundle.Bundle, error) {
	var out bytes.Buffer
	res, err := p.Process(ctx, bytes.NewReader(data), int64(len(data)), &out)
	if err != nil {
		return Result{}, nil, err
	}
	bd, err := p.Bundle(res.Info, out.Bytes())
	if err != nil {
		return Result{}, nil, err
	}
	return res, bd, nil
}

// OpenBundle verifies a bundle built by Bundle and returns the pack bytes.
func (p *Packer) OpenBundle(bd *bundle.Bundle) ([]byte, error) {
	var key []byte
	if bd.Header.Sealed {
		if p.cfg.Passphrase == "" {
			return nil, bundle.ErrKeyRequired
		}
		var err error
		if key, err = seal.KeyFromPassphrase(p.cfg.Passphrase, bd.Header.PackUUID); err != nil {
			return nil, err
		}
	}
	return bd.Open(key)
}
