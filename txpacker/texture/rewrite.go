package texture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/noxpeteam/TXPacker/txpacker/optimize"
	"github.com/noxpeteam/TXPacker/txpacker/pack"
)

// maxTextureSize bounds a single texture entry (64 MiB).
const maxTextureSize = 64 << 20

// Report summarizes a pack rewrite.
type Report struct {
	Processed int   // textures run through the optimizer
	Skipped   int   // textures copied unchanged because they could not be processed
	Copied    int   // non-texture entries copied
	BytesIn   int64 // encoded size of processed textures before
	BytesOut  int64 // and after
}

// Rewriter copies packs, optimizing every texture on the way.
type Rewriter struct {
	opt     *optimize.Optimizer
	logger  *slog.Logger
	profile MemoryProfile
}

// NewRewriter returns a Rewriter using opt. A nil logger discards.
func NewRewriter(opt *optimize.Optimizer, logger *slog.Logger) *Rewriter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Rewriter{opt: opt, logger: logger}
}

// SetProfile makes low-memory devices process texture pixels in slices.
func (r *Rewriter) SetProfile(p MemoryProfile) { r.profile = p }

// IsTexture reports whether an entry name is a PNG under a textures directory.
func IsTexture(name string) bool {
	lower := strings.ToLower(name)
	if !strings.HasSuffix(lower, ".png") {
		return false
	}
	return strings.HasPrefix(lower, "textures/") || strings.Contains(lower, "/textures/")
}

// Rewrite writes a copy of a to w with every texture optimized. Textures that
// fail to decode are copied unchanged. Cancellation is checked between entries.
func (r *Rewriter) Rewrite(ctx context.Context, a *pack.Archive, w io.Writer) (Report, error) {
	var rep Report
	zw := zip.NewWriter(w)

	for _, f := range a.Files() {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if !IsTexture(f.Name) {
			if err := pack.CopyEntry(zw, f); err != nil {
				return rep, fmt.Errorf("texture: copy %s: %w", f.Name, err)
			}
			rep.Copied++
			continue
		}

		src, err := pack.ReadFile(f, maxTextureSize)
		if err != nil {
			return rep, fmt.Errorf("texture: read %s: %w", f.Name, err)
		}
		out, err := processPNG(r.opt, src, r.profile)
		if errors.Is(err, ErrDecode) {
			r.logger.WarnContext(ctx, "skipping undecodable texture", "name", f.Name, "error", err)
			out = src
			rep.Skipped++
		} else if err != nil {
			return rep, fmt.Errorf("texture: %s: %w", f.Name, err)
		} else {
			rep.Processed++
			rep.BytesIn += int64(len(src))
			rep.BytesOut += int64(len(out))
		}

		tw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Store,
			Modified: f.Modified,
		})
		if err != nil {
			return rep, err
		}
		if _, err := tw.Write(out); err != nil {
			return rep, err
		}
	}

	if err := zw.Close(); err != nil {
		return rep, err
	}
	r.logger.InfoContext(ctx, "pack rewritten",
		"processed", rep.Processed,
		"skipped", rep.Skipped,
		"copied", rep.Copied,
		"level", r.opt.Level().String())
	return rep, nil
}
