package txpacker

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noxpeteam/TXPacker/txpacker/bundle"
	"github.com/noxpeteam/TXPacker/txpacker/optimize"
	"github.com/noxpeteam/TXPacker/txpacker/pack"
	"github.com/noxpeteam/TXPacker/txpacker/texture"
)

const manifest = `{
	"format_version": 2,
	"header": {
		"name": "Soft Stone",
		"description": "test pack",
		"uuid": "9b2c6a0e-1f3d-4e5a-8b7c-6d5e4f3a2b1c",
		"version": [1, 0, 0],
		"min_engine_version": [1, 20, 0]
	},
	"modules": [
		{"type": "resources", "uuid": "1a2b3c4d-5e6f-4a7b-8c9d-0e1f2a3b4c5d", "version": [1, 0, 0]}
	]
}`

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = byte(i*37 + 11)
	}
	return img
}

func buildPack(t *testing.T, manifestBody string) []byte {
	t.Helper()
	var tex bytes.Buffer
	require.NoError(t, png.Encode(&tex, testImage()))

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string][]byte{
		"manifest.json":             []byte(manifestBody),
		"textures/blocks/stone.png": tex.Bytes(),
		"texts/en_US.lang":          []byte("pack.name=Soft Stone"),
		"pack_icon.png":             tex.Bytes(),
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func readTexture(t *testing.T, archive []byte) []byte {
	t.Helper()
	a, err := pack.OpenBytes(archive)
	require.NoError(t, err)
	for _, f := range a.Files() {
		if f.Name == "textures/blocks/stone.png" {
			data, err := pack.ReadFile(f, 1<<20)
			require.NoError(t, err)
			img, err := png.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			return texture.ToNRGBA(img).Pix
		}
	}
	t.Fatalf("texture missing from archive")
	return nil
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cases := map[string]func(*Config){
		"level":   func(c *Config) { c.Level = 9 },
		"memory":  func(c *Config) { c.MemoryMB = -1 },
		"workers": func(c *Config) { c.Workers = 0 },
		"bundle":  func(c *Config) { c.Bundle.ChunkSize = -5 },
		"parity":  func(c *Config) { c.Passphrase = "x"; c.Bundle.ParityData, c.Bundle.ParityShards = 4, 2 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
			_, err := NewPacker(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNewPackerAutoLevel(t *testing.T) {
	tests := []struct {
		memory int
		want   optimize.Level
	}{
		{0, optimize.LevelMax},
		{1024, optimize.LevelBasic},
		{2560, optimize.LevelAdvanced},
		{8192, optimize.LevelMax},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Level = optimize.LevelMax
		cfg.MemoryMB = tt.memory
		p, err := NewPacker(cfg)
		require.NoError(t, err)
		assert.Equal(t, tt.want, p.Optimizer().Level(), "memory %d", tt.memory)
	}
}

func TestProcess(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = optimize.LevelAdvanced
	p, err := NewPacker(cfg)
	require.NoError(t, err)

	in := buildPack(t, manifest)
	var out bytes.Buffer
	res, err := p.Process(context.Background(), bytes.NewReader(in), int64(len(in)), &out)
	require.NoError(t, err)

	assert.Equal(t, "Soft Stone", res.Info.Name)
	assert.False(t, res.Info.WasFixed)
	assert.Equal(t, optimize.LevelAdvanced, res.Level)
	assert.Equal(t, 1, res.Report.Processed)
	assert.Equal(t, 3, res.Report.Copied)
	assert.Equal(t, int64(out.Len()), res.Written)

	want := append([]byte(nil), testImage().Pix...)
	optimize.New(optimize.WithLevel(optimize.LevelAdvanced)).ProcessAll(want)
	assert.Equal(t, want, readTexture(t, out.Bytes()))
}

func TestProcessRepairsManifest(t *testing.T) {
	p, err := NewPacker(DefaultConfig())
	require.NoError(t, err)

	in := buildPack(t, `{"header": {"description": "no name, no uuid"}}`)
	var out bytes.Buffer
	res, err := p.Process(context.Background(), bytes.NewReader(in), int64(len(in)), &out)
	require.NoError(t, err)
	assert.True(t, res.Info.WasFixed)
	assert.Equal(t, pack.DefaultPackName, res.Info.Name)
	assert.True(t, pack.IsValidUUID(res.Info.UUID))

	a, err := pack.OpenBytes(out.Bytes())
	require.NoError(t, err)
	v, err := pack.Validate(a)
	require.NoError(t, err)
	assert.True(t, v.Valid, "issues: %v", v.Issues)
	require.True(t, v.ManifestFound)
	header, _ := v.Manifest["header"].(map[string]any)
	assert.Equal(t, pack.DefaultPackName, header["name"])
	assert.Equal(t, res.Info.UUID, header["uuid"])
}

func TestBundlePackRepairsManifest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = optimize.LevelBasic
	cfg.Passphrase = "hunter2"
	p, err := NewPacker(cfg)
	require.NoError(t, err)

	in := buildPack(t, `{"header": {"description": "no name, no uuid"}}`)
	res, bd, err := p.BundlePack(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, res.Info.WasFixed)
	assert.Equal(t, 1, res.Report.Processed)
	assert.Equal(t, pack.DefaultPackName, bd.Header.Name)
	assert.Equal(t, res.Info.UUID, bd.Header.PackUUID)

	data, err := p.OpenBundle(bd)
	require.NoError(t, err)
	assert.NotEqual(t, in, data)

	a, err := pack.OpenBytes(data)
	require.NoError(t, err)
	info, err := pack.Parse(a)
	require.NoError(t, err, "bundled payload must carry the repaired manifest")
	assert.Equal(t, bd.Header.Name, info.Name)
	assert.Equal(t, bd.Header.PackUUID, info.UUID)

	want := append([]byte(nil), testImage().Pix...)
	optimize.New(optimize.WithLevel(optimize.LevelBasic)).ProcessAll(want)
	assert.Equal(t, want, readTexture(t, data))
}

func TestProcessRejectsNonZip(t *testing.T) {
	p, err := NewPacker(DefaultConfig())
	require.NoError(t, err)
	junk := []byte("definitely not a zip")
	_, err = p.Process(context.Background(), bytes.NewReader(junk), int64(len(junk)), &bytes.Buffer{})
	assert.ErrorIs(t, err, pack.ErrInvalidArchive)
}

func TestBundleRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = optimize.LevelMax
	cfg.Bundle.ChunkSize = 1024
	p, err := NewPacker(cfg)
	require.NoError(t, err)

	in := buildPack(t, manifest)
	var out bytes.Buffer
	res, err := p.Process(context.Background(), bytes.NewReader(in), int64(len(in)), &out)
	require.NoError(t, err)

	bd, err := p.Bundle(res.Info, out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Soft Stone", bd.Header.Name)
	assert.Equal(t, res.Info.UUID, bd.Header.PackUUID)
	assert.False(t, bd.Header.Sealed)

	got, err := p.OpenBundle(bd)
	require.NoError(t, err)
	assert.Equal(t, out.Bytes(), got)
}

func TestBundleSealedWithPassphrase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Passphrase = "hunter2"
	p, err := NewPacker(cfg)
	require.NoError(t, err)

	in := buildPack(t, manifest)
	a, err := pack.OpenBytes(in)
	require.NoError(t, err)
	info, err := pack.Parse(a)
	require.NoError(t, err)

	bd, err := p.Bundle(info, in)
	require.NoError(t, err)
	assert.True(t, bd.Header.Sealed)

	got, err := p.OpenBundle(bd)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	other := DefaultConfig()
	other.Passphrase = "wrong"
	q, err := NewPacker(other)
	require.NoError(t, err)
	_, err = q.OpenBundle(bd)
	assert.ErrorIs(t, err, bundle.ErrIntegrityCheckFailed)

	plain, err := NewPacker(DefaultConfig())
	require.NoError(t, err)
	_, err = plain.OpenBundle(bd)
	assert.ErrorIs(t, err, bundle.ErrKeyRequired)
}
