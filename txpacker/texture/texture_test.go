package texture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noxpeteam/TXPacker/txpacker/optimize"
	"github.com/noxpeteam/TXPacker/txpacker/pack"
)

func TestAutoLevel(t *testing.T) {
	tests := []struct {
		name    string
		totalMB int
		want    optimize.Level
	}{
		{name: "unknown keeps current", totalMB: 0, want: optimize.LevelMax},
		{name: "low end", totalMB: 1536, want: optimize.LevelBasic},
		{name: "mid range", totalMB: 2048, want: optimize.LevelAdvanced},
		{name: "high end keeps current", totalMB: 8192, want: optimize.LevelMax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AutoLevel(MemoryProfile{TotalMB: tt.totalMB}, optimize.LevelMax))
		})
	}
}

func TestOptimizeCopies(t *testing.T) {
	opt := optimize.New(optimize.WithLevel(optimize.LevelBasic))
	in := []byte{10, 20, 30, 40}

	out := Optimize(opt, in, MemoryProfile{TotalMB: 4096})
	assert.Equal(t, []byte{10, 20, 30, 40}, in, "input untouched")
	assert.Equal(t, []byte{10, 15, 22, 31}, out)
}

func TestOptimizeLowMemoryMatchesSinglePass(t *testing.T) {
	data := make([]byte, 3*lowMemoryChunk+6)
	for i := range data {
		data[i] = byte(i * 7)
	}
	for _, level := range []optimize.Level{optimize.LevelBasic, optimize.LevelAdvanced, optimize.LevelMax} {
		opt := optimize.New(optimize.WithLevel(level))
		low := Optimize(opt, data, MemoryProfile{TotalMB: 1024})
		high := Optimize(opt, data, MemoryProfile{TotalMB: 4096})
		assert.True(t, bytes.Equal(low, high), "level %s", level)
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessPNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 40})
	img.SetNRGBA(1, 0, color.NRGBA{R: 100, G: 0, B: 0, A: 0})

	opt := optimize.New(optimize.WithLevel(optimize.LevelBasic))
	out, err := ProcessPNG(opt, encodePNG(t, img))
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	n := ToNRGBA(decoded)
	assert.Equal(t, []byte{10, 15, 22, 31, 100, 50, 25, 12}, n.Pix)
}

func TestProcessPNGRejectsGarbage(t *testing.T) {
	_, err := ProcessPNG(optimize.New(), []byte("not a png"))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestToNRGBAConvertsOffsetImages(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 5, 7, 6))
	img.SetRGBA(5, 5, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	n := ToNRGBA(img)
	assert.Equal(t, image.Rect(0, 0, 2, 1), n.Bounds())
	assert.Equal(t, []byte{1, 2, 3, 255}, n.Pix[:4])
}

func TestIsTexture(t *testing.T) {
	assert.True(t, IsTexture("textures/blocks/stone.png"))
	assert.True(t, IsTexture("MyPack/Textures/items/apple.PNG"))
	assert.False(t, IsTexture("pack_icon.png"))
	assert.False(t, IsTexture("textures/terrain_texture.json"))
}

func TestRewrite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 40})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string][]byte{
		"manifest.json":             []byte(`{}`),
		"textures/blocks/stone.png": encodePNG(t, img),
		"textures/blocks/bad.png":   []byte("garbage"),
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	a, err := pack.OpenBytes(buf.Bytes())
	require.NoError(t, err)

	opt := optimize.New(optimize.WithLevel(optimize.LevelAdvanced))
	var out bytes.Buffer
	rep, err := NewRewriter(opt, nil).Rewrite(context.Background(), a, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Processed)
	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, 1, rep.Copied)

	rewritten, err := pack.OpenBytes(out.Bytes())
	require.NoError(t, err)
	got := map[string][]byte{}
	for _, f := range rewritten.Files() {
		data, err := pack.ReadFile(f, 1<<20)
		require.NoError(t, err)
		got[f.Name] = data
	}
	assert.Equal(t, []byte("garbage"), got["textures/blocks/bad.png"])
	assert.Equal(t, []byte(`{}`), got["manifest.json"])

	decoded, err := png.Decode(bytes.NewReader(got["textures/blocks/stone.png"]))
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 17, 26, 36}, ToNRGBA(decoded).Pix)
}

func TestRewriteHonorsCancellation(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("manifest.json")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	a, err := pack.OpenBytes(buf.Bytes())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewRewriter(optimize.New(), nil).Rewrite(ctx, a, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}
