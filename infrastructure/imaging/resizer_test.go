package imaging

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"sns-crosspost/domain/model"

	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, dir, name string, width, height int, c color.NRGBA) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestGenerator_Generate_AspectPreserved(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, "source.png", 2000, 1000, color.NRGBA{R: 200, A: 255})

	gen := NewGenerator(dir, 0)
	rends, err := gen.Generate(context.Background(), src, "source.png")
	require.NoError(t, err)
	require.Len(t, rends, 3)

	expected := map[model.Platform][2]int{
		model.PlatformInstagram: {1080, 540},
		model.PlatformTwitter:   {1200, 600},
		model.PlatformFacebook:  {1200, 600},
	}
	for platform, dims := range expected {
		rend, ok := rends[platform]
		require.True(t, ok, "missing rendition for %s", platform)
		require.Equal(t, dims[0], rend.Width, "%s width", platform)
		require.Equal(t, dims[1], rend.Height, "%s height", platform)

		spec := PlatformSpecs[platform]
		require.LessOrEqual(t, rend.Width, spec.MaxWidth)
		require.LessOrEqual(t, rend.Height, spec.MaxHeight)

		info, err := os.Stat(rend.ResizedPath)
		require.NoError(t, err)
		require.Greater(t, info.Size(), int64(0))
		require.Equal(t, filepath.Join(dir, string(platform)+"_source.png"), rend.ResizedPath)
	}

	// Source file must survive.
	_, err = os.Stat(src)
	require.NoError(t, err)
}

func TestGenerator_Generate_UpscalesSmallSources(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, "tiny.png", 100, 50, color.NRGBA{G: 120, A: 255})

	gen := NewGenerator(dir, 0)
	rends, err := gen.Generate(context.Background(), src, "tiny.png")
	require.NoError(t, err)

	// Scale is not clamped to 1: the 2:1 source grows to the platform bound.
	rend := rends[model.PlatformInstagram]
	require.Equal(t, 1080, rend.Width)
	require.Equal(t, 540, rend.Height)
}

func TestGenerator_Generate_PreservesTransparency(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, "alpha.png", 400, 400, color.NRGBA{R: 10, G: 20, B: 30, A: 0})

	gen := NewGenerator(dir, 0)
	rends, err := gen.Generate(context.Background(), src, "alpha.png")
	require.NoError(t, err)

	f, err := os.Open(rends[model.PlatformInstagram].ResizedPath)
	require.NoError(t, err)
	defer f.Close()
	out, err := png.Decode(f)
	require.NoError(t, err)
	_, _, _, a := out.At(10, 10).RGBA()
	require.Equal(t, uint32(0), a)
}

func TestGenerator_Generate_CapacityError(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, "big.png", 800, 600, color.NRGBA{B: 90, A: 255})

	gen := NewGenerator(dir, 1024)
	_, err := gen.Generate(context.Background(), src, "big.png")

	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	require.Greater(t, capErr.Required, capErr.Budget)

	// Fail-fast: nothing gets written.
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	require.Len(t, entries, 1) // only the source
}

func TestGenerator_Generate_DecodeError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "fake.png")
	require.NoError(t, os.WriteFile(src, []byte("this is not an image"), 0o644))

	gen := NewGenerator(dir, 0)
	_, err := gen.Generate(context.Background(), src, "fake.png")
	require.True(t, errors.Is(err, ErrDecode))
}
