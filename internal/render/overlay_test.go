package render

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globulab/globulator/internal/linker"
	"github.com/globulab/globulator/internal/particle"
)

func fixtureResult(t *testing.T) *linker.Result {
	t.Helper()
	globs := particle.NewStore(particle.Globule, []*particle.Particle{
		particle.New(1, particle.Globule, 30, 30, 100, 0),
		particle.New(2, particle.Globule, 80, 80, 60, 0),
	})
	cress := particle.NewStore(particle.Crescent, []*particle.Particle{
		particle.New(1, particle.Crescent, 35, 30, 30, 0),
	})
	res, err := linker.Link(globs, cress, linker.DefaultConfig())
	require.NoError(t, err)
	return res
}

func decodeMap(t *testing.T, m *MapResult) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(m.ImageBase64)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func TestLinkageMap_BlankCanvas(t *testing.T) {
	res := fixtureResult(t)

	m, err := LinkageMap(nil, res, nil, Options{Width: 120, Height: 110})
	require.NoError(t, err)

	assert.Equal(t, 120, m.Width)
	assert.Equal(t, 110, m.Height)
	assert.Equal(t, "image/png", m.MimeType)

	img := decodeMap(t, m)
	assert.Equal(t, 120, img.Bounds().Dx())

	// The globule outline must have left marks: its rightmost point sits
	// at x = 30 + round(sqrt(100/π)) ≈ 36.
	r, g, b, _ := img.At(36, 30).RGBA()
	notWhite := r < 0xffff || g < 0xffff || b < 0xffff
	assert.True(t, notWhite, "expected a drawn pixel on the globule outline")
}

func TestLinkageMap_DerivesExtent(t *testing.T) {
	res := fixtureResult(t)

	m, err := LinkageMap(nil, res, nil, Options{})
	require.NoError(t, err)

	// Farthest particle is the free globule at (80,80); 10% margin.
	assert.GreaterOrEqual(t, m.Width, 88)
	assert.GreaterOrEqual(t, m.Height, 88)
}

func TestLinkageMap_EmptyResultUsesFallbackSize(t *testing.T) {
	res := &linker.Result{}

	m, err := LinkageMap(nil, res, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, defaultFieldSize, m.Width)
	assert.Equal(t, defaultFieldSize, m.Height)
}

func TestLinkageMap_BaseImage(t *testing.T) {
	base := image.NewNRGBA(image.Rect(0, 0, 200, 150))
	for y := 0; y < 150; y++ {
		for x := 0; x < 200; x++ {
			base.Set(x, y, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}

	m, err := LinkageMap(base, fixtureResult(t), nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 200, m.Width)
	assert.Equal(t, 150, m.Height)

	// The base pixels survive where nothing was drawn.
	img := decodeMap(t, m)
	r, g, b, _ := img.At(199, 149).RGBA()
	assert.Equal(t, uint32(10<<8|10), r)
	assert.Equal(t, uint32(20<<8|20), g)
	assert.Equal(t, uint32(30<<8|30), b)
}

func TestLinkageMap_Scale(t *testing.T) {
	m, err := LinkageMap(nil, fixtureResult(t), nil, Options{Width: 100, Height: 100, Scale: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 50, m.Width)
	assert.Equal(t, 50, m.Height)

	_, err = LinkageMap(nil, fixtureResult(t), nil, Options{Width: 100, Height: 100, Scale: 0.001})
	assert.Error(t, err)
}

func TestLinkageMap_Contamination(t *testing.T) {
	cont := []*particle.Particle{particle.New(1, particle.Contamination, 10, 10, 12, 0)}

	m, err := LinkageMap(nil, &linker.Result{}, cont, Options{Width: 40, Height: 40})
	require.NoError(t, err)

	img := decodeMap(t, m)
	// Contamination ring at radius ≈ 2 around (10,10).
	r, g, b, _ := img.At(12, 10).RGBA()
	notWhite := r < 0xffff || g < 0xffff || b < 0xffff
	assert.True(t, notWhite)
}

func TestSaveLinkageMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.png")
	require.NoError(t, SaveLinkageMap(path, nil, fixtureResult(t), nil, Options{Width: 64, Height: 64}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
