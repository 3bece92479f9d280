package generator

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#5E2B97", color.RGBA{0x5e, 0x2b, 0x97, 0xff}, false},
		{"ffffff", color.RGBA{0xff, 0xff, 0xff, 0xff}, false},
		{"#f00", color.RGBA{0xff, 0, 0, 0xff}, false},
		{"#00000000", color.RGBA{0, 0, 0, 0}, false},
		{"#ff000080", color.RGBA{0x80, 0, 0, 0x80}, false},
		{"#12345", color.RGBA{}, true},
		{"#gggggg", color.RGBA{}, true},
		{"", color.RGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseHexRGBAFallsBackToWhite(t *testing.T) {
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, ParseHexRGBA("not-a-color"))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, ParseHexRGBA("#000000"))
}

func TestGenerateToWriterPNG(t *testing.T) {
	img := NewSolidImage(8, 4, color.RGBA{10, 20, 30, 255})

	var buf bytes.Buffer
	require.NoError(t, GenerateToWriter(&buf, ".png", Config{Image: img}))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 4), decoded.Bounds())
	r, g, b, a := decoded.At(3, 2).RGBA()
	assert.Equal(t, []uint32{10, 20, 30, 255}, []uint32{r >> 8, g >> 8, b >> 8, a >> 8})
}

func TestGenerateToWriterJPEGFlattensTransparency(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16)) // fully transparent

	var buf bytes.Buffer
	require.NoError(t, GenerateToWriter(&buf, "jpg", Config{Image: img, Quality: 90}))

	decoded, err := jpeg.Decode(&buf)
	require.NoError(t, err)
	r, g, b, _ := decoded.At(8, 8).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestGenerateRejectsUnknownExtension(t *testing.T) {
	err := GenerateToWriter(&bytes.Buffer{}, ".avi", Config{Image: NewSolidImage(1, 1, color.Black)})
	assert.ErrorContains(t, err, "unsupported format")

	err = GenerateToWriter(&bytes.Buffer{}, ".png", Config{})
	assert.Error(t, err)
}

func TestGenerateWritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "avatar.png")
	require.NoError(t, Generate(out, Config{Image: NewSolidImage(4, 4, color.White)}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestGenerateRemovesPartialFileOnError(t *testing.T) {
	out := filepath.Join(t.TempDir(), "avatar.gif")
	err := Generate(out, Config{Image: NewSolidImage(4, 4, color.White)})
	require.Error(t, err)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentType(".JPG"))
	assert.Equal(t, "image/jpeg", ContentType("jpeg"))
	assert.Equal(t, "image/png", ContentType(".png"))
}
