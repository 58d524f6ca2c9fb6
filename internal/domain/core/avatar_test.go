package core

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessAvatarProducesSquareThumbnail(t *testing.T) {
	out, err := ProcessAvatar(encodePNG(t, 400, 200))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, AvatarSize, img.Bounds().Dx())
	assert.Equal(t, AvatarSize, img.Bounds().Dy())
}

func TestProcessAvatarRejectsOtherContent(t *testing.T) {
	_, err := ProcessAvatar([]byte("GIF89a not really"))
	assert.ErrorIs(t, err, ErrInvalidAvatar)

	_, err = ProcessAvatar(nil)
	assert.ErrorIs(t, err, ErrInvalidAvatar)
}
