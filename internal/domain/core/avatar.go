package core

import (
	"bytes"
	"image"
	stddraw "image/draw"
	_ "image/jpeg"
	"image/png"
	"net/http"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

const (
	AvatarSize     = 256
	MaxAvatarBytes = 5 << 20
)

// ProcessAvatar center-crops an uploaded image to a square and scales it to a PNG thumbnail.
func ProcessAvatar(raw []byte) ([]byte, error) {
	if len(raw) == 0 || len(raw) > MaxAvatarBytes {
		return nil, ErrInvalidAvatar
	}
	switch http.DetectContentType(raw) {
	case "image/png", "image/jpeg", "image/webp":
	default:
		return nil, ErrInvalidAvatar
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		decoded, webpErr := webp.Decode(bytes.NewReader(raw))
		if webpErr != nil {
			return nil, ErrInvalidAvatar
		}
		img = decoded
	}

	bounds := img.Bounds()
	side := min(bounds.Dx(), bounds.Dy())
	if side <= 0 {
		return nil, ErrInvalidAvatar
	}
	offset := image.Point{
		X: bounds.Min.X + (bounds.Dx()-side)/2,
		Y: bounds.Min.Y + (bounds.Dy()-side)/2,
	}
	square := image.NewRGBA(image.Rect(0, 0, side, side))
	stddraw.Draw(square, square.Bounds(), img, offset, stddraw.Src)

	thumb := image.NewRGBA(image.Rect(0, 0, AvatarSize, AvatarSize))
	xdraw.CatmullRom.Scale(thumb, thumb.Bounds(), square, square.Bounds(), xdraw.Over, nil)

	var out bytes.Buffer
	if err := png.Encode(&out, thumb); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
