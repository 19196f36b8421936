// photo - подготовка фото счётчика к загрузке: поворот по EXIF,
// уменьшение до MaxSide по большей стороне, перекодирование в JPEG.
package photo

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

const (
	DefaultMaxSide = 1600
	DefaultQuality = 85

	ContentType = "image/jpeg"
)

// ErrNotImage - присланный файл не удалось декодировать как изображение.
var ErrNotImage = errors.New("file is not a supported image")

type Normalizer struct {
	MaxSide int
	Quality int
}

func New(maxSide, quality int) *Normalizer {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	return &Normalizer{MaxSide: maxSide, Quality: quality}
}

// Normalize возвращает JPEG, готовый к POST /files.
func (n *Normalizer) Normalize(r io.Reader) ([]byte, error) {
	const op = "photo.Normalize"

	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrNotImage, err)
	}

	b := img.Bounds()
	if n.MaxSide > 0 && (b.Dx() > n.MaxSide || b.Dy() > n.MaxSide) {
		img = imaging.Fit(img, n.MaxSide, n.MaxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(n.Quality)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return buf.Bytes(), nil
}
