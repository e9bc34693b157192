package out

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	"drawclass/internal/modules/classifier/domain"
	classifierout "drawclass/internal/modules/classifier/port/out"
	apperrors "drawclass/internal/platform/errors"
	"drawclass/internal/platform/payload"
)

// ImagePreprocessor turns an image payload into a [size, size, 3] tensor with
// channel values in [0, 1]. Alpha is dropped.
type ImagePreprocessor struct {
	engine classifierout.Engine
	size   int
}

func NewImagePreprocessor(engine classifierout.Engine, size int) *ImagePreprocessor {
	return &ImagePreprocessor{engine: engine, size: size}
}

func (p *ImagePreprocessor) Encode(raw string) (classifierout.Tensor, error) {
	data, err := payload.Decode(raw)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrDecode, err)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", apperrors.ErrDecode)
	}
	return p.engine.FromPixels([]int{p.size, p.size, domain.Channels}, pixels(nearest(img, p.size)))
}

// nearest samples exactly one source pixel per output pixel, whether the
// image grows or shrinks.
func nearest(img image.Image, size int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

func pixels(img *image.NRGBA) []float64 {
	values := make([]float64, 0, len(img.Pix)/4*domain.Channels)
	for i := 0; i+3 < len(img.Pix); i += 4 {
		values = append(values,
			float64(img.Pix[i])/0xff,
			float64(img.Pix[i+1])/0xff,
			float64(img.Pix[i+2])/0xff,
		)
	}
	return values
}
