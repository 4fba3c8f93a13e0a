package services

import (
	"bytes"
	"errors"
	"fmt"
	img "image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"mediahook/internal/image"
)

// DefaultMaxPixels bounds the decoded size of a preview source (40 MP).
const DefaultMaxPixels = 40_000_000

var ErrImageTooLarge = errors.New("image dimensions exceed preview budget")

// ImageService renders JPEG previews of stored photos.
type ImageService struct {
	processor *image.Processor
	maxSide   int
	square    bool
	quality   int
	maxPixels int64
}

func NewImageService(processor *image.Processor, maxSide int, square bool) (*ImageService, error) {
	if maxSide <= 0 {
		return nil, errors.New("preview max side must be positive")
	}
	if processor == nil {
		processor = &image.Processor{}
	}
	return &ImageService{
		processor: processor,
		maxSide:   maxSide,
		square:    square,
		quality:   85,
		maxPixels: DefaultMaxPixels,
	}, nil
}

func (s *ImageService) Preview(data []byte) ([]byte, error) {
	cfg, _, err := img.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > s.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	src, _, err := img.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	if s.square {
		src = s.processor.CropToSquare(src)
	}
	out := s.processor.Fit(src, s.maxSide)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}
