// Package pipeline normalizes uploaded panorama images so arbitrary files
// are safe to hand to the renderer and the export bundler.
package pipeline

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/capability"
)

// Encodings for downscaled output.
const (
	EncodingJPEG = "jpeg"
	EncodingPNG  = "png"
)

// DefaultQuality is the JPEG quality used when options leave it unset.
const DefaultQuality = 90

// Options control re-encoding of images that exceed the safe dimension.
type Options struct {
	Encoding string
	Quality  int // JPEG only, 1..100
}

// Normalized is the result of normalizing one uploaded image.
type Normalized struct {
	FileName       string
	Payload        []byte
	Width          int
	Height         int
	OriginalWidth  int
	OriginalHeight int
	// Passthrough is true when the payload is the original file bit-exact.
	Passthrough bool
}

// Normalizer downsizes images that exceed the renderer's safe dimension.
type Normalizer struct {
	cap  capability.Capability
	opts Options
}

// New creates a Normalizer bound to a resolved capability.
func New(cap capability.Capability, opts Options) *Normalizer {
	if opts.Encoding == "" {
		opts.Encoding = EncodingJPEG
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}
	return &Normalizer{cap: cap, opts: opts}
}

// SafeMaxDimension exposes the resolved limit for callers and logs.
func (n *Normalizer) SafeMaxDimension() int {
	return n.cap.SafeMaxDimension()
}

// ContentType returns the MIME type of normalized (re-encoded) payloads.
func (n *Normalizer) ContentType() string {
	if n.opts.Encoding == EncodingPNG {
		return "image/png"
	}
	return "image/jpeg"
}

// Ext returns the file extension matching ContentType, with leading dot.
func (n *Normalizer) Ext() string {
	if n.opts.Encoding == EncodingPNG {
		return ".png"
	}
	return ".jpg"
}

// Normalize decodes data, downsizes it only if its longer edge exceeds the
// safe maximum, and returns the resulting payload plus metadata.
//
// An image already at or under the limit is passed through bit-exact:
// re-encoding a safe image would be lossy and wasteful. The decoded bitmap
// is function-scoped and released on every exit path.
func (n *Normalizer) Normalize(fileName string, data []byte) (Normalized, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Normalized{}, &apperr.DecodeError{FileName: fileName, Err: err}
	}

	bounds := img.Bounds()
	ow, oh := bounds.Dx(), bounds.Dy()
	safeMax := n.cap.SafeMaxDimension()

	longest := ow
	if oh > longest {
		longest = oh
	}
	scale := 1.0
	if longest > safeMax {
		scale = float64(safeMax) / float64(longest)
	}

	if scale == 1.0 {
		return Normalized{
			FileName:       fileName,
			Payload:        data,
			Width:          ow,
			Height:         oh,
			OriginalWidth:  ow,
			OriginalHeight: oh,
			Passthrough:    true,
		}, nil
	}

	w := int(math.Round(float64(ow) * scale))
	h := int(math.Round(float64(oh) * scale))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	payload, err := n.encode(dst)
	if err != nil {
		return Normalized{}, &apperr.EncodeError{FileName: fileName, Err: err}
	}

	return Normalized{
		FileName:       fileName,
		Payload:        payload,
		Width:          w,
		Height:         h,
		OriginalWidth:  ow,
		OriginalHeight: oh,
	}, nil
}

func (n *Normalizer) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	switch n.opts.Encoding {
	case EncodingPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	case EncodingJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: n.opts.Quality}); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported encoding %q", n.opts.Encoding)
	}
	return buf.Bytes(), nil
}
