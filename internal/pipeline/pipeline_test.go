package pipeline

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/capability"
)

// encodeTestImage renders a small gradient so JPEG has something to chew on.
func encodeTestImage(t *testing.T, w, h int, as string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i] = uint8(x % 256)
			img.Pix[i+1] = uint8(y % 256)
			img.Pix[i+2] = uint8((x + y) % 256)
			img.Pix[i+3] = 255
		}
	}
	var buf bytes.Buffer
	var err error
	switch as {
	case "png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func newNormalizer(safeMax int) *Normalizer {
	return New(capability.Resolve(capability.Static(safeMax)), Options{Encoding: EncodingJPEG, Quality: 85})
}

func TestNormalizePassthrough(t *testing.T) {
	n := newNormalizer(4096)
	data := encodeTestImage(t, 1200, 600, "jpeg")

	got, err := n.Normalize("pano.jpg", data)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !got.Passthrough {
		t.Error("expected passthrough")
	}
	if !bytes.Equal(got.Payload, data) {
		t.Error("passthrough payload is not byte-identical")
	}
	if got.Width != 1200 || got.Height != 600 {
		t.Errorf("dims = %dx%d, want 1200x600", got.Width, got.Height)
	}
	if got.OriginalWidth != 1200 || got.OriginalHeight != 600 {
		t.Errorf("original dims = %dx%d", got.OriginalWidth, got.OriginalHeight)
	}
}

func TestNormalizeExactlyAtLimit(t *testing.T) {
	n := newNormalizer(2048)
	data := encodeTestImage(t, 2048, 1024, "jpeg")

	got, err := n.Normalize("edge.jpg", data)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !got.Passthrough || !bytes.Equal(got.Payload, data) {
		t.Error("image exactly at the limit must pass through unchanged")
	}
}

func TestNormalizeDownscales(t *testing.T) {
	// 3000x1500 with safeMax 2048: scale = 2048/3000, expect 2048x1024.
	n := newNormalizer(2048)
	data := encodeTestImage(t, 3000, 1500, "jpeg")

	got, err := n.Normalize("big.jpg", data)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.Passthrough {
		t.Error("oversized image must not pass through")
	}
	if got.Width != 2048 || got.Height != 1024 {
		t.Errorf("dims = %dx%d, want 2048x1024", got.Width, got.Height)
	}
	if got.OriginalWidth != 3000 || got.OriginalHeight != 1500 {
		t.Errorf("original dims = %dx%d, want 3000x1500", got.OriginalWidth, got.OriginalHeight)
	}

	// The result must itself decode and match the reported dimensions.
	img, _, err := image.Decode(bytes.NewReader(got.Payload))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dx() != 2048 || img.Bounds().Dy() != 1024 {
		t.Errorf("decoded dims = %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestNormalizeTallImage(t *testing.T) {
	// Height is the longer edge; it must be the one clamped to safeMax.
	n := newNormalizer(2048)
	data := encodeTestImage(t, 1000, 4000, "png")

	got, err := n.Normalize("tall.png", data)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.Height != 2048 {
		t.Errorf("height = %d, want 2048", got.Height)
	}
	if got.Width != 512 {
		t.Errorf("width = %d, want 512", got.Width)
	}
}

func TestNormalizeRoundsScaledDimensions(t *testing.T) {
	// 3333x1111 @ 2048: scale=2048/3333, height = round(1111*scale) = 683.
	n := newNormalizer(2048)
	data := encodeTestImage(t, 3333, 1111, "jpeg")

	got, err := n.Normalize("odd.jpg", data)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.Width != 2048 || got.Height != 683 {
		t.Errorf("dims = %dx%d, want 2048x683", got.Width, got.Height)
	}
}

func TestNormalizeDecodeFailure(t *testing.T) {
	n := newNormalizer(4096)
	_, err := n.Normalize("broken.jpg", []byte("not an image"))
	var derr *apperr.DecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
	if derr.FileName != "broken.jpg" {
		t.Errorf("FileName = %q", derr.FileName)
	}
}

func TestNormalizePNGEncoding(t *testing.T) {
	n := New(capability.Resolve(capability.Static(2048)), Options{Encoding: EncodingPNG})
	data := encodeTestImage(t, 4000, 2000, "png")

	got, err := n.Normalize("p.png", data)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	_, format, err := image.Decode(bytes.NewReader(got.Payload))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "png" {
		t.Errorf("format = %q, want png", format)
	}
	if n.ContentType() != "image/png" || n.Ext() != ".png" {
		t.Errorf("ContentType/Ext = %q/%q", n.ContentType(), n.Ext())
	}
}
