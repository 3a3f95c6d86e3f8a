// Package transform implements the pure transform engine of spec.md §4.6:
// resize, grayscale, quality clamp, and format normalize, applied in that
// fixed order to a decoded image. The engine performs no disk or network
// I/O — same input always produces the same output bytes.
package transform

import (
	"bytes"
	"context"
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"

	"github.com/Skryldev/image-processor/core"
	apperrors "github.com/Skryldev/image-processor/errors"
	"github.com/Skryldev/image-processor/variant"
)

// WAPQuality is the hard ceiling on JPEG quality (spec.md §3): a variant's
// quality never exceeds this value regardless of what the request asks
// for.
const WAPQuality = 90

// DefaultQuality is used when no explicit q override is given. The source
// image's own encoding quality is not read or considered.
const DefaultQuality = 85

// Registry resolves decoders/encoders by format, satisfied by
// core.DefaultRegistry.
type Registry interface {
	DecoderFor(core.Format) (core.Decoder, bool)
	EncoderFor(core.Format) (core.Encoder, bool)
}

// Engine applies the transform pipeline to decoded source bytes and
// returns the re-encoded result.
type Engine struct {
	Registry Registry
}

// New builds an Engine backed by reg.
func New(reg Registry) *Engine {
	return &Engine{Registry: reg}
}

// Render decodes srcBytes (declared as srcFormat), applies p, and
// re-encodes. It is the sole entry point the variant resolver calls on a
// cache miss (spec.md §4.7 step 3).
func (e *Engine) Render(ctx context.Context, srcBytes []byte, srcFormat core.Format, p variant.Params) ([]byte, error) {
	dec, ok := e.Registry.DecoderFor(srcFormat)
	if !ok {
		return nil, apperrors.New(apperrors.CategoryDecode, "transform.render", apperrors.ErrUnsupportedFormat)
	}
	data, err := dec.Decode(ctx, bytes.NewReader(srcBytes))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "transform.render", err)
	}

	img, ok := data.Image.(image.Image)
	if !ok || img == nil {
		return nil, apperrors.New(apperrors.CategoryDecode, "transform.render", apperrors.ErrEmptyInput)
	}

	img = resize(img, p)
	if p.G == 1 && data.Meta.ColorSpace != core.ColorSpaceGray {
		img = grayscale(img)
	}

	quality := clampQuality(p.Q)
	outFormat := core.FormatJPEG
	if srcFormat == core.FormatGIF {
		outFormat = core.FormatGIF
	}

	enc, ok := e.Registry.EncoderFor(outFormat)
	if !ok {
		return nil, apperrors.New(apperrors.CategoryEncode, "transform.render", apperrors.ErrUnsupportedFormat)
	}
	out := &core.ImageData{Image: img, Format: outFormat, Meta: data.Meta}
	bytesOut, err := enc.Encode(ctx, out, core.EncodeOptions{Quality: quality})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "transform.render", err)
	}
	return bytesOut, nil
}

// clampQuality applies spec.md §4.6 step 3: an explicit q>0 overrides the
// default, clamped to [1,100], but the result never exceeds WAPQuality.
func clampQuality(q int) int {
	quality := DefaultQuality
	if q > 0 {
		quality = q
	}
	if quality > 100 {
		quality = 100
	}
	if quality > WAPQuality {
		quality = WAPQuality
	}
	return quality
}

// resize implements spec.md §4.6 step 1: scale to the requested axis,
// preserving aspect ratio via the proportional flag, never upscaling.
func resize(src image.Image, p variant.Params) image.Image {
	if p.W == 0 && p.H == 0 {
		return src
	}
	b := src.Bounds()
	srcW, srcH := b.Dx(), b.Dy()

	targetW, targetH := p.W, p.H
	if p.P == 1 {
		switch {
		case p.W != 0:
			targetW = p.W
			targetH = int(float64(srcH) * float64(p.W) / float64(srcW))
		case p.H != 0:
			targetH = p.H
			targetW = int(float64(srcW) * float64(p.H) / float64(srcH))
		}
	} else {
		if targetW == 0 {
			targetW = srcW
		}
		if targetH == 0 {
			targetH = srcH
		}
	}
	if targetW <= 0 {
		targetW = 1
	}
	if targetH <= 0 {
		targetH = 1
	}

	// Never upscale: clamp each axis independently to the source size, so
	// a request that shrinks one axis while asking for a larger other axis
	// (e.g. p=0 with h greater than the source height) still only shrinks.
	if targetW > srcW {
		targetW = srcW
	}
	if targetH > srcH {
		targetH = srcH
	}
	if targetW == srcW && targetH == srcH {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

// grayscale implements spec.md §4.6 step 2 via a manual per-pixel
// conversion, in the teacher's idiom (pipeline/steps.go's GrayscaleStep).
func grayscale(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(x, y, color.GrayModel.Convert(src.At(x, y)))
		}
	}
	return dst
}
