package encoder

import (
	"bytes"
	"context"
	"image"
	"image/gif"

	"github.com/Skryldev/image-processor/core"
	apperrors "github.com/Skryldev/image-processor/errors"
)

// GIF encodes images back to GIF format. It exists because spec.md's
// format-normalize step (§4.6 step 4) preserves GIF rather than forcing
// JPEG when the source format is GIF.
type GIF struct {
	NumColors int // palette size passed to gif.Options; 0 = library default (256)
}

func NewGIF() *GIF { return &GIF{} }

func (g *GIF) CanEncode(format core.Format) bool { return format == core.FormatGIF }

func (g *GIF) Encode(ctx context.Context, img *core.ImageData, opts core.EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "gif.encode", err)
	}

	src, ok := img.Image.(image.Image)
	if !ok || src == nil {
		return nil, apperrors.New(apperrors.CategoryEncode, "gif.encode", apperrors.ErrEmptyInput)
	}

	gifOpts := &gif.Options{}
	if g.NumColors > 0 {
		gifOpts.NumColors = g.NumColors
	}

	var buf bytes.Buffer
	if err := gif.Encode(&buf, src, gifOpts); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "gif.encode", err)
	}
	return buf.Bytes(), nil
}
