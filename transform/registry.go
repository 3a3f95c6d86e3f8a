package transform

import (
	"github.com/Skryldev/image-processor/adapters/decoder"
	"github.com/Skryldev/image-processor/adapters/encoder"
	"github.com/Skryldev/image-processor/core"
)

// NewDefaultRegistry wires the stdlib-backed codecs spec.md's format set
// requires (JPEG/PNG/GIF) into a fresh core.DefaultRegistry, plus the
// teacher's WebP decoder. sniff.IsImage's allowed set (jpg/jpeg/png/gif)
// means no upload can declare a .webp filename, but the resolver derives
// Render's srcFormat from the stored bytes' magic number, so WebP bytes
// uploaded under an allowed filename are decoded by it. WebP is never an
// output format — format-normalize never produces WebP.
func NewDefaultRegistry(defaultQuality int) *core.DefaultRegistry {
	reg := core.NewRegistry()

	reg.RegisterDecoder(core.FormatJPEG, decoder.NewJPEG())
	reg.RegisterDecoder(core.FormatPNG, decoder.NewPNG())
	reg.RegisterDecoder(core.FormatGIF, decoder.NewGIF())
	reg.RegisterDecoder(core.FormatWebP, decoder.NewWebP())

	reg.RegisterEncoder(core.FormatJPEG, encoder.NewJPEG(defaultQuality))
	reg.RegisterEncoder(core.FormatPNG, encoder.NewPNG())
	reg.RegisterEncoder(core.FormatGIF, encoder.NewGIF())

	return reg
}
