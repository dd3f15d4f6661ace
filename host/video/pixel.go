package video

import (
	"unsafe"

	"github.com/user-none/retrohost/host/abi"
)

// Shade is one of the four palette-remap output colors, RGB only (alpha
// is always forced to 0xFF on write).
type Shade struct {
	R, G, B uint8
}

// Converter turns a core's raw video_refresh payload into the canonical
// RGBA frame buffer (spec.md §4.2). It is pure per spec invariant 4:
// identical input pixels always yield identical output pixels,
// independent of neighboring pixels.
type Converter struct {
	Format abi.PixelFormat

	PaletteEnabled bool
	Palette        [4]Shade // indexed by luminance band, lightest first

	frame FrameBuffer
}

// Frame returns the live canonical frame buffer.
func (c *Converter) Frame() *FrameBuffer { return &c.frame }

// Convert decodes one video_refresh payload into the canonical buffer.
// data points at the first pixel of the first row; pitchBytes is the
// core-declared row stride, which may exceed width*bytesPerPixel
// (spec.md §4.2 step 2 — never assume pitch == width).
func (c *Converter) Convert(data unsafe.Pointer, width, height uint32, pitchBytes uintptr) bool {
	w, h := int(width), int(height)
	if w <= 0 || h <= 0 || data == nil {
		return false
	}
	if !c.frame.ensure(w, h) {
		return false
	}

	dst := c.frame.pixels
	bpp := bytesPerPixel(c.Format)

	for y := 0; y < h; y++ {
		rowPtr := uintptr(data) + uintptr(y)*pitchBytes
		rowBase := y * w * 4
		for x := 0; x < w; x++ {
			r8, g8, b8 := decodePixel(c.Format, rowPtr, x, bpp)
			if c.PaletteEnabled {
				r8, g8, b8 = c.remap(r8, g8, b8)
			} else {
				r8, g8, b8 = contrastBoost(r8), contrastBoost(g8), contrastBoost(b8)
			}
			off := rowBase + x*4
			dst[off+0] = r8
			dst[off+1] = g8
			dst[off+2] = b8
			dst[off+3] = 0xFF
		}
	}
	return true
}

func bytesPerPixel(format abi.PixelFormat) uintptr {
	if format == abi.PixelFormatXRGB8888 {
		return 4
	}
	return 2
}

// decodePixel reads one pixel at column x of a row starting at rowPtr and
// returns 8-bit R, G, B. 15/16-bit formats replicate high bits into the
// low bits per spec.md §4.2 step 3 (r8 = (r5<<3)|(r5>>2)).
func decodePixel(format abi.PixelFormat, rowPtr uintptr, x int, bpp uintptr) (r8, g8, b8 uint8) {
	switch format {
	case abi.PixelFormatXRGB8888:
		p := *(*uint32)(unsafe.Pointer(rowPtr + uintptr(x)*bpp))
		r8 = uint8((p >> 16) & 0xFF)
		g8 = uint8((p >> 8) & 0xFF)
		b8 = uint8(p & 0xFF)
		return

	case abi.PixelFormatRGB565:
		p := *(*uint16)(unsafe.Pointer(rowPtr + uintptr(x)*bpp))
		r5 := uint8((p >> 11) & 0x1F)
		g6 := uint8((p >> 5) & 0x3F)
		b5 := uint8(p & 0x1F)
		r8 = (r5 << 3) | (r5 >> 2)
		g8 = (g6 << 2) | (g6 >> 4)
		b8 = (b5 << 3) | (b5 >> 2)
		return

	default: // 0RGB1555
		p := *(*uint16)(unsafe.Pointer(rowPtr + uintptr(x)*bpp))
		r5 := uint8((p >> 10) & 0x1F)
		g5 := uint8((p >> 5) & 0x1F)
		b5 := uint8(p & 0x1F)
		r8 = (r5 << 3) | (r5 >> 2)
		g8 = (g5 << 3) | (g5 >> 2)
		b8 = (b5 << 3) | (b5 >> 2)
		return
	}
}

// remap classifies a decoded pixel by luminance and substitutes one of
// the four configured shades (spec.md §4.2 step 4, S2).
func (c *Converter) remap(r, g, b uint8) (uint8, uint8, uint8) {
	lum := (2*int(r) + 5*int(g) + int(b)) >> 3
	var shade Shade
	switch {
	case lum >= 192:
		shade = c.Palette[0] // lightest configured shade
	case lum >= 128:
		shade = c.Palette[1]
	case lum >= 64:
		shade = c.Palette[2]
	default:
		shade = c.Palette[3] // darkest configured shade
	}
	return shade.R, shade.G, shade.B
}

// contrastBoost applies the mild contrast curve used when palette remap
// is disabled: v' = clamp((v-128)*1.1+128, 0, 255).
func contrastBoost(v uint8) uint8 {
	f := (float64(v)-128)*1.1 + 128
	if f < 0 {
		return 0
	}
	if f > 255 {
		return 255
	}
	return uint8(f)
}
