// Package video implements the pixel converter (spec.md §4.2, C2) and
// the two video sink delivery modes (spec.md §4.5, C5).
package video

// FrameBuffer is the canonical 32-bit RGBA frame the pixel converter
// writes into and the sinks read from. It grows, never shrinks
// (spec.md §3: "capacity ≥ width × height at all times a frame is
// visible to the sink").
type FrameBuffer struct {
	pixels   []byte // tightly packed RGBA, red in the lowest byte
	capacity int    // in pixels
	width    int
	height   int
	reallocFailed bool
}

// Width and Height report the current logical frame dimensions.
func (f *FrameBuffer) Width() int  { return f.width }
func (f *FrameBuffer) Height() int { return f.height }

// Bytes returns the live region of the buffer: width*height*4 bytes.
// Callers must not retain the slice past the next ensure call.
func (f *FrameBuffer) Bytes() []byte {
	n := f.width * f.height * 4
	if n > len(f.pixels) {
		return nil
	}
	return f.pixels[:n]
}

// ensure grows the buffer if width*height exceeds capacity. Existing
// contents are not preserved — the next frame overwrites them in full
// (spec.md §3). Returns false if the new geometry could not be
// accommodated (spec.md §4.2: "fails silently... drops the frame").
func (f *FrameBuffer) ensure(width, height int) bool {
	needed := width * height
	if needed < 0 {
		return false
	}
	if needed <= f.capacity {
		f.width, f.height = width, height
		f.reallocFailed = false
		return true
	}

	failed := false
	func() {
		defer func() {
			if recover() != nil {
				failed = true
			}
		}()
		f.pixels = make([]byte, needed*4)
		f.capacity = needed
	}()

	f.reallocFailed = failed
	if failed {
		return false
	}
	f.width, f.height = width, height
	return true
}

// ReallocFailed reports whether the last ensure call dropped a frame
// because reallocation failed (spec.md GeometryError).
func (f *FrameBuffer) ReallocFailed() bool {
	return f.reallocFailed
}
