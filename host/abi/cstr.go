package abi

import (
	"math"
	"unsafe"
)

// goStringFromPtr reads a NUL-terminated C string at ptr. A nil pointer
// yields an empty string rather than a crash — cores are allowed to leave
// optional fields unset.
func goStringFromPtr(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	var buf []byte
	for i := 0; ; i++ {
		b := *(*byte)(unsafe.Pointer(ptr + uintptr(i)))
		if b == 0 {
			break
		}
		buf = append(buf, b)
	}
	return string(buf)
}

// cStringOrNil allocates a NUL-terminated copy of s, or returns nil for
// an empty string. The returned pointer is only reachable from the
// returned unsafe.Pointer value itself — once the caller stores its
// numeric address elsewhere (e.g. packs it into a C struct buffer as a
// uint64), the backing array is invisible to the GC again, so the
// caller must runtime.KeepAlive the unsafe.Pointer (or the string/slice
// it was built from) until the C call that dereferences it returns.
func cStringOrNil(s string) unsafe.Pointer {
	if s == "" {
		return nil
	}
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	return unsafe.Pointer(&buf[0])
}

func float32FromBits(bits uint32) float32 { return math.Float32frombits(bits) }
func float64FromBits(bits uint64) float64 { return math.Float64frombits(bits) }
