package loader

import (
	"testing"
	"unsafe"

	"github.com/user-none/retrohost/host/abi"
	"github.com/user-none/retrohost/host/link"
)

func TestHandleGetCanDupe(t *testing.T) {
	d := NewDispatcher(Hooks{}, "")
	var out byte
	if !d.Handle(abi.EnvGetCanDupe, unsafe.Pointer(&out)) {
		t.Fatalf("GET_CAN_DUPE should always be supported")
	}
	if out != 1 {
		t.Fatalf("GET_CAN_DUPE should answer true")
	}
}

func TestHandleSetPixelFormat(t *testing.T) {
	var got abi.PixelFormat = -1
	d := NewDispatcher(Hooks{
		SetPixelFormat: func(f abi.PixelFormat) { got = f },
	}, "")
	format := abi.PixelFormatRGB565
	if !d.Handle(abi.EnvSetPixelFormat, unsafe.Pointer(&format)) {
		t.Fatalf("SET_PIXEL_FORMAT should be handled")
	}
	if got != abi.PixelFormatRGB565 {
		t.Fatalf("got %v, want RGB565", got)
	}
}

func TestHandleUnknownCommandNotSupported(t *testing.T) {
	d := NewDispatcher(Hooks{}, "")
	if d.Handle(abi.EnvCommand(9999), nil) {
		t.Fatalf("unrecognized command should answer false")
	}
}

func TestHandleGetVariable(t *testing.T) {
	d := NewDispatcher(Hooks{
		GetVariable: func(key string) (string, bool) {
			if key == "core_difficulty" {
				return "hard", true
			}
			return "", false
		},
	}, "")

	keyBuf := cStringBuf("core_difficulty")
	var variable [2 * ptrSize]byte
	writePointerField(unsafe.Pointer(&variable[0]), 0, bufAddr(keyBuf))

	if !d.Handle(abi.EnvGetVariable, unsafe.Pointer(&variable[0])) {
		t.Fatalf("GET_VARIABLE should be handled for a known key")
	}
	valuePtr := readPointerField(unsafe.Pointer(&variable[0]), ptrSize)
	if got := goStringFromPtr(valuePtr); got != "hard" {
		t.Fatalf("got value %q, want hard", got)
	}
}

func TestHandleSetVariables(t *testing.T) {
	var got []abi.Variable
	d := NewDispatcher(Hooks{
		SetVariables: func(vars []abi.Variable) { got = vars },
	}, "")

	k1, v1 := cStringBuf("opt_a"), cStringBuf("1")
	k2, v2 := cStringBuf("opt_b"), cStringBuf("2")
	entries := make([]byte, 3*2*ptrSize) // two entries + NUL-key terminator
	writePointerField(unsafe.Pointer(&entries[0]), 0, bufAddr(k1))
	writePointerField(unsafe.Pointer(&entries[0]), ptrSize, bufAddr(v1))
	writePointerField(unsafe.Pointer(&entries[2*ptrSize]), 0, bufAddr(k2))
	writePointerField(unsafe.Pointer(&entries[2*ptrSize]), ptrSize, bufAddr(v2))
	// third entry left zeroed: key pointer 0 terminates the scan

	if !d.Handle(abi.EnvSetVariables, unsafe.Pointer(&entries[0])) {
		t.Fatalf("SET_VARIABLES should be handled")
	}
	if len(got) != 2 || got[0].Key != "opt_a" || got[1].Key != "opt_b" {
		t.Fatalf("got %+v", got)
	}
}

func TestHandleSetMemoryMaps(t *testing.T) {
	var got []link.Region
	d := NewDispatcher(Hooks{
		SetMemoryRegions: func(regions []link.Region) { got = regions },
	}, "")

	backing := make([]byte, 256)
	descs := make([]byte, 64) // one retro_memory_descriptor
	writePointerField(unsafe.Pointer(&descs[0]), 8, uintptr(unsafe.Pointer(&backing[0])))
	writeUint64(descs[24:32], 0xC000) // start
	writeUint64(descs[48:56], 256)    // len

	var header [16]byte
	writePointerField(unsafe.Pointer(&header[0]), 0, uintptr(unsafe.Pointer(&descs[0])))
	writeUint32(header[8:12], 1)

	if !d.Handle(abi.EnvSetMemoryMaps, unsafe.Pointer(&header[0])) {
		t.Fatalf("SET_MEMORY_MAPS should be handled")
	}
	if len(got) != 1 || got[0].EmuStart != 0xC000 || got[0].EmuLen != 256 {
		t.Fatalf("got %+v", got)
	}
}

func TestHandleGetOverscanNotSupportedByDefault(t *testing.T) {
	d := NewDispatcher(Hooks{}, "/cores/mgba_libretro.so")
	var out byte
	if d.Handle(abi.EnvGetOverscan, unsafe.Pointer(&out)) {
		t.Fatalf("GET_OVERSCAN should be not-supported for a core with no quirk entry")
	}
}

func TestHandleGetOverscanAllowListedCore(t *testing.T) {
	d := NewDispatcher(Hooks{}, "/cores/fceumm_libretro.so")
	out := byte(1)
	if !d.Handle(abi.EnvGetOverscan, unsafe.Pointer(&out)) {
		t.Fatalf("GET_OVERSCAN should be supported for an allow-listed core")
	}
	if out != 0 {
		t.Fatalf("GET_OVERSCAN should answer false (no overscan wanted), got %d", out)
	}
}

func writeUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func writeUint32(b []byte, v uint32) {
	for i := 0; i < 4; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
