package state

import (
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/user-none/retrohost/host/abi"
)

// fakeCore is a minimal Serializer + MemoryProvider stand-in; its
// "state" is just whatever bytes were last written or read, so tests
// can assert round-tripping without a real libretro core.
type fakeCore struct {
	serialized []byte
	rejectSer  bool
	rejectUns  bool

	sram []byte
}

func (f *fakeCore) SerializeSize() uintptr { return uintptr(len(f.serialized)) }

func (f *fakeCore) Serialize(buf []byte) bool {
	if f.rejectSer {
		return false
	}
	copy(buf, f.serialized)
	return true
}

func (f *fakeCore) Unserialize(buf []byte) bool {
	if f.rejectUns {
		return false
	}
	f.serialized = append([]byte(nil), buf...)
	return true
}

func (f *fakeCore) GetMemoryData(id uint32) unsafe.Pointer {
	if id != abi.MemorySaveRAM || len(f.sram) == 0 {
		return nil
	}
	return unsafe.Pointer(&f.sram[0])
}

func (f *fakeCore) GetMemorySize(id uint32) uintptr {
	if id != abi.MemorySaveRAM {
		return 0
	}
	return uintptr(len(f.sram))
}

func TestSaveLoadStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	core := &fakeCore{serialized: []byte("hello-state")}
	m := New(core, core, dir, "game")

	if err := m.SaveState(3); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	path := filepath.Join(dir, "game.ss3")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected slot file at %s: %v", path, err)
	}

	core.serialized = nil
	if err := m.LoadState(3); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if string(core.serialized) != "hello-state" {
		t.Fatalf("round trip mismatch: got %q", core.serialized)
	}
}

func TestSaveStateSlotRange(t *testing.T) {
	dir := t.TempDir()
	core := &fakeCore{serialized: []byte("x")}
	m := New(core, core, dir, "game")

	if err := m.SaveState(-1); err == nil {
		t.Fatalf("expected error for negative slot")
	}
	if err := m.SaveState(10); err == nil {
		t.Fatalf("expected error for slot beyond 9")
	}
}

func TestSaveStateCoreRejection(t *testing.T) {
	dir := t.TempDir()
	core := &fakeCore{serialized: []byte("x"), rejectSer: true}
	m := New(core, core, dir, "game")

	if err := m.SaveState(0); err == nil {
		t.Fatalf("expected StateError-wrapped error on core rejection")
	}
}

func TestSRAMSizeZeroSucceedsSilently(t *testing.T) {
	dir := t.TempDir()
	core := &fakeCore{serialized: []byte("x")} // sram left nil -> size 0
	m := New(core, core, dir, "game")

	if err := m.SaveSRAM(); err != nil {
		t.Fatalf("SaveSRAM with zero-size region should succeed: %v", err)
	}
	if err := m.LoadSRAM(); err != nil {
		t.Fatalf("LoadSRAM with zero-size region should succeed: %v", err)
	}
}

func TestSRAMRoundTrip(t *testing.T) {
	dir := t.TempDir()
	core := &fakeCore{serialized: []byte("x"), sram: []byte{1, 2, 3, 4}}
	m := New(core, core, dir, "game")

	if err := m.SaveSRAM(); err != nil {
		t.Fatalf("SaveSRAM: %v", err)
	}

	for i := range core.sram {
		core.sram[i] = 0
	}
	if err := m.LoadSRAM(); err != nil {
		t.Fatalf("LoadSRAM: %v", err)
	}
	want := []byte{1, 2, 3, 4}
	for i, w := range want {
		if core.sram[i] != w {
			t.Fatalf("sram[%d] = %d, want %d", i, core.sram[i], w)
		}
	}
}

func TestRewindPushPopThroughManager(t *testing.T) {
	dir := t.TempDir()
	core := &fakeCore{serialized: []byte("gen0")}
	m := New(core, core, dir, "game")

	if err := m.RewindInit(3); err != nil {
		t.Fatalf("RewindInit: %v", err)
	}

	for i := 0; i < 5; i++ {
		core.serialized = []byte{byte(i)}
		if err := m.RewindPush(); err != nil {
			t.Fatalf("RewindPush %d: %v", i, err)
		}
	}

	if m.RewindCount() != 3 {
		t.Fatalf("RewindCount = %d, want 3", m.RewindCount())
	}

	want := []byte{4, 3, 2}
	for i, w := range want {
		if err := m.RewindPop(); err != nil {
			t.Fatalf("RewindPop %d: %v", i, err)
		}
		if core.serialized[0] != w {
			t.Fatalf("pop %d restored generation %d, want %d", i, core.serialized[0], w)
		}
	}

	if err := m.RewindPop(); err != ErrRewindEmpty {
		t.Fatalf("expected ErrRewindEmpty, got %v", err)
	}
}
