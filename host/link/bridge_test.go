package link

import (
	"testing"
	"unsafe"
)

// backing allocates a byte slice and a Region pointing at it, covering
// addresses [emuStart, emuStart+len(buf)).
func backing(buf []byte, emuStart uint32) Region {
	return Region{HostPtr: uintptr(unsafe.Pointer(&buf[0])), EmuStart: emuStart, EmuLen: uint32(len(buf))}
}

func TestExchangeScenarioS5(t *testing.T) {
	mem := make([]byte, 0x10000)
	mem[0xFF01] = 0xAB
	mem[0xFF02] = 0x81 // transfer + internal clock

	b := New()
	b.SetRegions([]Region{backing(mem, 0)})

	out, ok := b.Exchange(0xCD)
	if !ok {
		t.Fatalf("exchange did not resolve registers")
	}
	if out != 0xAB {
		t.Fatalf("outgoing = %#x, want 0xAB", out)
	}
	if mem[0xFF01] != 0xCD {
		t.Fatalf("FF01 = %#x, want 0xCD", mem[0xFF01])
	}
	if mem[0xFF02] != 0x01 {
		t.Fatalf("FF02 = %#x, want 0x01 (transfer cleared)", mem[0xFF02])
	}
	if mem[0xFF0F]&(1<<3) == 0 {
		t.Fatalf("FF0F bit 3 not set")
	}
}

func TestTransferStatus(t *testing.T) {
	mem := make([]byte, 0x10000)
	b := New()
	b.SetRegions([]Region{backing(mem, 0)})

	mem[0xFF02] = 0x00
	if got := b.TransferStatus(); got != 0 {
		t.Fatalf("idle: got %d, want 0", got)
	}

	mem[0xFF02] = 0x81
	if got := b.TransferStatus(); got != 1 {
		t.Fatalf("master: got %d, want 1", got)
	}

	mem[0xFF02] = 0x80
	if got := b.TransferStatus(); got != 0 {
		t.Fatalf("receive-only: got %d, want 0", got)
	}

	unresolved := New()
	if got := unresolved.TransferStatus(); got != -1 {
		t.Fatalf("unresolved: got %d, want -1", got)
	}
}

func TestResolveNoOverlap(t *testing.T) {
	a := make([]byte, 16)
	c := make([]byte, 16)
	b := New()
	b.SetRegions([]Region{
		backing(a, 0x1000),
		backing(c, 0x2000),
	})

	if _, ok := b.ReadByte(0x0FFF); ok {
		t.Fatalf("address below first region should be unresolved")
	}
	if _, ok := b.ReadByte(0x1010); ok {
		t.Fatalf("address past first region's length should be unresolved")
	}
	if v, ok := b.ReadByte(0x2005); !ok || v != c[5] {
		t.Fatalf("second region did not resolve correctly")
	}
}
