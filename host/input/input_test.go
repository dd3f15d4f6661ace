package input

import (
	"testing"

	"github.com/user-none/retrohost/host/abi"
)

// TestSetKeysAPlusSelect exercises the documented A+Select scenario: the
// internal mask 0b101 (bit0=A, bit2=Select) must translate to
// JOYPAD_A set, JOYPAD_B clear, and a JOYPAD_MASK with bits 8 and 2 set.
func TestSetKeysAPlusSelect(t *testing.T) {
	var inj Injector
	inj.SetKeys(0b101)

	if got := inj.State(abi.RetroDeviceIDJoypadA); got != 1 {
		t.Fatalf("State(JOYPAD_A) = %d, want 1", got)
	}
	if got := inj.State(abi.RetroDeviceIDJoypadB); got != 0 {
		t.Fatalf("State(JOYPAD_B) = %d, want 0", got)
	}
	if got := inj.State(abi.RetroDeviceIDJoypadSelect); got != 1 {
		t.Fatalf("State(JOYPAD_SELECT) = %d, want 1", got)
	}

	want := uint16(1<<abi.RetroDeviceIDJoypadA | 1<<abi.RetroDeviceIDJoypadSelect)
	if got := inj.Bitmask(); got != want {
		t.Fatalf("Bitmask() = %#x, want %#x", got, want)
	}
}

func TestSetKeysAllClear(t *testing.T) {
	var inj Injector
	inj.SetKeys(0)
	if inj.Bitmask() != 0 {
		t.Fatalf("Bitmask() = %#x, want 0", inj.Bitmask())
	}
	if inj.State(abi.RetroDeviceIDJoypadA) != 0 {
		t.Fatal("State(JOYPAD_A) should be 0 when no keys are set")
	}
}

func TestStateUnknownIDReturnsZero(t *testing.T) {
	var inj Injector
	inj.SetKeys(0xFFFF)
	if got := inj.State(999); got != 0 {
		t.Fatalf("State(999) = %d, want 0 for an out-of-range id", got)
	}
}

func TestBitmaskAllButtons(t *testing.T) {
	var inj Injector
	inj.SetKeys(0xFFFF)
	want := uint16(0xFFFF) // every libretro joypad id 0-15 is used exactly once
	if got := inj.Bitmask(); got != want {
		t.Fatalf("Bitmask() = %#x, want %#x", got, want)
	}
}
