// Package input implements the libretro joypad bitmask the client writes
// and the core thread samples (spec.md §4.7, C7).
package input

import (
	"sync/atomic"

	"github.com/user-none/retrohost/host/abi"
)

// Button bit positions in the host's internal bitmask, in Game Boy
// hardware joypad order (A, B, Select, Start, ...) rather than libretro's
// own wire order — translation happens at the input-state callback,
// matching the teacher's pattern of keeping an internal bit layout
// independent from any single ABI (eblitui's emucore.Button.ID /
// RetropadMapping does the same indirection for its own per-console
// button sets).
const (
	ButtonA = iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
	ButtonX
	ButtonY
	ButtonL
	ButtonR
	ButtonL2
	ButtonR2
	ButtonL3
	ButtonR3
)

// retroBitOrder maps each internal button position to its libretro wire
// bit id, used both for per-button input-state queries and to build the
// JOYPAD_MASK response.
var retroBitOrder = [...]int{
	ButtonA:      abi.RetroDeviceIDJoypadA,
	ButtonB:      abi.RetroDeviceIDJoypadB,
	ButtonSelect: abi.RetroDeviceIDJoypadSelect,
	ButtonStart:  abi.RetroDeviceIDJoypadStart,
	ButtonUp:     abi.RetroDeviceIDJoypadUp,
	ButtonDown:   abi.RetroDeviceIDJoypadDown,
	ButtonLeft:   abi.RetroDeviceIDJoypadLeft,
	ButtonRight:  abi.RetroDeviceIDJoypadRight,
	ButtonX:      abi.RetroDeviceIDJoypadX,
	ButtonY:      abi.RetroDeviceIDJoypadY,
	ButtonL:      abi.RetroDeviceIDJoypadL,
	ButtonR:      abi.RetroDeviceIDJoypadR,
	ButtonL2:     abi.RetroDeviceIDJoypadL2,
	ButtonR2:     abi.RetroDeviceIDJoypadR2,
	ButtonL3:     abi.RetroDeviceIDJoypadL3,
	ButtonR3:     abi.RetroDeviceIDJoypadR3,
}

// Injector holds the single-port keypad bitmask. The client writes it
// from its own thread; the core thread reads it via the input-state
// callback. Relaxed ordering is sufficient: only frame-to-frame
// freshness matters and a 32-bit store/load is indivisible, so no bit
// field ever tears (spec.md §4.7/§5).
type Injector struct {
	mask atomic.Uint32
}

// SetKeys replaces the entire keypad bitmask atomically. Calling it
// twice in a row with the same value is indistinguishable from calling
// it once, from the core's point of view (spec.md §8 invariant 9).
func (inj *Injector) SetKeys(mask uint32) {
	inj.mask.Store(mask)
}

// State answers a single RETRO_DEVICE_ID_JOYPAD_* query for port 0.
// Multi-port input beyond one joypad is a declared non-goal.
func (inj *Injector) State(id uint32) int16 {
	if int(id) >= len(retroBitOrder) {
		return 0
	}
	current := inj.mask.Load()
	for bit, retroID := range retroBitOrder {
		if uint32(retroID) == id && current&(1<<uint(bit)) != 0 {
			return 1
		}
	}
	return 0
}

// Bitmask translates the internal mask into libretro's JOYPAD_MASK wire
// format, used to answer RETRO_DEVICE_ID_JOYPAD_MASK in one call instead
// of sixteen (spec.md §4.1, GET_INPUT_BITMASKS).
func (inj *Injector) Bitmask() uint16 {
	current := inj.mask.Load()
	var out uint16
	for bit, retroID := range retroBitOrder {
		if current&(1<<uint(bit)) != 0 {
			out |= 1 << uint(retroID)
		}
	}
	return out
}
