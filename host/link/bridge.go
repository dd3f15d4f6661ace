// Package link implements the link cable bridge (spec.md §4.8, C8):
// address resolution through the core-published memory-region table and
// a GB/GBC SIO register-exchange primitive built on top of it.
package link

import (
	"unsafe"
)

// Region is one entry of the memory-region table published by the core
// via SET_MEMORY_MAPS (spec.md §3 "Memory region table"). Regions never
// overlap in emulator address space for a given load session.
type Region struct {
	HostPtr  uintptr
	EmuStart uint32
	EmuLen   uint32
}

// ioRegisterAddr is the conventional base of the GB/GBC I/O register
// block; it is cached after each table rebuild since every SIO exchange
// touches it.
const ioRegisterAddr = 0xFF00

// Bridge resolves emulator addresses into host pointers and implements
// the GB/GBC serial-exchange primitive on top of that resolution.
// The table is rebuilt wholesale on each game load and read lock-free
// afterward (spec.md §5 "Memory-region table... read lock-free
// afterward. Must not be mutated while the scheduler thread is
// running").
type Bridge struct {
	regions  []Region
	ioRegion *Region // shortcut for the common 0xFF00-relative case
}

// New creates an empty bridge; call SetRegions once the core has
// published its memory map for the loaded game.
func New() *Bridge {
	return &Bridge{}
}

// SetRegions replaces the table wholesale (spec.md §3: "the table is
// rebuilt on each game load").
func (b *Bridge) SetRegions(regions []Region) {
	b.regions = regions
	b.ioRegion = nil
	for i := range b.regions {
		r := &b.regions[i]
		if ioRegisterAddr >= r.EmuStart && ioRegisterAddr < r.EmuStart+r.EmuLen {
			b.ioRegion = r
			break
		}
	}
}

// Supported reports whether a region covering the I/O register block
// (which SIO exchange depends on) has been published; other regions
// alone do not count.
func (b *Bridge) Supported() bool {
	return b.ioRegion != nil
}

// resolve scans the table and returns the host pointer for addr, or 0
// if no region covers it (spec.md §4.8 "resolve(addr)").
func (b *Bridge) resolve(addr uint32) uintptr {
	if b.ioRegion != nil && addr >= b.ioRegion.EmuStart && addr < b.ioRegion.EmuStart+b.ioRegion.EmuLen {
		return b.ioRegion.HostPtr + uintptr(addr-b.ioRegion.EmuStart)
	}
	for i := range b.regions {
		r := &b.regions[i]
		if addr >= r.EmuStart && addr < r.EmuStart+r.EmuLen {
			return r.HostPtr + uintptr(addr-r.EmuStart)
		}
	}
	return 0
}

// ReadByte reads the byte at addr, returning (0, false) if unresolved.
func (b *Bridge) ReadByte(addr uint32) (byte, bool) {
	host := b.resolve(addr)
	if host == 0 {
		return 0, false
	}
	return *(*byte)(unsafe.Pointer(host)), true
}

// ReadRange copies len(buf) bytes starting at addr into buf and returns
// the count actually copied. When the whole range lies within a single
// region it is one bulk copy; otherwise it falls back to a byte-by-byte
// walk and stops at the first unresolved byte. Used by the achievements
// bridge's memory reader to bulk-translate the common case (spec.md
// §4.9 "bulk-read via the host's memory-read primitive (§4.8
// resolver)").
func (b *Bridge) ReadRange(addr uint32, buf []byte) int {
	if host := b.resolveRange(addr, uint32(len(buf))); host != 0 {
		copy(buf, unsafe.Slice((*byte)(unsafe.Pointer(host)), len(buf)))
		return len(buf)
	}
	for i := range buf {
		v, ok := b.ReadByte(addr + uint32(i))
		if !ok {
			return i
		}
		buf[i] = v
	}
	return len(buf)
}

// resolveRange returns the host pointer for addr only if [addr, addr+n)
// lies entirely within one region, else 0.
func (b *Bridge) resolveRange(addr, n uint32) uintptr {
	if b.ioRegion != nil && addr >= b.ioRegion.EmuStart && addr+n <= b.ioRegion.EmuStart+b.ioRegion.EmuLen {
		return b.ioRegion.HostPtr + uintptr(addr-b.ioRegion.EmuStart)
	}
	for i := range b.regions {
		r := &b.regions[i]
		if addr >= r.EmuStart && addr+n <= r.EmuStart+r.EmuLen {
			return r.HostPtr + uintptr(addr-r.EmuStart)
		}
	}
	return 0
}

// WriteByte writes v at addr, returning false if unresolved. Callers
// must not invoke this while the scheduler thread is inside retro_run
// (spec.md §3 "Ownership": "writes must be serialized with frame
// execution").
func (b *Bridge) WriteByte(addr uint32, v byte) bool {
	host := b.resolve(addr)
	if host == 0 {
		return false
	}
	*(*byte)(unsafe.Pointer(host)) = v
	return true
}

// GB/GBC serial I/O register addresses (spec.md §4.8).
const (
	regSerialData    = 0xFF01
	regSerialControl = 0xFF02
	regInterruptFlag = 0xFF0F

	serialControlTransferBit = 1 << 7
	serialControlClockBit    = 1 << 0
	interruptFlagSerialBit   = 1 << 3
)

// Exchange performs one GB/GBC SIO byte exchange: captures the current
// outgoing byte from the serial-data register, writes incoming in its
// place, clears the transfer-start bit, and raises the serial
// interrupt flag. Returns the captured outgoing byte and whether the
// registers resolved (spec.md §4.8 "GB/GBC SIO exchange", scenario S5).
func (b *Bridge) Exchange(incoming byte) (outgoing byte, ok bool) {
	outgoing, ok = b.ReadByte(regSerialData)
	if !ok {
		return 0, false
	}
	if !b.WriteByte(regSerialData, incoming) {
		return 0, false
	}

	ctrl, ok := b.ReadByte(regSerialControl)
	if !ok {
		return 0, false
	}
	if !b.WriteByte(regSerialControl, ctrl&^serialControlTransferBit) {
		return 0, false
	}

	iflag, ok := b.ReadByte(regInterruptFlag)
	if !ok {
		return 0, false
	}
	b.WriteByte(regInterruptFlag, iflag|interruptFlagSerialBit)

	return outgoing, true
}

// TransferStatus inspects the serial-control register: 1 if a transfer
// is in progress with this peer as clock master, 0 if a transfer is in
// progress as a receive-only peer or if idle, -1 if the registers are
// unresolved (spec.md §4.8 "get_transfer_status").
func (b *Bridge) TransferStatus() int {
	ctrl, ok := b.ReadByte(regSerialControl)
	if !ok {
		return -1
	}
	if ctrl&serialControlTransferBit == 0 {
		return 0
	}
	if ctrl&serialControlClockBit != 0 {
		return 1
	}
	return 0
}
