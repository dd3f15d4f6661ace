package achievements

import "sync"

// RangeReader is the subset of *link.Bridge the memory reader needs: a
// bulk/byte-by-byte translator from real emulator addresses to host
// memory (spec.md §4.9 "bulk-read via the host's memory-read primitive
// (§4.8 resolver)").
type RangeReader interface {
	ReadRange(addr uint32, buf []byte) int
}

// VirtRegion maps a span of the runtime's linear virtual address space
// onto the emulator's real address space (spec.md §9 "Address-space
// translation for achievements").
type VirtRegion struct {
	VirtStart uint32
	VirtLen   uint32
	RealStart uint32
}

// RegionProvider supplies the console→region table once the runtime's
// console ID for the loaded game is known.
type RegionProvider func(consoleID uint32) []VirtRegion

// MemoryReader is the callback rcheevos invokes to read console memory
// at virtual addresses. The table is loaded lazily on first use (spec.md
// §4.9 "loaded lazily after the first read, once the runtime exposes
// the loaded game's console ID").
type MemoryReader struct {
	real     RangeReader
	provider RegionProvider

	mu        sync.Mutex
	loaded    bool
	consoleID uint32
	regions   []VirtRegion
}

// NewMemoryReader creates a reader bound to real (the link bridge) and
// provider (the table builder for a console ID).
func NewMemoryReader(real RangeReader, provider RegionProvider) *MemoryReader {
	return &MemoryReader{real: real, provider: provider}
}

// SetConsoleID records the console ID for the currently loaded game,
// forcing the region table to (re)load on the next read.
func (r *MemoryReader) SetConsoleID(consoleID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consoleID = consoleID
	r.loaded = false
	r.regions = nil
}

func (r *MemoryReader) ensureLoaded() []VirtRegion {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded {
		r.regions = r.provider(r.consoleID)
		r.loaded = true
	}
	return r.regions
}

// Read is the rcheevos memory callback shape: read up to len(buf) bytes
// at the runtime's virtual address, returning the number of bytes
// actually read. Bytes outside any region read as zero.
func (r *MemoryReader) Read(addr uint32, buf []byte) uint32 {
	regions := r.ensureLoaded()

	if region, ok := coveringRegion(regions, addr, uint32(len(buf))); ok {
		real := region.RealStart + (addr - region.VirtStart)
		n := r.real.ReadRange(real, buf)
		for i := n; i < len(buf); i++ {
			buf[i] = 0
		}
		return uint32(len(buf))
	}

	for i := range buf {
		a := addr + uint32(i)
		region, ok := findRegion(regions, a)
		if !ok {
			buf[i] = 0
			continue
		}
		real := region.RealStart + (a - region.VirtStart)
		var b [1]byte
		if r.real.ReadRange(real, b[:]) == 1 {
			buf[i] = b[0]
		} else {
			buf[i] = 0
		}
	}
	return uint32(len(buf))
}

func coveringRegion(regions []VirtRegion, addr, n uint32) (VirtRegion, bool) {
	for _, reg := range regions {
		if addr >= reg.VirtStart && addr+n <= reg.VirtStart+reg.VirtLen {
			return reg, true
		}
	}
	return VirtRegion{}, false
}

func findRegion(regions []VirtRegion, addr uint32) (VirtRegion, bool) {
	for _, reg := range regions {
		if addr >= reg.VirtStart && addr < reg.VirtStart+reg.VirtLen {
			return reg, true
		}
	}
	return VirtRegion{}, false
}
