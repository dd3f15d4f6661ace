package abi

import (
	"encoding/binary"
	"unsafe"
)

// retroMemoryDescriptorSize is sizeof(struct retro_memory_descriptor) on
// a 64-bit target: flags, ptr, offset, start, select, disconnect, len,
// addrspace — eight 8-byte fields.
const retroMemoryDescriptorSize = 64

// DecodeMemoryMap reads a struct retro_memory_map passed by SET_MEMORY_MAPS
// and flattens it to host pointer + emulator address range per entry. The
// descriptor's select/disconnect address-mirroring bits (used by a few
// cores to describe aliased memory) are not modeled — this host treats
// every descriptor as a single flat, non-mirrored range, which covers the
// overwhelming majority of cores.
func DecodeMemoryMap(data unsafe.Pointer) []MemoryDescriptor {
	if data == nil {
		return nil
	}

	header := unsafe.Slice((*byte)(data), 16)
	descPtr := uintptr(binary.LittleEndian.Uint64(header[0:8]))
	numDesc := binary.LittleEndian.Uint32(header[8:12])
	if descPtr == 0 || numDesc == 0 {
		return nil
	}

	out := make([]MemoryDescriptor, 0, numDesc)
	for i := uint32(0); i < numDesc; i++ {
		entryAddr := descPtr + uintptr(i)*retroMemoryDescriptorSize
		entry := unsafe.Slice((*byte)(unsafe.Pointer(entryAddr)), retroMemoryDescriptorSize)

		ptr := uintptr(binary.LittleEndian.Uint64(entry[8:16]))
		offset := binary.LittleEndian.Uint64(entry[16:24])
		start := binary.LittleEndian.Uint64(entry[24:32])
		length := binary.LittleEndian.Uint64(entry[48:56])

		if ptr == 0 || length == 0 {
			continue
		}
		out = append(out, MemoryDescriptor{
			Ptr:   ptr + uintptr(offset),
			Start: start,
			Len:   length,
		})
	}
	return out
}
