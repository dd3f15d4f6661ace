// Package state implements the state manager (spec.md §4.6, C6):
// save-state slot files, SRAM persistence, and the fixed-capacity
// rewind ring.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/user-none/retrohost/host/abi"
)

// ErrState is returned when the core rejects a serialize/unserialize
// call with a false return value.
var ErrState = errors.New("state: core rejected buffer")

// ErrIO wraps any filesystem failure encountered while saving, loading,
// or allocating state.
var ErrIO = errors.New("state: filesystem operation failed")

// ErrRewindEmpty is returned by Pop when the rewind ring holds no
// entries (spec.md §8 property 3 / scenario S3). It wraps ErrState so
// callers matching the broad §7 taxonomy via errors.Is(err, ErrState)
// still catch it, while errors.Is(err, ErrRewindEmpty) distinguishes
// the empty-ring case from an actual core rejection.
var ErrRewindEmpty = fmt.Errorf("%w: rewind ring is empty", ErrState)

// maxSlot is the highest save-state slot index (slots 0..9).
const maxSlot = 9

// Serializer is the subset of *abi.Core the manager needs to snapshot
// and restore core state.
type Serializer interface {
	SerializeSize() uintptr
	Serialize(buf []byte) bool
	Unserialize(buf []byte) bool
}

// MemoryProvider is the subset of *abi.Core the manager needs to reach
// the core's battery-backed SRAM region.
type MemoryProvider interface {
	GetMemoryData(id uint32) unsafe.Pointer
	GetMemorySize(id uint32) uintptr
}

// Manager binds a loaded core to a save directory and ROM identity. A
// new Manager must be created on every game load, since state size
// and SRAM region size are only valid for the currently loaded game (spec.md §4.6 "Capacity and state size are
// immutable until the next game load").
type Manager struct {
	core        Serializer
	mem         MemoryProvider
	saveDir     string
	romBasename string

	rewind rewindRing
}

// New creates a manager for the given core, save directory, and ROM
// basename (used to derive slot and SRAM file names).
func New(core Serializer, mem MemoryProvider, saveDir, romBasename string) *Manager {
	return &Manager{core: core, mem: mem, saveDir: saveDir, romBasename: romBasename}
}

func (m *Manager) statePath(slot int) string {
	return filepath.Join(m.saveDir, fmt.Sprintf("%s.ss%d", m.romBasename, slot))
}

func (m *Manager) sramPath() string {
	return filepath.Join(m.saveDir, m.romBasename+".sav")
}

// SaveState serializes the core into slot (0..9) and writes it via a
// temp-file-then-rename, so a crash mid-write never leaves a truncated
// slot file behind.
func (m *Manager) SaveState(slot int) error {
	if slot < 0 || slot > maxSlot {
		return fmt.Errorf("state: slot %d out of range [0,%d]", slot, maxSlot)
	}

	size := m.core.SerializeSize()
	buf := make([]byte, size)
	if !m.core.Serialize(buf) {
		return fmt.Errorf("%w: serialize", ErrState)
	}

	path := m.statePath(slot)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// LoadState reads slot (0..9) and restores it into the core.
func (m *Manager) LoadState(slot int) error {
	if slot < 0 || slot > maxSlot {
		return fmt.Errorf("state: slot %d out of range [0,%d]", slot, maxSlot)
	}

	buf, err := os.ReadFile(m.statePath(slot))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if !m.core.Unserialize(buf) {
		return fmt.Errorf("%w: unserialize", ErrState)
	}
	return nil
}

// SaveSRAM copies the core's battery-backed memory region to disk. A
// size-zero region (a core with no battery RAM) is normal and returns
// success silently (spec.md §4.6 "SRAM").
func (m *Manager) SaveSRAM() error {
	size := m.mem.GetMemorySize(abi.MemorySaveRAM)
	if size == 0 {
		return nil
	}
	ptr := m.mem.GetMemoryData(abi.MemorySaveRAM)
	if ptr == nil {
		return nil
	}

	data := unsafe.Slice((*byte)(ptr), size)
	path := m.sramPath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// LoadSRAM reads the persisted SRAM file into the core's region. A
// missing file or a size-zero region is treated as nothing to load.
func (m *Manager) LoadSRAM() error {
	size := m.mem.GetMemorySize(abi.MemorySaveRAM)
	if size == 0 {
		return nil
	}
	ptr := m.mem.GetMemoryData(abi.MemorySaveRAM)
	if ptr == nil {
		return nil
	}

	buf, err := os.ReadFile(m.sramPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	dst := unsafe.Slice((*byte)(ptr), size)
	n := copy(dst, buf)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return nil
}

// RewindInit (re)configures the rewind ring for the currently loaded
// game. capacity and the core's current serialize size are fixed until
// the next call. Buffers are pre-allocated up front; a failed
// allocation unwinds everything already allocated and returns IoError
// (spec.md §4.6 "failure to allocate any unwinds earlier allocations
// and fails initialization").
func (m *Manager) RewindInit(capacity int) error {
	stateSize := m.core.SerializeSize()
	return m.rewind.init(capacity, stateSize)
}

// RewindDeinit releases the ring's buffers.
func (m *Manager) RewindDeinit() {
	m.rewind.deinit()
}

// RewindPush serializes the current core state into the ring's head
// slot (spec.md §4.6 "push").
func (m *Manager) RewindPush() error {
	buf := m.rewind.headBuffer()
	if buf == nil {
		return nil // uninitialized ring; caller hasn't called RewindInit
	}
	if !m.core.Serialize(buf) {
		return fmt.Errorf("%w: serialize", ErrState)
	}
	m.rewind.advance()
	return nil
}

// RewindPop restores the most recently pushed state not yet popped
// (spec.md §4.6 "pop").
func (m *Manager) RewindPop() error {
	buf, ok := m.rewind.pop()
	if !ok {
		return ErrRewindEmpty
	}
	if !m.core.Unserialize(buf) {
		return fmt.Errorf("%w: unserialize", ErrState)
	}
	return nil
}

// RewindCount reports the number of states currently recoverable by Pop.
func (m *Manager) RewindCount() int {
	return m.rewind.count
}
