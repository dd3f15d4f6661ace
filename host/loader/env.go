// Package loader implements the core loader's wiring layer above
// host/abi: the environment callback dispatch table, ROM archive
// staging, and core-option variable plumbing (spec.md §4.1, C1).
package loader

import (
	"strings"
	"unsafe"

	"github.com/user-none/retrohost/host/abi"
	"github.com/user-none/retrohost/host/link"
)

// Hooks are the host-state side effects the environment dispatcher
// triggers. host.Session supplies concrete closures over its own
// fields so this package stays free of a dependency back on host.
type Hooks struct {
	SetPixelFormat      func(abi.PixelFormat)
	SetPerformanceLevel func(level int)
	SystemDirectory     func() string
	SaveDirectory       func() string
	GetVariable         func(key string) (value string, ok bool)
	SetVariables        func(vars []abi.Variable)
	VariableUpdate      func() bool
	SetMemoryRegions    func(regions []link.Region)
	SetGeometry         func(abi.GameGeometry)
	Message             func(text string)
	Shutdown            func()
	SupportsNoGame      func(bool)
}

// Dispatcher answers a loaded core's environment callback, routing
// recognized commands to Hooks and responding not-supported to
// everything else, except for a small per-core-path allow-list of
// known quirks (spec.md §9 "Environment callback dispatch": a tagged
// match with a default branch that returns not-supported; "a naive
// 'return true to everything' breaks cores that feature-detect").
type Dispatcher struct {
	hooks    Hooks
	corePath string

	// valueBufs retains NUL-terminated byte buffers handed back to the
	// core as retro_variable.value pointers; the core may read them at
	// any point before the next GET_VARIABLE call for the same key, so
	// something in Go must keep them referenced.
	valueBufs map[string][]byte
	dirBufs   [2][]byte // 0: system directory, 1: save directory
}

// NewDispatcher builds a Dispatcher over hooks. corePath is the loaded
// core's shared library path, used only to key the quirk allow-list
// below. A Hooks field left nil makes its command behave as
// not-supported, except GET_VARIABLE_UPDATE (answered "no update"),
// SHUTDOWN, and SET_SUPPORT_NO_GAME, which are still acknowledged.
func NewDispatcher(hooks Hooks, corePath string) *Dispatcher {
	return &Dispatcher{
		hooks:     hooks,
		corePath:  corePath,
		valueBufs: make(map[string][]byte),
	}
}

// quirkAllowList lists, per core library basename, the otherwise
// not-supported environment commands that core needs answered instead
// of rejected (spec.md §4.1: "a small allow-list keyed off the library
// path"). GET_OVERSCAN is the best-known case: a handful of cores treat
// "not supported" as "assume overscan is wanted" and crop their output
// oddly, where answering false (no overscan) outright avoids it.
var quirkAllowList = map[string]map[abi.EnvCommand]bool{
	"fceumm_libretro": {abi.EnvGetOverscan: true},
}

// quirksFor returns the quirk command set for the core at corePath,
// matched by basename with the platform extension stripped.
func quirksFor(corePath string) map[abi.EnvCommand]bool {
	base := corePath
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '\\'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[:i]
	}
	return quirkAllowList[base]
}

// Handle implements the environment half of abi.Callbacks.
func (d *Dispatcher) Handle(cmd abi.EnvCommand, data unsafe.Pointer) bool {
	switch cmd {
	case abi.EnvGetCanDupe:
		writeBool(data, true)
		return true

	case abi.EnvSetPixelFormat:
		if data == nil {
			return false
		}
		format := abi.PixelFormat(*(*int32)(data))
		if d.hooks.SetPixelFormat == nil {
			return false
		}
		d.hooks.SetPixelFormat(format)
		return true

	case abi.EnvSetPerformanceLevel:
		if data == nil || d.hooks.SetPerformanceLevel == nil {
			return false
		}
		d.hooks.SetPerformanceLevel(int(*(*int32)(data)))
		return true

	case abi.EnvGetSystemDirectory:
		if d.hooks.SystemDirectory == nil {
			return false
		}
		d.dirBufs[0] = cStringBuf(d.hooks.SystemDirectory())
		writePointerField(data, 0, bufAddr(d.dirBufs[0]))
		return true

	case abi.EnvGetSaveDirectory:
		if d.hooks.SaveDirectory == nil {
			return false
		}
		d.dirBufs[1] = cStringBuf(d.hooks.SaveDirectory())
		writePointerField(data, 0, bufAddr(d.dirBufs[1]))
		return true

	case abi.EnvGetVariable:
		return d.handleGetVariable(data)

	case abi.EnvSetVariables:
		return d.handleSetVariables(data)

	case abi.EnvGetVariableUpdate:
		if d.hooks.VariableUpdate == nil {
			writeBool(data, false)
			return true
		}
		writeBool(data, d.hooks.VariableUpdate())
		return true

	case abi.EnvSetMemoryMaps:
		if d.hooks.SetMemoryRegions == nil {
			return false
		}
		descs := abi.DecodeMemoryMap(data)
		regions := make([]link.Region, 0, len(descs))
		for _, desc := range descs {
			regions = append(regions, link.Region{
				HostPtr:  desc.Ptr,
				EmuStart: uint32(desc.Start),
				EmuLen:   uint32(desc.Len),
			})
		}
		d.hooks.SetMemoryRegions(regions)
		return true

	case abi.EnvSetGeometry:
		if data == nil || d.hooks.SetGeometry == nil {
			return false
		}
		d.hooks.SetGeometry(decodeGeometry(data))
		return true

	case abi.EnvSetMessage:
		if d.hooks.Message == nil {
			return false
		}
		d.hooks.Message(readCStringField(data, 0))
		return true

	case abi.EnvShutdown:
		if d.hooks.Shutdown != nil {
			d.hooks.Shutdown()
		}
		return true

	case abi.EnvSetSupportNoGame:
		if data == nil {
			return false
		}
		if d.hooks.SupportsNoGame != nil {
			d.hooks.SupportsNoGame(*(*byte)(data) != 0)
		}
		return true

	case abi.EnvGetInputBitmasks:
		// RETRO_ENVIRONMENT_GET_INPUT_BITMASKS takes no data; a true
		// return tells the core retro_input_state_t's bitmask device ID
		// is supported (host/input.Injector always answers it).
		return true

	case abi.EnvGetOverscan:
		if !d.quirks()[abi.EnvGetOverscan] {
			return false
		}
		writeBool(data, false) // no overscan cropping wanted
		return true

	case abi.EnvSetRotation, abi.EnvSetInputDescriptors:
		// Pure notifications: accepting them writes nothing back, so an
		// allow-listed core can safely get a bare true.
		return d.quirks()[cmd]

	case abi.EnvGetLogInterface, abi.EnvGetCoreOptionsVersion:
		// Both are GET-style commands the core expects real data
		// written back on true (a C function pointer, a version
		// number); we have nothing sensible to supply, so these stay
		// not-supported even for an allow-listed core.
		return false

	default:
		return false
	}
}

// quirks returns this dispatcher's core's quirk allow-list, or nil (no
// entries, every non-nil lookup misses) if the core has none.
func (d *Dispatcher) quirks() map[abi.EnvCommand]bool {
	return quirksFor(d.corePath)
}

func (d *Dispatcher) handleGetVariable(data unsafe.Pointer) bool {
	if data == nil || d.hooks.GetVariable == nil {
		return false
	}
	key := readCStringField(data, 0)
	value, ok := d.hooks.GetVariable(key)
	if !ok {
		return false
	}
	buf := cStringBuf(value)
	d.valueBufs[key] = buf
	writePointerField(data, ptrSize, bufAddr(buf))
	return true
}

func (d *Dispatcher) handleSetVariables(data unsafe.Pointer) bool {
	if d.hooks.SetVariables == nil {
		return false
	}
	if data == nil {
		d.hooks.SetVariables(nil)
		return true
	}

	var vars []abi.Variable
	for i := 0; ; i++ {
		entry := unsafe.Pointer(uintptr(data) + uintptr(i)*(2*ptrSize))
		key := readCStringField(entry, 0)
		if key == "" {
			break
		}
		value := readCStringField(entry, ptrSize)
		vars = append(vars, abi.Variable{Key: key, Value: value})
	}
	d.hooks.SetVariables(vars)
	return true
}

// decodeGeometry reads struct retro_game_geometry: four uint32 fields
// followed by a float aspect ratio.
func decodeGeometry(data unsafe.Pointer) abi.GameGeometry {
	words := unsafe.Slice((*uint32)(data), 5)
	return abi.GameGeometry{
		BaseWidth:   words[0],
		BaseHeight:  words[1],
		MaxWidth:    words[2],
		MaxHeight:   words[3],
		AspectRatio: *(*float32)(unsafe.Pointer(&words[4])),
	}
}
