package abi

import (
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
)

// ErrLoad is returned when the core's shared library cannot be opened.
var ErrLoad = errors.New("abi: failed to load core library")

// ErrSymbol is returned when a required libretro symbol is missing.
var ErrSymbol = errors.New("abi: required symbol missing")

// requiredSymbols must resolve or loading the core fails outright.
var requiredSymbols = []string{"retro_init", "retro_run", "retro_load_game"}

// optionalSymbols are resolved best-effort; an absent one simply leaves
// the corresponding Core field nil and callers must check before use.
var optionalSymbols = []string{
	"retro_deinit", "retro_reset", "retro_unload_game",
	"retro_serialize_size", "retro_serialize", "retro_unserialize",
	"retro_get_system_info", "retro_get_system_av_info",
	"retro_set_environment", "retro_set_video_refresh",
	"retro_set_audio_sample", "retro_set_audio_sample_batch",
	"retro_set_input_poll", "retro_set_input_state",
	"retro_set_controller_port_device",
	"retro_get_memory_data", "retro_get_memory_size",
	"retro_cheat_reset", "retro_cheat_set",
	"retro_api_version",
}

// Core is a loaded libretro shared library with its symbol table resolved.
// Each field is a Go function variable purego has bound directly to the C
// symbol at the matching address; calling it calls into the core. Optional
// fields are nil when the core does not export that symbol.
type Core struct {
	handle uintptr
	path   string

	retroInit               func()
	retroDeinit              func()
	retroAPIVersion          func() uint32
	retroReset               func()
	retroRun                 func()
	retroUnloadGame          func()
	retroSerializeSize       func() uintptr
	retroSerialize           func(data unsafe.Pointer, size uintptr) bool
	retroUnserialize         func(data unsafe.Pointer, size uintptr) bool
	retroGetSystemInfo       func(info unsafe.Pointer)
	retroGetSystemAVInfo     func(info unsafe.Pointer)
	retroSetEnvironment      func(cb uintptr)
	retroSetVideoRefresh     func(cb uintptr)
	retroSetAudioSample      func(cb uintptr)
	retroSetAudioSampleBatch func(cb uintptr)
	retroSetInputPoll        func(cb uintptr)
	retroSetInputState       func(cb uintptr)
	retroSetControllerPortDevice func(port uint32, device uint32)
	retroLoadGame            func(game unsafe.Pointer) bool
	retroGetMemoryData       func(id uint32) unsafe.Pointer
	retroGetMemorySize       func(id uint32) uintptr
	retroCheatReset          func()
	retroCheatSet            func(index uint32, enabled bool, code string)
}

// Load opens the shared library at path (tried verbatim first, per the
// loader contract in spec.md §6: "The loader must try the exact path
// given before any search logic") and resolves its ABI symbol table.
func Load(path string) (*Core, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
	}

	c := &Core{handle: handle, path: path}

	for _, name := range requiredSymbols {
		if _, err := purego.Dlsym(handle, name); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrSymbol, name)
		}
	}

	purego.RegisterLibFunc(&c.retroInit, handle, "retro_init")
	purego.RegisterLibFunc(&c.retroRun, handle, "retro_run")
	purego.RegisterLibFunc(&c.retroLoadGame, handle, "retro_load_game")

	registerOptional(handle, "retro_deinit", &c.retroDeinit)
	registerOptional(handle, "retro_api_version", &c.retroAPIVersion)
	registerOptional(handle, "retro_reset", &c.retroReset)
	registerOptional(handle, "retro_unload_game", &c.retroUnloadGame)
	registerOptional(handle, "retro_serialize_size", &c.retroSerializeSize)
	registerOptional(handle, "retro_serialize", &c.retroSerialize)
	registerOptional(handle, "retro_unserialize", &c.retroUnserialize)
	registerOptional(handle, "retro_get_system_info", &c.retroGetSystemInfo)
	registerOptional(handle, "retro_get_system_av_info", &c.retroGetSystemAVInfo)
	registerOptional(handle, "retro_set_environment", &c.retroSetEnvironment)
	registerOptional(handle, "retro_set_video_refresh", &c.retroSetVideoRefresh)
	registerOptional(handle, "retro_set_audio_sample", &c.retroSetAudioSample)
	registerOptional(handle, "retro_set_audio_sample_batch", &c.retroSetAudioSampleBatch)
	registerOptional(handle, "retro_set_input_poll", &c.retroSetInputPoll)
	registerOptional(handle, "retro_set_input_state", &c.retroSetInputState)
	registerOptional(handle, "retro_set_controller_port_device", &c.retroSetControllerPortDevice)
	registerOptional(handle, "retro_get_memory_data", &c.retroGetMemoryData)
	registerOptional(handle, "retro_get_memory_size", &c.retroGetMemorySize)
	registerOptional(handle, "retro_cheat_reset", &c.retroCheatReset)
	registerOptional(handle, "retro_cheat_set", &c.retroCheatSet)

	return c, nil
}

// registerOptional resolves a symbol if present, leaving fptr untouched
// (nil) when the core doesn't export it. Absent optional setters are
// silently skipped per spec.md §4.1.
func registerOptional(handle uintptr, name string, fptr interface{}) {
	if _, err := purego.Dlsym(handle, name); err != nil {
		return
	}
	purego.RegisterLibFunc(fptr, handle, name)
}

// Close unloads the underlying shared library.
func (c *Core) Close() error {
	return purego.Dlclose(c.handle)
}

func (c *Core) Init()       { c.retroInit() }
func (c *Core) Run()        { c.retroRun() }
func (c *Core) Reset() {
	if c.retroReset != nil {
		c.retroReset()
	}
}

func (c *Core) Deinit() {
	if c.retroDeinit != nil {
		c.retroDeinit()
	}
}

func (c *Core) UnloadGame() {
	if c.retroUnloadGame != nil {
		c.retroUnloadGame()
	}
}

// SerializeSize returns 0 if the core doesn't support serialization.
func (c *Core) SerializeSize() uintptr {
	if c.retroSerializeSize == nil {
		return 0
	}
	return c.retroSerializeSize()
}

func (c *Core) Serialize(buf []byte) bool {
	if c.retroSerialize == nil || len(buf) == 0 {
		return false
	}
	return c.retroSerialize(unsafe.Pointer(&buf[0]), uintptr(len(buf)))
}

func (c *Core) Unserialize(buf []byte) bool {
	if c.retroUnserialize == nil || len(buf) == 0 {
		return false
	}
	return c.retroUnserialize(unsafe.Pointer(&buf[0]), uintptr(len(buf)))
}

// retroSystemInfoSize is sizeof(struct retro_system_info) on a 64-bit
// target: three pointers plus two bools padded to 8-byte alignment.
const retroSystemInfoSize = 32

// SystemInfo calls retro_get_system_info and decodes the result. The
// symbol is optional; if absent, a zero value is returned and the host
// falls back to its own defaults.
func (c *Core) SystemInfo() SystemInfo {
	if c.retroGetSystemInfo == nil {
		return SystemInfo{}
	}
	buf := make([]byte, retroSystemInfoSize)
	c.retroGetSystemInfo(unsafe.Pointer(&buf[0]))

	namePtr := uintptr(binary.LittleEndian.Uint64(buf[0:8]))
	verPtr := uintptr(binary.LittleEndian.Uint64(buf[8:16]))
	extPtr := uintptr(binary.LittleEndian.Uint64(buf[16:24]))

	return SystemInfo{
		LibraryName:     goStringFromPtr(namePtr),
		LibraryVersion:  goStringFromPtr(verPtr),
		ValidExtensions: goStringFromPtr(extPtr),
		NeedFullPath:    buf[24] != 0,
		BlockExtract:    buf[25] != 0,
	}
}

// retroSystemAVInfoSize is sizeof(struct retro_system_av_info):
// geometry (4 uint32 + float32 = 20, padded to 24) + timing (2 float64 = 16).
const retroSystemAVInfoSize = 40

func (c *Core) SystemAVInfo() SystemAVInfo {
	if c.retroGetSystemAVInfo == nil {
		return SystemAVInfo{}
	}
	buf := make([]byte, retroSystemAVInfoSize)
	c.retroGetSystemAVInfo(unsafe.Pointer(&buf[0]))

	return SystemAVInfo{
		Geometry: GameGeometry{
			BaseWidth:   binary.LittleEndian.Uint32(buf[0:4]),
			BaseHeight:  binary.LittleEndian.Uint32(buf[4:8]),
			MaxWidth:    binary.LittleEndian.Uint32(buf[8:12]),
			MaxHeight:   binary.LittleEndian.Uint32(buf[12:16]),
			AspectRatio: float32FromBits(binary.LittleEndian.Uint32(buf[16:20])),
		},
		Timing: SystemTiming{
			FPS:        float64FromBits(binary.LittleEndian.Uint64(buf[24:32])),
			SampleRate: float64FromBits(binary.LittleEndian.Uint64(buf[32:40])),
		},
	}
}

// SetEnvironment registers the host's environment callback (a C-ABI
// function pointer produced by purego.NewCallback) with the core.
func (c *Core) SetEnvironment(cb uintptr) {
	if c.retroSetEnvironment != nil {
		c.retroSetEnvironment(cb)
	}
}

func (c *Core) SetVideoRefresh(cb uintptr) {
	if c.retroSetVideoRefresh != nil {
		c.retroSetVideoRefresh(cb)
	}
}

func (c *Core) SetAudioSample(cb uintptr) {
	if c.retroSetAudioSample != nil {
		c.retroSetAudioSample(cb)
	}
}

func (c *Core) SetAudioSampleBatch(cb uintptr) {
	if c.retroSetAudioSampleBatch != nil {
		c.retroSetAudioSampleBatch(cb)
	}
}

func (c *Core) SetInputPoll(cb uintptr) {
	if c.retroSetInputPoll != nil {
		c.retroSetInputPoll(cb)
	}
}

func (c *Core) SetInputState(cb uintptr) {
	if c.retroSetInputState != nil {
		c.retroSetInputState(cb)
	}
}

// LoadGame calls retro_load_game with a game_info struct laid out as
// {const char *path; const void *data; size_t size; const char *meta}.
func (c *Core) LoadGame(info GameInfo) bool {
	pathPtr := cStringOrNil(info.Path)
	metaPtr := cStringOrNil(info.Meta)

	var dataPtr unsafe.Pointer
	if len(info.Data) > 0 {
		dataPtr = unsafe.Pointer(&info.Data[0])
	}

	buf := make([]byte, 32)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(uintptr(pathPtr)))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(uintptr(dataPtr)))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(len(info.Data)))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(uintptr(metaPtr)))

	ok := c.retroLoadGame(unsafe.Pointer(&buf[0]))
	// pathPtr/dataPtr/metaPtr are only present in buf as raw integers,
	// invisible to the GC; without this a concurrent collection during
	// retro_load_game could reclaim their backing arrays mid-call.
	runtime.KeepAlive(pathPtr)
	runtime.KeepAlive(metaPtr)
	runtime.KeepAlive(info.Data)
	return ok
}

func (c *Core) GetMemoryData(id uint32) unsafe.Pointer {
	if c.retroGetMemoryData == nil {
		return nil
	}
	return c.retroGetMemoryData(id)
}

func (c *Core) GetMemorySize(id uint32) uintptr {
	if c.retroGetMemorySize == nil {
		return 0
	}
	return c.retroGetMemorySize(id)
}

func (c *Core) SetControllerPortDevice(port, device uint32) {
	if c.retroSetControllerPortDevice != nil {
		c.retroSetControllerPortDevice(port, device)
	}
}
