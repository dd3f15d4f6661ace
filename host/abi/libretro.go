// Package abi mirrors the subset of the libretro C ABI this host depends
// on: the core's exported symbol table, the environment command set, and
// the wire layout of the structs that cross the cgo-free FFI boundary via
// purego. Nothing here is emulator-specific; it is pure ABI plumbing.
package abi

// Pixel formats a core may select via SET_PIXEL_FORMAT.
type PixelFormat int32

const (
	PixelFormat0RGB1555 PixelFormat = 0
	PixelFormatXRGB8888 PixelFormat = 1
	PixelFormatRGB565   PixelFormat = 2
)

// EnvCommand enumerates the RETRO_ENVIRONMENT_* command set a core may
// issue through the environment callback. Only the commands this host
// understands are named; everything else falls through to "not supported"
// (see host/loader's environment dispatcher).
type EnvCommand uint32

const (
	EnvSetRotation             EnvCommand = 1
	EnvGetOverscan             EnvCommand = 2
	EnvGetCanDupe              EnvCommand = 3
	EnvSetMessage              EnvCommand = 6
	EnvShutdown                EnvCommand = 7
	EnvSetPerformanceLevel     EnvCommand = 8
	EnvGetSystemDirectory      EnvCommand = 9
	EnvSetPixelFormat          EnvCommand = 10
	EnvSetInputDescriptors     EnvCommand = 11
	EnvSetVariables            EnvCommand = 16
	EnvGetVariable             EnvCommand = 15
	EnvGetVariableUpdate       EnvCommand = 17
	EnvSetSupportNoGame        EnvCommand = 18
	EnvGetLogInterface         EnvCommand = 27
	EnvGetSaveDirectory        EnvCommand = 31
	EnvSetMemoryMaps           EnvCommand = 36
	EnvSetGeometry             EnvCommand = 37
	EnvGetInputBitmasks        EnvCommand = 51
	EnvGetCoreOptionsVersion   EnvCommand = 52
)

// Joypad button ids in libretro's own bit-position numbering (the order
// retro_input_state_t expects for RETRO_DEVICE_ID_JOYPAD_*).
const (
	RetroDeviceIDJoypadB      = 0
	RetroDeviceIDJoypadY      = 1
	RetroDeviceIDJoypadSelect = 2
	RetroDeviceIDJoypadStart  = 3
	RetroDeviceIDJoypadUp     = 4
	RetroDeviceIDJoypadDown   = 5
	RetroDeviceIDJoypadLeft   = 6
	RetroDeviceIDJoypadRight  = 7
	RetroDeviceIDJoypadA      = 8
	RetroDeviceIDJoypadX      = 9
	RetroDeviceIDJoypadL      = 10
	RetroDeviceIDJoypadR      = 11
	RetroDeviceIDJoypadL2     = 12
	RetroDeviceIDJoypadR2     = 13
	RetroDeviceIDJoypadL3     = 14
	RetroDeviceIDJoypadR3     = 15
)

const (
	DeviceNone     = 0
	DeviceJoypad   = 1
	DeviceIDJoypadMask = 256 // RETRO_DEVICE_ID_JOYPAD_MASK
)

// Memory ids for retro_get_memory_data/size.
const (
	MemorySaveRAM   = 0
	MemoryRTC       = 1
	MemorySystemRAM = 2
	MemoryVideoRAM  = 3
)

// SystemInfo mirrors struct retro_system_info. Strings are owned by the
// core; the host must copy them out before the pointers can be invalidated
// by a subsequent call.
type SystemInfo struct {
	LibraryName     string
	LibraryVersion  string
	ValidExtensions string
	NeedFullPath    bool
	BlockExtract    bool
}

// GameGeometry mirrors struct retro_game_geometry.
type GameGeometry struct {
	BaseWidth   uint32
	BaseHeight  uint32
	MaxWidth    uint32
	MaxHeight   uint32
	AspectRatio float32
}

// SystemTiming mirrors struct retro_system_timing.
type SystemTiming struct {
	FPS        float64
	SampleRate float64
}

// SystemAVInfo mirrors struct retro_system_av_info.
type SystemAVInfo struct {
	Geometry GameGeometry
	Timing   SystemTiming
}

// GameInfo mirrors struct retro_game_info, the argument to retro_load_game.
type GameInfo struct {
	Path     string
	Data     []byte
	Meta     string
}

// MemoryDescriptor mirrors one entry of the array a core passes to
// SET_MEMORY_MAPS: a host pointer covering emulator addresses
// [Start, Start+Len).
type MemoryDescriptor struct {
	Ptr   uintptr
	Start uint64
	Len   uint64
}

// Variable mirrors struct retro_variable (a single GET/SET_VARIABLE key/value pair).
type Variable struct {
	Key   string
	Value string
}
