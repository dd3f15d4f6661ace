// Package host is the client-facing emulation host (spec.md §6): it
// owns one loaded core and wires the pixel converter, audio pipeline,
// frame scheduler, state manager, input injector, link cable bridge,
// and achievements bridge to it.
package host

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"unsafe"

	"github.com/user-none/retrohost/host/abi"
	"github.com/user-none/retrohost/host/achievements"
	"github.com/user-none/retrohost/host/audio"
	"github.com/user-none/retrohost/host/config"
	"github.com/user-none/retrohost/host/input"
	"github.com/user-none/retrohost/host/link"
	"github.com/user-none/retrohost/host/loader"
	"github.com/user-none/retrohost/host/sched"
	"github.com/user-none/retrohost/host/state"
	"github.com/user-none/retrohost/host/video"
)

// Session is one loaded core plus every subsystem driving it. The zero
// value is not usable; construct with New.
type Session struct {
	cfg *config.Config

	core *abi.Core
	env  *loader.Dispatcher

	converter video.Converter
	sink      video.Sink

	audio    *audio.Pipeline
	injector input.Injector

	scheduler  *sched.Scheduler
	states     *state.Manager
	link       *link.Bridge
	rcheevos   *achievements.Bridge

	mu          sync.Mutex // guards the mutable fields below
	sysInfo     abi.SystemInfo
	avInfo      abi.SystemAVInfo
	romBasename string
	variables   map[string]string
	variablesDirty bool
	sgbBorders  bool
	corePath    string
	lastMessage string
	shutdownRequested bool

	samplesThisFrame int
}

// New creates a Session with no core loaded. cfg supplies the save
// directory and the initial speed/volume/rewind/palette/achievements
// settings.
func New(cfg *config.Config) *Session {
	s := &Session{
		cfg:       cfg,
		link:      link.New(),
		variables: make(map[string]string),
	}
	s.audio = audio.NewPipeline(newPlaybackSink(cfg.AudioBackend))
	s.audio.SetVolume(cfg.Volume)
	s.audio.SetMuted(cfg.Muted)
	s.converter.PaletteEnabled = cfg.Palette.Enabled
	for i, c := range cfg.Palette.Colors {
		s.converter.Palette[i] = shadeFromRGB(c)
	}
	s.sgbBorders = cfg.Palette.SGBBorders
	s.scheduler = sched.New(s)
	s.scheduler.SetSpeed(cfg.SpeedPct)
	s.scheduler.SetRewind(cfg.Rewind.Enabled, cfg.Rewind.Interval)
	s.rcheevos = achievements.New(s.link, achievements.RegionProvider(achievementRegionTable))
	s.scheduler.SetAchievementsEnabled(cfg.RetroAchievements.Enabled)
	return s
}

// newPlaybackSink picks the playback backend named by backend: "sdl3"
// selects the push-based SDL3 sink, anything else (including an empty
// string from an older config file) falls back to oto's pull-based sink,
// which needs no dynamic library search at startup.
func newPlaybackSink(backend string) audio.Sink {
	if backend == "sdl3" {
		return audio.NewSDLSink()
	}
	return audio.NewOtoSink()
}

func shadeFromRGB(c uint32) video.Shade {
	return video.Shade{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c)}
}

// --- Lifecycle ---------------------------------------------------------

// SelectCore loads the core shared library at path and resolves its ABI
// symbol table, without yet calling retro_init (spec.md §6 "select_core").
func (s *Session) SelectCore(path string) error {
	core, err := abi.Load(path)
	if err != nil {
		return err
	}
	s.core = core
	s.corePath = path
	s.env = loader.NewDispatcher(loader.Hooks{
		SetPixelFormat:      func(f abi.PixelFormat) { s.converter.Format = f },
		SetPerformanceLevel: func(int) {},
		SystemDirectory:     func() string { return s.cfg.SaveDir },
		SaveDirectory:       func() string { return s.cfg.SaveDir },
		GetVariable:         s.getVariable,
		SetVariables:        s.setVariables,
		VariableUpdate:      s.takeVariableUpdate,
		SetMemoryRegions:    s.link.SetRegions,
		SetGeometry:         func(g abi.GameGeometry) { s.avInfo.Geometry = g },
		Message:             func(text string) { s.lastMessage = text },
		Shutdown:            func() { s.shutdownRequested = true },
		SupportsNoGame:      func(bool) {},
	}, path)
	abi.RegisterCallbacks(s.core, s)
	return nil
}

// Init calls retro_init. Must follow SelectCore.
func (s *Session) Init() {
	s.core.Init()
}

// LoadROM stages romPath (transparently extracting it from an archive if
// needed) and calls retro_load_game. On success the state manager,
// SRAM, and achievements console binding are (re)initialized for the
// newly loaded game (spec.md §6 "load_rom", §3 "Re-entering game-loaded
// implicitly tears down all per-game state").
func (s *Session) LoadROM(romPath string) error {
	sysInfo := s.core.SystemInfo()
	s.sysInfo = sysInfo

	var extensions []string
	if sysInfo.ValidExtensions != "" {
		extensions = strings.Split(sysInfo.ValidExtensions, "|")
	}

	var info abi.GameInfo
	if sysInfo.NeedFullPath {
		info = abi.GameInfo{Path: romPath}
	} else {
		data, _, err := loader.LoadROM(romPath, extensions)
		if err != nil {
			return wrapRomErr(err)
		}
		info = abi.GameInfo{Path: romPath, Data: data}
	}

	if !s.core.LoadGame(info) {
		return fmt.Errorf("%w: core rejected %s", ErrRom, romPath)
	}

	s.romBasename = strings.TrimSuffix(filepath.Base(romPath), filepath.Ext(romPath))
	s.avInfo = s.core.SystemAVInfo()
	s.audio.ResetForGameLoad(int(s.avInfo.Timing.SampleRate))
	s.states = state.New(s.core, s.core, s.cfg.SaveDir, s.romBasename)
	s.states.LoadSRAM()

	consoleID := consoleIDFromLibraryName(s.sysInfo.LibraryName)
	s.rcheevos.Init(consoleID)

	if s.cfg.Rewind.Enabled {
		s.states.RewindInit(s.cfg.Rewind.Capacity)
	}
	return nil
}

// Reset calls retro_reset.
func (s *Session) Reset() {
	s.core.Reset()
}

// Destroy tears down the loaded game and core in reverse dependency
// order: scheduler, SRAM flush, rewind ring, achievements, core, callbacks.
func (s *Session) Destroy() {
	s.scheduler.Stop()
	if s.states != nil {
		s.states.SaveSRAM()
		s.states.RewindDeinit()
	}
	s.rcheevos.Destroy()
	s.audio.Close()
	if s.core != nil {
		s.core.UnloadGame()
		s.core.Deinit()
		s.core.Close()
	}
	abi.UnregisterCallbacks()
}

// --- Execution ----------------------------------------------------------

// RunFrame runs exactly one emulation frame outside the scheduler, for
// callers driving their own loop (spec.md §6 "run_frame").
func (s *Session) RunFrame() {
	s.RunEmulationFrame()
}

// StartScheduler launches the frame scheduler thread.
func (s *Session) StartScheduler() { s.scheduler.Start() }

// StopScheduler stops the frame scheduler thread and blocks until it exits.
func (s *Session) StopScheduler() { s.scheduler.Stop() }

// SetSpeed sets the emulation speed percentage (25-800).
func (s *Session) SetSpeed(pct int) { s.scheduler.SetSpeed(pct) }

// SetVolume sets playback volume, [0,1].
func (s *Session) SetVolume(v float32) { s.audio.SetVolume(v) }

// SetAudioEnabled mutes or unmutes playback without touching volume.
func (s *Session) SetAudioEnabled(enabled bool) { s.audio.SetMuted(!enabled) }

// FPS returns the scheduler's measured frames-per-second ×100.
func (s *Session) FPS() int64 { return s.scheduler.FPSx100() }

// --- sched.Target ---------------------------------------------------------

// RunEmulationFrame implements sched.Target: one retro_run call plus the
// rate-detector's per-frame sample observation.
func (s *Session) RunEmulationFrame() {
	s.samplesThisFrame = 0
	s.core.Run()
	s.audio.ObserveVideoFrame(s.samplesThisFrame)
}

// PresentDisplay implements sched.Target: deliver the converted frame to
// the video sink.
func (s *Session) PresentDisplay() {
	s.sink.Present(s.converter.Frame())
}

// RewindPush implements sched.Target.
func (s *Session) RewindPush() {
	if s.states != nil {
		s.states.RewindPush()
	}
}

// AchievementsFrame implements sched.Target.
func (s *Session) AchievementsFrame() {
	s.rcheevos.DoFrame()
}

// --- I/O ------------------------------------------------------------------

// SetKeys replaces the entire joypad bitmask for port 0.
func (s *Session) SetKeys(mask uint32) { s.injector.SetKeys(mask) }

// SaveState serializes the core into slot (0-9).
func (s *Session) SaveState(slot int) error { return s.states.SaveState(slot) }

// LoadState restores slot (0-9) into the core.
func (s *Session) LoadState(slot int) error { return s.states.LoadState(slot) }

// SaveSRAM flushes the core's battery-backed memory to disk.
func (s *Session) SaveSRAM() error { return s.states.SaveSRAM() }

// LoadSRAM restores the core's battery-backed memory from disk.
func (s *Session) LoadSRAM() error { return s.states.LoadSRAM() }

// --- Rewind -----------------------------------------------------------

// RewindInit (re)configures the rewind ring for the currently loaded game.
func (s *Session) RewindInit(capacity int) error { return s.states.RewindInit(capacity) }

// RewindPop restores the most recently pushed, not-yet-popped state.
func (s *Session) RewindPop() error { return s.states.RewindPop() }

// RewindCount reports the number of states currently recoverable by Pop.
func (s *Session) RewindCount() int { return s.states.RewindCount() }

// RewindDeinit releases the rewind ring's buffers.
func (s *Session) RewindDeinit() { s.states.RewindDeinit() }

// --- Display ------------------------------------------------------------

// VideoBuffer returns the fallback-mode snapshot buffer and its
// dimensions (spec.md §6 "get_video_buffer").
func (s *Session) VideoBuffer() (data []byte, width, height int) {
	return s.sink.Snapshot()
}

// AttachSurface installs a zero-copy render target (spec.md §6 C5).
func (s *Session) AttachSurface(surf video.Surface) { s.sink.AttachSurface(surf) }

// DetachSurface releases the zero-copy render target.
func (s *Session) DetachSurface() { s.sink.DetachSurface() }

// --- Palette --------------------------------------------------------------

// SetColorPalette enables or disables the four-shade remap and sets the
// shade colors (0xRRGGBB, lightest to darkest).
func (s *Session) SetColorPalette(enabled bool, colors [4]uint32) {
	s.converter.PaletteEnabled = enabled
	for i, c := range colors {
		s.converter.Palette[i] = shadeFromRGB(c)
	}
}

// SetSGBBorders toggles the Super Game Boy border display preference.
func (s *Session) SetSGBBorders(enabled bool) { s.sgbBorders = enabled }

// SGBBorders reports the current Super Game Boy border display preference.
func (s *Session) SGBBorders() bool { return s.sgbBorders }

// --- Link cable -------------------------------------------------------

// LinkSupported reports whether the core has published a memory map
// covering the GB/GBC serial I/O registers.
func (s *Session) LinkSupported() bool { return s.link.Supported() }

// LinkReadByte reads one byte at an emulator address through the link bridge.
func (s *Session) LinkReadByte(addr uint32) (byte, bool) { return s.link.ReadByte(addr) }

// LinkWriteByte writes one byte at an emulator address through the link bridge.
func (s *Session) LinkWriteByte(addr uint32, v byte) bool { return s.link.WriteByte(addr, v) }

// LinkTransferStatus reports the GB/GBC serial transfer state: 1 master,
// 0 receive-only/idle, -1 unresolved.
func (s *Session) LinkTransferStatus() int { return s.link.TransferStatus() }

// LinkExchange performs one GB/GBC SIO byte exchange.
func (s *Session) LinkExchange(incoming byte) (outgoing byte, ok bool) {
	return s.link.Exchange(incoming)
}

// --- Achievements -------------------------------------------------------

func (s *Session) RCLogin(username, token string)        { s.rcheevos.LoginWithToken(username, token) }
func (s *Session) RCLoadGame(hash string)                { s.rcheevos.LoadGame(hash) }
func (s *Session) RCUnload()                             { s.rcheevos.Unload() }
func (s *Session) RCReset()                              { s.rcheevos.Reset() }
func (s *Session) RCLogout()                             { s.rcheevos.Logout() }
func (s *Session) RCSetHardcore(enabled bool)            { s.rcheevos.SetHardcore(enabled) }
func (s *Session) RCSetEncore(enabled bool)              { s.rcheevos.SetEncore(enabled) }
func (s *Session) RCIsLoggedIn() bool                    { return s.rcheevos.IsLoggedIn() }
func (s *Session) RCUserName() string                    { return s.rcheevos.UserName() }
func (s *Session) RCGameTitle() string                   { return s.rcheevos.GameTitle() }
func (s *Session) RCGameID() uint32                      { return s.rcheevos.GameID() }
func (s *Session) RCAchievementCount() int               { return s.rcheevos.AchievementCount() }
func (s *Session) RCUnlockedCount() int                  { return s.rcheevos.UnlockedCount() }
func (s *Session) RCTotalPoints() int                    { return s.rcheevos.TotalPoints() }
func (s *Session) RCUnlockedPoints() int                 { return s.rcheevos.UnlockedPoints() }
func (s *Session) RCPollEvent() (achievements.Event, bool) { return s.rcheevos.PollEvent() }
func (s *Session) RCPollHTTPRequest() (achievements.PendingRequest, bool) {
	return s.rcheevos.PollHTTPRequest()
}
func (s *Session) RCSubmitHTTPResponse(id int64, body []byte, status int) bool {
	return s.rcheevos.SubmitHTTPResponse(id, body, status)
}

// --- abi.Callbacks --------------------------------------------------------

// Environment implements abi.Callbacks by delegating to the loader's
// environment dispatch table.
func (s *Session) Environment(cmd abi.EnvCommand, data unsafe.Pointer) bool {
	return s.env.Handle(cmd, data)
}

// VideoRefresh implements abi.Callbacks: decode the core's raw frame
// into the canonical RGBA buffer.
func (s *Session) VideoRefresh(data unsafe.Pointer, width, height uint32, pitch uintptr) {
	if !s.converter.Convert(data, width, height, pitch) && s.converter.Frame().ReallocFailed() {
		s.lastMessage = ErrGeometry.Error()
	}
}

// AudioSample implements abi.Callbacks for cores that emit one stereo
// frame per call.
func (s *Session) AudioSample(left, right int16) {
	s.audio.PushBatch([]int16{left, right})
	s.samplesThisFrame++
}

// AudioSampleBatch implements abi.Callbacks for cores that emit batches
// of interleaved stereo frames.
func (s *Session) AudioSampleBatch(data unsafe.Pointer, frames uintptr) uintptr {
	samples := unsafe.Slice((*int16)(data), int(frames)*2)
	s.audio.PushBatch(samples)
	s.samplesThisFrame += int(frames)
	return frames
}

// InputPoll implements abi.Callbacks; the injector is lock-free and
// needs no explicit poll step, so this is a no-op.
func (s *Session) InputPoll() {}

// InputState implements abi.Callbacks, answering either a single button
// query or the JOYPAD_MASK bulk query (spec.md §4.1 GET_INPUT_BITMASKS).
func (s *Session) InputState(port, device, index, id uint32) int16 {
	if port != 0 || device != abi.DeviceJoypad {
		return 0
	}
	if id == abi.DeviceIDJoypadMask {
		return int16(s.injector.Bitmask())
	}
	return s.injector.State(id)
}

// --- internal ---------------------------------------------------------

func (s *Session) getVariable(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variables[key]
	return v, ok
}

func (s *Session) setVariables(vars []abi.Variable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vars {
		if _, exists := s.variables[v.Key]; !exists {
			s.variables[v.Key] = v.Value
		}
	}
}

func (s *Session) takeVariableUpdate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	dirty := s.variablesDirty
	s.variablesDirty = false
	return dirty
}

// SetVariable lets the client override a core option value; it marks
// the variable dirty so the core's next GET_VARIABLE_UPDATE poll picks
// it up (spec.md §9 "SGB-border toggle and other client-set variables").
func (s *Session) SetVariable(key, value string) {
	s.mu.Lock()
	s.variables[key] = value
	s.variablesDirty = true
	s.mu.Unlock()
}

// consoleIDFromLibraryName maps a core's reported library name to the
// RetroAchievements console ID its achievements bridge needs. This is a
// small, explicit table rather than a runtime query, since the set of
// cores this host loads is known ahead of time (spec.md §9 resolves the
// "once the runtime exposes the loaded game's console ID" open question
// this way — see DESIGN.md).
func consoleIDFromLibraryName(name string) uint32 {
	switch strings.ToLower(name) {
	case "gambatte", "sameboy", "gearboy":
		return 4 // RetroAchievements: Game Boy Color
	case "genesis plus gx", "picodrive":
		return 1 // Genesis/Mega Drive
	case "mgba", "vba-m", "vbam":
		return 5 // Game Boy Advance
	default:
		return 0
	}
}

// achievementRegionTable supplies the virtual->real address translation
// table for the given console ID. Populated per-console as cores are
// brought online; an empty table means every memory read reads as zero,
// which is safe (no achievement false-fires) rather than a crash.
func achievementRegionTable(consoleID uint32) []achievements.VirtRegion {
	switch consoleID {
	case 4: // Game Boy Color: linear map, no translation needed
		return []achievements.VirtRegion{{VirtStart: 0, VirtLen: 0x10000, RealStart: 0}}
	default:
		return nil
	}
}
