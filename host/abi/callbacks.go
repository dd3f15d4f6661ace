package abi

import (
	"unsafe"

	"github.com/ebitengine/purego"
)

// Callbacks is implemented by the host state that services a loaded
// core's requests. There is exactly one active core per process (see
// spec.md §9, "Callbacks into foreign code": libretro cores are
// single-instance, so a package-level pointer is the only practical way
// for the static C-ABI trampolines below to reach host state).
type Callbacks interface {
	Environment(cmd EnvCommand, data unsafe.Pointer) bool
	VideoRefresh(data unsafe.Pointer, width, height uint32, pitch uintptr)
	AudioSample(left, right int16)
	AudioSampleBatch(data unsafe.Pointer, frames uintptr) uintptr
	InputPoll()
	InputState(port, device, index, id uint32) int16
}

// active is the sole host target the exported trampolines forward to.
// Set once by RegisterCallbacks before the core's retro_init runs, and
// cleared on teardown.
var active Callbacks

// RegisterCallbacks wires cb as the active callback target and hands the
// core C-callable function pointers for each setter it supports.
func RegisterCallbacks(core *Core, cb Callbacks) {
	active = cb
	core.SetEnvironment(purego.NewCallback(environmentTrampoline))
	core.SetVideoRefresh(purego.NewCallback(videoRefreshTrampoline))
	core.SetAudioSample(purego.NewCallback(audioSampleTrampoline))
	core.SetAudioSampleBatch(purego.NewCallback(audioSampleBatchTrampoline))
	core.SetInputPoll(purego.NewCallback(inputPollTrampoline))
	core.SetInputState(purego.NewCallback(inputStateTrampoline))
}

// UnregisterCallbacks clears the active target so a torn-down session's
// callbacks can never be reached again, even if the core retains stale
// function pointers past unload.
func UnregisterCallbacks() {
	active = nil
}

func environmentTrampoline(cmd uint32, data uintptr) bool {
	if active == nil {
		return false
	}
	return active.Environment(EnvCommand(cmd), unsafe.Pointer(data))
}

func videoRefreshTrampoline(data uintptr, width, height uint32, pitch uintptr) {
	if active == nil {
		return
	}
	active.VideoRefresh(unsafe.Pointer(data), width, height, pitch)
}

func audioSampleTrampoline(left, right int16) {
	if active == nil {
		return
	}
	active.AudioSample(left, right)
}

func audioSampleBatchTrampoline(data uintptr, frames uintptr) uintptr {
	if active == nil {
		return 0
	}
	return active.AudioSampleBatch(unsafe.Pointer(data), frames)
}

func inputPollTrampoline() {
	if active == nil {
		return
	}
	active.InputPoll()
}

func inputStateTrampoline(port, device, index, id uint32) int16 {
	if active == nil {
		return 0
	}
	return active.InputState(port, device, index, id)
}
