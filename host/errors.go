package host

import (
	"errors"
	"fmt"

	"github.com/user-none/retrohost/host/abi"
	"github.com/user-none/retrohost/host/loader"
	"github.com/user-none/retrohost/host/state"
)

// The client-facing error taxonomy (spec.md §7). ErrLoad, ErrSymbol,
// ErrState and ErrIO are the subsystem sentinels themselves; ErrRom
// errors from ROM staging also wrap the loader sentinel they came from,
// so callers can match on either the broad category or the precise
// cause with errors.Is.
var (
	// ErrLoad covers a core shared library that failed to open. A
	// missing required symbol is reported as ErrSymbol instead.
	ErrLoad = abi.ErrLoad
	// ErrSymbol covers one specific missing required libretro symbol.
	ErrSymbol = abi.ErrSymbol
	// ErrRom covers ROM staging failures: unsupported archive format,
	// no matching entry, or an entry exceeding the size limit.
	ErrRom = errors.New("host: rom staging failed")
	// ErrState covers a core rejecting a serialize/unserialize call.
	ErrState = state.ErrState
	// ErrIO covers a filesystem failure while saving or loading state
	// or SRAM, and a failed rewind-ring allocation.
	ErrIO = state.ErrIO
	// ErrBridgeFull names the achievements HTTP queue being full. No
	// Session method returns it: a full queue is answered to the
	// runtime directly with a client-error HTTP status.
	ErrBridgeFull = errors.New("host: achievements bridge request queue is full")
	// ErrGeometry describes the video converter failing to grow its
	// frame buffer to the core-reported geometry and dropping a frame.
	// No call returns it; VideoRefresh records its text as the
	// session's last message.
	ErrGeometry = errors.New("host: frame buffer reallocation failed")
)

// wrapRomErr normalizes a loader package error under ErrRom.
func wrapRomErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, loader.ErrNoROMFile) || errors.Is(err, loader.ErrUnsupportedArchive) || errors.Is(err, loader.ErrROMTooLarge) {
		return fmt.Errorf("%w: %w", ErrRom, err)
	}
	return err
}
