package video

import "sync"

// Surface is a client-provided native render target (spec.md §4.5
// zero-copy mode). The host never constructs one; the client attaches it
// via Sink.AttachSurface and owns its lifetime.
type Surface interface {
	// Reconfigure is called whenever frame geometry changes; the surface
	// must resize/retarget to width x height RGBA.
	Reconfigure(width, height int)
	// Lock returns a writable destination buffer and its stride in
	// bytes, valid until the matching Unlock.
	Lock() (dst []byte, strideBytes int)
	// Unlock posts the buffer written since Lock for display.
	Unlock()
}

// Sink delivers canonical frames to the client, either by snapshot copy
// (fallback mode) or zero-copy blit into an attached Surface (spec.md
// §4.5, C5).
type Sink struct {
	// mu serializes attach/detach against blit; held across the entire
	// blit so a detach can never race destruction of the underlying
	// native resource (spec.md §4.5/§5 — "do not attempt a lock-free
	// scheme here").
	mu sync.Mutex

	surface       Surface
	configuredW   int
	configuredH   int

	snapshot   []byte
	snapshotW  int
	snapshotH  int
}

// AttachSurface installs a zero-copy target. Any previously attached
// surface is replaced without a blit racing the swap, since
// AttachSurface takes the same mutex as Present/DetachSurface.
func (s *Sink) AttachSurface(surf Surface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surface = surf
	s.configuredW, s.configuredH = 0, 0
}

// DetachSurface releases the zero-copy target. Acquires the mutex,
// clears the pointer, releases it — guaranteeing no blit is ever in
// progress when the caller goes on to free the underlying window
// (spec.md §4.5 "Detachment").
func (s *Sink) DetachSurface() {
	s.mu.Lock()
	s.surface = nil
	s.mu.Unlock()
}

// Present delivers one canonical frame: blit to the attached surface if
// present, otherwise copy to the fallback snapshot buffer. Called from
// the scheduler thread on each ~60 Hz display signal.
func (s *Sink) Present(frame *FrameBuffer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.surface == nil {
		s.presentSnapshot(frame)
		return
	}
	s.presentZeroCopy(frame)
}

func (s *Sink) presentSnapshot(frame *FrameBuffer) {
	w, h := frame.Width(), frame.Height()
	need := w * h * 4
	if cap(s.snapshot) < need {
		s.snapshot = make([]byte, need)
	} else {
		s.snapshot = s.snapshot[:need]
	}
	copy(s.snapshot, frame.Bytes())
	s.snapshotW, s.snapshotH = w, h
}

func (s *Sink) presentZeroCopy(frame *FrameBuffer) {
	w, h := frame.Width(), frame.Height()
	if w != s.configuredW || h != s.configuredH {
		s.surface.Reconfigure(w, h)
		s.configuredW, s.configuredH = w, h
	}

	dst, stride := s.surface.Lock()
	src := frame.Bytes()
	rowBytes := w * 4
	if stride == rowBytes {
		copy(dst, src)
	} else {
		for y := 0; y < h; y++ {
			copy(dst[y*stride:y*stride+rowBytes], src[y*rowBytes:(y+1)*rowBytes])
		}
	}
	s.surface.Unlock()
}

// Snapshot returns the fallback-mode buffer and its dimensions. Valid
// for the client to read only between display signals (spec.md §9 open
// question (a): the client must finish reading before the scheduler's
// next Present call writes over it).
func (s *Sink) Snapshot() (data []byte, width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot, s.snapshotW, s.snapshotH
}
