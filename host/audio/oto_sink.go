package audio

import (
	"unsafe"

	"github.com/ebitengine/oto/v3"
)

// otoSink drives playback via ebitengine/oto's pull-based Reader
// callback, the same double-buffered model IntuitionEngine's
// audio_backend_oto.go uses for its synth chips: oto calls Read exactly
// when it needs more samples, and Read pulls from whatever FrameSource
// is currently installed.
type otoSink struct {
	ctx    *oto.Context
	player *oto.Player
	source FrameSource

	// stereoBuf is reused across Read calls to avoid per-callback
	// allocation on the playback thread.
	stereoBuf []int16
}

// NewOtoSink constructs a sink with no active stream; the first Reinit
// opens the context at the detected rate.
func NewOtoSink() *otoSink {
	return &otoSink{}
}

// Reinit (re)starts playback at sampleRate. oto permits only one
// *oto.Context per process, so only the first call actually opens one;
// later calls (a rate reclassification mid-session, spec.md §4.3
// property 10 / scenario S4) just swap the source and rebuild the
// player against the already-open context, which keeps playing at its
// original sample rate. That leaves pitch/speed slightly off after a
// rate change on this backend — exact-rate liveness on reclassification
// requires the SDL3 backend (host/audio.NewSDLSink), which can reopen
// its device at the new rate.
func (s *otoSink) Reinit(sampleRate int, source FrameSource) error {
	s.source = source

	if s.ctx != nil {
		if s.player != nil {
			s.player.Close()
		}
		s.player = s.ctx.NewPlayer(s)
		s.player.Play()
		return nil
	}

	opts := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   0, // let oto pick a low-latency default
	}
	ctx, ready, err := oto.NewContext(opts)
	if err != nil {
		return err
	}
	<-ready

	s.ctx = ctx
	s.player = ctx.NewPlayer(s)
	s.player.Play()
	return nil
}

// Read implements io.Reader for oto's pull model. p is raw bytes; two
// bytes per int16 sample, two samples (L,R) per stereo frame.
func (s *otoSink) Read(p []byte) (int, error) {
	frames := len(p) / 4
	if cap(s.stereoBuf) < frames*2 {
		s.stereoBuf = make([]int16, frames*2)
	}
	buf := s.stereoBuf[:frames*2]

	if s.source == nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	s.source.Fill(buf)
	copy(p, unsafe.Slice((*byte)(unsafe.Pointer(&buf[0])), len(buf)*2))
	return len(p), nil
}

func (s *otoSink) Close() {
	if s.player != nil {
		s.player.Close()
		s.player = nil
	}
	s.ctx = nil
}
