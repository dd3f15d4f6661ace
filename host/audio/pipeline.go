package audio

import (
	"math"
	"sync"
	"sync/atomic"
)

// Pipeline is the audio subsystem's glue: it receives sample batches
// from the core, volume-scales and rings them, drives rate detection,
// and answers the playback sink's pull requests with underrun masking
// (spec.md §4.3, C3).
type Pipeline struct {
	ring Ring
	det  detector

	sink       Sink
	sinkActive bool

	volumeBits atomic.Uint32 // math.Float32bits of a [0,1] scalar
	mute       atomic.Bool

	// prebuffering / underrun state, touched only on the playback
	// thread inside Fill.
	mu             sync.Mutex
	primed         bool
	lastL, lastR   int16
	missRun        int
	lastRequestLen int
}

// NewPipeline creates a pipeline with full volume, unmuted, backed by
// sink (typically an *otoSink or *sdlSink).
func NewPipeline(sink Sink) *Pipeline {
	p := &Pipeline{sink: sink}
	p.volumeBits.Store(math.Float32bits(1.0))
	return p
}

// ResetForGameLoad clears all per-session state: detector, ring, and
// sink (spec.md §3 "Re-entering game-loaded... implicitly tears down
// all per-game state (audio re-init...)").
func (p *Pipeline) ResetForGameLoad(reportedRate int) {
	p.det.reset(reportedRate)
	p.ring = Ring{}
	p.mu.Lock()
	p.primed = false
	p.lastL, p.lastR = 0, 0
	p.missRun = 0
	p.mu.Unlock()
	p.sinkActive = false
}

// SetVolume sets the [0,1] scalar applied per sample.
func (p *Pipeline) SetVolume(v float32) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	p.volumeBits.Store(math.Float32bits(v))
}

func (p *Pipeline) volume() float32 {
	return math.Float32frombits(p.volumeBits.Load())
}

// SetMuted zeroes every batch unconditionally when true, regardless of
// the volume scalar.
func (p *Pipeline) SetMuted(m bool) {
	p.mute.Store(m)
}

// PushBatch is called on the scheduler thread from the core's audio
// sample batch callback. samples is interleaved stereo int16.
func (p *Pipeline) PushBatch(samples []int16) {
	if len(samples) == 0 {
		return
	}

	scaled := p.scale(samples)
	p.capLatency(len(scaled))

	if n := p.ring.Write(scaled); n < len(scaled) {
		// Free space was carved out by capLatency but the batch still
		// didn't fit; advance further to make room (spec.md §4.3).
		p.ring.AdvanceRead(len(scaled) - n)
		p.ring.Write(scaled[n:])
	}
}

// scale applies volume/mute to samples, returning a buffer safe to hand
// to the ring (never aliases the caller's slice since the core may reuse
// it on the next callback).
func (p *Pipeline) scale(samples []int16) []int16 {
	out := make([]int16, len(samples))
	if p.mute.Load() {
		return out
	}
	v := p.volume()
	for i, s := range samples {
		out[i] = int16(float32(s) * v)
	}
	return out
}

// capLatency enforces the adaptive cap from spec.md §4.3: queued stereo
// samples are capped at detected_rate * 2 * 0.050 seconds (floor of four
// sink-callback-lengths); exceeding it advances the read index down to
// half the cap.
func (p *Pipeline) capLatency(incoming int) {
	rate := p.det.currentRate()
	cap := int(float64(rate) * 2 * 0.050)
	floor := 4 * 2 * p.sinkRequestLen() // sinkRequestLen is in stereo frames
	if cap < floor {
		cap = floor
	}

	queued := p.ring.Queued()
	if queued+incoming > cap {
		target := cap / 2
		if queued > target {
			p.ring.AdvanceRead(queued - target)
		}
	}
}

func (p *Pipeline) sinkRequestLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastRequestLen == 0 {
		return 2 // frames, in stereo samples, before the first Fill call
	}
	return p.lastRequestLen
}

// ObserveVideoFrame feeds the sample count emitted during one video
// frame to the rate detector, reinitializing the sink when the detector
// flags a (re)classification (spec.md §4.3 "Detection").
func (p *Pipeline) ObserveVideoFrame(samplesThisFrame int) {
	reinit, rate := p.det.observeVideoFrame(samplesThisFrame)
	if !reinit || p.sink == nil {
		return
	}
	if err := p.sink.Reinit(rate, p); err == nil {
		p.sinkActive = true
		p.mu.Lock()
		p.primed = false
		p.mu.Unlock()
	}
}

// Fill answers the playback sink's pull request for len(out)/2 stereo
// frames. Implements pre-buffer gating (silence until the ring holds at
// least one request's worth) and underrun masking by geometric decay
// toward zero (spec.md §4.3 "Playback sink" / "Pre-buffer").
func (p *Pipeline) Fill(out []int16) int {
	framesRequested := len(out) / 2

	p.mu.Lock()
	p.lastRequestLen = framesRequested
	primed := p.primed
	p.mu.Unlock()

	if !primed {
		if p.ring.Queued() < len(out) {
			zero(out)
			return 0
		}
		p.mu.Lock()
		p.primed = true
		p.mu.Unlock()
	}

	n := p.ring.Read(out)
	gotFrames := n / 2
	if gotFrames >= framesRequested {
		p.mu.Lock()
		p.missRun = 0
		if gotFrames > 0 {
			p.lastL, p.lastR = out[len(out)-2], out[len(out)-1]
		}
		p.mu.Unlock()
		return gotFrames
	}

	p.fadeMissing(out, gotFrames, framesRequested)
	return gotFrames
}

// fadeMissing fills frames [got, requested) with a geometric decay of
// the last played sample (×15/16 per missing pair, zeroed after 64
// consecutive misses) so underruns sound like a soft fade rather than a
// click (spec.md §4.3 / §9).
func (p *Pipeline) fadeMissing(out []int16, got, requested int) {
	p.mu.Lock()
	l, r := p.lastL, p.lastR
	run := p.missRun
	p.mu.Unlock()

	if got > 0 {
		// part of this request was played: fade from its last frame
		l, r = out[got*2-2], out[got*2-1]
		run = 0
	}

	for i := got; i < requested; i++ {
		run++
		if run > 64 {
			l, r = 0, 0
		} else {
			l = int16(float64(l) * 15.0 / 16.0)
			r = int16(float64(r) * 15.0 / 16.0)
		}
		out[i*2], out[i*2+1] = l, r
	}

	p.mu.Lock()
	p.missRun = run
	p.lastL, p.lastR = l, r
	p.mu.Unlock()
}

func zero(out []int16) {
	for i := range out {
		out[i] = 0
	}
}

// Queued exposes the ring's current occupancy for diagnostics.
func (p *Pipeline) Queued() int { return p.ring.Queued() }

// DetectedRate exposes the detector's current classification.
func (p *Pipeline) DetectedRate() int { return p.det.currentRate() }

// Close tears down the active sink.
func (p *Pipeline) Close() {
	if p.sink != nil {
		p.sink.Close()
	}
}
