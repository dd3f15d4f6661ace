// Package sched implements the frame scheduler (spec.md §4.4, C4): the
// dedicated thread that paces retro_run by a monotonic clock at a
// configurable speed multiplier while emitting a steady ~60 Hz display
// signal.
package sched

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// baseFrameNS is the nominal emulated frame period, ~59.73 Hz (spec.md §4.4).
const baseFrameNS = 16_742_706

// displayNS is the fixed ~60 Hz display-signal period.
const displayNS = 16_666_667

// maxEmuFramesPerIteration bounds how many retro_run calls one loop
// iteration may issue, which in turn bounds worst-case shutdown latency
// to one target frame interval (spec.md §4.4/§5 "Cancellation").
const maxEmuFramesPerIteration = 8

// Target is the host state the scheduler drives. Implementations are
// expected to be cheap and non-blocking; the scheduler never surfaces
// errors from Target — callers log internally and continue (spec.md §7:
// "The scheduler thread never surfaces errors directly").
type Target interface {
	RunEmulationFrame()
	PresentDisplay()
	RewindPush()
	AchievementsFrame()
}

// Scheduler owns one OS thread driving a Target. Shared state read or
// written from the client thread is modeled as atomic scalars per
// spec.md §5.
type Scheduler struct {
	target Target

	running atomic.Bool // acquire/release semantics via atomic.Bool

	speedPct            atomic.Int32
	rewindEnabled       atomic.Bool
	rewindInterval      atomic.Int32
	achievementsEnabled atomic.Bool
	fpsX100             atomic.Int64

	wg sync.Mutex // guards Start/Stop against concurrent calls
	done chan struct{}
}

// New creates a stopped scheduler at 100% speed with rewind/achievements
// disabled.
func New(target Target) *Scheduler {
	s := &Scheduler{target: target}
	s.speedPct.Store(100)
	s.rewindInterval.Store(1)
	return s
}

// SetSpeed sets the emulation speed percentage, clamped to [25, 800] per
// spec.md §4.4.
func (s *Scheduler) SetSpeed(pct int) {
	if pct < 25 {
		pct = 25
	}
	if pct > 800 {
		pct = 800
	}
	s.speedPct.Store(int32(pct))
}

func (s *Scheduler) SetRewind(enabled bool, interval int) {
	s.rewindEnabled.Store(enabled)
	if interval < 1 {
		interval = 1
	}
	s.rewindInterval.Store(int32(interval))
}

func (s *Scheduler) SetAchievementsEnabled(enabled bool) {
	s.achievementsEnabled.Store(enabled)
}

// FPSx100 returns the measured frames-per-second, scaled by 100 for an
// integer readout (spec.md §4.4 step 5).
func (s *Scheduler) FPSx100() int64 {
	return s.fpsX100.Load()
}

// Running reports whether the scheduler thread is currently active.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Start launches the scheduler thread. A no-op if already running.
func (s *Scheduler) Start() {
	s.wg.Lock()
	defer s.wg.Unlock()
	if s.running.Load() {
		return
	}
	s.running.Store(true)
	s.done = make(chan struct{})
	go s.loop(s.done)
}

// Stop clears the running flag and blocks until the thread has exited,
// which is guaranteed within one target frame interval (spec.md §4.4
// "Cancellation").
func (s *Scheduler) Stop() {
	s.wg.Lock()
	defer s.wg.Unlock()
	if !s.running.Load() {
		return
	}
	s.running.Store(false)
	<-s.done
}

func (s *Scheduler) loop(done chan struct{}) {
	defer close(done)

	var emuAccum, displayAccum int64
	last := time.Now()

	var framesSinceFPS int64
	var lastFPSCalc time.Time = last
	var localFrameCounter int64

	for s.running.Load() {
		now := time.Now()
		elapsed := now.Sub(last).Nanoseconds()
		last = now

		targetNS := baseFrameNS * 100 / int64(s.speedPct.Load())

		emuAccum += elapsed
		displayAccum += elapsed

		ranThisIter := 0
		for emuAccum >= targetNS && ranThisIter < maxEmuFramesPerIteration {
			s.target.RunEmulationFrame()
			emuAccum -= targetNS
			ranThisIter++
			localFrameCounter++
			framesSinceFPS++

			if s.rewindEnabled.Load() {
				interval := int64(s.rewindInterval.Load())
				if interval < 1 {
					interval = 1
				}
				if localFrameCounter%interval == 0 {
					s.target.RewindPush()
				}
			}
			if s.achievementsEnabled.Load() {
				s.target.AchievementsFrame()
			}
		}

		if emuAccum > 10*targetNS {
			emuAccum = 0
		}

		if ranThisIter >= 1 && displayAccum >= displayNS {
			s.target.PresentDisplay()
			displayAccum -= displayNS
			if displayAccum > 3*displayNS {
				displayAccum = 3 * displayNS
			}
		}

		if sinceCalc := now.Sub(lastFPSCalc); sinceCalc >= 500*time.Millisecond {
			fps := 100 * framesSinceFPS * int64(time.Second) / sinceCalc.Nanoseconds()
			s.fpsX100.Store(fps)
			framesSinceFPS = 0
			lastFPSCalc = now
		}

		sleepEmu := targetNS - emuAccum
		sleepDisplay := displayNS - displayAccum
		sleepNS := sleepEmu
		if sleepDisplay < sleepNS {
			sleepNS = sleepDisplay
		}

		if sleepNS > 500_000 {
			time.Sleep(time.Duration(sleepNS))
		} else {
			runtime.Gosched()
		}
	}
}
