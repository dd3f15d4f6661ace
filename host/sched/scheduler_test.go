package sched

import (
	"sync/atomic"
	"testing"
	"time"
)

type fakeTarget struct {
	emuFrames   atomic.Int64
	presents    atomic.Int64
	rewinds     atomic.Int64
	achieveFrms atomic.Int64
}

func (f *fakeTarget) RunEmulationFrame() { f.emuFrames.Add(1) }
func (f *fakeTarget) PresentDisplay()    { f.presents.Add(1) }
func (f *fakeTarget) RewindPush()        { f.rewinds.Add(1) }
func (f *fakeTarget) AchievementsFrame() { f.achieveFrms.Add(1) }

func TestSetSpeedClamps(t *testing.T) {
	s := New(&fakeTarget{})
	s.SetSpeed(10)
	if got := s.speedPct.Load(); got != 25 {
		t.Fatalf("SetSpeed(10) = %d, want clamped to 25", got)
	}
	s.SetSpeed(5000)
	if got := s.speedPct.Load(); got != 800 {
		t.Fatalf("SetSpeed(5000) = %d, want clamped to 800", got)
	}
	s.SetSpeed(100)
	if got := s.speedPct.Load(); got != 100 {
		t.Fatalf("SetSpeed(100) = %d, want 100", got)
	}
}

func TestSetRewindMinIntervalClamp(t *testing.T) {
	s := New(&fakeTarget{})
	s.SetRewind(true, 0)
	if got := s.rewindInterval.Load(); got != 1 {
		t.Fatalf("rewindInterval = %d, want clamped to 1", got)
	}
}

func TestStartStopRunsFrames(t *testing.T) {
	target := &fakeTarget{}
	s := New(target)
	s.SetSpeed(800) // run as fast as possible so the test stays quick
	if s.Running() {
		t.Fatal("scheduler reports running before Start")
	}

	s.Start()
	if !s.Running() {
		t.Fatal("scheduler does not report running after Start")
	}
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	if s.Running() {
		t.Fatal("scheduler still reports running after Stop")
	}
	if target.emuFrames.Load() == 0 {
		t.Fatal("expected at least one emulation frame to have run")
	}
}

func TestStartIsNoOpWhenAlreadyRunning(t *testing.T) {
	s := New(&fakeTarget{})
	s.Start()
	defer s.Stop()
	first := s.done
	s.Start()
	if s.done != first {
		t.Fatal("second Start replaced the done channel of a running scheduler")
	}
}

func TestStopIsNoOpWhenNotRunning(t *testing.T) {
	s := New(&fakeTarget{})
	s.Stop() // must not block or panic
	if s.Running() {
		t.Fatal("scheduler reports running after Stop on a never-started scheduler")
	}
}

func TestRewindPushedAtInterval(t *testing.T) {
	target := &fakeTarget{}
	s := New(target)
	s.SetSpeed(800)
	s.SetRewind(true, 2)

	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	frames := target.emuFrames.Load()
	rewinds := target.rewinds.Load()
	if frames == 0 {
		t.Fatal("expected emulation frames to run")
	}
	// Rewind fires on every 2nd frame (frame counts 2, 4, 6, ...), so
	// exactly frames/2 pushes, rounded down when stopped on an odd frame.
	if rewinds == 0 || rewinds != frames/2 {
		t.Fatalf("rewinds=%d frames=%d look inconsistent with interval 2", rewinds, frames)
	}
}

func TestAchievementsFrameCalledWhenEnabled(t *testing.T) {
	target := &fakeTarget{}
	s := New(target)
	s.SetSpeed(800)
	s.SetAchievementsEnabled(true)

	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	if target.achieveFrms.Load() == 0 {
		t.Fatal("expected AchievementsFrame to be called at least once")
	}
	if target.achieveFrms.Load() != target.emuFrames.Load() {
		t.Fatalf("achieveFrms=%d should equal emuFrames=%d (called once per emulation frame)",
			target.achieveFrms.Load(), target.emuFrames.Load())
	}
}

func TestFPSMeasuredAfterRunning(t *testing.T) {
	target := &fakeTarget{}
	s := New(target)
	s.SetSpeed(800)

	s.Start()
	time.Sleep(600 * time.Millisecond)
	s.Stop()

	if s.FPSx100() <= 0 {
		t.Fatalf("expected a positive FPS reading after 500ms+ of running, got %d", s.FPSx100())
	}
}
