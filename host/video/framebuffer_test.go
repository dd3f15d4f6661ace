package video

import "testing"

func TestEnsureGrowsAndReportsDimensions(t *testing.T) {
	var fb FrameBuffer
	if !fb.ensure(4, 4) {
		t.Fatal("ensure(4,4) should succeed")
	}
	if fb.Width() != 4 || fb.Height() != 4 {
		t.Fatalf("got %dx%d, want 4x4", fb.Width(), fb.Height())
	}
	if len(fb.Bytes()) != 4*4*4 {
		t.Fatalf("Bytes() len = %d, want %d", len(fb.Bytes()), 4*4*4)
	}
}

func TestEnsureShrinkKeepsCapacity(t *testing.T) {
	var fb FrameBuffer
	fb.ensure(8, 8)
	if !fb.ensure(2, 2) {
		t.Fatal("shrinking ensure should succeed without reallocating")
	}
	if fb.Width() != 2 || fb.Height() != 2 {
		t.Fatalf("got %dx%d, want 2x2", fb.Width(), fb.Height())
	}
}

// TestReallocFailedClearsOnNextSuccess guards against a sticky failure
// flag: once a later ensure call succeeds, ReallocFailed must report
// false again rather than latching true for the rest of the session.
func TestReallocFailedClearsOnNextSuccess(t *testing.T) {
	var fb FrameBuffer
	fb.ensure(4, 4)
	fb.reallocFailed = true // simulate a prior failed growth

	if !fb.ensure(2, 2) {
		t.Fatal("ensure within existing capacity should succeed")
	}
	if fb.ReallocFailed() {
		t.Fatal("ReallocFailed should clear after a subsequent successful ensure")
	}

	if !fb.ensure(16, 16) {
		t.Fatal("ensure(16,16) should succeed")
	}
	if fb.ReallocFailed() {
		t.Fatal("ReallocFailed should clear after a successful growing ensure too")
	}
}
