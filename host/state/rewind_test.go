package state

import "testing"

func TestRewindRingOverflow(t *testing.T) {
	var r rewindRing
	if err := r.init(3, 4); err != nil {
		t.Fatalf("init: %v", err)
	}

	for i := 0; i < 5; i++ {
		buf := r.headBuffer()
		if buf == nil {
			t.Fatalf("push %d: nil head buffer", i)
		}
		// stamp the buffer with the push index so we can verify which
		// generation survives the overflow.
		buf[0] = byte(i)
		r.advance()
	}

	if r.count != 3 {
		t.Fatalf("count = %d, want 3 (scenario S3)", r.count)
	}

	want := []byte{4, 3, 2}
	for i, w := range want {
		buf, ok := r.pop()
		if !ok {
			t.Fatalf("pop %d: ring reported empty early", i)
		}
		if buf[0] != w {
			t.Fatalf("pop %d: got generation %d, want %d", i, buf[0], w)
		}
	}

	if _, ok := r.pop(); ok {
		t.Fatalf("pop after exhausting ring should fail")
	}
}

func TestRewindRingInitFailureLeavesRingEmpty(t *testing.T) {
	var r rewindRing
	if err := r.init(3, 4); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := r.init(0, 4); err == nil {
		t.Fatalf("init with non-positive capacity should fail")
	}
	if r.capacity != 0 || r.count != 0 {
		t.Fatalf("failed re-init should leave ring deinitialized, got capacity=%d count=%d", r.capacity, r.count)
	}
}

func TestRewindRingDeinit(t *testing.T) {
	var r rewindRing
	_ = r.init(2, 8)
	r.advance()
	r.deinit()
	if r.capacity != 0 || r.count != 0 || r.buffers != nil {
		t.Fatalf("deinit did not reset ring state")
	}
	if buf := r.headBuffer(); buf != nil {
		t.Fatalf("headBuffer on deinitialized ring should be nil")
	}
}
