// Package audio implements the audio ring buffer, rate detection, and
// playback pipeline described in spec.md §4.3 (C3).
package audio

import "sync/atomic"

// ringCapacity is the power-of-two size of the ring in stereo samples
// (int16 slots, interleaved L/R), sized per spec.md §5's resource
// ceiling of ~32 Ki samples = 64 KiB.
const ringCapacity = 1 << 15 // 32768 int16 slots = 16384 stereo frames

// Ring is a single-producer/single-consumer lock-free circular buffer of
// interleaved stereo int16 samples (spec.md §3 "Audio ring"). The
// scheduler thread is the sole writer; the playback thread is the sole
// reader. One slot is always left empty to distinguish full from empty
// without a separate counter (spec.md §3 invariant).
type Ring struct {
	buf   [ringCapacity]int16
	read  atomic.Uint64 // advanced only by the consumer
	write atomic.Uint64 // advanced only by the producer
}

// Queued reports the number of buffered int16 samples (always even —
// stereo pairs).
func (r *Ring) Queued() int {
	w := r.write.Load()
	rd := r.read.Load()
	return int((w - rd) % ringCapacity)
}

// Free reports free slots, leaving the one-slot gap (spec.md §3:
// "free space is always N − 1 − queued").
func (r *Ring) Free() int {
	return ringCapacity - 1 - r.Queued()
}

// Write appends samples (interleaved stereo int16) to the ring,
// truncating to available free space. Returns the number of samples
// actually written. The caller (the pipeline) is responsible for
// advancing the read index first if it needs guaranteed room — Write
// itself never drops the reader's data out from under it.
func (r *Ring) Write(samples []int16) int {
	free := r.Free()
	n := len(samples)
	if n > free {
		n = free
	}
	if n == 0 {
		return 0
	}

	w := r.write.Load()
	for i := 0; i < n; i++ {
		r.buf[(w+uint64(i))%ringCapacity] = samples[i]
	}
	// Release-store: the array writes above must be visible before the
	// index that makes them readable becomes visible.
	r.write.Store(w + uint64(n))
	return n
}

// Read copies up to len(out) samples into out, advancing the read index.
// Returns the number of samples copied.
func (r *Ring) Read(out []int16) int {
	// Acquire-load of the other (producer's) index before reading the
	// shared array (spec.md §9).
	w := r.write.Load()
	rd := r.read.Load()
	queued := int((w - rd) % ringCapacity)

	n := len(out)
	if n > queued {
		n = queued
	}
	for i := 0; i < n; i++ {
		out[i] = r.buf[(rd+uint64(i))%ringCapacity]
	}
	r.read.Store(rd + uint64(n))
	return n
}

// AdvanceRead drops n samples from the front of the ring without
// copying them out, used by the latency cap and overflow-recovery logic
// (spec.md §4.3 "Ring write policy").
func (r *Ring) AdvanceRead(n int) {
	queued := r.Queued()
	if n > queued {
		n = queued
	}
	r.read.Store(r.read.Load() + uint64(n))
}
