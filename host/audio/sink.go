package audio

// FrameSource is satisfied by the Pipeline; it lets a sink pull exactly
// the stereo frames it needs per invocation without depending on the
// pipeline's internals (spec.md §4.3 "Playback sink").
type FrameSource interface {
	// Fill writes up to len(out)/2 stereo pairs into out and returns the
	// number of stereo pairs actually supplied from the ring. The source
	// (not the sink) is responsible for underrun fade and pre-buffer
	// gating.
	Fill(out []int16) int
}

// Sink is a platform playback backend. Reinit is called whenever the
// detected sample rate changes (spec.md §4.3's "reinitialize... at the
// new rate"); the sink drives FrameSource.Fill on its own callback
// thread between Reinit calls.
type Sink interface {
	Reinit(sampleRate int, source FrameSource) error
	Close()
}
