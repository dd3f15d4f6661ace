package audio

// knownRates are the sample rates the detector classifies into
// (spec.md §4.3 "Detection").
var knownRates = [4]int{32768, 48000, 65536, 131072}

// classify maps an average samples-per-video-frame figure to the
// nearest known rate using midpoint thresholds between consecutive
// candidates (assuming ~60 video frames/sec).
func classify(avgSamplesPerVideoFrame float64) int {
	rate := avgSamplesPerVideoFrame * 60
	best := knownRates[0]
	bestDist := absF(float64(knownRates[0]) - rate)
	for _, r := range knownRates[1:] {
		d := absF(float64(r) - rate)
		if d < bestDist {
			best = r
			bestDist = d
		}
	}
	return best
}

func absF(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// detector implements the two-phase, video-frame-anchored sample rate
// detection of spec.md §4.3: an initial 15-video-frame classification
// pass, then continuous 120-frame sliding-window monitoring gated by a
// 180-frame cooldown between reinitializations.
type detector struct {
	reportedRate int // from SystemAVInfo at game-load; 0 if unavailable

	initDone       bool
	initFrameCount int
	initSampleSum  int64

	windowFrameCount int
	windowSampleSum  int64

	detected           int
	framesSinceReinit  int
}

const (
	initialDetectWindowFrames = 15
	monitorWindowFrames       = 120
	reinitCooldownFrames      = 180
)

// reset reinitializes the detector for a new game-load session.
func (d *detector) reset(reportedRate int) {
	*d = detector{reportedRate: reportedRate}
}

// observeVideoFrame folds in the sample count emitted by the core during
// one video frame and reports whether the sink should reinitialize, and
// at which rate.
func (d *detector) observeVideoFrame(samplesThisFrame int) (reinit bool, rate int) {
	d.framesSinceReinit++

	if !d.initDone {
		d.initFrameCount++
		d.initSampleSum += int64(samplesThisFrame)
		if d.initFrameCount < initialDetectWindowFrames {
			return false, 0
		}
		avg := float64(d.initSampleSum) / float64(d.initFrameCount)
		classified := classify(avg)
		if d.reportedRate >= 8000 && d.reportedRate <= 192000 {
			d.detected = d.reportedRate
		} else {
			d.detected = classified
		}
		d.initDone = true
		d.windowFrameCount, d.windowSampleSum = 0, 0
		return true, d.detected
	}

	d.windowFrameCount++
	d.windowSampleSum += int64(samplesThisFrame)
	if d.windowFrameCount < monitorWindowFrames {
		return false, 0
	}

	avg := float64(d.windowSampleSum) / float64(d.windowFrameCount)
	candidate := classify(avg)
	d.windowFrameCount, d.windowSampleSum = 0, 0

	if candidate != d.detected && d.framesSinceReinit >= reinitCooldownFrames {
		d.detected = candidate
		d.framesSinceReinit = 0
		return true, d.detected
	}
	return false, 0
}

// currentRate returns the most recently detected rate, or the reported
// rate (or the lowest known rate) if detection hasn't completed yet.
func (d *detector) currentRate() int {
	if d.detected != 0 {
		return d.detected
	}
	if d.reportedRate >= 8000 && d.reportedRate <= 192000 {
		return d.reportedRate
	}
	return knownRates[0]
}
