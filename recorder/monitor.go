package recorder

import (
	"math"
	"time"

	"go.uber.org/zap"
)

// silenceTracker decides when a recording should auto-stop. It is fed one
// observation per poll tick: the elapsed session time and the RMS energy of
// the most recent frame. It starts gated (no silence evaluation before
// minTime, so a leading breath doesn't cut the recording short) and then
// tracks a continuous below-threshold window. The max-duration cutoff applies
// on every tick regardless of energy.
type silenceTracker struct {
	threshold float64
	window    time.Duration
	minTime   time.Duration
	maxTime   time.Duration

	inSilence    bool
	silenceSince time.Duration
}

func newSilenceTracker(cfg Config) *silenceTracker {
	return &silenceTracker{
		threshold: cfg.SilenceThreshold,
		window:    cfg.SilenceDuration,
		minTime:   cfg.MinRecordingTime,
		maxTime:   cfg.MaxRecordingTime,
	}
}

// Tick reports whether the session should stop now.
func (t *silenceTracker) Tick(elapsed time.Duration, energy float64) bool {
	if t.maxTime > 0 && elapsed >= t.maxTime {
		return true
	}
	if elapsed < t.minTime {
		return false
	}
	if energy >= t.threshold {
		// Sound resumed, restart the window.
		t.inSilence = false
		return false
	}
	if !t.inSilence {
		t.inSilence = true
		t.silenceSince = elapsed
		return false
	}
	return elapsed-t.silenceSince >= t.window
}

// rms returns the root-mean-square energy of a frame. Empty frames count as
// silence.
func rms(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// monitor is the silence-monitor goroutine. It polls session state at the
// configured interval and signals stop by setting cancelRequested; actual
// stream teardown is always left to the goroutine that calls Stop or Reset,
// so the monitor can never end up tearing down resources it is running on.
func (r *Recorder) monitor(done chan struct{}) {
	defer close(done)

	tracker := newSilenceTracker(r.cfg)
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		r.mu.Lock()
		if !r.active || r.cancelRequested {
			r.mu.Unlock()
			return
		}
		elapsed := r.now().Sub(r.startedAt)
		var last []float32
		if n := len(r.frames); n > 0 {
			last = r.frames[n-1]
		}
		r.mu.Unlock()

		if tracker.Tick(elapsed, rms(last)) {
			r.mu.Lock()
			r.cancelRequested = true
			r.mu.Unlock()
			r.logger.Info("auto-stop signaled",
				zap.Duration("elapsed", elapsed.Truncate(time.Millisecond)))
			return
		}

		<-ticker.C
	}
}
