package recorder

import (
	"math"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"
)

const (
	chimeDuration = 0.3 // seconds
	chimeGain     = 0.3
	chimeLowHz    = 440 // A4
	chimeHighHz   = 660 // E5
)

// chime synthesizes a short swept sine with a fade-in/fade-out envelope.
// The start cue sweeps up (440→660Hz), the stop cue sweeps down.
func chime(sampleRate int, fromHz, toHz float64) []float32 {
	n := int(float64(sampleRate) * chimeDuration)
	out := make([]float32, n)
	if n == 0 {
		return out
	}

	var phase float64
	for i := range out {
		pos := float64(i) / float64(n-1)
		freq := fromHz + (toHz-fromHz)*pos
		phase += 2 * math.Pi * freq / float64(sampleRate)
		// Triangular-ish envelope: silent at both ends, peak mid-tone.
		env := pos * (1 - pos) * 4
		out[i] = float32(math.Sin(phase) * env * chimeGain)
	}
	return out
}

// playChime fires a feedback cue without blocking the caller. Playback
// failures are logged and swallowed; a missing output device must never fail
// start or stop.
func (r *Recorder) playChime(samples []float32) {
	go func() {
		if err := r.play(samples, r.cfg.SampleRate); err != nil {
			r.logger.Warn("feedback cue playback failed", zap.Error(err))
		}
	}()
}

// playSamples writes samples to the default output device. Used as the
// default playback function; tests inject their own.
func playSamples(samples []float32, sampleRate int) error {
	if len(samples) == 0 {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return err
	}
	defer portaudio.Terminate()

	buf := make([]float32, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), len(buf), buf)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return err
	}
	defer stream.Stop()

	for off := 0; off < len(samples); off += len(buf) {
		end := off + len(buf)
		if end > len(samples) {
			end = len(samples)
		}
		n := copy(buf, samples[off:end])
		for i := n; i < len(buf); i++ {
			buf[i] = 0
		}
		if err := stream.Write(); err != nil {
			return err
		}
	}
	return nil
}
