package recorder

import (
	"fmt"

	"github.com/gamecoach-ai/gamecoach/internal/wav"
)

// PlayWAV decodes a WAV clip and plays it on the output device. Unlike the
// feedback cues this blocks until playback finishes.
func (r *Recorder) PlayWAV(data []byte) error {
	samples, sampleRate, err := wav.Decode(data)
	if err != nil {
		return fmt.Errorf("decode wav: %w", err)
	}
	if len(samples) == 0 {
		return nil
	}
	return r.play(samples, int(sampleRate))
}
