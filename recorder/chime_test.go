package recorder

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChimeShape(t *testing.T) {
	const sampleRate = 16000
	tone := chime(sampleRate, chimeLowHz, chimeHighHz)

	assert.Len(t, tone, int(sampleRate*chimeDuration))

	// Envelope is silent at both ends and audible in the middle.
	assert.InDelta(t, 0, float64(tone[0]), 1e-6)
	assert.InDelta(t, 0, float64(tone[len(tone)-1]), 1e-3)

	var peak float32
	for _, s := range tone {
		if s > peak {
			peak = s
		} else if -s > peak {
			peak = -s
		}
	}
	assert.Greater(t, float64(peak), 0.1)
	assert.LessOrEqual(t, float64(peak), chimeGain+1e-6)
}

func TestStartAndStopCuesDiffer(t *testing.T) {
	up := chime(16000, chimeLowHz, chimeHighHz)
	down := chime(16000, chimeHighHz, chimeLowHz)

	require.Equal(t, len(up), len(down))
	same := true
	for i := range up {
		if up[i] != down[i] {
			same = false
			break
		}
	}
	assert.False(t, same)
}

func TestCuesPlayOnStartAndStop(t *testing.T) {
	var (
		mu     sync.Mutex
		played [][]float32
		wg     sync.WaitGroup
	)
	wg.Add(2)

	rec := New(Config{}, nil,
		WithStreamOpener(func(int, int, func([]float32)) (Stream, error) {
			return &fakeStream{}, nil
		}),
		WithPlayback(func(samples []float32, sampleRate int) error {
			mu.Lock()
			played = append(played, samples)
			mu.Unlock()
			wg.Done()
			return nil
		}),
	)

	require.NoError(t, rec.Start())
	rec.onFrame(constFrame(64, 0.5))
	_, err := rec.Stop()
	require.NoError(t, err)

	wg.Wait()
	mu.Lock()
	defer mu.Unlock()
	// Cues play on separate goroutines, so arrival order is not fixed.
	assert.ElementsMatch(t, [][]float32{rec.startChime, rec.stopChime}, played)
}
