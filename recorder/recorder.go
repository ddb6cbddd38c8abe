// Package recorder captures a voice question from the default input device
// and stops on its own once the speaker goes quiet.
//
// A Recorder is a small state machine (idle → recording → idle) coordinating
// three goroutines: the caller's, the audio I/O callback, and a polling
// silence monitor. The monitor never tears anything down itself; it only
// raises the stop flag, and the caller's Stop performs the teardown.
package recorder

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gamecoach-ai/gamecoach/internal/wav"
)

var (
	// ErrDeviceUnavailable means the input device could not be opened.
	ErrDeviceUnavailable = errors.New("audio input device unavailable")
	// ErrAlreadyActive means Start was called while a session is running.
	ErrAlreadyActive = errors.New("recording already in progress")
	// ErrNothingRecorded means there is no audio to return.
	ErrNothingRecorded = errors.New("nothing recorded")
)

// Config holds the capture and silence-detection settings. The zero value of
// any field falls back to its default; none of the timing values are fixed.
type Config struct {
	SampleRate       int           // default 16000 Hz
	Channels         int           // input channels, default 1; stereo is downmixed to mono
	SilenceThreshold float64       // RMS below this counts as silence, default 0.01
	SilenceDuration  time.Duration // continuous silence before auto-stop, default 2s
	MinRecordingTime time.Duration // no silence evaluation before this, default 1s; negative disables the gate
	MaxRecordingTime time.Duration // hard session cutoff, default 30s
	PollInterval     time.Duration // monitor tick, default 100ms
	JoinTimeout      time.Duration // bound on waiting for the monitor at stop, default 2s
}

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.Channels <= 0 {
		c.Channels = 1
	}
	if c.SilenceThreshold <= 0 {
		c.SilenceThreshold = 0.01
	}
	if c.SilenceDuration <= 0 {
		c.SilenceDuration = 2 * time.Second
	}
	if c.MinRecordingTime < 0 {
		c.MinRecordingTime = 0
	} else if c.MinRecordingTime == 0 {
		c.MinRecordingTime = time.Second
	}
	if c.MaxRecordingTime <= 0 {
		c.MaxRecordingTime = 30 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = 2 * time.Second
	}
	return c
}

// Option customizes a Recorder.
type Option func(*Recorder)

// WithStreamOpener replaces the PortAudio input stream with a custom opener.
func WithStreamOpener(open StreamOpener) Option {
	return func(r *Recorder) { r.openStream = open }
}

// WithPlayback replaces the PortAudio output used for feedback cues.
func WithPlayback(play func(samples []float32, sampleRate int) error) Option {
	return func(r *Recorder) { r.play = play }
}

// WithClock replaces the wall clock. Only used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// Recorder owns one recording session at a time. It is built for a single
// producer and a single consumer: one goroutine drives Start/Stop/Reset and
// polls IsActive/StopRequested.
type Recorder struct {
	cfg        Config
	logger     *zap.Logger
	openStream StreamOpener
	play       func([]float32, int) error
	now        func() time.Time
	encode     func([]float32, int) ([]byte, error)

	startChime []float32
	stopChime  []float32

	mu              sync.Mutex
	active          bool
	cancelRequested bool
	startedAt       time.Time
	frames          [][]float32
	stream          Stream
	monitorDone     chan struct{}
	lastWAV         []byte
}

// New creates a Recorder. The feedback chimes are synthesized once up front
// so every start/stop replays the same pre-generated tones.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	r := &Recorder{
		cfg:        cfg,
		logger:     logger,
		openStream: openPortAudioStream,
		play:       playSamples,
		now:        time.Now,
		encode: func(samples []float32, rate int) ([]byte, error) {
			return wav.Encode(samples, rate), nil
		},
		startChime: chime(cfg.SampleRate, chimeLowHz, chimeHighHz),
		stopChime:  chime(cfg.SampleRate, chimeHighHz, chimeLowHz),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsActive reports whether a session is currently recording.
func (r *Recorder) IsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// StopRequested reports whether the silence monitor (or max-duration cutoff)
// has asked for the session to end. The caller is expected to poll this and
// invoke Stop; the flag is cleared by Reset or the next Start.
func (r *Recorder) StopRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelRequested
}

// Start begins a new recording session: plays the start cue, clears any
// stale handles from a previous run, opens the input stream and spawns the
// silence monitor. It fails with ErrAlreadyActive while recording and with
// ErrDeviceUnavailable when no input device can be opened; a failed start
// leaves the recorder idle.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return ErrAlreadyActive
	}
	stream := r.stream
	done := r.monitorDone
	r.stream = nil
	r.monitorDone = nil
	r.mu.Unlock()

	r.playChime(r.startChime)

	// Remnants of a prior session: close and join before reusing state.
	r.teardown(stream, done)

	r.mu.Lock()
	r.frames = nil
	r.cancelRequested = false
	r.startedAt = r.now()
	r.active = true
	r.mu.Unlock()

	stream, err := r.openStream(r.cfg.SampleRate, r.cfg.Channels, r.onFrame)
	if err != nil {
		r.mu.Lock()
		r.active = false
		r.mu.Unlock()
		r.logger.Warn("failed to open input stream", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	done = make(chan struct{})
	r.mu.Lock()
	r.stream = stream
	r.monitorDone = done
	r.mu.Unlock()
	go r.monitor(done)

	r.logger.Info("recording started",
		zap.Int("sample_rate", r.cfg.SampleRate),
		zap.Int("channels", r.cfg.Channels))
	return nil
}

// onFrame runs on the stream's I/O goroutine. It only appends to the session
// buffer; any panic is logged and the frame dropped so the I/O thread
// survives.
func (r *Recorder) onFrame(in []float32) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("frame callback failure, frame dropped", zap.Any("panic", p))
		}
	}()

	frame := downmix(in, r.cfg.Channels)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	r.frames = append(r.frames, frame)
}

// downmix copies an interleaved frame, averaging multi-channel input down to
// mono. Silence energy is computed over mono samples downstream.
func downmix(in []float32, channels int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}
	out := make([]float32, len(in)/channels)
	for i := range out {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += in[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// Stop ends the active session and returns the recording as WAV bytes.
// Calling it again after a completed session returns the same bytes
// (idempotent read of the last finalized audio); with nothing buffered and
// nothing cached it returns ErrNothingRecorded.
func (r *Recorder) Stop() ([]byte, error) {
	r.mu.Lock()
	if !r.active && len(r.frames) == 0 {
		last := r.lastWAV
		r.mu.Unlock()
		if last != nil {
			return last, nil
		}
		return nil, ErrNothingRecorded
	}
	wasActive := r.active
	r.active = false
	stream := r.stream
	done := r.monitorDone
	r.stream = nil
	r.monitorDone = nil
	r.mu.Unlock()

	if wasActive {
		if stream != nil {
			if err := stream.Close(); err != nil {
				r.logger.Warn("closing input stream", zap.Error(err))
			}
		}
		r.playChime(r.stopChime)
		r.joinMonitor(done)
	}

	return r.finalize()
}

// finalize concatenates the session frames, normalizes the peak and encodes
// WAV. The encoded buffer is cached for idempotent re-reads; an encoding
// failure returns an error rather than a partial buffer.
func (r *Recorder) finalize() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, f := range r.frames {
		total += len(f)
	}
	if total == 0 {
		r.frames = nil
		if r.lastWAV != nil {
			return r.lastWAV, nil
		}
		return nil, ErrNothingRecorded
	}

	samples := make([]float32, 0, total)
	for _, f := range r.frames {
		samples = append(samples, f...)
	}
	r.frames = nil

	peak, gain := normalize(samples)

	data, err := r.encode(samples, r.cfg.SampleRate)
	if err != nil {
		r.logger.Error("encoding recorded audio", zap.Error(err))
		return nil, fmt.Errorf("encode recording: %w", err)
	}
	r.lastWAV = data

	r.logger.Info("recording finalized",
		zap.Int("samples", total),
		zap.Float64("seconds", float64(total)/float64(r.cfg.SampleRate)),
		zap.Float32("peak", peak),
		zap.Float32("gain", gain))
	return data, nil
}

// normalize scales samples so the peak amplitude reaches 0.9. Peaks below
// 0.001 are left untouched (gain 1.0).
func normalize(samples []float32) (peak, gain float32) {
	for _, s := range samples {
		if s > peak {
			peak = s
		} else if -s > peak {
			peak = -s
		}
	}
	if peak < 0.001 {
		return peak, 1.0
	}
	gain = 0.9 / peak
	for i := range samples {
		samples[i] *= gain
	}
	return peak, gain
}

// Reset forces the recorder back to idle from any state: stops any active
// recording, closes the stream ignoring errors, joins the monitor and clears
// every session field including the cached audio. Safe to call repeatedly.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.active = false
	r.cancelRequested = false
	r.startedAt = time.Time{}
	r.frames = nil
	r.lastWAV = nil
	stream := r.stream
	done := r.monitorDone
	r.stream = nil
	r.monitorDone = nil
	r.mu.Unlock()

	r.teardown(stream, done)
}

func (r *Recorder) teardown(stream Stream, done chan struct{}) {
	if stream != nil {
		stream.Close()
	}
	r.joinMonitor(done)
}

// joinMonitor waits for the monitor goroutine with a bounded timeout. The
// monitor self-terminates once the session deactivates, so a timeout is worth
// a warning but never blocks the stop path. The monitor goroutine itself
// never reaches here: it signals stop through the flag instead of calling
// Stop, so there is no goroutine waiting on itself.
func (r *Recorder) joinMonitor(done chan struct{}) {
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(r.cfg.JoinTimeout):
		r.logger.Warn("silence monitor did not exit within timeout",
			zap.Duration("timeout", r.cfg.JoinTimeout))
	}
}
