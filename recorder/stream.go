package recorder

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Frame size used for the default PortAudio stream.
const framesPerBuffer = 1024

// Stream is a running audio input stream. Close stops frame delivery and
// releases the device; it is a no-op when called more than once.
type Stream interface {
	Close() error
}

// StreamOpener opens an input stream at the given rate and channel count and
// starts delivering frames to onFrame from the stream's own I/O goroutine.
// Frames handed to onFrame are only valid for the duration of the call.
type StreamOpener func(sampleRate, channels int, onFrame func([]float32)) (Stream, error)

type portaudioStream struct {
	stream *portaudio.Stream
	once   sync.Once
	err    error
}

func (s *portaudioStream) Close() error {
	s.once.Do(func() {
		s.stream.Stop()
		s.err = s.stream.Close()
		portaudio.Terminate()
	})
	return s.err
}

// openPortAudioStream opens the default input device via PortAudio with a
// callback-driven stream. PortAudio initialization is reference counted, so
// each opened stream pairs its own Initialize with a Terminate on Close.
func openPortAudioStream(sampleRate, channels int, onFrame func([]float32)) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(channels, 0, float64(sampleRate), framesPerBuffer,
		func(in []float32) { onFrame(in) })
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open mic: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("start mic: %w", err)
	}
	return &portaudioStream{stream: stream}, nil
}
