// Package audio provides the Opus transport codec used between client and
// server: recordings can be shipped as length-prefixed Opus frames (or a
// playable Ogg Opus file) instead of raw WAV to cut upload size.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/hraban/opus"
)

const (
	channels = 1
	// Max encoded frame size
	maxFrameBytes = 1024
)

// StreamEncoder encodes mono PCM audio to Opus incrementally, 20ms frames.
type StreamEncoder struct {
	enc        *opus.Encoder
	sampleRate int
	frameSize  int
	buf        []float32
	out        bytes.Buffer
	frames     [][]byte // individual encoded frames for Ogg muxing
	frame      []byte
	mu         sync.Mutex
}

// NewStreamEncoder creates a streaming Opus encoder for the given sample
// rate. Opus accepts 8, 12, 16, 24 or 48 kHz.
func NewStreamEncoder(sampleRate, bitrate int) (*StreamEncoder, error) {
	enc, err := opus.NewEncoder(sampleRate, channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("create encoder: %w", err)
	}
	if err := enc.SetBitrate(bitrate); err != nil {
		return nil, fmt.Errorf("set bitrate: %w", err)
	}
	return &StreamEncoder{
		enc:        enc,
		sampleRate: sampleRate,
		frameSize:  sampleRate / 50, // 20ms
		frame:      make([]byte, maxFrameBytes),
	}, nil
}

// Write adds PCM samples and encodes any complete frames.
func (s *StreamEncoder) Write(samples []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf = append(s.buf, samples...)

	for len(s.buf) >= s.frameSize {
		pcm := s.buf[:s.frameSize]
		s.buf = s.buf[s.frameSize:]
		if err := s.encodeFrame(pcm); err != nil {
			return err
		}
	}
	return nil
}

// Flush encodes any remaining samples (padded with silence).
func (s *StreamEncoder) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.buf) == 0 {
		return nil
	}
	pcm := make([]float32, s.frameSize)
	copy(pcm, s.buf)
	s.buf = nil
	return s.encodeFrame(pcm)
}

func (s *StreamEncoder) encodeFrame(pcm []float32) error {
	n, err := s.enc.EncodeFloat32(pcm, s.frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	binary.Write(&s.out, binary.LittleEndian, uint16(n))
	s.out.Write(s.frame[:n])
	frameCopy := make([]byte, n)
	copy(frameCopy, s.frame[:n])
	s.frames = append(s.frames, frameCopy)
	return nil
}

// Bytes returns the encoded Opus data in wire format (for server transfer).
func (s *StreamEncoder) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Bytes()
}

// OggBytes returns the encoded audio as a standard Ogg Opus file (playable
// by media players).
func (s *StreamEncoder) OggBytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return OggOpus(s.frames, s.sampleRate, s.frameSize, channels)
}

// EncodeOpus encodes float32 PCM samples to Opus wire format in one shot.
func EncodeOpus(samples []float32, sampleRate, bitrate int) ([]byte, error) {
	se, err := NewStreamEncoder(sampleRate, bitrate)
	if err != nil {
		return nil, err
	}
	if err := se.Write(samples); err != nil {
		return nil, err
	}
	if err := se.Flush(); err != nil {
		return nil, err
	}
	return se.Bytes(), nil
}

// DecodeOpus decodes a wire-format Opus stream back to float32 PCM samples.
func DecodeOpus(data []byte, sampleRate int) ([]float32, int32, error) {
	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, 0, fmt.Errorf("create decoder: %w", err)
	}

	r := bytes.NewReader(data)
	var samples []float32
	pcm := make([]float32, sampleRate/50)

	for {
		var frameLen uint16
		if err := binary.Read(r, binary.LittleEndian, &frameLen); err != nil {
			if err == io.EOF {
				break
			}
			return nil, 0, fmt.Errorf("read frame length: %w", err)
		}

		frame := make([]byte, frameLen)
		if _, err := io.ReadFull(r, frame); err != nil {
			return nil, 0, fmt.Errorf("read frame data: %w", err)
		}

		n, err := dec.DecodeFloat32(frame, pcm)
		if err != nil {
			return nil, 0, fmt.Errorf("decode frame: %w", err)
		}

		samples = append(samples, pcm[:n]...)
	}

	return samples, int32(sampleRate), nil
}
