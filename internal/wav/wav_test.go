package wav

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 0.99, -0.99, 0.001}
	data := Encode(in, 16000)

	out, sampleRate, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, int32(16000), sampleRate)
	require.Len(t, out, len(in))
	for i := range in {
		assert.InDelta(t, float64(in[i]), float64(out[i]), 1e-3)
	}
}

func TestEncodeClips(t *testing.T) {
	data := Encode([]float32{2.0, -2.0}, 16000)
	out, _, err := Decode(data)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, float64(out[0]), 1e-3)
	assert.InDelta(t, -1.0, float64(out[1]), 1e-3)
}

func TestEncodeEmpty(t *testing.T) {
	data := Encode(nil, 16000)
	out, sampleRate, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, int32(16000), sampleRate)
	assert.Empty(t, out)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, _, err := Decode([]byte("not audio"))
	assert.Error(t, err)

	_, _, err = Decode(make([]byte, 100))
	assert.Error(t, err)
}

func TestDecodeRejectsNonPCM(t *testing.T) {
	data := Encode([]float32{0.1, 0.2}, 16000)
	// Flip the audio format field to IEEE float.
	binary.LittleEndian.PutUint16(data[20:], 3)
	_, _, err := Decode(data)
	assert.ErrorContains(t, err, "only PCM")
}

func TestDecodeStereoAveragesToMono(t *testing.T) {
	// Hand-built stereo WAV: two frames, L/R at different levels.
	var buf []byte
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, 36+8)
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint16(buf, 2)
	buf = binary.LittleEndian.AppendUint32(buf, 48000)
	buf = binary.LittleEndian.AppendUint32(buf, 48000*4)
	buf = binary.LittleEndian.AppendUint16(buf, 4)
	buf = binary.LittleEndian.AppendUint16(buf, 16)
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, 8)
	for _, s := range []int16{16384, -16384, 8192, 8192} {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(s))
	}

	out, sampleRate, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, int32(48000), sampleRate)
	require.Len(t, out, 2)
	assert.InDelta(t, 0.0, float64(out[0]), 1e-4)
	assert.InDelta(t, 0.25, float64(out[1]), 1e-4)
}

func TestDecodeSkipsExtraChunks(t *testing.T) {
	data := Encode([]float32{0.25}, 16000)

	// Splice a LIST chunk between the header and the fmt chunk.
	var spliced []byte
	spliced = append(spliced, data[:12]...)
	spliced = append(spliced, "LIST"...)
	spliced = binary.LittleEndian.AppendUint32(spliced, 4)
	spliced = append(spliced, "INFO"...)
	spliced = append(spliced, data[12:]...)
	binary.LittleEndian.PutUint32(spliced[4:], uint32(len(spliced)-8))

	out, _, err := Decode(spliced)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.25, float64(out[0]), 1e-3)
}

func TestDuration(t *testing.T) {
	assert.Equal(t, time.Second, Duration(16000, 16000))
	assert.Equal(t, 500*time.Millisecond, Duration(8000, 16000))
	assert.Equal(t, time.Duration(0), Duration(100, 0))
}
