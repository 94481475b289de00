package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildWAVHeaderFields(t *testing.T) {
	samples := []int16{0, 1000, -1000}
	wav := BuildWAV(samples, 24000)

	require.Len(t, wav, 50)
	require.Equal(t, "RIFF", string(wav[0:4]))
	require.Equal(t, uint32(36+6), binary.LittleEndian.Uint32(wav[4:8]))
	require.Equal(t, "WAVE", string(wav[8:12]))
	require.Equal(t, "fmt ", string(wav[12:16]))
	require.Equal(t, uint32(16), binary.LittleEndian.Uint32(wav[16:20]))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[20:22]))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]))
	require.Equal(t, uint32(24000), binary.LittleEndian.Uint32(wav[24:28]))
	require.Equal(t, uint32(48000), binary.LittleEndian.Uint32(wav[28:32]))
	require.Equal(t, uint16(2), binary.LittleEndian.Uint16(wav[32:34]))
	require.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:36]))
	require.Equal(t, "data", string(wav[36:40]))
	require.Equal(t, uint32(6), binary.LittleEndian.Uint32(wav[40:44]))

	require.Equal(t, []byte{0x00, 0x00}, wav[44:46])
	require.Equal(t, []byte{0xE8, 0x03}, wav[46:48])
	require.Equal(t, []byte{0x18, 0xFC}, wav[48:50])
}

func TestBuildWAVLengthAndBody(t *testing.T) {
	rates := []int{1, 8000, 16000, 22050, 24000, 44100, 48000, 96000}
	for _, rate := range rates {
		for _, n := range []int{0, 1, 2, 17, 480} {
			samples := make([]int16, n)
			for i := range samples {
				samples[i] = int16((i*7919)%65536 - 32768)
			}

			wav := BuildWAV(samples, rate)
			require.Len(t, wav, HeaderSize+2*n)
			require.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]))
			require.Equal(t, uint32(rate), binary.LittleEndian.Uint32(wav[24:28]))

			for i, s := range samples {
				got := int16(binary.LittleEndian.Uint16(wav[HeaderSize+2*i:]))
				require.Equal(t, s, got, "sample %d at rate %d", i, rate)
			}
		}
	}
}

func TestBuildWAVExtremeSamples(t *testing.T) {
	wav := BuildWAV([]int16{math.MinInt16, math.MaxInt16, -1}, 8000)
	require.Equal(t, []byte{0x00, 0x80, 0xFF, 0x7F, 0xFF, 0xFF}, wav[HeaderSize:])
}

func TestBuildWAVDoesNotValidateRate(t *testing.T) {
	wav := BuildWAV([]int16{1}, 0)
	require.Len(t, wav, HeaderSize+2)
	require.Equal(t, uint32(0), binary.LittleEndian.Uint32(wav[24:28]))

	wav = BuildWAV([]int16{1}, -1)
	require.Equal(t, uint32(math.MaxUint32), binary.LittleEndian.Uint32(wav[24:28]))
}

func TestInspectWAV(t *testing.T) {
	samples := make([]int16, 24000)
	info, err := InspectWAV(BuildWAV(samples, 24000))
	require.NoError(t, err)
	require.Equal(t, uint32(24000), info.SampleRate)
	require.Equal(t, uint16(1), info.Channels)
	require.Equal(t, uint16(16), info.BitsPerSample)
	require.Equal(t, uint32(24000), info.NumSamples)
	require.InDelta(t, 1.0, info.Duration, 0.0001)
}

func TestInspectWAVRejectsShortOrForeignData(t *testing.T) {
	_, err := InspectWAV([]byte{1, 2, 3})
	require.Error(t, err)

	fake := make([]byte, 50)
	copy(fake[0:4], "FAKE")
	_, err = InspectWAV(fake)
	require.Error(t, err)
}
