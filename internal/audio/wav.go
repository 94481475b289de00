package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	// HeaderSize is the size of the canonical PCM WAV header.
	HeaderSize = 44

	numChannels   = 1
	bitsPerSample = 16
	pcmFormat     = 1
	fmtChunkSize  = 16
)

// WAVHeader represents the header structure of a WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

func newHeader(sampleCount, sampleRate int) WAVHeader {
	dataSize := uint32(sampleCount * bitsPerSample / 8)
	// The rate is written as given; a non-positive rate keeps its uint32 bit pattern.
	rate := uint32(sampleRate)
	return WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: fmtChunkSize,
		AudioFormat:   pcmFormat,
		NumChannels:   numChannels,
		SampleRate:    rate,
		ByteRate:      rate * numChannels * bitsPerSample / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

func (h WAVHeader) put(dst []byte) {
	le := binary.LittleEndian
	copy(dst[0:4], h.ChunkID[:])
	le.PutUint32(dst[4:8], h.ChunkSize)
	copy(dst[8:12], h.Format[:])
	copy(dst[12:16], h.Subchunk1ID[:])
	le.PutUint32(dst[16:20], h.Subchunk1Size)
	le.PutUint16(dst[20:22], h.AudioFormat)
	le.PutUint16(dst[22:24], h.NumChannels)
	le.PutUint32(dst[24:28], h.SampleRate)
	le.PutUint32(dst[28:32], h.ByteRate)
	le.PutUint16(dst[32:34], h.BlockAlign)
	le.PutUint16(dst[34:36], h.BitsPerSample)
	copy(dst[36:40], h.Subchunk2ID[:])
	le.PutUint32(dst[40:44], h.Subchunk2Size)
}

// BuildWAV wraps mono 16-bit PCM samples in a WAV container.
// The result is always HeaderSize + 2*len(samples) bytes long.
func BuildWAV(samples []int16, sampleRate int) []byte {
	out := make([]byte, HeaderSize+len(samples)*2)
	newHeader(len(samples), sampleRate).put(out[:HeaderSize])

	body := out[HeaderSize:]
	for i, s := range samples {
		binary.LittleEndian.PutUint16(body[i*2:], uint16(s))
	}
	return out
}

// WAVInfo describes a decoded WAV header.
type WAVInfo struct {
	SampleRate    uint32  `json:"sample_rate"`
	Channels      uint16  `json:"channels"`
	BitsPerSample uint16  `json:"bits_per_sample"`
	Duration      float64 `json:"duration_seconds"`
	DataSize      uint32  `json:"data_size_bytes"`
	NumSamples    uint32  `json:"num_samples"`
}

// InspectWAV reads back the header of a clip produced by BuildWAV.
func InspectWAV(data []byte) (*WAVInfo, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("WAV data too short: need at least %d bytes, got %d", HeaderSize, len(data))
	}

	var header WAVHeader
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read WAV header: %w", err)
	}

	if string(header.ChunkID[:]) != "RIFF" {
		return nil, fmt.Errorf("invalid WAV file: missing RIFF header")
	}
	if string(header.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("invalid WAV file: missing WAVE format")
	}
	if string(header.Subchunk1ID[:]) != "fmt " {
		return nil, fmt.Errorf("invalid WAV file: missing fmt chunk")
	}
	if string(header.Subchunk2ID[:]) != "data" {
		return nil, fmt.Errorf("invalid WAV file: missing data chunk")
	}
	if header.BitsPerSample == 0 {
		return nil, fmt.Errorf("invalid WAV file: zero bits per sample")
	}

	info := &WAVInfo{
		SampleRate:    header.SampleRate,
		Channels:      header.NumChannels,
		BitsPerSample: header.BitsPerSample,
		DataSize:      header.Subchunk2Size,
		NumSamples:    header.Subchunk2Size / (uint32(header.BitsPerSample) / 8),
	}
	if header.SampleRate > 0 {
		info.Duration = float64(info.NumSamples) / float64(header.SampleRate)
	}
	return info, nil
}
