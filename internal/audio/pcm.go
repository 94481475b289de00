package audio

import (
	"encoding/binary"
	"fmt"
	"mime"
	"strconv"
	"strings"
)

// SamplesFromPCM reinterprets little-endian byte pairs as signed 16-bit samples.
// A trailing odd byte is dropped.
func SamplesFromPCM(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// ParseSampleRate extracts the rate parameter from an audio media type,
// e.g. "audio/L16;codec=pcm;rate=24000".
func ParseSampleRate(mediaType string) (int, error) {
	raw := strings.TrimSpace(mediaType)
	if raw == "" {
		return 0, fmt.Errorf("audio payload has no media type")
	}

	base, params, err := mime.ParseMediaType(raw)
	if err != nil {
		// Providers are not always RFC-clean (e.g. "audio/L16; rate=24000;").
		base, params = parseLoose(raw)
	}
	if !strings.HasPrefix(strings.ToLower(base), "audio/") {
		return 0, fmt.Errorf("payload media type %q is not audio", raw)
	}

	value, ok := params["rate"]
	if !ok || value == "" {
		return 0, fmt.Errorf("audio media type %q has no rate parameter", raw)
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("audio media type %q has malformed rate %q", raw, value)
		}
	}
	rate, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("audio media type %q has malformed rate %q: %w", raw, value, err)
	}
	return rate, nil
}

func parseLoose(raw string) (string, map[string]string) {
	parts := strings.Split(raw, ";")
	params := make(map[string]string, len(parts))
	for _, part := range parts[1:] {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		params[strings.ToLower(strings.TrimSpace(key))] = strings.Trim(strings.TrimSpace(value), `"`)
	}
	return strings.TrimSpace(parts[0]), params
}
