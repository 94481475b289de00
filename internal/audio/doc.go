// Package audio turns synthesized speech payloads into playable WAV clips.
// It covers the three steps between a remote TTS response and a player:
// reading the sample rate from the payload media type, reinterpreting raw
// little-endian PCM bytes as 16-bit samples, and wrapping the samples in a
// canonical 44-byte RIFF/WAVE header.
package audio
