// Package speech reads text aloud: it requests synthesized audio, wraps the raw
// PCM in a WAV container and hands it to a Player, allowing one playback at a time.
package speech
