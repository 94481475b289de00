// Package imaging handles image intake: content sniffing, dimension decoding,
// perceptual fingerprints and embedded rights metadata.
package imaging
