package encode

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBase64RoundTrip(t *testing.T) {
	original := []byte("hello")
	encoded := EncodeBase64String(original)
	decoded, err := DecodeBase64String(encoded)
	require.NoError(t, err)
	require.Equal(t, original, decoded)
}

func TestBase64RoundTripAllByteValues(t *testing.T) {
	for size := 0; size <= 5; size++ {
		original := make([]byte, 0, 256*size)
		for i := 0; i < size; i++ {
			for b := 0; b < 256; b++ {
				original = append(original, byte(b))
			}
		}
		decoded, err := DecodeBase64String(EncodeBase64String(original))
		require.NoError(t, err)
		require.True(t, bytes.Equal(original, decoded))
	}
}

func TestBase64RoundTripOddLengths(t *testing.T) {
	for _, in := range [][]byte{{}, {0}, {0xff, 0x00}, {1, 2, 3}, {0x89, 'P', 'N', 'G'}} {
		decoded, err := DecodeBase64String(EncodeBase64String(in))
		require.NoError(t, err)
		require.True(t, bytes.Equal(in, decoded))
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeBase64String("not base64!!")
	require.Error(t, err)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestEncodeBase64ReaderSurfacesReadFailure(t *testing.T) {
	_, err := EncodeBase64Reader(failingReader{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "read image")
	require.Contains(t, err.Error(), "disk gone")
}

func TestEncodeBase64Reader(t *testing.T) {
	encoded, err := EncodeBase64Reader(bytes.NewReader([]byte("hello")))
	require.NoError(t, err)
	require.Equal(t, "aGVsbG8=", encoded)
}
