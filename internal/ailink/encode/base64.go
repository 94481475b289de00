package encode

import (
	"encoding/base64"
	"fmt"
	"io"
)

func DecodeBase64String(value string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(value)
}

func EncodeBase64String(value []byte) string {
	return base64.StdEncoding.EncodeToString(value)
}

// EncodeBase64Reader reads the whole source and returns its base64 form.
func EncodeBase64Reader(r io.Reader) (string, error) {
	if r == nil {
		return "", fmt.Errorf("read image: no source")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	return EncodeBase64String(data), nil
}
