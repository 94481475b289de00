package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/corona10/goimagehash"
	_ "golang.org/x/image/webp" // register decoder
)

// DefaultMaxBytes bounds uploads when no limit is configured.
const DefaultMaxBytes int64 = 20 << 20

var (
	ErrEmpty    = errors.New("image is empty")
	ErrTooLarge = errors.New("image exceeds size limit")
	ErrNotImage = errors.New("not a supported image")
)

var supportedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// Asset is a selected image held in memory together with what intake learned
// about it. It is replaced wholesale when another image is selected.
type Asset struct {
	Name        string  `json:"name"`
	MIMEType    string  `json:"mime_type"`
	Size        int     `json:"size"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Fingerprint string  `json:"fingerprint,omitempty"`
	Rights      *Rights `json:"rights,omitempty"`
	Data        []byte  `json:"-"`
}

// Options configures intake.
type Options struct {
	MaxBytes int64
}

func (o Options) maxBytes() int64 {
	if o.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return o.MaxBytes
}

// Load validates data as a supported image and describes it.
//
// The media type comes from content sniffing, never from the file name.
// Fingerprint and rights extraction degrade gracefully: a failure leaves the
// field empty rather than rejecting the image.
func Load(name string, data []byte, opts Options) (*Asset, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if int64(len(data)) > opts.maxBytes() {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, len(data), opts.maxBytes())
	}

	mimeType := http.DetectContentType(data)
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	if !supportedTypes[mimeType] {
		return nil, fmt.Errorf("%w: detected %s", ErrNotImage, mimeType)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	asset := &Asset{
		Name:     filepath.Base(strings.TrimSpace(name)),
		MIMEType: mimeType,
		Size:     len(data),
		Width:    cfg.Width,
		Height:   cfg.Height,
		Rights:   ExtractRights(data, mimeType),
		Data:     data,
	}
	if asset.Name == "." || asset.Name == "/" {
		asset.Name = ""
	}

	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		if hash, err := goimagehash.DifferenceHash(img); err == nil {
			asset.Fingerprint = hash.ToString()
		}
	}

	return asset, nil
}

// Open reads and loads an image file, reading at most the configured limit.
func Open(path string, opts Options) (*Asset, error) {
	f, err := os.Open(path) // #nosec G304 -- path is an explicit CLI argument
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	defer f.Close() // nolint:errcheck // read-only handle

	data, err := io.ReadAll(io.LimitReader(f, opts.maxBytes()+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return Load(path, data, opts)
}

// Distance returns the Hamming distance between two fingerprints produced by Load.
func Distance(a, b string) (int, error) {
	ha, err := goimagehash.ImageHashFromString(a)
	if err != nil {
		return 0, fmt.Errorf("parse fingerprint: %w", err)
	}
	hb, err := goimagehash.ImageHashFromString(b)
	if err != nil {
		return 0, fmt.Errorf("parse fingerprint: %w", err)
	}
	return ha.Distance(hb)
}
