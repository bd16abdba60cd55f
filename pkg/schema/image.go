package schema

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ImageRef is an opaque handle to a still image. Generated images and
// uploads are carried as data URLs so they can be persisted as-is.
type ImageRef string

// Supported upload MIME types.
const (
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimeWEBP = "image/webp"
)

// ErrUnsupportedMimeType is returned for uploads the image models cannot read.
var ErrUnsupportedMimeType = errors.New("unsupported MIME type")

const dataURLPrefix = "data:"

// IsSupportedMimeType reports whether mime can be sent to the image models.
func IsSupportedMimeType(mime string) bool {
	switch mime {
	case MimePNG, MimeJPEG, MimeWEBP:
		return true
	}
	return false
}

// EncodeDataURL converts raw image bytes into a durable data URL reference.
func EncodeDataURL(mime string, data []byte) (ImageRef, error) {
	if !IsSupportedMimeType(mime) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMimeType, mime)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty image data")
	}
	return ImageRef(dataURLPrefix + mime + ";base64," + base64.StdEncoding.EncodeToString(data)), nil
}

// DecodeDataURL splits a data URL reference into its MIME type and bytes.
func DecodeDataURL(ref ImageRef) (string, []byte, error) {
	s := string(ref)
	if !strings.HasPrefix(s, dataURLPrefix) {
		return "", nil, fmt.Errorf("not a data URL")
	}

	header, payload, ok := strings.Cut(strings.TrimPrefix(s, dataURLPrefix), ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URL: missing payload")
	}

	mime, encoding, _ := strings.Cut(header, ";")
	if encoding != "base64" {
		return "", nil, fmt.Errorf("malformed data URL: expected base64 encoding")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URL: %w", err)
	}
	return mime, data, nil
}

// MimeType returns the MIME type embedded in a data URL, or "" for other references.
func (r ImageRef) MimeType() string {
	s := string(r)
	if !strings.HasPrefix(s, dataURLPrefix) {
		return ""
	}
	header, _, _ := strings.Cut(strings.TrimPrefix(s, dataURLPrefix), ",")
	mime, _, _ := strings.Cut(header, ";")
	return mime
}

// IsZero reports whether the reference is empty.
func (r ImageRef) IsZero() bool {
	return r == ""
}

// Short returns a printable abbreviation of the reference for logs and tables.
func (r ImageRef) Short() string {
	if len(r) <= 32 {
		return string(r)
	}
	return string(r[:29]) + "..."
}
