package tasks

import (
	"fmt"

	"fitroom/pkg/schema"
)

// validateImage rejects empty references and data URLs the models cannot read.
func validateImage(field string, img schema.ImageRef) error {
	if img.IsZero() {
		return fmt.Errorf("%s image is required", field)
	}
	if mime := img.MimeType(); mime != "" && !schema.IsSupportedMimeType(mime) {
		return fmt.Errorf("%s: %w: %s", field, schema.ErrUnsupportedMimeType, mime)
	}
	return nil
}
