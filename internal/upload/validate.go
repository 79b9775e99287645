// Package upload validates user images and routes them to a storage provider.
package upload

import (
	"fmt"
	"strings"

	"github.com/img2prompt/service/internal/apperr"
)

// MaxFileSize is the largest accepted upload, 10 MiB.
const MaxFileSize = 10 << 20

// File describes an upload candidate.
type File struct {
	Name        string
	ContentType string
	Size        int64
}

// Validate accepts images up to MaxFileSize and returns a ValidationError otherwise.
func Validate(f File) error {
	if !strings.HasPrefix(f.ContentType, "image/") {
		return apperr.NewValidation(fmt.Sprintf("unsupported file type %q: only images are allowed", f.ContentType))
	}
	if f.Size > MaxFileSize {
		return apperr.NewValidation(fmt.Sprintf("file is too large: %d bytes exceeds the 10 MiB limit", f.Size))
	}
	return nil
}
