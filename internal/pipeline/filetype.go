package pipeline

import (
	"mime"
	"path/filepath"
	"strings"
)

// AllowedExtensions are the accepted video container extensions.
var AllowedExtensions = map[string]bool{
	".mp4": true,
	".mov": true,
	".avi": true,
}

// AllowedMediaTypes are the accepted declared media types.
var AllowedMediaTypes = map[string]bool{
	"video/mp4":       true,
	"video/quicktime": true,
	"video/x-msvideo": true,
	"video/avi":       true,
	"video/msvideo":   true,
}

// checkFile applies the type and size constraints to one incoming file.
func checkFile(f File, maxBytes int64) error {
	ext := strings.ToLower(filepath.Ext(f.Name))
	mediaType, _, err := mime.ParseMediaType(f.ContentType)
	if err != nil {
		mediaType = ""
	}
	if !AllowedExtensions[ext] || !AllowedMediaTypes[strings.ToLower(mediaType)] {
		return inputError(ErrUnsupportedType, "Only video files (MP4, MOV, AVI) are allowed!")
	}
	if maxBytes > 0 && f.Size > maxBytes {
		return inputError(ErrTooLarge, "File %s exceeds the %d MB limit", f.Name, maxBytes>>20)
	}
	return nil
}
