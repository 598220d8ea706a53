package storage

import (
	"path/filepath"
	"strings"
)

// MaxAttachmentBytes caps supporting documents at 10 MiB.
const MaxAttachmentBytes = 10 * 1024 * 1024

var allowedExtensions = map[string]struct{}{
	".pdf":  {},
	".docx": {},
	".xlsx": {},
}

// ExtensionAllowed reports whether the file's extension is an accepted
// supporting-document type. The check is case-insensitive.
func ExtensionAllowed(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	_, ok := allowedExtensions[ext]
	return ok
}

// TooLarge reports whether the upload exceeds the size cap.
func TooLarge(sizeBytes int64) bool {
	return sizeBytes > MaxAttachmentBytes
}
