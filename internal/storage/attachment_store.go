// Package storage implements the attachment blob store: an opaque store
// keyed by claim id, holding at most one supporting document per claim.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// AttachmentStore persists claim attachments on local disk under
// <root>/<claimID>/<storedName>. The stored name is generated to avoid
// collisions; the original filename is kept on the claim record instead.
type AttachmentStore struct {
	root string
}

// NewAttachmentStore builds a store rooted at the given directory.
func NewAttachmentStore(root string) *AttachmentStore {
	return &AttachmentStore{root: root}
}

// Save validates the document rules and writes the bytes, returning the
// generated stored name.
func (s *AttachmentStore) Save(claimID, originalName string, data []byte) (string, error) {
	if !ExtensionAllowed(originalName) {
		return "", fmt.Errorf("attachment type not allowed: %s", filepath.Ext(originalName))
	}
	if TooLarge(int64(len(data))) {
		return "", fmt.Errorf("attachment exceeds %d bytes", MaxAttachmentBytes)
	}

	dir := filepath.Join(s.root, claimID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create attachment dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	storedName := strings.ReplaceAll(uuid.NewString(), "-", "") + ext
	path := filepath.Join(dir, storedName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return storedName, nil
}

// Open returns the stored bytes for a claim's attachment.
func (s *AttachmentStore) Open(claimID, storedName string) ([]byte, error) {
	// Stored names are generated server-side; reject anything that could
	// escape the claim's directory.
	if storedName != filepath.Base(storedName) {
		return nil, fmt.Errorf("invalid stored name: %s", storedName)
	}
	return os.ReadFile(filepath.Join(s.root, claimID, storedName))
}
