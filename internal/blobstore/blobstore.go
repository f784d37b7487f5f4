// Package blobstore holds record ciphertexts by name. Backends: a local
// directory, process memory, and S3-compatible object storage.
package blobstore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/medkeeper/internal/common"
)

// Store is a flat namespace of immutable blobs.
type Store interface {
	// Put stores data under name, replacing any previous blob.
	Put(ctx context.Context, name string, data []byte) error
	// Get returns the blob, or common.ErrFileNotFound.
	Get(ctx context.Context, name string) ([]byte, error)
	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
}

// ValidateName rejects names that are empty or would escape a flat namespace.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: blob name %q", common.ErrInvalidInput, name)
	}
	return nil
}
