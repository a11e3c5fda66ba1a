// Package blob stores rendered documents and uploaded screenshots under flat
// keys, either in a local directory or in an S3 bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/workdoc/workdoc/internal/model"
)

// ErrInvalidKey is returned for keys that could escape the store's namespace.
var ErrInvalidKey = fmt.Errorf("invalid key: %w", model.ErrValidation)

// ErrExists is returned by Create when the key is already taken.
var ErrExists = fmt.Errorf("object %w", model.ErrConflict)

// Store is a flat key/value object store.
type Store interface {
	// Put writes data under key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Create writes data under key only if key is absent, and fails with
	// ErrExists otherwise. The check and the write are one atomic step.
	Create(ctx context.Context, key string, data []byte, contentType string) error
	// Open returns a reader for key. A missing key returns model.ErrNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ValidateKey rejects empty keys, path separators, and dot segments.
func ValidateKey(key string) error {
	switch {
	case key == "", key == ".", key == "..":
		return ErrInvalidKey
	case strings.ContainsAny(key, `/\`), strings.Contains(key, ".."), strings.ContainsRune(key, 0):
		return ErrInvalidKey
	}
	return nil
}

// ReadAll opens key and reads it fully.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// IsExists reports whether err means Create found the key taken.
func IsExists(err error) bool {
	return errors.Is(err, ErrExists)
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, model.ErrNotFound)
}
