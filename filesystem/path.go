package filesystem

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidPath is returned for paths that cannot name a file.
var ErrInvalidPath = errors.New("invalid path")

// Normalizer turns a user-supplied path into the canonical form used as a key.
type Normalizer interface {
	Normalize(path string) (string, error)
}

// AbsNormalizer makes paths absolute and clean, relative to the working
// directory.
type AbsNormalizer struct{}

// Normalize returns the absolute, cleaned form of path.
func (AbsNormalizer) Normalize(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	if strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidPath, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	return abs, nil
}

// NormalizerFunc adapts a function to Normalizer.
type NormalizerFunc func(path string) (string, error)

// Normalize calls f(path).
func (f NormalizerFunc) Normalize(path string) (string, error) {
	return f(path)
}
