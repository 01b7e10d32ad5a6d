// Package storage keeps uploaded invoice documents and payment proofs.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
	"unicode"
)

var (
	// ErrNotFound is returned when a stored file does not exist
	ErrNotFound = errors.New("file not found")
	// ErrRemote is returned by Open on stores that serve files by URL
	ErrRemote = errors.New("file is served from remote storage")
)

// FileStore is implemented by the local and S3 document stores
type FileStore interface {
	// Save stores data under a key built with KeyFor
	Save(ctx context.Context, key string, data []byte, contentType string) error
	// Open returns a reader for locally served files
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// URL returns a browser reachable location for remote files
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Name() string
}

// KeyFor builds a storage key from the upload time and the client filename
func KeyFor(now time.Time, prefix, filename string) string {
	return prefix + now.UTC().Format("20060102150405") + "_" + SanitizeFilename(filename)
}

// SanitizeFilename keeps ASCII letters, digits, dot, dash and underscore.
// Whitespace becomes an underscore and leading dots are dropped.
func SanitizeFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimLeft(b.String(), "._")
	if cleaned == "" {
		return "file"
	}
	return cleaned
}
