// Package contentstore is a small client over a versioned "contents" API:
// list, read and write files by path, with an opaque version token used for
// optimistic concurrency. Nothing is cached locally; every call is a remote
// round trip and reflects whatever the store currently serves.
package contentstore

import (
	"context"
	"path"
	"strings"
)

type EntryType string

const (
	EntryTypeFile EntryType = "file"
	EntryTypeDir  EntryType = "dir"
)

type Entry struct {
	Name    string
	Path    string
	Type    EntryType
	Version string
}

type File struct {
	Path    string
	Content []byte
	Version string
}

type Store interface {
	// ListDirectory returns ErrNotFound when dir does not exist. An empty,
	// non-nil slice is a valid and distinct result.
	ListDirectory(ctx context.Context, dir string) ([]Entry, error)
	// ReadFile returns ErrNotFound when the file is absent.
	ReadFile(ctx context.Context, filePath string) (*File, error)
	// WriteFile writes unconditionally when expectedVersion is empty.
	// A stale expectedVersion yields ErrVersionConflict.
	WriteFile(ctx context.Context, filePath string, content []byte, expectedVersion string) (string, error)
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}
