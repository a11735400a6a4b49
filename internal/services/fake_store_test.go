package services

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/yungbote/coursefront-backend/internal/platform/contentstore"
)

// memStore is an in-memory contentstore.Store that counts calls and can
// inject failures per operation.
type memStore struct {
	mu     sync.Mutex
	files  map[string][]byte
	calls  map[string]int
	writes []string
	trail  []string
	fail   func(op, p string) error
}

func newMemStore() *memStore {
	return &memStore{files: map[string][]byte{}, calls: map[string]int{}}
}

func (m *memStore) put(p string, b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[p] = b
}

func (m *memStore) get(p string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[p]
	return b, ok
}

func (m *memStore) count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *memStore) writtenPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

// note appends a marker to the operation trail.
func (m *memStore) note(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trail = append(m.trail, s)
}

func (m *memStore) ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.trail...)
}

func (m *memStore) setFail(fn func(op, p string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fn
}

func version(b []byte) string {
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}

func (m *memStore) enter(op, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	m.trail = append(m.trail, op+" "+p)
	if m.fail != nil {
		return m.fail(op, p)
	}
	return nil
}

func (m *memStore) ListDirectory(ctx context.Context, dir string) ([]contentstore.Entry, error) {
	if err := m.enter("list", dir); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]contentstore.Entry{}
	for p, b := range m.files {
		if !strings.HasPrefix(p, dir+"/") {
			continue
		}
		rest := strings.TrimPrefix(p, dir+"/")
		if i := strings.Index(rest, "/"); i >= 0 {
			seen[rest[:i]] = contentstore.Entry{Name: rest[:i], Path: dir + "/" + rest[:i], Type: contentstore.EntryTypeDir}
			continue
		}
		seen[rest] = contentstore.Entry{Name: path.Base(p), Path: p, Type: contentstore.EntryTypeFile, Version: version(b)}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("list %q: %w", dir, contentstore.ErrNotFound)
	}
	out := make([]contentstore.Entry, 0, len(seen))
	for _, e := range seen {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) ReadFile(ctx context.Context, p string) (*contentstore.File, error) {
	if err := m.enter("read", p); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[p]
	if !ok {
		return nil, fmt.Errorf("read %q: %w", p, contentstore.ErrNotFound)
	}
	return &contentstore.File{Path: p, Content: append([]byte(nil), b...), Version: version(b)}, nil
}

func (m *memStore) WriteFile(ctx context.Context, p string, content []byte, expectedVersion string) (string, error) {
	if err := m.enter("write", p); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if expectedVersion != "" {
		cur, ok := m.files[p]
		if !ok || version(cur) != expectedVersion {
			return "", contentstore.ErrVersionConflict
		}
	}
	m.files[p] = append([]byte(nil), content...)
	m.writes = append(m.writes, p)
	return version(content), nil
}

func transient(op, p string) error {
	return &contentstore.TransientError{Op: op, Path: p, StatusCode: 503}
}
