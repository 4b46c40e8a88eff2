package function

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

var ErrNoFile = errors.New("no such file")

// FileStore keeps uploads and execution outputs under slash-separated paths.
type FileStore interface {
	Put(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	Prune(ctx context.Context, before time.Time) (int, error)
}

type storedFile struct {
	data []byte
	at   time.Time
}

type MemoryFiles struct {
	mu    sync.RWMutex
	files map[string]storedFile
	now   func() time.Time
}

func NewMemoryFiles() *MemoryFiles {
	return &MemoryFiles{files: make(map[string]storedFile), now: time.Now}
}

func (m *MemoryFiles) Put(_ context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = storedFile{data: slices.Clone(data), at: m.now()}
	return nil
}

func (m *MemoryFiles) Get(_ context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[path]
	if !ok {
		return nil, ErrNoFile
	}
	return f.data, nil
}

func (m *MemoryFiles) Prune(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for p, f := range m.files {
		if f.at.Before(before) {
			delete(m.files, p)
			n++
		}
	}
	return n, nil
}
