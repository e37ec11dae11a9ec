package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// Memory is an in-process Storage for local development and tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, r io.Reader, _ int64, opts ...Option) (*FileInfo, error) {
	o := collect(opts)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	ct := o.contentType
	if ct == "" {
		ct = DetectContentType(data)
	}
	if err := checkRules(int64(len(data)), ct, o.rules); err != nil {
		return nil, err
	}
	key, err := o.objectKey(ct)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.objects[key] = bytes.Clone(data)
	m.mu.Unlock()

	return &FileInfo{Key: key, ContentType: ct, Size: int64(len(data))}, nil
}

func (m *Memory) Get(_ context.Context, key string) (io.ReadCloser, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	data, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Len reports how many objects are stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

var _ Storage = (*Memory)(nil)
