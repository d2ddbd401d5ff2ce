package repository

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and single-process runs.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*Record
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*Record)}
}

func (m *MemoryRepo) Create(_ context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[r.ID]; ok {
		return ErrAlreadyExists
	}
	stamp(r)
	m.store[r.ID] = r.clone()
	return nil
}

func (m *MemoryRepo) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.store[id]; ok {
		return r.clone(), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) List(_ context.Context, status Status) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Record, 0, len(m.store))
	for _, r := range m.store {
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, r.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryRepo) Update(_ context.Context, id string, u Update) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.FunnelData != nil {
		r.FunnelData = append([]byte(nil), u.FunnelData...)
	}
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.PublishedAt != nil {
		t := u.PublishedAt.UTC().Truncate(time.Millisecond)
		r.PublishedAt = &t
	}
	r.UpdatedAt = now()
	return r.clone(), nil
}

func (m *MemoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}
