// Package store holds the current funnel of an editing session together with
// its mutation metadata.
package store

import (
	"sync"
	"time"

	"github.com/boron/funnel-service/internal/funnel"
)

// Metadata tracks the lifecycle of the current document. The zero value is the
// unset state.
type Metadata struct {
	CreatedAt    *time.Time `json:"createdAt"`
	LastModified *time.Time `json:"lastModified"`
	Iterations   int        `json:"iterations"`
}

// Snapshot is a point-in-time copy of a store.
type Snapshot struct {
	Document *funnel.Document `json:"funnel"`
	Metadata Metadata         `json:"metadata"`
}

// Store owns one current document (or none) and its metadata.
//
// Mutations referencing a missing block leave the blocks as they are but still
// bump lastModified; out-of-range reorders leave everything untouched. Without
// a document every mutation is a no-op. The Store does not validate what it is
// given; callers pass documents produced by the schema package or blocks built
// from the catalog.
type Store struct {
	mu    sync.RWMutex
	doc   *funnel.Document
	meta  Metadata
	clock func() time.Time
}

type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.clock = now }
}

func New(opts ...Option) *Store {
	s := &Store{clock: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) now() *time.Time {
	t := s.clock().UTC()
	return &t
}

// SetDocument replaces the whole document. createdAt is set on the first call
// only; every call bumps lastModified and iterations. A nil doc is ignored.
func (s *Store) SetDocument(doc *funnel.Document) {
	if doc == nil {
		return
	}
	cp := doc.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.doc = cp
	if s.meta.CreatedAt == nil {
		s.meta.CreatedAt = now
	}
	s.meta.LastModified = now
	s.meta.Iterations++
}

// UpdateBlockProps shallow-merges patch into the props of the block with
// blockID and bumps lastModified, even when no block matches. It returns
// funnel.ErrInvalidPatch, leaving document and metadata unchanged, when the
// merged payload does not fit the block's shape.
func (s *Store) UpdateBlockProps(blockID string, patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil
	}
	i := s.doc.IndexOf(blockID)
	if i < 0 {
		s.touch()
		return nil
	}
	b := &s.doc.Blocks[i]
	merged, err := funnel.MergeProps(b.Type, b.Props, patch)
	if err != nil {
		return err
	}
	b.Props = merged
	s.touch()
	return nil
}

// DeleteBlock removes every block with id and bumps lastModified. Duplicate
// ids are a rule error, so removal does not stop at the first match.
func (s *Store) DeleteBlock(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return
	}
	kept := s.doc.Blocks[:0:0]
	for _, b := range s.doc.Blocks {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	if len(kept) != len(s.doc.Blocks) {
		s.doc.Blocks = kept
	}
	s.touch()
}

// ReorderBlocks moves the block at from to position to, keeping the relative
// order of the others.
func (s *Store) ReorderBlocks(from, to int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return
	}
	n := len(s.doc.Blocks)
	if from < 0 || from >= n || to < 0 || to >= n {
		return
	}
	if from == to {
		return
	}
	blocks := s.doc.Blocks
	moved := blocks[from]
	if from < to {
		copy(blocks[from:to], blocks[from+1:to+1])
	} else {
		copy(blocks[to+1:from+1], blocks[to:from])
	}
	blocks[to] = moved
	s.touch()
}

// InsertBlock appends block.
func (s *Store) InsertBlock(block funnel.Block) {
	s.insert(block, -1)
}

// InsertBlockAt inserts block at index. Indexes past either end are clamped.
func (s *Store) InsertBlockAt(block funnel.Block, index int) {
	if index < 0 {
		index = 0
	}
	s.insert(block, index)
}

func (s *Store) insert(block funnel.Block, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return
	}
	block = block.Clone()
	if index < 0 || index >= len(s.doc.Blocks) {
		s.doc.Blocks = append(s.doc.Blocks, block)
	} else {
		s.doc.Blocks = append(s.doc.Blocks, funnel.Block{})
		copy(s.doc.Blocks[index+1:], s.doc.Blocks[index:])
		s.doc.Blocks[index] = block
	}
	s.touch()
}

// Clear discards the document and resets metadata.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = nil
	s.meta = Metadata{}
}

// Document returns a copy of the current document, or nil.
func (s *Store) Document() *funnel.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

func (s *Store) Metadata() Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta
}

// Snapshot returns the document and metadata as read under one lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Document: s.doc.Clone(), Metadata: s.meta}
}

// Restore replaces document and metadata verbatim, e.g. when rehydrating a
// session. It does not count as an iteration.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = snap.Document.Clone()
	s.meta = snap.Metadata
}

func (s *Store) touch() {
	s.meta.LastModified = s.now()
}
