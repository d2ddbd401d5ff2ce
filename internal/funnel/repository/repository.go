// Package repository persists funnels as rows keyed by funnel id.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("funnel not found")
	ErrAlreadyExists = errors.New("funnel already exists")
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Record is one stored funnel. FunnelData is the serialized document exactly
// as accepted by the schema package.
type Record struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	FunnelData  json.RawMessage `json:"funnel_data"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}

func (r *Record) clone() *Record {
	cp := *r
	cp.FunnelData = append(json.RawMessage(nil), r.FunnelData...)
	if r.PublishedAt != nil {
		t := *r.PublishedAt
		cp.PublishedAt = &t
	}
	return &cp
}

// Update lists the fields to change; nil fields are left alone.
type Update struct {
	Name        *string
	FunnelData  json.RawMessage
	Status      *Status
	PublishedAt *time.Time
}

// Repository stores funnel records. Create fills CreatedAt (when zero) and
// UpdatedAt; every Update refreshes UpdatedAt. List returns newest first and
// filters by status unless status is empty.
type Repository interface {
	Create(ctx context.Context, r *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, status Status) ([]*Record, error)
	Update(ctx context.Context, id string, u Update) (*Record, error)
	Delete(ctx context.Context, id string) error
}

func now() time.Time {
	// millisecond precision survives every backend unchanged
	return time.Now().UTC().Truncate(time.Millisecond)
}

func stamp(r *Record) {
	n := now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = n
	} else {
		r.CreatedAt = r.CreatedAt.UTC().Truncate(time.Millisecond)
	}
	r.UpdatedAt = n
	if r.Status == "" {
		r.Status = StatusDraft
	}
}
