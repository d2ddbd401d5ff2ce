package repository

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(id, name string) *Record {
	return &Record{ID: id, Name: name, FunnelData: json.RawMessage(`{"id":"` + id + `","blocks":[]}`)}
}

// exercise runs the behaviour every Repository implementation shares.
func exercise(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("crud", func(t *testing.T) {
		r := newRepo(t)
		rec := newRecord("a", "First")
		require.NoError(t, r.Create(ctx, rec))
		assert.Equal(t, StatusDraft, rec.Status)
		assert.False(t, rec.CreatedAt.IsZero())

		got, err := r.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "First", got.Name)
		assert.JSONEq(t, string(rec.FunnelData), string(got.FunnelData))
		assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
		assert.Nil(t, got.PublishedAt)

		name := "Renamed"
		updated, err := r.Update(ctx, "a", Update{Name: &name, FunnelData: json.RawMessage(`{"id":"a","blocks":[{"id":"x"}]}`)})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Name)
		assert.JSONEq(t, `{"id":"a","blocks":[{"id":"x"}]}`, string(updated.FunnelData))
		assert.False(t, updated.UpdatedAt.Before(got.UpdatedAt))

		require.NoError(t, r.Delete(ctx, "a"))
		_, err = r.Get(ctx, "a")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("missing", func(t *testing.T) {
		r := newRepo(t)
		_, err := r.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = r.Update(ctx, "nope", Update{})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, r.Delete(ctx, "nope"), ErrNotFound)
	})

	t.Run("duplicate", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Create(ctx, newRecord("dup", "one")))
		assert.ErrorIs(t, r.Create(ctx, newRecord("dup", "two")), ErrAlreadyExists)
	})

	t.Run("publish", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Create(ctx, newRecord("p", "Page")))
		st := StatusPublished
		at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		got, err := r.Update(ctx, "p", Update{Status: &st, PublishedAt: &at})
		require.NoError(t, err)
		assert.Equal(t, StatusPublished, got.Status)
		require.NotNil(t, got.PublishedAt)
		assert.True(t, at.Equal(*got.PublishedAt))
	})

	t.Run("list", func(t *testing.T) {
		r := newRepo(t)
		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		for i, id := range []string{"old", "mid", "new"} {
			rec := newRecord(id, id)
			rec.CreatedAt = base.Add(time.Duration(i) * time.Hour)
			require.NoError(t, r.Create(ctx, rec))
		}
		archived := StatusArchived
		_, err := r.Update(ctx, "mid", Update{Status: &archived})
		require.NoError(t, err)

		all, err := r.List(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"new", "mid", "old"}, ids(all))

		drafts, err := r.List(ctx, StatusDraft)
		require.NoError(t, err)
		assert.Equal(t, []string{"new", "old"}, ids(drafts))

		none, err := r.List(ctx, StatusPublished)
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("returns copies", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Create(ctx, newRecord("c", "Copy")))
		got, err := r.Get(ctx, "c")
		require.NoError(t, err)
		got.Name = "mutated"
		got.FunnelData[0] = '['
		again, err := r.Get(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, "Copy", again.Name)
		assert.JSONEq(t, `{"id":"c","blocks":[]}`, string(again.FunnelData))
	})
}

func ids(rs []*Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestMemoryRepo(t *testing.T) {
	exercise(t, func(*testing.T) Repository { return NewMemoryRepo() })
}

func TestSQLiteRepo(t *testing.T) {
	exercise(t, func(t *testing.T) Repository {
		r, err := NewSQLiteRepo(context.Background(), ":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { r.Close() })
		return r
	})
}

func TestSQLiteRepo_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "funnels.db")

	r, err := NewSQLiteRepo(ctx, path)
	require.NoError(t, err)
	require.NoError(t, r.Create(ctx, newRecord("keep", "Kept")))
	require.NoError(t, r.Close())

	r, err = NewSQLiteRepo(ctx, path)
	require.NoError(t, err)
	defer r.Close()
	got, err := r.Get(ctx, "keep")
	require.NoError(t, err)
	assert.Equal(t, "Kept", got.Name)
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusDraft.Valid())
	assert.True(t, StatusArchived.Valid())
	assert.False(t, Status("deleted").Valid())
	assert.False(t, Status("").Valid())
}
