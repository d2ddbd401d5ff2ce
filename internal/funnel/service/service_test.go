package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/boron/funnel-service/internal/funnel/repository"
	"github.com/boron/funnel-service/internal/funnel/schema"
	"github.com/boron/funnel-service/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	pages map[string][]byte
	err   error
}

func (f *fakePublisher) PublishPage(_ context.Context, id string, page []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.pages == nil {
		f.pages = map[string][]byte{}
	}
	f.pages[id] = page
	return "https://cdn.example.com/funnels/" + id + "/index.html", nil
}

func seeded(t *testing.T, opts ...Option) (Service, repository.Repository) {
	t.Helper()
	repo := repository.NewMemoryRepo()
	svc := New(repo, opts...)
	doc, err := schema.ParseJSON([]byte(testutil.FullFunnelJSON))
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), doc)
	require.NoError(t, err)
	return svc, repo
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc, _ := seeded(t)

	f, err := svc.Get(ctx, testutil.FunnelID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusDraft, f.Status)
	assert.Len(t, f.Document.Blocks, 14)
	assert.Equal(t, f.Document.Name, f.Name)

	doc := f.Document.Clone()
	_, err = svc.Create(ctx, doc)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGet_CorruptData(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	require.NoError(t, repo.Create(ctx, &repository.Record{ID: "bad", Name: "Bad", FunnelData: json.RawMessage(`{"id":"bad"}`)}))

	_, err := New(repo).Get(ctx, "bad")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSaveAndRename(t *testing.T) {
	ctx := context.Background()
	svc, _ := seeded(t)

	f, err := svc.Get(ctx, testutil.FunnelID)
	require.NoError(t, err)
	doc := f.Document
	doc.Blocks = doc.Blocks[:3]
	doc.Name = "Trimmed"

	saved, err := svc.Save(ctx, testutil.FunnelID, doc)
	require.NoError(t, err)
	assert.Equal(t, "Trimmed", saved.Name)
	assert.Len(t, saved.Document.Blocks, 3)

	other := doc.Clone()
	other.ID = uuid.NewString()
	_, err = svc.Save(ctx, testutil.FunnelID, other)
	assert.ErrorIs(t, err, ErrIDMismatch)

	renamed, err := svc.Rename(ctx, testutil.FunnelID, "  Spring launch ")
	require.NoError(t, err)
	assert.Equal(t, "Spring launch", renamed.Name)
	assert.Equal(t, "Spring launch", renamed.Document.Name)

	_, err = svc.Rename(ctx, testutil.FunnelID, " ")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestWritesRejectInvalidDocuments(t *testing.T) {
	ctx := context.Background()
	svc, repo := seeded(t)

	f, err := svc.Get(ctx, testutil.FunnelID)
	require.NoError(t, err)
	empty := f.Document.Clone()
	empty.Blocks = nil

	_, err = svc.Save(ctx, testutil.FunnelID, empty)
	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "blocks", verr.Issues[0].Path)

	empty.ID = uuid.NewString()
	_, err = svc.Create(ctx, empty)
	require.ErrorAs(t, err, &verr)
	_, err = repo.Get(ctx, empty.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.Create(ctx, nil)
	require.ErrorAs(t, err, &verr)

	// the stored row is unchanged and still loads
	got, err := svc.Get(ctx, testutil.FunnelID)
	require.NoError(t, err)
	assert.Len(t, got.Document.Blocks, 14)
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	svc, _ := seeded(t, WithPublisher(pub), WithClock(func() time.Time { return at }))

	f, err := svc.Publish(ctx, testutil.FunnelID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusPublished, f.Status)
	require.NotNil(t, f.PublishedAt)
	assert.True(t, at.Equal(*f.PublishedAt))
	assert.True(t, strings.HasSuffix(f.PageURL, testutil.FunnelID+"/index.html"))
	assert.Contains(t, string(pub.pages[testutil.FunnelID]), `data-block-id="cta-1"`)

	list, err := svc.List(ctx, repository.StatusPublished)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestPublish_UploadFailureKeepsStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := seeded(t, WithPublisher(&fakePublisher{err: errors.New("bucket gone")}))

	_, err := svc.Publish(ctx, testutil.FunnelID)
	require.Error(t, err)
	f, err := svc.Get(ctx, testutil.FunnelID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusDraft, f.Status)
	assert.Nil(t, f.PublishedAt)
}

func TestPublish_WithoutPublisher(t *testing.T) {
	svc, _ := seeded(t)
	f, err := svc.Publish(context.Background(), testutil.FunnelID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusPublished, f.Status)
	assert.Empty(t, f.PageURL)
}

func TestArchiveAndList(t *testing.T) {
	ctx := context.Background()
	svc, _ := seeded(t)

	f, err := svc.Archive(ctx, testutil.FunnelID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusArchived, f.Status)

	drafts, err := svc.List(ctx, repository.StatusDraft)
	require.NoError(t, err)
	assert.Empty(t, drafts)
	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, _ := seeded(t)
	orig, err := svc.Get(ctx, testutil.FunnelID)
	require.NoError(t, err)

	cp, err := svc.Duplicate(ctx, testutil.FunnelID)
	require.NoError(t, err)
	assert.NotEqual(t, testutil.FunnelID, cp.ID)
	_, err = uuid.Parse(cp.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Copy of "+orig.Name, cp.Name)
	assert.Equal(t, cp.ID, cp.Document.ID)
	assert.Equal(t, repository.StatusDraft, cp.Status)
	assert.Equal(t, orig.Document.Blocks, cp.Document.Blocks)

	// the copy is itself valid and retrievable
	got, err := svc.Get(ctx, cp.ID)
	require.NoError(t, err)
	assert.Equal(t, cp.Name, got.Document.Name)

	_, err = svc.Duplicate(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := seeded(t)
	require.NoError(t, svc.Delete(ctx, testutil.FunnelID))
	assert.ErrorIs(t, svc.Delete(ctx, testutil.FunnelID), ErrNotFound)
}
