package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/boron/funnel-service/internal/funnel"
	"github.com/boron/funnel-service/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type storeFakeClock struct {
	t time.Time
}

func (c *storeFakeClock) now() time.Time { return c.t }

func (c *storeFakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newStore(t *testing.T) (*Store, *storeFakeClock) {
	t.Helper()
	c := &storeFakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(WithClock(c.now)), c
}

func ids(doc *funnel.Document) []string {
	out := make([]string, len(doc.Blocks))
	for i, b := range doc.Blocks {
		out[i] = b.ID
	}
	return out
}

func seeded(t *testing.T) (*Store, *storeFakeClock) {
	s, c := newStore(t)
	s.SetDocument(testutil.Blocks(testutil.Callout("a"), testutil.Text("b", "x"), testutil.CTA("c"), testutil.Reviews("d")))
	c.advance(time.Minute)
	return s, c
}

func TestSetDocument_Metadata(t *testing.T) {
	s, c := newStore(t)
	require.Nil(t, s.Document())
	require.Equal(t, Metadata{}, s.Metadata())

	s.SetDocument(testutil.Blocks(testutil.Callout("a")))
	first := s.Metadata()
	require.NotNil(t, first.CreatedAt)
	assert.Equal(t, c.t, *first.CreatedAt)
	assert.Equal(t, c.t, *first.LastModified)
	assert.Equal(t, 1, first.Iterations)

	c.advance(time.Hour)
	s.SetDocument(testutil.Blocks(testutil.CTA("b")))
	second := s.Metadata()
	assert.Equal(t, *first.CreatedAt, *second.CreatedAt)
	assert.Equal(t, c.t, *second.LastModified)
	assert.Equal(t, 2, second.Iterations)
	assert.Equal(t, []string{"b"}, ids(s.Document()))
}

func TestSetDocument_NilIgnored(t *testing.T) {
	s, _ := newStore(t)
	s.SetDocument(nil)
	assert.Nil(t, s.Document())
	assert.Equal(t, 0, s.Metadata().Iterations)
}

func TestSetDocument_CopiesInput(t *testing.T) {
	s, _ := newStore(t)
	doc := testutil.Blocks(testutil.Callout("a"))
	s.SetDocument(doc)
	doc.Blocks[0].ID = "changed"
	assert.Equal(t, []string{"a"}, ids(s.Document()))

	out := s.Document()
	out.Blocks = nil
	assert.Len(t, s.Document().Blocks, 1)
}

func TestUpdateBlockProps(t *testing.T) {
	s, c := seeded(t)
	require.NoError(t, s.UpdateBlockProps("c", map[string]any{"text": "Buy today"}))

	cta := s.Document().Blocks[2].Props.(*funnel.AddToCartButtonProps)
	assert.Equal(t, "Buy today", cta.Text)
	assert.Equal(t, "#", cta.Link)

	meta := s.Metadata()
	assert.Equal(t, c.t, *meta.LastModified)
	assert.Equal(t, 1, meta.Iterations)
}

func TestUpdateBlockProps_MissTouchesOnlyLastModified(t *testing.T) {
	s, c := seeded(t)
	before := s.Snapshot()
	require.NoError(t, s.UpdateBlockProps("nope", map[string]any{"text": "x"}))
	after := s.Snapshot()
	assert.Equal(t, before.Document, after.Document)
	assert.Equal(t, before.Metadata.CreatedAt, after.Metadata.CreatedAt)
	assert.Equal(t, before.Metadata.Iterations, after.Metadata.Iterations)
	assert.Equal(t, c.t, *after.Metadata.LastModified)
}

func TestUpdateBlockProps_InvalidPatchLeavesDocument(t *testing.T) {
	s, _ := seeded(t)
	before := s.Snapshot()
	err := s.UpdateBlockProps("c", map[string]any{"bogus": true})
	require.True(t, errors.Is(err, funnel.ErrInvalidPatch))
	assert.Equal(t, before, s.Snapshot())
}

func TestDeleteBlock(t *testing.T) {
	s, c := seeded(t)
	s.DeleteBlock("b")
	assert.Equal(t, []string{"a", "c", "d"}, ids(s.Document()))
	assert.Equal(t, c.t, *s.Metadata().LastModified)

	c.advance(time.Minute)
	before := s.Metadata()
	s.DeleteBlock("missing")
	assert.Equal(t, []string{"a", "c", "d"}, ids(s.Document()))
	assert.Equal(t, before.Iterations, s.Metadata().Iterations)
	assert.Equal(t, c.t, *s.Metadata().LastModified)
}

func TestDeleteBlock_RemovesDuplicates(t *testing.T) {
	s, _ := newStore(t)
	s.SetDocument(testutil.Blocks(testutil.Callout("x"), testutil.CTA("y"), testutil.Text("x", "dup")))
	s.DeleteBlock("x")
	assert.Equal(t, []string{"y"}, ids(s.Document()))
}

func TestReorderBlocks(t *testing.T) {
	cases := []struct {
		from, to int
		want     []string
	}{
		{0, 3, []string{"b", "c", "d", "a"}},
		{3, 0, []string{"d", "a", "b", "c"}},
		{1, 2, []string{"a", "c", "b", "d"}},
		{2, 1, []string{"a", "c", "b", "d"}},
	}
	for _, tc := range cases {
		s, c := seeded(t)
		s.ReorderBlocks(tc.from, tc.to)
		assert.Equal(t, tc.want, ids(s.Document()), "%d->%d", tc.from, tc.to)
		assert.Equal(t, c.t, *s.Metadata().LastModified)
		assert.Equal(t, 1, s.Metadata().Iterations)
	}
}

func TestReorderBlocks_SameIndexIsIdempotent(t *testing.T) {
	s, _ := seeded(t)
	before := s.Snapshot()
	for i := 0; i < 4; i++ {
		s.ReorderBlocks(i, i)
		assert.Equal(t, before, s.Snapshot())
	}
}

func TestReorderBlocks_OutOfRangeIsNoop(t *testing.T) {
	s, _ := seeded(t)
	before := s.Snapshot()
	for _, p := range [][2]int{{-1, 0}, {0, 4}, {4, 0}, {0, -1}, {10, 20}} {
		s.ReorderBlocks(p[0], p[1])
	}
	assert.Equal(t, before, s.Snapshot())
}

func TestInsertBlock(t *testing.T) {
	s, c := seeded(t)
	s.InsertBlock(testutil.CTA("e"))
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(s.Document()))
	assert.Equal(t, c.t, *s.Metadata().LastModified)

	s.InsertBlockAt(testutil.Text("f", "x"), 1)
	assert.Equal(t, []string{"a", "f", "b", "c", "d", "e"}, ids(s.Document()))

	s.InsertBlockAt(testutil.Text("g", "x"), 0)
	s.InsertBlockAt(testutil.Text("h", "x"), 99)
	s.InsertBlockAt(testutil.Text("i", "x"), -5)
	assert.Equal(t, []string{"i", "g", "a", "f", "b", "c", "d", "e", "h"}, ids(s.Document()))
	assert.Equal(t, 1, s.Metadata().Iterations)
}

func TestInsertBlock_TrustsCaller(t *testing.T) {
	s, _ := seeded(t)
	s.InsertBlock(testutil.Unknown("u"))
	doc := s.Document()
	assert.Equal(t, funnel.Tag("UnknownBlockType"), doc.Blocks[4].Type)
}

func TestClear(t *testing.T) {
	s, _ := seeded(t)
	s.Clear()
	assert.Nil(t, s.Document())
	assert.Equal(t, Metadata{}, s.Metadata())

	s.SetDocument(testutil.Blocks(testutil.Callout("a")))
	assert.Equal(t, 1, s.Metadata().Iterations)
}

func TestMutationsWithoutDocumentAreNoops(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.UpdateBlockProps("a", map[string]any{"text": "x"}))
	s.DeleteBlock("a")
	s.ReorderBlocks(0, 1)
	s.InsertBlock(testutil.CTA("a"))
	s.InsertBlockAt(testutil.CTA("a"), 0)
	s.Clear()
	assert.Nil(t, s.Document())
	assert.Equal(t, Metadata{}, s.Metadata())
}

func TestRestore(t *testing.T) {
	s, _ := seeded(t)
	snap := s.Snapshot()

	other, _ := newStore(t)
	other.Restore(snap)
	assert.Equal(t, snap, other.Snapshot())
}

func TestConcurrentMutations(t *testing.T) {
	s := New()
	s.SetDocument(testutil.Blocks(testutil.Callout("a"), testutil.Text("b", "x"), testutil.CTA("c")))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				switch (i + j) % 4 {
				case 0:
					s.ReorderBlocks(0, 2)
				case 1:
					_ = s.UpdateBlockProps("b", map[string]any{"content": "y"})
				case 2:
					_ = s.Snapshot()
				case 3:
					s.SetDocument(testutil.Blocks(testutil.Callout("a"), testutil.Text("b", "x"), testutil.CTA("c")))
				}
			}
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Len(t, snap.Document.Blocks, 3)
	assert.Greater(t, snap.Metadata.Iterations, 1)
}
