package store

import (
	"context"
	"sync"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/boron/funnel-service/internal/funnel"
	"github.com/boron/funnel-service/internal/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T, ttl time.Duration) (*RedisSnapshotRepository, *mr.Miniredis) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		m.Close()
	})
	return NewRedisSnapshotRepository(client, "test:funnel:", ttl), m
}

func TestSessions_LocalOnly(t *testing.T) {
	ctx := context.Background()
	sess := NewSessions(nil)

	a, err := sess.Get(ctx, "a")
	require.NoError(t, err)
	b, err := sess.Get(ctx, "b")
	require.NoError(t, err)
	require.NotSame(t, a, b)

	again, err := sess.Get(ctx, "a")
	require.NoError(t, err)
	require.Same(t, a, again)

	a.SetDocument(testutil.Blocks(testutil.Callout("x")))
	assert.Nil(t, b.Document())
	require.NoError(t, sess.Persist(ctx, "a"))

	require.NoError(t, sess.Drop(ctx, "a"))
	assert.Equal(t, 1, sess.Len())
}

func TestRedisSnapshotRepository_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRedisRepo(t, time.Minute)

	got, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	require.Nil(t, got)

	st := New()
	st.SetDocument(testutil.Blocks(testutil.Callout("a"), testutil.CTA("b")))
	require.NoError(t, repo.Save(ctx, "s1", st.Snapshot()))

	got, err = repo.Load(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Metadata.Iterations)
	require.Len(t, got.Document.Blocks, 2)
	assert.IsType(t, &funnel.AddToCartButtonProps{}, got.Document.Blocks[1].Props)

	require.NoError(t, repo.Delete(ctx, "s1"))
	got, err = repo.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisSnapshotRepository_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	repo, m := newRedisRepo(t, time.Second)

	st := New()
	st.SetDocument(testutil.Blocks(testutil.Callout("a")))
	require.NoError(t, repo.Save(ctx, "s1", st.Snapshot()))

	m.FastForward(2 * time.Second)
	got, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessions_RehydrateFromRedis(t *testing.T) {
	ctx := context.Background()
	repo, m := newRedisRepo(t, time.Hour)

	first := NewSessions(repo)
	st, err := first.Get(ctx, "s1")
	require.NoError(t, err)
	st.SetDocument(testutil.Blocks(testutil.Callout("a"), testutil.CTA("b")))
	st.ReorderBlocks(0, 1)
	require.NoError(t, first.Persist(ctx, "s1"))
	require.True(t, m.Exists("test:funnel:s1"))

	// a second process sees the same session state
	second := NewSessions(repo)
	restored, err := second.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, st.Snapshot(), restored.Snapshot())

	// clearing and persisting removes the stored snapshot
	restored.Clear()
	require.NoError(t, second.Persist(ctx, "s1"))
	assert.False(t, m.Exists("test:funnel:s1"))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestSessions_IdleEviction(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	sess := NewSessions(nil, WithIdleTTL(time.Hour), WithSessionClock(clock.Now))

	for _, sid := range []string{"a", "b", "c"} {
		_, err := sess.Get(ctx, sid)
		require.NoError(t, err)
	}
	require.Equal(t, 3, sess.Len())

	clock.Add(40 * time.Minute)
	_, err := sess.Get(ctx, "a")
	require.NoError(t, err)

	clock.Add(30 * time.Minute)
	_, err = sess.Find(ctx, "zzz")
	require.NoError(t, err)
	assert.Equal(t, 1, sess.Len(), "b and c idle past the TTL")
}

func TestSessions_MaxSessionsEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	sess := NewSessions(nil, WithMaxSessions(2), WithSessionClock(clock.Now))

	a, err := sess.Get(ctx, "a")
	require.NoError(t, err)
	clock.Add(time.Second)
	_, err = sess.Get(ctx, "b")
	require.NoError(t, err)
	clock.Add(time.Second)
	again, err := sess.Get(ctx, "a")
	require.NoError(t, err)
	require.Same(t, a, again)
	clock.Add(time.Second)

	_, err = sess.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 2, sess.Len())

	st, err := sess.Find(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, st, "b was least recently used")
	st, err = sess.Find(ctx, "a")
	require.NoError(t, err)
	assert.Same(t, a, st)
}

func TestSessions_FindDoesNotRegister(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRedisRepo(t, time.Hour)
	sess := NewSessions(repo)

	st, err := sess.Find(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, st)
	assert.Equal(t, 0, sess.Len())

	stored := New()
	stored.SetDocument(testutil.Blocks(testutil.CTA("b")))
	require.NoError(t, repo.Save(ctx, "known", stored.Snapshot()))

	st, err = sess.Find(ctx, "known")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, 1, sess.Len())
}

type blockingRepo struct {
	release chan struct{}
	entered chan string
}

func (r *blockingRepo) Load(ctx context.Context, sid string) (*Snapshot, error) {
	if sid == "slow" {
		r.entered <- sid
		<-r.release
	}
	return nil, nil
}

func (r *blockingRepo) Save(context.Context, string, Snapshot) error { return nil }
func (r *blockingRepo) Delete(context.Context, string) error        { return nil }

func TestSessions_LoadDoesNotBlockOtherSessions(t *testing.T) {
	ctx := context.Background()
	repo := &blockingRepo{release: make(chan struct{}), entered: make(chan string, 1)}
	sess := NewSessions(repo)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := sess.Get(ctx, "slow")
		assert.NoError(t, err)
	}()
	<-repo.entered

	fast := make(chan struct{})
	go func() {
		defer close(fast)
		_, err := sess.Get(ctx, "fast")
		assert.NoError(t, err)
	}()
	select {
	case <-fast:
	case <-time.After(2 * time.Second):
		t.Fatal("Get for another session waited on a pending load")
	}

	close(repo.release)
	<-done
	assert.Equal(t, 2, sess.Len())
}

func TestSessions_ConcurrentGetSharesStore(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRedisRepo(t, time.Hour)
	sess := NewSessions(repo)

	const n = 8
	got := make([]*Store, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st, err := sess.Get(ctx, "shared")
			assert.NoError(t, err)
			got[i] = st
		}(i)
	}
	wg.Wait()

	final, err := sess.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, 1, sess.Len())
	for _, st := range got {
		assert.Same(t, final, st)
	}
}
