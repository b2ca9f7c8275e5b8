package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Chatter/internal/app"
	"github.com/dkeye/Chatter/internal/core"
	"github.com/dkeye/Chatter/internal/domain"
)

func setupTestDirectory(t *testing.T, rooms ...domain.Room) (*Directory, *redis.Client) {
	t.Helper()
	return setupTestDirectoryOver(t, app.NewMemoryRooms(rooms...))
}

func setupTestDirectoryOver(t *testing.T, next app.RoomStore) (*Directory, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, next, time.Minute), client
}

func room(id domain.RoomID, owner domain.MemberID) domain.Room {
	r, _ := domain.NewRoom(id, "room", owner, "")
	return *r
}

func TestDirectoryCacheAside(t *testing.T) {
	d, client := setupTestDirectory(t, room("r1", "alice"))
	ctx := context.Background()

	r, err := d.Room(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.MemberID("alice"), r.OwnerID)
	assert.EqualValues(t, 1, d.Stats().Misses)

	exists, err := client.Exists(ctx, d.key("r1")).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, exists)

	_, err = d.Room(ctx, "r1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, d.Stats().Hits)
}

func TestDirectoryDeleteInvalidates(t *testing.T) {
	d, _ := setupTestDirectory(t, room("r1", "alice"))
	ctx := context.Background()

	_, err := d.Room(ctx, "r1")
	require.NoError(t, err)
	require.NoError(t, d.Delete(ctx, "r1"))

	_, err = d.Room(ctx, "r1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDirectoryNotFoundIsNotCached(t *testing.T) {
	d, client := setupTestDirectory(t)
	ctx := context.Background()

	_, err := d.Room(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	n, err := client.Exists(ctx, d.key("ghost")).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDirectoryConcurrentMisses(t *testing.T) {
	d, _ := setupTestDirectory(t, room("r1", "alice"))
	ctx := context.Background()

	var wg sync.WaitGroup
	for _i := 0; _i < 20; _i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := d.Room(ctx, "r1")
			assert.NoError(t, err)
			assert.Equal(t, domain.RoomID("r1"), r.ID)
		}()
	}
	wg.Wait()
}

func TestDirectoryFallsThroughWhenRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	d := New(client, app.NewMemoryRooms(room("r1", "alice")), time.Minute)

	r, err := d.Room(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.MemberID("alice"), r.OwnerID)
	require.NoError(t, d.Delete(context.Background(), "r1"))
	assert.NotZero(t, d.Stats().Errors)
}

// gatedRooms parks the next Room lookup until released.
type gatedRooms struct {
	app.RoomStore
	entered chan struct{}
	release chan struct{}
	armed   atomic.Bool
}

func (g *gatedRooms) Room(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	r, err := g.RoomStore.Room(ctx, id)
	if g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		<-g.release
	}
	return r, err
}

func TestDirectoryDeleteWinsOverInflightFill(t *testing.T) {
	store := &gatedRooms{
		RoomStore: app.NewMemoryRooms(room("r2", "carol")),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	store.armed.Store(true)
	d, client := setupTestDirectoryOver(t, store)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := d.Room(ctx, "r2")
		done <- err
	}()
	select {
	case <-store.entered:
	case <-time.After(time.Second):
		t.Fatal("fill never reached the store")
	}

	require.NoError(t, d.Delete(ctx, "r2"))
	close(store.release)
	require.NoError(t, <-done, "the lookup that started first still sees the room")

	ok, err := core.Exists(ctx, d, "r2")
	require.NoError(t, err)
	assert.False(t, ok, "deleted room must not resolve through the cache")

	n, err := client.Exists(ctx, d.key("r2")).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDirectoryIgnoresEntryFromOlderGeneration(t *testing.T) {
	d, client := setupTestDirectory(t, room("r1", "alice"))
	ctx := context.Background()

	_, err := d.Room(ctx, "r1")
	require.NoError(t, err)
	d.bump("r1")

	exists, err := client.Exists(ctx, d.key("r1")).Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, exists)

	_, err = d.Room(ctx, "r1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, d.Stats().Hits)
	assert.EqualValues(t, 2, d.Stats().Misses)
}
