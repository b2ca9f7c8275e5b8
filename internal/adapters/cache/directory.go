// Package cache puts a Redis cache-aside layer in front of the room directory.
package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/dkeye/Chatter/internal/app"
	"github.com/dkeye/Chatter/internal/domain"
)

const DefaultPrefix = "chatter:room:"

// Stats counts cache outcomes.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Errors uint64 `json:"errors"`
}

// entry is the cached form of a room. Gen is the room's deletion generation
// at the time the store was read; an entry from an older generation is stale.
type entry struct {
	Gen  uint64      `json:"gen"`
	Room domain.Room `json:"room"`
}

// Directory serves room lookups from Redis and falls back to next.
// Redis failures never fail a lookup; they only cost a trip to next.
//
// Every Delete bumps the room's generation before touching the store, so a
// fill that read the store before the delete can never be served afterwards.
type Directory struct {
	app.RoomStore

	client *redis.Client
	prefix string
	ttl    time.Duration
	group  singleflight.Group
	stats  Stats

	mu   sync.Mutex
	gens map[domain.RoomID]uint64
}

func New(client *redis.Client, next app.RoomStore, ttl time.Duration) *Directory {
	return &Directory{
		RoomStore: next,
		client:    client,
		prefix:    DefaultPrefix,
		ttl:       ttl,
		gens:      make(map[domain.RoomID]uint64),
	}
}

func (d *Directory) key(id domain.RoomID) string { return d.prefix + string(id) }

func (d *Directory) generation(id domain.RoomID) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gens[id]
}

func (d *Directory) bump(id domain.RoomID) {
	d.mu.Lock()
	d.gens[id]++
	d.mu.Unlock()
}

func (d *Directory) Room(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	gen := d.generation(id)
	if r, ok := d.get(ctx, id, gen); ok {
		return r, nil
	}
	// Callers arriving after a delete must not share a fill started before it.
	v, err, _ := d.group.Do(string(id)+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		r, err := d.RoomStore.Room(ctx, id)
		if err != nil {
			return nil, err
		}
		d.fill(ctx, r, gen)
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	r := *v.(*domain.Room)
	return &r, nil
}

// Delete removes the room from the store first, then from the cache.
func (d *Directory) Delete(ctx context.Context, id domain.RoomID) error {
	d.bump(id)
	if err := d.RoomStore.Delete(ctx, id); err != nil {
		return err
	}
	if err := d.client.Del(ctx, d.key(id)).Err(); err != nil {
		atomic.AddUint64(&d.stats.Errors, 1)
		log.Warn().Err(err).Str("module", "cache").Str("room", string(id)).Msg("invalidate room")
	}
	return nil
}

func (d *Directory) Stats() Stats {
	return Stats{
		Hits:   atomic.LoadUint64(&d.stats.Hits),
		Misses: atomic.LoadUint64(&d.stats.Misses),
		Errors: atomic.LoadUint64(&d.stats.Errors),
	}
}

func (d *Directory) get(ctx context.Context, id domain.RoomID, gen uint64) (*domain.Room, bool) {
	data, err := d.client.Get(ctx, d.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			atomic.AddUint64(&d.stats.Misses, 1)
			return nil, false
		}
		atomic.AddUint64(&d.stats.Errors, 1)
		log.Warn().Err(err).Str("module", "cache").Str("room", string(id)).Msg("cache get")
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		atomic.AddUint64(&d.stats.Errors, 1)
		log.Warn().Err(err).Str("module", "cache").Str("room", string(id)).Msg("cache decode")
		return nil, false
	}
	if e.Gen != gen {
		atomic.AddUint64(&d.stats.Misses, 1)
		log.Debug().Str("module", "cache").Str("room", string(id)).Msg("stale entry ignored")
		return nil, false
	}
	atomic.AddUint64(&d.stats.Hits, 1)
	return &e.Room, true
}

// fill caches r under the generation read before the store lookup and drops
// the entry again if a delete overtook it.
func (d *Directory) fill(ctx context.Context, r *domain.Room, gen uint64) {
	data, err := json.Marshal(entry{Gen: gen, Room: *r})
	if err == nil {
		err = d.client.Set(ctx, d.key(r.ID), data, d.ttl).Err()
	}
	if err != nil {
		atomic.AddUint64(&d.stats.Errors, 1)
		log.Warn().Err(err).Str("module", "cache").Str("room", string(r.ID)).Msg("cache set")
		return
	}
	if d.generation(r.ID) != gen {
		if err := d.client.Del(ctx, d.key(r.ID)).Err(); err != nil {
			atomic.AddUint64(&d.stats.Errors, 1)
			log.Warn().Err(err).Str("module", "cache").Str("room", string(r.ID)).Msg("drop overtaken entry")
		}
	}
}
