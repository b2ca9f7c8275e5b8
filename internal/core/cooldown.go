package core

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dkeye/Chatter/internal/domain"
)

const (
	DefaultCooldown = 5 * time.Second
	cooldownShards  = 16
)

type cooldownKey struct {
	member domain.MemberID
	room   domain.RoomID
}

// limiterEntry is one (member, room) clock: a single-token bucket refilled
// once per cooldown, so a message is accepted iff a full window elapsed
// since the last accepted one.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type cooldownShard struct {
	mu      sync.Mutex
	entries map[cooldownKey]*limiterEntry
}

// Cooldown enforces a minimum interval between accepted messages of a
// non-owner member in one room.
type Cooldown struct {
	window time.Duration
	shards [cooldownShards]cooldownShard
}

func NewCooldown(window time.Duration) *Cooldown {
	if window <= 0 {
		window = DefaultCooldown
	}
	c := &Cooldown{window: window}
	for i := range c.shards {
		c.shards[i].entries = make(map[cooldownKey]*limiterEntry)
	}
	return c
}

func (c *Cooldown) Window() time.Duration { return c.window }

func (c *Cooldown) shard(k cooldownKey) *cooldownShard {
	h := xxhash.New()
	_, _ = h.WriteString(string(k.member))
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(string(k.room))
	return &c.shards[h.Sum64()%cooldownShards]
}

// Allow reports whether member may post in room at now. Owners are always
// allowed and leave no state behind. A rejection never moves the clock.
func (c *Cooldown) Allow(member domain.MemberID, room domain.RoomID, isOwner bool, now time.Time) bool {
	if isOwner {
		return true
	}
	k := cooldownKey{member: member, room: room}
	s := c.shard(k)

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[k]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Every(c.window), 1)}
		s.entries[k] = e
	}
	if !e.limiter.AllowN(now, 1) {
		return false
	}
	e.lastSeen = now
	return true
}

// Sweep drops entries whose last accepted message is older than both the
// window and idle. Such an entry behaves exactly like an absent one.
func (c *Cooldown) Sweep(now time.Time, idle time.Duration) int {
	idle = max(idle, c.window)
	threshold := now.Add(-idle)
	dropped := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		for k, e := range s.entries {
			if e.lastSeen.Before(threshold) {
				delete(s.entries, k)
				dropped++
			}
		}
		s.mu.Unlock()
	}
	if dropped > 0 {
		log.Debug().Str("module", "core.cooldown").Int("dropped", dropped).Msg("cooldown entries swept")
	}
	return dropped
}

// Len is the number of tracked (member, room) clocks.
func (c *Cooldown) Len() int {
	n := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}
