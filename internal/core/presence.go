package core

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chatter/internal/domain"
)

const presenceShards = 32

type presenceShard struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomPresence
}

// PresenceRegistry is the authoritative room -> members map.
// The shard lock only guards the room index; membership changes take the
// per-room lock, so join/leave on different rooms never block each other.
// Unknown rooms behave as empty sets and no operation fails.
type PresenceRegistry struct {
	shards [presenceShards]presenceShard
}

func NewPresenceRegistry() *PresenceRegistry {
	p := &PresenceRegistry{}
	for i := range p.shards {
		p.shards[i].rooms = make(map[domain.RoomID]*roomPresence)
	}
	return p
}

func (p *PresenceRegistry) shard(room domain.RoomID) *presenceShard {
	return &p.shards[xxhash.Sum64String(string(room))%presenceShards]
}

func (p *PresenceRegistry) lookup(room domain.RoomID) *roomPresence {
	s := p.shard(room)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[room]
}

func (p *PresenceRegistry) acquire(room domain.RoomID) *roomPresence {
	if rp := p.lookup(room); rp != nil {
		return rp
	}
	s := p.shard(room)
	s.mu.Lock()
	defer s.mu.Unlock()
	rp, ok := s.rooms[room]
	if !ok {
		rp = newRoomPresence()
		s.rooms[room] = rp
	}
	return rp
}

// Join adds m to the room and reports whether it was newly added.
// Joining twice is a no-op, not an error.
func (p *PresenceRegistry) Join(room domain.RoomID, m domain.MemberID) bool {
	for {
		added, live := p.acquire(room).add(m)
		if live {
			if added {
				log.Debug().Str("module", "core.presence").Str("room", string(room)).Str("member", string(m)).Msg("member added")
			}
			return added
		}
	}
}

// Leave removes m and reports whether the set actually changed.
func (p *PresenceRegistry) Leave(room domain.RoomID, m domain.MemberID) bool {
	rp := p.lookup(room)
	if rp == nil {
		return false
	}
	removed, empty := rp.remove(m)
	if removed && empty {
		p.retire(room, rp)
	}
	if removed {
		log.Debug().Str("module", "core.presence").Str("room", string(room)).Str("member", string(m)).Msg("member removed")
	}
	return removed
}

func (p *PresenceRegistry) retire(room domain.RoomID, rp *roomPresence) {
	s := p.shard(room)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rooms[room] != rp {
		return
	}
	if rp.retireIfEmpty() {
		delete(s.rooms, room)
	}
}

// Members returns a sorted snapshot; empty for unknown rooms.
func (p *PresenceRegistry) Members(room domain.RoomID) []domain.MemberID {
	rp := p.lookup(room)
	if rp == nil {
		return []domain.MemberID{}
	}
	return rp.snapshot()
}

func (p *PresenceRegistry) Count(room domain.RoomID) int {
	rp := p.lookup(room)
	if rp == nil {
		return 0
	}
	return rp.count()
}

func (p *PresenceRegistry) Contains(room domain.RoomID, m domain.MemberID) bool {
	rp := p.lookup(room)
	if rp == nil {
		return false
	}
	return rp.contains(m)
}

// Rooms lists rooms that currently have at least one member.
func (p *PresenceRegistry) Rooms() []domain.RoomID {
	var out []domain.RoomID
	for i := range p.shards {
		s := &p.shards[i]
		s.mu.RLock()
		for id, rp := range s.rooms {
			if rp.count() > 0 {
				out = append(out, id)
			}
		}
		s.mu.RUnlock()
	}
	return out
}
