package core

import (
	"sync"

	"github.com/dkeye/Chatter/internal/domain"
)

type roomLock struct {
	mu   sync.Mutex
	refs int
}

// RoomLocks hands out one mutex per room, created on demand and released
// when the last holder unlocks. Joins and departure reconciliation for the
// same room go through it so a join cannot land in a room being deleted.
type RoomLocks struct {
	mu    sync.Mutex
	locks map[domain.RoomID]*roomLock
}

func NewRoomLocks() *RoomLocks {
	return &RoomLocks{locks: make(map[domain.RoomID]*roomLock)}
}

// Lock blocks until the room is held and returns the matching unlock.
func (l *RoomLocks) Lock(room domain.RoomID) (unlock func()) {
	l.mu.Lock()
	rl, ok := l.locks[room]
	if !ok {
		rl = &roomLock{}
		l.locks[room] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			rl.mu.Unlock()
			l.mu.Lock()
			rl.refs--
			if rl.refs == 0 {
				delete(l.locks, room)
			}
			l.mu.Unlock()
		})
	}
}

func (l *RoomLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
