package core

import (
	"slices"
	"sync"

	"github.com/dkeye/Chatter/internal/domain"
)

// roomPresence is the member set of one room, guarded by its own lock so
// rooms never contend with each other.
// Once retired it is unreachable from the registry and rejects joins;
// callers retry against a fresh set.
type roomPresence struct {
	mu      sync.RWMutex
	members map[domain.MemberID]struct{}
	retired bool
}

func newRoomPresence() *roomPresence {
	return &roomPresence{members: make(map[domain.MemberID]struct{})}
}

// add returns (added, live). live is false when the set was retired
// under the caller and the join must be retried.
func (r *roomPresence) add(m domain.MemberID) (added, live bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.retired {
		return false, false
	}
	if _, ok := r.members[m]; ok {
		return false, true
	}
	r.members[m] = struct{}{}
	return true, true
}

// remove returns whether m was present and whether the set is now empty.
func (r *roomPresence) remove(m domain.MemberID) (removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.retired {
		return false, true
	}
	if _, ok := r.members[m]; !ok {
		return false, len(r.members) == 0
	}
	delete(r.members, m)
	return true, len(r.members) == 0
}

// retireIfEmpty must be called with the owning shard locked.
func (r *roomPresence) retireIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.retired || len(r.members) > 0 {
		return false
	}
	r.retired = true
	return true
}

func (r *roomPresence) contains(m domain.MemberID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[m]
	return ok
}

func (r *roomPresence) snapshot() []domain.MemberID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.MemberID, 0, len(r.members))
	for m := range r.members {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

func (r *roomPresence) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}
