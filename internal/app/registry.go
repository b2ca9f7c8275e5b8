package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chatter/internal/core"
	"github.com/dkeye/Chatter/internal/domain"
)

var errUnknownSession = errors.New("unknown session")

type sessionEntry struct {
	Context domain.ConnectionContext
	Conn    core.SignalConnection
	Cancel  context.CancelFunc
	Strikes *atomic.Int32
}

// Registry tracks live connections and fans events out to them.
// It implements core.Broadcaster and core.Subscriptions: a room topic holds
// member ids, and an event for the topic reaches every connection of a
// subscribed member that is currently attached to that room.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	topics   map[domain.RoomID]map[domain.MemberID]struct{}
	policy   Policy
}

var (
	_ core.Broadcaster   = (*Registry)(nil)
	_ core.Subscriptions = (*Registry)(nil)
)

func NewRegistry(policy Policy) *Registry {
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
		topics:   make(map[domain.RoomID]map[domain.MemberID]struct{}),
		policy:   policy,
	}
}

func (r *Registry) Bind(sid core.SessionID, member domain.MemberID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{
		Context: domain.ConnectionContext{Member: member},
		Conn:    conn,
		Cancel:  cancel,
		Strikes: new(atomic.Int32),
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("member", string(member)).Msg("bound session")
}

// Unbind forgets the session and returns its last context. Only the first
// call for a sid reports ok, which makes disconnect handling run once.
func (r *Registry) Unbind(sid core.SessionID) (domain.ConnectionContext, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return domain.ConnectionContext{}, false
	}
	delete(r.sessions, sid)
	if e.Context.Joined() && !r.attachedLocked(e.Context.Room, e.Context.Member) {
		r.unsubscribeLocked(e.Context.Room, e.Context.Member)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
	return e.Context, true
}

func (r *Registry) Context(sid core.SessionID) (domain.ConnectionContext, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return domain.ConnectionContext{}, false
	}
	return e.Context, true
}

// Attach records the room the session last joined; an empty room detaches it.
func (r *Registry) Attach(sid core.SessionID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	e.Context.Room = room
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("updated room")
	return true
}

func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) Subscribe(room domain.RoomID, member domain.MemberID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs, ok := r.topics[room]
	if !ok {
		subs = make(map[domain.MemberID]struct{})
		r.topics[room] = subs
	}
	subs[member] = struct{}{}
}

// Unsubscribe also detaches the member's connections from the room, so a
// kicked connection stays open but roomless.
func (r *Registry) Unsubscribe(room domain.RoomID, member domain.MemberID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubscribeLocked(room, member)
	for _, e := range r.sessions {
		if e.Context.Member == member && e.Context.Room == room {
			e.Context.Room = ""
		}
	}
}

func (r *Registry) DropTopic(room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.topics, room)
	for _, e := range r.sessions {
		if e.Context.Room == room {
			e.Context.Room = ""
		}
	}
	log.Info().Str("module", "app.registry").Str("room", string(room)).Msg("dropped topic")
}

func (r *Registry) Subscribed(room domain.RoomID, member domain.MemberID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.topics[room][member]
	return ok
}

func (r *Registry) Attached(room domain.RoomID, member domain.MemberID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.attachedLocked(room, member)
}

func (r *Registry) unsubscribeLocked(room domain.RoomID, member domain.MemberID) {
	subs, ok := r.topics[room]
	if !ok {
		return
	}
	delete(subs, member)
	if len(subs) == 0 {
		delete(r.topics, room)
	}
}

func (r *Registry) attachedLocked(room domain.RoomID, member domain.MemberID) bool {
	for _, e := range r.sessions {
		if e.Context.Member == member && e.Context.Room == room {
			return true
		}
	}
	return false
}

type regSnap struct {
	SID     core.SessionID
	Context domain.ConnectionContext
	Conn    core.SignalConnection
	Strikes *atomic.Int32
}

func (r *Registry) collect(match func(domain.ConnectionContext) bool) []regSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]regSnap, 0, len(r.sessions))
	for sid, e := range r.sessions {
		if match(e.Context) {
			out = append(out, regSnap{SID: sid, Context: e.Context, Conn: e.Conn, Strikes: e.Strikes})
		}
	}
	return out
}

func (r *Registry) PublishToRoom(room domain.RoomID, ev domain.Event) error {
	r.mu.RLock()
	subs := r.topics[room]
	members := make(map[domain.MemberID]struct{}, len(subs))
	for m := range subs {
		members[m] = struct{}{}
	}
	r.mu.RUnlock()

	targets := r.collect(func(cc domain.ConnectionContext) bool {
		_, ok := members[cc.Member]
		return ok && cc.Room == room
	})
	return r.deliver(ev, targets)
}

func (r *Registry) PublishToMember(member domain.MemberID, ev domain.Event) error {
	targets := r.collect(func(cc domain.ConnectionContext) bool {
		return cc.Member == member
	})
	return r.deliver(ev, targets)
}

// Send pushes an arbitrary control payload to one session.
func (r *Registry) Send(sid core.SessionID, v any) error {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	var snap regSnap
	if ok {
		snap = regSnap{SID: sid, Context: e.Context, Conn: e.Conn, Strikes: e.Strikes}
	}
	r.mu.RUnlock()
	if !ok {
		return domain.NewDependencyError("send", errUnknownSession)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return domain.NewDependencyError("encode frame", err)
	}
	r.push(snap, b)
	return nil
}

func (r *Registry) deliver(ev domain.Event, targets []regSnap) error {
	if len(targets) == 0 {
		return nil
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return domain.NewDependencyError("encode event", err)
	}
	for _, t := range targets {
		r.push(t, b)
	}
	return nil
}

func (r *Registry) push(t regSnap, frame core.Frame) {
	err := t.Conn.TrySend(frame)
	if err == nil {
		if t.Strikes.Load() != 0 {
			t.Strikes.Store(0)
		}
		return
	}
	strikes := int(t.Strikes.Add(1))
	switch r.policy.OnBackPressure(t.SID, t.Context, strikes) {
	case KickMember:
		log.Warn().Err(err).Str("module", "app.registry").Str("sid", string(t.SID)).Int("strikes", strikes).Msg("slow consumer, disconnecting")
		r.Cancel(t.SID)
	case MarkSlow:
		log.Warn().Err(err).Str("module", "app.registry").Str("sid", string(t.SID)).Int("strikes", strikes).Msg("slow consumer")
	case DropFrame:
		log.Debug().Err(err).Str("module", "app.registry").Str("sid", string(t.SID)).Msg("frame dropped")
	}
}
