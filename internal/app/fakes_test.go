package app

import (
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"

	"github.com/dkeye/Chatter/internal/core"
	"github.com/dkeye/Chatter/internal/domain"
)

var errFull = errors.New("buffer full")

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return errFull
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) events() []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Event, 0, len(c.frames))
	for _, f := range c.frames {
		var ev domain.Event
		if err := json.Unmarshal(f, &ev); err == nil {
			out = append(out, ev)
		}
	}
	return out
}

type published struct {
	Room   domain.RoomID
	Member domain.MemberID
	Event  domain.Event
}

// recordingBus captures everything published, in order.
type recordingBus struct {
	mu  sync.Mutex
	out []published
}

func (b *recordingBus) PublishToRoom(room domain.RoomID, ev domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.out = append(b.out, published{Room: room, Event: ev})
	return nil
}

func (b *recordingBus) PublishToMember(m domain.MemberID, ev domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.out = append(b.out, published{Member: m, Event: ev})
	return nil
}

func (b *recordingBus) kinds() []domain.EventKind {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.EventKind, 0, len(b.out))
	for _, p := range b.out {
		out = append(out, p.Event.Kind)
	}
	return out
}

func (b *recordingBus) last() published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.out[len(b.out)-1]
}

type nopSubs struct{}

func (nopSubs) Subscribe(domain.RoomID, domain.MemberID)     {}
func (nopSubs) Unsubscribe(domain.RoomID, domain.MemberID)   {}
func (nopSubs) DropTopic(domain.RoomID)                      {}
func (nopSubs) Attached(domain.RoomID, domain.MemberID) bool { return false }

// attachedSubs reports the listed members as still attached elsewhere.
type attachedSubs struct {
	nopSubs
	members map[domain.MemberID]bool
}

func (s attachedSubs) Attached(_ domain.RoomID, m domain.MemberID) bool { return s.members[m] }

// eventMatcher matches a domain.Event by kind and, optionally, content.
type eventMatcher struct {
	kind    domain.EventKind
	content string
}

func isEvent(kind domain.EventKind) eventMatcher { return eventMatcher{kind: kind} }

func isEventWith(kind domain.EventKind, content string) eventMatcher {
	return eventMatcher{kind: kind, content: content}
}

func (m eventMatcher) Matches(x any) bool {
	ev, ok := x.(domain.Event)
	if !ok || ev.Kind != m.kind {
		return false
	}
	return m.content == "" || ev.Content == m.content
}

func (m eventMatcher) String() string {
	if m.content == "" {
		return fmt.Sprintf("is %s event", m.kind)
	}
	return fmt.Sprintf("is %s event with content %q", m.kind, m.content)
}

func mustRoom(id domain.RoomID, owner domain.MemberID) domain.Room {
	r, err := domain.NewRoom(id, "Room "+string(id), owner, "")
	if err != nil {
		panic(err)
	}
	return *r
}
