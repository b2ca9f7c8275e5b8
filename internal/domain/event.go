package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind tags an Event. The set is closed: only the constants below exist
// and every broadcast site switches over all of them.
type EventKind uint8

const (
	EventJoin EventKind = iota + 1
	EventLeave
	EventChat
	EventKick
	EventPresence
)

var eventKindNames = map[EventKind]string{
	EventJoin:     "join",
	EventLeave:    "leave",
	EventChat:     "chat",
	EventKick:     "kick",
	EventPresence: "presence",
}

func (k EventKind) String() string {
	if s, ok := eventKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

func ParseEventKind(s string) (EventKind, error) {
	for k, name := range eventKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

func (k EventKind) MarshalText() ([]byte, error) {
	s, ok := eventKindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown event kind %d", uint8(k))
	}
	return []byte(s), nil
}

func (k *EventKind) UnmarshalText(b []byte) error {
	parsed, err := ParseEventKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Presence is the payload of a presence snapshot.
type Presence struct {
	Members []MemberID `json:"users"`
	Count   int        `json:"userCount"`
}

// Event is a transient notification fanned out to room subscribers
// or delivered to a single member.
type Event struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"type"`
	Room      RoomID    `json:"roomId"`
	Sender    MemberID  `json:"sender"`
	Content   string    `json:"content,omitempty"`
	Presence  *Presence `json:"presence,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func newEvent(kind EventKind, room RoomID, sender MemberID, content string, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Room:      room,
		Sender:    sender,
		Content:   content,
		Timestamp: at,
	}
}

func JoinEvent(room RoomID, m MemberID, at time.Time) Event {
	return newEvent(EventJoin, room, m, fmt.Sprintf("%s joined the room", m), at)
}

// LeaveEvent is sent on behalf of the departing member, not SYSTEM.
func LeaveEvent(room RoomID, m MemberID, at time.Time) Event {
	return newEvent(EventLeave, room, m, fmt.Sprintf("%s left the room", m), at)
}

func ChatEvent(room RoomID, sender MemberID, content string, at time.Time) Event {
	return newEvent(EventChat, room, sender, content, at)
}

func KickEvent(room RoomID, content string, at time.Time) Event {
	return newEvent(EventKick, room, SystemSender, content, at)
}

// PresenceEvent snapshots the member set; Count always equals len(members).
func PresenceEvent(room RoomID, members []MemberID, at time.Time) Event {
	if members == nil {
		members = []MemberID{}
	}
	ev := newEvent(EventPresence, room, SystemSender, "", at)
	ev.Presence = &Presence{Members: members, Count: len(members)}
	return ev
}
