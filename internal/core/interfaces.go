package core

//go:generate mockgen -destination=mocks/mock_core.go -package=mocks . Broadcaster,MessageSink,RoomDirectory

import (
	"context"
	"errors"

	"github.com/dkeye/Chatter/internal/domain"
)

// SessionID identifies one live connection. A member may hold several.
type SessionID string

// Frame is an encoded payload ready for the wire.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Broadcaster fans events out. Both calls are fire-and-forget: an error only
// means the event could not be handed to the transport and is logged by callers.
type Broadcaster interface {
	PublishToRoom(room domain.RoomID, ev domain.Event) error
	PublishToMember(member domain.MemberID, ev domain.Event) error
}

// Subscriptions binds a member's live connections to a room topic.
// Implemented by the transport next to Broadcaster.
type Subscriptions interface {
	Subscribe(room domain.RoomID, member domain.MemberID)
	Unsubscribe(room domain.RoomID, member domain.MemberID)
	DropTopic(room domain.RoomID)
	// Attached reports whether any live connection of member is in room.
	Attached(room domain.RoomID, member domain.MemberID) bool
}

// MessageRecord is what the persistence sink receives for an accepted message.
type MessageRecord struct {
	Room      domain.RoomID
	Sender    domain.MemberID
	Content   string
	EventType string
}

// MessageSink persists accepted chat messages. Best-effort from the core's view.
type MessageSink interface {
	Record(ctx context.Context, rec MessageRecord) error
}

// RoomDirectory is read access to room metadata plus deletion.
// Room returns an error wrapping domain.ErrNotFound for absent rooms.
// Delete of an absent room is not an error.
type RoomDirectory interface {
	Room(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	Delete(ctx context.Context, id domain.RoomID) error
}

// OwnerOf resolves the owner of a room; ok is false when the room is absent.
func OwnerOf(ctx context.Context, dir RoomDirectory, id domain.RoomID) (owner domain.MemberID, ok bool, err error) {
	room, err := dir.Room(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return room.OwnerID, true, nil
}

// Exists reports whether the directory knows the room.
func Exists(ctx context.Context, dir RoomDirectory, id domain.RoomID) (bool, error) {
	_, ok, err := OwnerOf(ctx, dir, id)
	return ok, err
}

// RoomInfo is a read-only view for APIs.
type RoomInfo struct {
	Room        domain.Room `json:"room"`
	MemberCount int         `json:"currentUserCount"`
}
