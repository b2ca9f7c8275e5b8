package domain

import (
	"errors"
	"strings"
	"time"
)

const MaxRoomNameLen = 100

var (
	ErrRoomNameEmpty   = errors.New("room name empty")
	ErrRoomNameTooLong = errors.New("room name too long")
	ErrRoomOwnerEmpty  = errors.New("room owner empty")
)

type (
	RoomID     string
	CategoryID string
)

// DefaultCategory is seeded by the store and used when a room is created without one.
const DefaultCategory CategoryID = "general"

type Room struct {
	ID         RoomID     `json:"roomId"`
	Name       string     `json:"name"`
	OwnerID    MemberID   `json:"ownerUsername"`
	CategoryID CategoryID `json:"categoryId"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// NewRoom builds a room; the owner is fixed here and must never be empty.
func NewRoom(id RoomID, name string, owner MemberID, category CategoryID) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrRoomNameEmpty
	}
	if len(name) > MaxRoomNameLen {
		return nil, ErrRoomNameTooLong
	}
	if owner == "" {
		return nil, ErrRoomOwnerEmpty
	}
	if category == "" {
		category = DefaultCategory
	}
	return &Room{
		ID:         id,
		Name:       name,
		OwnerID:    owner,
		CategoryID: category,
		CreatedAt:  time.Now(),
	}, nil
}

// OwnedBy reports whether m owns the room.
func (r *Room) OwnedBy(m MemberID) bool {
	return r != nil && m != "" && r.OwnerID == m
}

// DisplayName falls back to the id when the room has no name.
func (r *Room) DisplayName() string {
	if r.Name == "" {
		return string(r.ID)
	}
	return r.Name
}
