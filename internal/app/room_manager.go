package app

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/dkeye/Chatter/internal/core"
	"github.com/dkeye/Chatter/internal/domain"
)

// RoomStore is the directory plus the admin operations the HTTP boundary needs.
type RoomStore interface {
	core.RoomDirectory
	Create(ctx context.Context, room *domain.Room) error
	List(ctx context.Context) ([]domain.Room, error)
}

// MemoryRooms is a process-local RoomStore.
type MemoryRooms struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]domain.Room
}

var _ RoomStore = (*MemoryRooms)(nil)

func NewMemoryRooms(rooms ...domain.Room) *MemoryRooms {
	m := &MemoryRooms{rooms: make(map[domain.RoomID]domain.Room, len(rooms))}
	for _, r := range rooms {
		m.rooms[r.ID] = r
	}
	return m
}

func (m *MemoryRooms) Room(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, domain.NewRoomNotFoundError(id)
	}
	return &r, nil
}

func (m *MemoryRooms) Create(_ context.Context, room *domain.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[room.ID]; ok {
		return domain.NewRoomExistsError(room.ID)
	}
	m.rooms[room.ID] = *room
	return nil
}

func (m *MemoryRooms) List(context.Context) ([]domain.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b domain.Room) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out, nil
}

func (m *MemoryRooms) Delete(_ context.Context, id domain.RoomID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, id)
	return nil
}
