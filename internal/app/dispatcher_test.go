package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/dkeye/Chatter/internal/core"
	"github.com/dkeye/Chatter/internal/core/mocks"
	"github.com/dkeye/Chatter/internal/domain"
)

type dispatcherFixture struct {
	d     *Dispatcher
	sink  *mocks.MockMessageSink
	bus   *mocks.MockBroadcaster
	clock time.Time
}

func newDispatcherFixture(t *testing.T, rooms core.RoomDirectory) *dispatcherFixture {
	ctrl := gomock.NewController(t)
	f := &dispatcherFixture{
		sink:  mocks.NewMockMessageSink(ctrl),
		bus:   mocks.NewMockBroadcaster(ctrl),
		clock: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.d = &Dispatcher{
		Rooms:    rooms,
		Cooldown: core.NewCooldown(5 * time.Second),
		Sink:     f.sink,
		Bus:      f.bus,
		Now:      func() time.Time { return f.clock },
	}
	return f
}

func TestDispatcherCooldownScenario(t *testing.T) {
	f := newDispatcherFixture(t, NewMemoryRooms(mustRoom("R3", "erin")))
	ctx := context.Background()
	t0 := f.clock

	rec := core.MessageRecord{Room: "R3", Sender: "dave", Content: "hello", EventType: "chat"}
	f.sink.EXPECT().Record(gomock.Any(), rec).Return(nil).Times(2)
	f.bus.EXPECT().PublishToRoom(domain.RoomID("R3"), isEventWith(domain.EventChat, "hello")).Return(nil).Times(2)

	assert.True(t, f.d.Send(ctx, "R3", "dave", "hello", ""))

	f.clock = t0.Add(time.Second)
	assert.False(t, f.d.Send(ctx, "R3", "dave", "hello", ""), "dropped without persistence or broadcast")

	f.clock = t0.Add(6 * time.Second)
	assert.True(t, f.d.Send(ctx, "R3", "dave", "hello", ""))
}

func TestDispatcherOwnerBypassesCooldown(t *testing.T) {
	f := newDispatcherFixture(t, NewMemoryRooms(mustRoom("R1", "alice")))
	ctx := context.Background()

	f.sink.EXPECT().Record(gomock.Any(), gomock.Any()).Return(nil).Times(3)
	f.bus.EXPECT().PublishToRoom(domain.RoomID("R1"), isEvent(domain.EventChat)).Return(nil).Times(3)

	for _i := 0; _i < 3; _i++ {
		assert.True(t, f.d.Send(ctx, "R1", "alice", "hi", "chat"))
	}
}

func TestDispatcherMissingRoomTreatsSenderAsMember(t *testing.T) {
	f := newDispatcherFixture(t, NewMemoryRooms())
	ctx := context.Background()

	f.sink.EXPECT().Record(gomock.Any(), gomock.Any()).Return(nil)
	f.bus.EXPECT().PublishToRoom(domain.RoomID("gone"), isEvent(domain.EventChat)).Return(nil)

	assert.True(t, f.d.Send(ctx, "gone", "alice", "hi", ""))
	assert.False(t, f.d.Send(ctx, "gone", "alice", "again", ""))
}

func TestDispatcherPersistenceFailureStillBroadcasts(t *testing.T) {
	f := newDispatcherFixture(t, NewMemoryRooms(mustRoom("R1", "alice")))

	gomock.InOrder(
		f.sink.EXPECT().Record(gomock.Any(), gomock.Any()).Return(errors.New("disk full")),
		f.bus.EXPECT().PublishToRoom(domain.RoomID("R1"), isEvent(domain.EventChat)).Return(nil),
	)

	assert.True(t, f.d.Send(context.Background(), "R1", "bob", "hi", ""))
}

func TestDispatcherKeepsCustomEventType(t *testing.T) {
	f := newDispatcherFixture(t, NewMemoryRooms(mustRoom("R1", "alice")))

	f.sink.EXPECT().Record(gomock.Any(), core.MessageRecord{Room: "R1", Sender: "bob", Content: "*waves*", EventType: "emote"}).Return(nil)
	f.bus.EXPECT().PublishToRoom(gomock.Any(), gomock.Any()).Return(nil)

	assert.True(t, f.d.Send(context.Background(), "R1", "bob", "*waves*", "emote"))
}
