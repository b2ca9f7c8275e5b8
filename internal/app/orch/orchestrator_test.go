package orch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Chatter/internal/app"
	"github.com/dkeye/Chatter/internal/core"
	"github.com/dkeye/Chatter/internal/domain"
)

type testConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (c *testConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *testConn) Close() {}

func (c *testConn) kinds() []domain.EventKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.EventKind
	for _, f := range c.frames {
		var ev domain.Event
		if json.Unmarshal(f, &ev) == nil {
			out = append(out, ev.Kind)
		}
	}
	return out
}

func (c *testConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

type fixture struct {
	o     *Orchestrator
	rooms *app.MemoryRooms
	conns map[core.SessionID]*testConn
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rooms := app.NewMemoryRooms()
	o := New(app.NewRegistry(nil), rooms, core.NewCooldown(5*time.Second), nil)
	return &fixture{o: o, rooms: rooms, conns: map[core.SessionID]*testConn{}}
}

func (f *fixture) connect(sid core.SessionID, member domain.MemberID) *testConn {
	c := &testConn{}
	f.conns[sid] = c
	f.o.Registry.Bind(sid, member, c, func() {})
	return c
}

func (f *fixture) room(t *testing.T, owner domain.MemberID) domain.RoomID {
	t.Helper()
	r, err := f.o.CreateRoom(context.Background(), "lobby", owner, "")
	require.NoError(t, err)
	return r.ID
}

func TestJoinAndSwitchRooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.room(t, "alice")
	r2 := f.room(t, "alice")
	f.connect("s1", "bob")

	require.NoError(t, f.o.Join(ctx, "s1", r1))
	assert.True(t, f.o.Presence.Contains(r1, "bob"))

	require.NoError(t, f.o.Join(ctx, "s1", r2))
	assert.False(t, f.o.Presence.Contains(r1, "bob"))
	assert.True(t, f.o.Presence.Contains(r2, "bob"))

	cc, _ := f.o.Registry.Context("s1")
	assert.Equal(t, r2, cc.Room)
}

func TestJoinUnknownRoomDetaches(t *testing.T) {
	f := newFixture(t)
	f.connect("s1", "bob")

	err := f.o.Join(context.Background(), "s1", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	cc, _ := f.o.Registry.Context("s1")
	assert.False(t, cc.Joined())
}

func TestChatRequiresJoin(t *testing.T) {
	f := newFixture(t)
	f.connect("s1", "bob")

	_, err := f.o.Chat(context.Background(), "s1", "hi", "")
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestChatReachesRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.room(t, "alice")
	alice := f.connect("s1", "alice")
	f.connect("s2", "bob")
	require.NoError(t, f.o.Join(ctx, "s1", r))
	require.NoError(t, f.o.Join(ctx, "s2", r))
	alice.reset()

	ok, err := f.o.Chat(ctx, "s2", "hello", "")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.o.Chat(ctx, "s2", "again", "")
	require.NoError(t, err)
	assert.False(t, ok, "cooldown")

	assert.Equal(t, []domain.EventKind{domain.EventChat}, alice.kinds())
}

func TestInBandKickRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.room(t, "alice")
	f.connect("s1", "alice")
	bob := f.connect("s2", "bob")
	f.connect("s3", "carol")
	for _, sid := range []core.SessionID{"s1", "s2", "s3"} {
		require.NoError(t, f.o.Join(ctx, sid, r))
	}

	assert.ErrorIs(t, f.o.Kick(ctx, "s2", "carol"), domain.ErrForbidden)

	bob.reset()
	require.NoError(t, f.o.Kick(ctx, "s1", "bob"))
	assert.Equal(t, []domain.MemberID{"alice", "carol"}, f.o.Presence.Members(r))
	assert.Equal(t, []domain.EventKind{domain.EventKick, domain.EventKick}, bob.kinds(),
		"private notice then room notice, nothing after eviction")

	cc, _ := f.o.Registry.Context("s2")
	assert.False(t, cc.Joined())
}

func TestDisconnectAfterKickAnnouncesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.room(t, "alice")
	alice := f.connect("s1", "alice")
	f.connect("s2", "bob")
	carol := f.connect("s3", "carol")
	for _, sid := range []core.SessionID{"s1", "s2", "s3"} {
		require.NoError(t, f.o.Join(ctx, sid, r))
	}
	require.NoError(t, f.o.Kick(ctx, "s1", "bob"))
	alice.reset()
	carol.reset()

	f.o.OnDisconnect(ctx, "s2")

	assert.Empty(t, alice.kinds())
	assert.Empty(t, carol.kinds())
	assert.Equal(t, []domain.MemberID{"alice", "carol"}, f.o.Presence.Members(r))
	assert.False(t, f.o.Lifecycle.OnDisconnect(ctx, domain.ConnectionContext{Member: "bob", Room: r}),
		"presence no longer holds bob")
}

func TestOwnerKeepsRoomWhileSecondConnectionStays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.room(t, "alice")
	f.connect("s1", "alice")
	second := f.connect("s2", "alice")
	require.NoError(t, f.o.Join(ctx, "s1", r))
	require.NoError(t, f.o.Join(ctx, "s2", r))
	second.reset()

	f.o.OnDisconnect(ctx, "s1")

	cc, ok := f.o.Registry.Context("s2")
	require.True(t, ok)
	assert.Equal(t, r, cc.Room)
	assert.Equal(t, []domain.MemberID{"alice"}, f.o.Presence.Members(r))
	_, err := f.o.Rooms.Room(ctx, r)
	require.NoError(t, err)
	assert.Empty(t, second.kinds(), "surviving connection sees no departure")

	f.o.OnDisconnect(ctx, "s2")
	_, err = f.o.Rooms.Room(ctx, r)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLeaveOnOneConnectionKeepsMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.room(t, "alice")
	f.connect("s1", "bob")
	f.connect("s2", "bob")
	require.NoError(t, f.o.Join(ctx, "s1", r))
	require.NoError(t, f.o.Join(ctx, "s2", r))

	assert.False(t, f.o.Leave(ctx, "s1"))
	assert.True(t, f.o.Presence.Contains(r, "bob"))
	cc, _ := f.o.Registry.Context("s2")
	assert.Equal(t, r, cc.Room)

	assert.True(t, f.o.Leave(ctx, "s2"))
	assert.False(t, f.o.Presence.Contains(r, "bob"))
}

func TestOnDisconnectRunsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.room(t, "carol")
	f.connect("s1", "carol")
	require.NoError(t, f.o.Join(ctx, "s1", r))

	f.o.OnDisconnect(ctx, "s1")
	f.o.OnDisconnect(ctx, "s1")

	_, err := f.o.Rooms.Room(ctx, r)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, f.o.Registry.Len())
}

func TestRoomInfo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.room(t, "alice")
	f.connect("s1", "alice")
	require.NoError(t, f.o.Join(ctx, "s1", r))

	info, err := f.o.RoomInfo(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 1, info.MemberCount)
	assert.Equal(t, domain.MemberID("alice"), info.Room.OwnerID)

	_, err = f.o.RoomInfo(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateRoomValidates(t *testing.T) {
	f := newFixture(t)
	_, err := f.o.CreateRoom(context.Background(), "  ", "alice", "")
	assert.ErrorIs(t, err, domain.ErrRoomNameEmpty)
}
