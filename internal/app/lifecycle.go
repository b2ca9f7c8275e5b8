package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chatter/internal/core"
	"github.com/dkeye/Chatter/internal/domain"
)

// Lifecycle ties connections to presence: joins, explicit leaves and
// connection loss. An owner leaving an empty room destroys it.
// Join and departure for one room are serialized by Locks, so a join can
// never land in a room that is being deleted.
type Lifecycle struct {
	Presence *core.PresenceRegistry
	Rooms    core.RoomDirectory
	Bus      core.Broadcaster
	Subs     core.Subscriptions
	Locks    *core.RoomLocks
	Now      func() time.Time
}

// Join attaches cc.Member to cc.Room. A repeated join only re-sends the
// current snapshot to the member.
func (l *Lifecycle) Join(ctx context.Context, cc domain.ConnectionContext) error {
	if !cc.Joined() {
		return domain.NewRoomNotFoundError(cc.Room)
	}
	logger := log.With().Str("module", "app.lifecycle").Str("room", string(cc.Room)).Str("member", string(cc.Member)).Logger()

	unlock := l.Locks.Lock(cc.Room)
	ok, err := core.Exists(ctx, l.Rooms, cc.Room)
	if err != nil {
		unlock()
		return domain.NewDependencyError("room lookup", err)
	}
	if !ok {
		unlock()
		return domain.NewRoomNotFoundError(cc.Room)
	}
	added := l.Presence.Join(cc.Room, cc.Member)
	l.Subs.Subscribe(cc.Room, cc.Member)
	members := l.Presence.Members(cc.Room)
	unlock()

	now := clock(l.Now)
	snapshot := domain.PresenceEvent(cc.Room, members, now)
	if !added {
		if err := l.Bus.PublishToMember(cc.Member, snapshot); err != nil {
			logger.Error().Err(err).Msg("send presence")
		}
		return nil
	}
	if err := l.Bus.PublishToRoom(cc.Room, domain.JoinEvent(cc.Room, cc.Member, now)); err != nil {
		logger.Error().Err(err).Msg("broadcast join")
	}
	if err := l.Bus.PublishToRoom(cc.Room, snapshot); err != nil {
		logger.Error().Err(err).Msg("broadcast presence")
	}
	logger.Info().Msg("member joined")
	return nil
}

// Leave is an explicit departure: the connection stays open but stops
// receiving the room's events. The caller detaches the connection first.
func (l *Lifecycle) Leave(ctx context.Context, cc domain.ConnectionContext) bool {
	return l.depart(ctx, cc, true)
}

// OnDisconnect reconciles a lost connection. Safe to call repeatedly: only
// the call that actually removes the member announces anything.
func (l *Lifecycle) OnDisconnect(ctx context.Context, cc domain.ConnectionContext) bool {
	return l.depart(ctx, cc, false)
}

// depart removes cc.Member from the room unless another of its connections
// is still attached there. Leave and the snapshot go out before an abandoned
// room is deleted; nothing is published for the room after that.
func (l *Lifecycle) depart(ctx context.Context, cc domain.ConnectionContext, unsubscribe bool) bool {
	if !cc.Joined() {
		return false
	}
	logger := log.With().Str("module", "app.lifecycle").Str("room", string(cc.Room)).Str("member", string(cc.Member)).Logger()

	unlock := l.Locks.Lock(cc.Room)
	defer unlock()
	if l.Subs.Attached(cc.Room, cc.Member) {
		logger.Debug().Msg("member still attached on another connection")
		return false
	}
	if !l.Presence.Leave(cc.Room, cc.Member) {
		logger.Debug().Msg("member already gone")
		return false
	}
	if unsubscribe {
		l.Subs.Unsubscribe(cc.Room, cc.Member)
	}

	abandoned := false
	owner, ok, err := core.OwnerOf(ctx, l.Rooms, cc.Room)
	switch {
	case err != nil:
		logger.Error().Err(err).Msg("owner lookup")
	case ok && owner == cc.Member && l.Presence.Count(cc.Room) == 0:
		abandoned = true
	}

	now := clock(l.Now)
	if err := l.Bus.PublishToRoom(cc.Room, domain.LeaveEvent(cc.Room, cc.Member, now)); err != nil {
		logger.Error().Err(err).Msg("broadcast leave")
	}
	if err := l.Bus.PublishToRoom(cc.Room, domain.PresenceEvent(cc.Room, l.Presence.Members(cc.Room), now)); err != nil {
		logger.Error().Err(err).Msg("broadcast presence")
	}
	if !abandoned {
		logger.Info().Msg("member left")
		return true
	}
	if err := l.Rooms.Delete(ctx, cc.Room); err != nil {
		logger.Error().Err(err).Msg("delete abandoned room")
		return true
	}
	l.Subs.DropTopic(cc.Room)
	logger.Info().Msg("owner left empty room, room deleted")
	return true
}
