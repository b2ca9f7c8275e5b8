package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chatter/internal/core"
	"github.com/dkeye/Chatter/internal/domain"
)

type Moderation struct {
	Presence *core.PresenceRegistry
	Rooms    core.RoomDirectory
	Bus      core.Broadcaster
	Subs     core.Subscriptions
	Locks    *core.RoomLocks
	Now      func() time.Time
}

// Authorize checks that actor owns room. Boundaries call it before Kick.
func (m *Moderation) Authorize(ctx context.Context, room domain.RoomID, actor domain.MemberID) error {
	r, err := m.Rooms.Room(ctx, room)
	if err != nil {
		return err
	}
	if !r.OwnedBy(actor) {
		return domain.NewNotOwnerError(actor, room)
	}
	return nil
}

// Kick evicts target from room on behalf of kicker. Authority is the
// caller's job. The target hears about it first, then the room, then the
// eviction happens and a fresh presence snapshot goes out. Broadcast
// failures are logged and never undo the eviction.
func (m *Moderation) Kick(ctx context.Context, room domain.RoomID, kicker, target domain.MemberID) error {
	if kicker == target {
		return domain.NewSelfKickError(kicker)
	}
	if !m.Presence.Contains(room, target) {
		return domain.NewMemberNotInRoomError(target, room)
	}
	logger := log.With().Str("module", "app.moderation").Str("room", string(room)).
		Str("kicker", string(kicker)).Str("target", string(target)).Logger()

	name := string(room)
	if r, err := m.Rooms.Room(ctx, room); err == nil {
		name = r.DisplayName()
	} else {
		logger.Warn().Err(err).Msg("room name lookup failed")
	}
	now := clock(m.Now)

	notice := fmt.Sprintf("You have been kicked from room '%s' (by %s)", name, kicker)
	if err := m.Bus.PublishToMember(target, domain.KickEvent(room, notice, now)); err != nil {
		logger.Error().Err(err).Msg("notify kicked member")
	}
	announce := fmt.Sprintf("%s was kicked by %s", target, kicker)
	if err := m.Bus.PublishToRoom(room, domain.KickEvent(room, announce, now)); err != nil {
		logger.Error().Err(err).Msg("announce kick")
	}

	unlock := m.Locks.Lock(room)
	removed := m.Presence.Leave(room, target)
	m.Subs.Unsubscribe(room, target)
	members := m.Presence.Members(room)
	unlock()

	if !removed {
		logger.Info().Msg("target already gone")
	}
	if err := m.Bus.PublishToRoom(room, domain.PresenceEvent(room, members, now)); err != nil {
		logger.Error().Err(err).Msg("broadcast presence")
	}
	logger.Info().Msg("member kicked")
	return nil
}
