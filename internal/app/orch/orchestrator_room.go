package orch

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chatter/internal/core"
	"github.com/dkeye/Chatter/internal/domain"
)

// Join moves the session into room, leaving its previous room first.
func (o *Orchestrator) Join(ctx context.Context, sid core.SessionID, room domain.RoomID) error {
	cc, ok := o.Registry.Context(sid)
	if !ok {
		return domain.NewNotJoinedError()
	}
	if cc.Joined() && cc.Room != room {
		o.Registry.Attach(sid, "")
		o.Lifecycle.Leave(ctx, cc)
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("from_room", string(cc.Room)).Msg("left previous room")
	}

	o.Registry.Attach(sid, room)
	next := domain.ConnectionContext{Member: cc.Member, Room: room}
	if err := o.Lifecycle.Join(ctx, next); err != nil {
		o.Registry.Attach(sid, "")
		// A departure that saw this session attached may have kept the member.
		o.Lifecycle.OnDisconnect(ctx, next)
		return err
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Msg("added to room")
	return nil
}

// Leave detaches the session from its room without closing it. The member
// stays present while another of its connections remains in the room.
func (o *Orchestrator) Leave(ctx context.Context, sid core.SessionID) bool {
	cc, ok := o.Registry.Context(sid)
	if !ok || !cc.Joined() {
		return false
	}
	o.Registry.Attach(sid, "")
	return o.Lifecycle.Leave(ctx, cc)
}

// Kick is the in-band kick: the session's member must own its current room.
func (o *Orchestrator) Kick(ctx context.Context, sid core.SessionID, target domain.MemberID) error {
	cc, ok := o.Registry.Context(sid)
	if !ok || !cc.Joined() {
		return domain.NewNotJoinedError()
	}
	return o.AdminKick(ctx, cc.Room, cc.Member, target)
}

// AdminKick verifies ownership, then runs the kick protocol.
func (o *Orchestrator) AdminKick(ctx context.Context, room domain.RoomID, actor, target domain.MemberID) error {
	if err := o.Moderation.Authorize(ctx, room, actor); err != nil {
		return err
	}
	return o.Moderation.Kick(ctx, room, actor, target)
}

// CreateRoom registers a new room owned by owner.
func (o *Orchestrator) CreateRoom(ctx context.Context, name string, owner domain.MemberID, category domain.CategoryID) (*domain.Room, error) {
	room, err := domain.NewRoom(domain.RoomID(uuid.NewString()), name, owner, category)
	if err != nil {
		return nil, err
	}
	if err := o.Rooms.Create(ctx, room); err != nil {
		return nil, err
	}
	log.Info().Str("module", "orch").Str("room", string(room.ID)).Str("owner", string(owner)).Msg("room created")
	return room, nil
}
