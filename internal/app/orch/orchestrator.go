package orch

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chatter/internal/app"
	"github.com/dkeye/Chatter/internal/core"
	"github.com/dkeye/Chatter/internal/domain"
)

// Orchestrator routes per-connection events to the services, resolving the
// connection context from the registry.
type Orchestrator struct {
	Registry   *app.Registry
	Presence   *core.PresenceRegistry
	Rooms      app.RoomStore
	Dispatcher *app.Dispatcher
	Moderation *app.Moderation
	Lifecycle  *app.Lifecycle
}

// New wires the services around one registry, presence map and directory.
func New(reg *app.Registry, rooms app.RoomStore, cooldown *core.Cooldown, sink core.MessageSink) *Orchestrator {
	presence := core.NewPresenceRegistry()
	locks := core.NewRoomLocks()
	return &Orchestrator{
		Registry: reg,
		Presence: presence,
		Rooms:    rooms,
		Dispatcher: &app.Dispatcher{
			Rooms:    rooms,
			Cooldown: cooldown,
			Sink:     sink,
			Bus:      reg,
		},
		Moderation: &app.Moderation{
			Presence: presence,
			Rooms:    rooms,
			Bus:      reg,
			Subs:     reg,
			Locks:    locks,
		},
		Lifecycle: &app.Lifecycle{
			Presence: presence,
			Rooms:    rooms,
			Bus:      reg,
			Subs:     reg,
			Locks:    locks,
		},
	}
}

// Chat sends content to the room the session is attached to.
func (o *Orchestrator) Chat(ctx context.Context, sid core.SessionID, content, eventType string) (bool, error) {
	cc, ok := o.Registry.Context(sid)
	if !ok || !cc.Joined() {
		return false, domain.NewNotJoinedError()
	}
	return o.Dispatcher.Send(ctx, cc.Room, cc.Member, content, eventType), nil
}

// OnDisconnect is called once per terminated connection by the transport.
func (o *Orchestrator) OnDisconnect(ctx context.Context, sid core.SessionID) {
	cc, ok := o.Registry.Unbind(sid)
	if !ok {
		return
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("member", string(cc.Member)).Str("room", string(cc.Room)).Msg("disconnect")
	o.Lifecycle.OnDisconnect(ctx, cc)
}

// RoomInfo is the read model served by the admin API.
func (o *Orchestrator) RoomInfo(ctx context.Context, id domain.RoomID) (core.RoomInfo, error) {
	r, err := o.Rooms.Room(ctx, id)
	if err != nil {
		return core.RoomInfo{}, err
	}
	return core.RoomInfo{Room: *r, MemberCount: o.Presence.Count(id)}, nil
}
