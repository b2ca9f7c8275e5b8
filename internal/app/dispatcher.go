package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chatter/internal/core"
	"github.com/dkeye/Chatter/internal/domain"
)

const DefaultEventType = "chat"

func clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}

// Dispatcher runs the send path of a chat message: cooldown check,
// persistence hand-off, room broadcast.
type Dispatcher struct {
	Rooms    core.RoomDirectory
	Cooldown *core.Cooldown
	Sink     core.MessageSink
	Bus      core.Broadcaster
	Now      func() time.Time
}

// Send reports whether the message was accepted. A cooldown rejection is a
// silent drop: nothing is stored or broadcast and no error is returned.
func (d *Dispatcher) Send(ctx context.Context, room domain.RoomID, sender domain.MemberID, content, eventType string) bool {
	if eventType == "" {
		eventType = DefaultEventType
	}
	now := clock(d.Now)

	owner, ok, err := core.OwnerOf(ctx, d.Rooms, room)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.dispatcher").Str("room", string(room)).Msg("owner lookup failed, treating sender as member")
	}
	isOwner := ok && owner == sender

	if !d.Cooldown.Allow(sender, room, isOwner, now) {
		log.Debug().Str("module", "app.dispatcher").Str("room", string(room)).Str("member", string(sender)).Msg("message dropped by cooldown")
		return false
	}

	if d.Sink != nil {
		rec := core.MessageRecord{Room: room, Sender: sender, Content: content, EventType: eventType}
		if err := d.Sink.Record(ctx, rec); err != nil {
			log.Error().Err(err).Str("module", "app.dispatcher").Str("room", string(room)).Msg("persist message")
		}
	}

	if err := d.Bus.PublishToRoom(room, domain.ChatEvent(room, sender, content, now)); err != nil {
		log.Error().Err(err).Str("module", "app.dispatcher").Str("room", string(room)).Msg("broadcast chat")
	}
	return true
}
