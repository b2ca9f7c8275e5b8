package signal

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chatter/internal/core"
	"github.com/dkeye/Chatter/internal/domain"
)

func (ctl *SignalWSController) handleJoin(ctx context.Context, sid core.SessionID, f clientFrame) {
	room := domain.RoomID(strings.TrimSpace(f.Room))
	if room == "" {
		ctl.sendError(sid, "bad_payload", "room is required")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(room)).Msg("join")
	if err := ctl.Orch.Join(ctx, sid, room); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("join failed")
		ctl.replyError(sid, err)
	}
}

// handleLeave exits the current room; the connection stays open.
func (ctl *SignalWSController) handleLeave(ctx context.Context, sid core.SessionID) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	cc, _ := ctl.Orch.Registry.Context(sid)
	ctl.Orch.Leave(ctx, sid)
	ctl.sendJSON(sid, struct {
		Type string        `json:"type"`
		Room domain.RoomID `json:"room,omitempty"`
	}{
		Type: "left",
		Room: cc.Room,
	})
}

// handleChat gives no feedback when the message is dropped by cooldown.
func (ctl *SignalWSController) handleChat(ctx context.Context, sid core.SessionID, f clientFrame) {
	if strings.TrimSpace(f.Content) == "" {
		ctl.sendError(sid, "bad_payload", "content is required")
		return
	}
	if _, err := ctl.Orch.Chat(ctx, sid, f.Content, f.EventType); err != nil {
		ctl.replyError(sid, err)
	}
}

func (ctl *SignalWSController) handleKick(ctx context.Context, sid core.SessionID, f clientFrame) {
	target, err := domain.ParseMemberID(f.Target)
	if err != nil {
		ctl.sendError(sid, "bad_payload", "target is required")
		return
	}
	if err := ctl.Orch.Kick(ctx, sid, target); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("target", string(target)).Msg("kick rejected")
		ctl.replyError(sid, err)
	}
}
