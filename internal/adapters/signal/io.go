package signal

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chatter/internal/core"
)

const writeWait = 5 * time.Second

// clientFrame is the single envelope for every inbound message.
type clientFrame struct {
	Type      string `json:"type"`
	Room      string `json:"room,omitempty"`
	Content   string `json:"content,omitempty"`
	Target    string `json:"target,omitempty"`
	EventType string `json:"event_type,omitempty"`
}

func (ctl *SignalWSController) writePump(ctx context.Context, sid core.SessionID, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("writePump write error")
				return
			}
		}
	}
}

// readPump owns the connection lifetime: when it returns the session is
// torn down and disconnect reconciliation runs exactly once.
// On server shutdown the session is only unbound: presence dies with the
// process and rooms must survive a restart.
func (ctl *SignalWSController) readPump(server, ctx context.Context, cancel context.CancelFunc, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		cancel()
		c.Close()
		if server.Err() != nil {
			ctl.Orch.Registry.Unbind(sid)
			return
		}
		ctl.Orch.OnDisconnect(context.WithoutCancel(ctx), sid)
	}()

	pongWait := ctl.opts.PingPeriod * 10 / 9
	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	limiter := newFrameLimiter(ctl.opts.FrameRate, ctl.opts.FrameBurst)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		if !limiter.Allow() {
			log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("frame flood, dropping")
			ctl.sendError(sid, "slow_down", "too many frames")
			continue
		}
		ctl.handleSignal(ctx, sid, data)
	}
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, sid core.SessionID, data []byte) {
	var f clientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(sid, "bad_payload", "frame is not valid JSON")
		return
	}

	switch f.Type {
	case "join":
		ctl.handleJoin(ctx, sid, f)
	case "leave":
		ctl.handleLeave(ctx, sid)
	case "chat":
		ctl.handleChat(ctx, sid, f)
	case "kick":
		ctl.handleKick(ctx, sid, f)
	case "ping":
		ctl.handlePing(sid)
	case "whoami":
		ctl.handleWhoAmI(sid)
	default:
		log.Warn().Str("module", "signal").Str("type", f.Type).Msg("unknown signal")
		ctl.sendError(sid, "unknown_type", f.Type)
	}
}

func (ctl *SignalWSController) sendJSON(sid core.SessionID, v any) {
	if err := ctl.Orch.Registry.Send(sid, v); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("sendJSON")
	}
}
