package signal

import (
	"github.com/dkeye/Chatter/internal/core"
	"github.com/dkeye/Chatter/internal/domain"
)

func (ctl *SignalWSController) handleWhoAmI(sid core.SessionID) {
	cc, _ := ctl.Orch.Registry.Context(sid)
	ctl.sendJSON(sid, struct {
		Type   string          `json:"type"`
		Member domain.MemberID `json:"member"`
		Room   domain.RoomID   `json:"room,omitempty"`
	}{
		Type:   "whoami",
		Member: cc.Member,
		Room:   cc.Room,
	})
}
