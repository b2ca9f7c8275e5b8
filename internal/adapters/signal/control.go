package signal

import (
	"errors"

	"github.com/dkeye/Chatter/internal/core"
	"github.com/dkeye/Chatter/internal/domain"
)

type errorFrame struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (ctl *SignalWSController) handlePing(sid core.SessionID) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(sid, resp)
}

func (ctl *SignalWSController) sendError(sid core.SessionID, code, msg string) {
	ctl.sendJSON(sid, errorFrame{Type: "error", Error: code, Message: msg})
}

// errorCode maps a service error onto the wire vocabulary.
func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidOperation):
		return "invalid_operation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	default:
		return "internal"
	}
}

func (ctl *SignalWSController) replyError(sid core.SessionID, err error) {
	code := errorCode(err)
	msg := err.Error()
	if code == "internal" {
		msg = ""
	}
	ctl.sendError(sid, code, msg)
}
