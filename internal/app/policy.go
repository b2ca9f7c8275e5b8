package app

import (
	"fmt"

	"github.com/dkeye/Chatter/internal/core"
	"github.com/dkeye/Chatter/internal/domain"
)

type BackpressureAction int

const (
	MarkSlow BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a connection whose send buffer is full.
// strikes counts consecutive failed sends, including this one.
type Policy interface {
	OnBackPressure(sid core.SessionID, cc domain.ConnectionContext, strikes int) BackpressureAction
}

// SimplePolicy disconnects slow consumers; their disconnect then runs the
// regular departure reconciliation.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.SessionID, domain.ConnectionContext, int) BackpressureAction {
	return KickMember
}

// DropPolicy keeps slow consumers connected and loses the frame.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(core.SessionID, domain.ConnectionContext, int) BackpressureAction {
	return DropFrame
}

// StrikePolicy marks a connection slow until it misses Limit frames in a
// row, then disconnects it. A successful send clears the count.
type StrikePolicy struct {
	Limit int
}

func (p StrikePolicy) OnBackPressure(_ core.SessionID, _ domain.ConnectionContext, strikes int) BackpressureAction {
	if strikes >= max(p.Limit, 1) {
		return KickMember
	}
	return MarkSlow
}

// NewPolicy maps the slow_policy config value to a Policy.
func NewPolicy(name string, strikes int) (Policy, error) {
	switch name {
	case "", "kick":
		return SimplePolicy{}, nil
	case "drop":
		return DropPolicy{}, nil
	case "strike":
		return StrikePolicy{Limit: strikes}, nil
	default:
		return nil, fmt.Errorf("unknown slow consumer policy %q", name)
	}
}
