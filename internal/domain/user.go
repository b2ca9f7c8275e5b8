// Package domain holds the chat entities, their validation, the event wire
// format and the error kinds shared by every layer.
package domain

import (
	"errors"
	"strings"
)

const (
	MaxMemberIDLen = 64
	// SystemSender marks server-originated events.
	SystemSender MemberID = "SYSTEM"
)

var (
	ErrMemberIDTooLong = errors.New("member id too long")
	ErrMemberIDEmpty   = errors.New("member id empty")
)

// MemberID is the verified identity of a chat member (the token subject).
type MemberID string

// ParseMemberID trims and validates an identity coming from an outer boundary.
func ParseMemberID(raw string) (MemberID, error) {
	s := strings.TrimSpace(raw)
	if len(s) == 0 {
		return "", ErrMemberIDEmpty
	}
	if len(s) > MaxMemberIDLen {
		return "", ErrMemberIDTooLong
	}
	return MemberID(s), nil
}

func (m MemberID) String() string { return string(m) }
