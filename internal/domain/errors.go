package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOperation rejects requests that can never succeed, e.g. kicking yourself.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrNotFound covers absent rooms and members absent from a room.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned by boundaries when the actor lacks authority.
	ErrForbidden = errors.New("forbidden")
	// ErrDependencyFailure wraps storage and transport I/O failures.
	// They are logged and never roll back presence changes.
	ErrDependencyFailure = errors.New("dependency failure")
)

func NewRoomNotFoundError(id RoomID) error {
	return fmt.Errorf("%w: room %s", ErrNotFound, id)
}

func NewMemberNotInRoomError(m MemberID, id RoomID) error {
	return fmt.Errorf("%w: %s is not in room %s", ErrNotFound, m, id)
}

func NewSelfKickError(m MemberID) error {
	return fmt.Errorf("%w: %s cannot kick themselves", ErrInvalidOperation, m)
}

func NewNotOwnerError(m MemberID, id RoomID) error {
	return fmt.Errorf("%w: %s does not own room %s", ErrForbidden, m, id)
}

func NewDependencyError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDependencyFailure, op, err)
}

func NewRoomExistsError(id RoomID) error {
	return fmt.Errorf("%w: room %s already exists", ErrInvalidOperation, id)
}

func NewNotJoinedError() error {
	return fmt.Errorf("%w: connection has not joined a room", ErrInvalidOperation)
}

func NewCategoryNotFoundError(id CategoryID) error {
	return fmt.Errorf("%w: category %s", ErrNotFound, id)
}
