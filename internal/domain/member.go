package domain

// ConnectionContext is what the transport remembers about one live connection:
// who is on it and which room it last joined. The core receives it by value
// and never keeps it past a single event.
type ConnectionContext struct {
	Member MemberID
	Room   RoomID
}

// Joined reports whether the connection carries both an identity and a room.
// Connections that never joined a room leave no trace on disconnect.
func (c ConnectionContext) Joined() bool {
	return c.Member != "" && c.Room != ""
}
