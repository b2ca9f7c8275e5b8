package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/dkeye/Chatter/internal/core"
	"github.com/dkeye/Chatter/internal/domain"
)

// Messages writes chat messages synchronously.
type Messages struct {
	db *gorm.DB
}

var _ core.MessageSink = (*Messages)(nil)

func NewMessages(db *gorm.DB) *Messages {
	return &Messages{db: db}
}

func (m *Messages) Record(ctx context.Context, rec core.MessageRecord) error {
	row := MessageRecord{
		RoomID:    string(rec.Room),
		Sender:    string(rec.Sender),
		Content:   rec.Content,
		EventType: rec.EventType,
	}
	if err := m.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.NewDependencyError("record message", err)
	}
	return nil
}

