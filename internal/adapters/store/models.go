package store

import (
	"time"

	"github.com/dkeye/Chatter/internal/domain"
)

type CategoryRecord struct {
	ID        string    `gorm:"primarykey;size:36"`
	Name      string    `gorm:"size:100;not null;uniqueIndex"`
	CreatedAt time.Time
}

func (CategoryRecord) TableName() string { return "categories" }

type RoomRecord struct {
	ID         string    `gorm:"primarykey;size:36"`
	Name       string    `gorm:"size:100;not null"`
	OwnerID    string    `gorm:"size:64;not null;index"`
	CategoryID string    `gorm:"size:36;not null;index"`
	CreatedAt  time.Time
}

func (RoomRecord) TableName() string { return "chat_rooms" }

func (r RoomRecord) toDomain() *domain.Room {
	return &domain.Room{
		ID:         domain.RoomID(r.ID),
		Name:       r.Name,
		OwnerID:    domain.MemberID(r.OwnerID),
		CategoryID: domain.CategoryID(r.CategoryID),
		CreatedAt:  r.CreatedAt,
	}
}

func roomRecordFrom(r *domain.Room) RoomRecord {
	return RoomRecord{
		ID:         string(r.ID),
		Name:       r.Name,
		OwnerID:    string(r.OwnerID),
		CategoryID: string(r.CategoryID),
		CreatedAt:  r.CreatedAt,
	}
}

// MessageRecord is a persisted chat message. Rows outlive their room.
type MessageRecord struct {
	ID        uint   `gorm:"primarykey"`
	RoomID    string `gorm:"size:36;not null;index"`
	Sender    string `gorm:"size:64;not null"`
	Content   string `gorm:"type:text;not null"`
	EventType string `gorm:"size:32;not null;default:chat"`
	CreatedAt time.Time
}

func (MessageRecord) TableName() string { return "chat_messages" }
