package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/dkeye/Chatter/internal/app"
	"github.com/dkeye/Chatter/internal/domain"
)

// Rooms is the sqlite-backed room directory.
type Rooms struct {
	db *gorm.DB
}

var _ app.RoomStore = (*Rooms)(nil)

func NewRooms(db *gorm.DB) *Rooms {
	return &Rooms{db: db}
}

func (r *Rooms) Room(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	var rec RoomRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewRoomNotFoundError(id)
		}
		return nil, domain.NewDependencyError("find room", err)
	}
	return rec.toDomain(), nil
}

// Create rejects unknown categories and duplicate ids.
func (r *Rooms) Create(ctx context.Context, room *domain.Room) error {
	db := r.db.WithContext(ctx)
	var cat CategoryRecord
	if err := db.First(&cat, "id = ?", string(room.CategoryID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NewCategoryNotFoundError(room.CategoryID)
		}
		return domain.NewDependencyError("find category", err)
	}
	rec := roomRecordFrom(room)
	res := db.Where(RoomRecord{ID: rec.ID}).FirstOrCreate(&rec)
	if res.Error != nil {
		return domain.NewDependencyError("create room", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NewRoomExistsError(room.ID)
	}
	return nil
}

func (r *Rooms) List(ctx context.Context) ([]domain.Room, error) {
	var recs []RoomRecord
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&recs).Error; err != nil {
		return nil, domain.NewDependencyError("list rooms", err)
	}
	out := make([]domain.Room, 0, len(recs))
	for _, rec := range recs {
		out = append(out, *rec.toDomain())
	}
	return out, nil
}

// Delete is idempotent: an absent room is not an error.
func (r *Rooms) Delete(ctx context.Context, id domain.RoomID) error {
	if err := r.db.WithContext(ctx).Delete(&RoomRecord{}, "id = ?", string(id)).Error; err != nil {
		return domain.NewDependencyError("delete room", err)
	}
	return nil
}
