package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/srdtrk/nft-ica/internal/models"
)

// ControllerRepository is the allow-list of controllers authorized to
// deliver callbacks. Entries are added when a controller creation receipt
// arrives and are never removed.
type ControllerRepository interface {
	Add(ctx context.Context, controllerID string) error
	Contains(ctx context.Context, controllerID string) (bool, error)
}

type controllerRepository struct {
	db *gorm.DB
}

// NewControllerRepository creates a new ControllerRepository instance.
func NewControllerRepository(db *gorm.DB) ControllerRepository {
	return &controllerRepository{db: db}
}

func (r *controllerRepository) Add(ctx context.Context, controllerID string) error {
	entry := models.RegisteredController{ControllerID: controllerID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error
}

func (r *controllerRepository) Contains(ctx context.Context, controllerID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RegisteredController{}).
		Where("controller_id = ?", controllerID).
		Count(&count).Error
	return count > 0, err
}
