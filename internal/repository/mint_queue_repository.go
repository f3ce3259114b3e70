package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/srdtrk/nft-ica/internal/models"
)

// MintQueueRepository defines access to the FIFO mint request queue.
// Items enter at the front and are consumed exactly once from the back.
type MintQueueRepository interface {
	PushFront(ctx context.Context, item *models.MintQueueItem) error

	// PopBack removes and returns the oldest item. Returns
	// gorm.ErrRecordNotFound when the queue is empty.
	PopBack(ctx context.Context) (*models.MintQueueItem, error)

	// List returns the whole queue front-first (diagnostic read).
	List(ctx context.Context) ([]*models.MintQueueItem, error)
}

type mintQueueRepository struct {
	db *gorm.DB
}

// NewMintQueueRepository creates a new MintQueueRepository instance.
func NewMintQueueRepository(db *gorm.DB) MintQueueRepository {
	return &mintQueueRepository{db: db}
}

func (r *mintQueueRepository) PushFront(ctx context.Context, item *models.MintQueueItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *mintQueueRepository) PopBack(ctx context.Context) (*models.MintQueueItem, error) {
	// Lock the row so concurrent callbacks cannot pop the same item.
	var item models.MintQueueItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Order("seq ASC").
		First(&item).Error
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(&models.MintQueueItem{}, item.Seq).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *mintQueueRepository) List(ctx context.Context) ([]*models.MintQueueItem, error) {
	var items []*models.MintQueueItem
	err := r.db.WithContext(ctx).Order("seq DESC").Find(&items).Error
	return items, err
}
