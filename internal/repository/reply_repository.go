package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/srdtrk/nft-ica/internal/models"
)

// ReplyRepository tracks continuation ids for issued asynchronous creation
// requests. Each pending reply is consumed exactly once by its receipt.
type ReplyRepository interface {
	Create(ctx context.Context, reply *models.PendingReply) error

	// Consume removes and returns the pending reply for the given id.
	// Returns gorm.ErrRecordNotFound if the id is unknown or already
	// consumed.
	Consume(ctx context.Context, replyID string) (*models.PendingReply, error)
}

type replyRepository struct {
	db *gorm.DB
}

// NewReplyRepository creates a new ReplyRepository instance.
func NewReplyRepository(db *gorm.DB) ReplyRepository {
	return &replyRepository{db: db}
}

func (r *replyRepository) Create(ctx context.Context, reply *models.PendingReply) error {
	return r.db.WithContext(ctx).Create(reply).Error
}

func (r *replyRepository) Consume(ctx context.Context, replyID string) (*models.PendingReply, error) {
	var reply models.PendingReply
	if err := r.db.WithContext(ctx).Where("reply_id = ?", replyID).First(&reply).Error; err != nil {
		return nil, err
	}

	// The keyed delete decides who consumed the reply: when the same
	// receipt arrives twice concurrently, only one delete affects a row.
	res := r.db.WithContext(ctx).Delete(&models.PendingReply{}, "reply_id = ?", replyID)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &reply, nil
}
