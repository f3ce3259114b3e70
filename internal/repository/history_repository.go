package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/srdtrk/nft-ica/internal/models"
)

// HistoryRepository is the per-token transaction log. Records append at the
// head (newest-first) and are mutated in place on resolution; they are never
// deleted, only paginated.
type HistoryRepository interface {
	Append(ctx context.Context, record *models.TransactionRecord) error

	// HeadPending returns the most recently dispatched record for a token
	// that is still pending. Returns gorm.ErrRecordNotFound if none.
	HeadPending(ctx context.Context, tokenID string) (*models.TransactionRecord, error)

	// Resolve sets the status of a record in place. The record keeps its
	// position in the log.
	Resolve(ctx context.Context, id int64, status models.TxStatus) error

	// Page returns one newest-first page of a token's log plus the total
	// record count. Pages are zero-based.
	Page(ctx context.Context, tokenID string, page, pageSize int) ([]*models.TransactionRecord, int64, error)
}

type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new HistoryRepository instance.
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Append(ctx context.Context, record *models.TransactionRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *historyRepository) HeadPending(ctx context.Context, tokenID string) (*models.TransactionRecord, error) {
	// Lock the record so concurrent ack/timeout callbacks cannot both
	// resolve it; the loser re-reads and finds nothing pending.
	var record models.TransactionRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token_id = ? AND status = ?", tokenID, models.TxStatusPending).
		Order("id DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *historyRepository) Resolve(ctx context.Context, id int64, status models.TxStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.TransactionRecord{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *historyRepository) Page(ctx context.Context, tokenID string, page, pageSize int) ([]*models.TransactionRecord, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.TransactionRecord{}).
		Where("token_id = ?", tokenID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []*models.TransactionRecord
	err := r.db.WithContext(ctx).
		Where("token_id = ?", tokenID).
		Order("id DESC").
		Offset(page * pageSize).
		Limit(pageSize).
		Find(&records).Error

	return records, total, err
}
