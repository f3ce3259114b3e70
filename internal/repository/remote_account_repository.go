package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/srdtrk/nft-ica/internal/models"
)

// RemoteAccountRepository maps tokens to the remote account addresses they
// control.
type RemoteAccountRepository interface {
	Set(ctx context.Context, tokenID, address string) error

	// Get returns the remote account address for a token. Returns
	// gorm.ErrRecordNotFound if the token has none.
	Get(ctx context.Context, tokenID string) (string, error)
}

type remoteAccountRepository struct {
	db *gorm.DB
}

// NewRemoteAccountRepository creates a new RemoteAccountRepository instance.
func NewRemoteAccountRepository(db *gorm.DB) RemoteAccountRepository {
	return &remoteAccountRepository{db: db}
}

func (r *remoteAccountRepository) Set(ctx context.Context, tokenID, address string) error {
	account := models.RemoteAccount{TokenID: tokenID, Address: address}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"address", "updated_at"}),
	}).Create(&account).Error
}

func (r *remoteAccountRepository) Get(ctx context.Context, tokenID string) (string, error) {
	var account models.RemoteAccount
	if err := r.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&account).Error; err != nil {
		return "", err
	}
	return account.Address, nil
}
