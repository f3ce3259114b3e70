package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/srdtrk/nft-ica/internal/models"
)

// ChannelRepository tracks per-token channel connectivity.
type ChannelRepository interface {
	// Get returns the channel state for a token. Returns
	// gorm.ErrRecordNotFound if the token never opened a channel.
	Get(ctx context.Context, tokenID string) (*models.ChannelState, error)

	// Set upserts the channel state for a token. An empty channelID keeps
	// the previously stored one.
	Set(ctx context.Context, tokenID string, status models.ChannelStatus, channelID string) error
}

type channelRepository struct {
	db *gorm.DB
}

// NewChannelRepository creates a new ChannelRepository instance.
func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) Get(ctx context.Context, tokenID string) (*models.ChannelState, error) {
	var state models.ChannelState
	if err := r.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&state).Error; err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *channelRepository) Set(ctx context.Context, tokenID string, status models.ChannelStatus, channelID string) error {
	state := models.ChannelState{
		TokenID:   tokenID,
		Status:    status,
		ChannelID: channelID,
		UpdatedAt: time.Now().UTC(),
	}
	columns := []string{"status", "updated_at"}
	if channelID != "" {
		columns = append(columns, "channel_id")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(&state).Error
}
