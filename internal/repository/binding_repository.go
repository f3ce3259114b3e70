package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/srdtrk/nft-ica/internal/models"
)

// BindingRepository is the controller/token identity bimap. One row carries
// both directions, so callers structurally cannot write or delete one
// direction without the other.
type BindingRepository interface {
	// Insert binds a controller and a token. Fails if either side is
	// already bound; bindings are never reassigned.
	Insert(ctx context.Context, controllerID, tokenID string) error

	// Lookup returns the counterpart of either key.
	Lookup(ctx context.Context, key string) (string, error)

	TokenForController(ctx context.Context, controllerID string) (string, error)
	ControllerForToken(ctx context.Context, tokenID string) (string, error)

	// Remove deletes the binding matching either key. No-op if absent.
	Remove(ctx context.Context, key string) error
}

type bindingRepository struct {
	db *gorm.DB
}

// NewBindingRepository creates a new BindingRepository instance.
func NewBindingRepository(db *gorm.DB) BindingRepository {
	return &bindingRepository{db: db}
}

func (r *bindingRepository) Insert(ctx context.Context, controllerID, tokenID string) error {
	binding := models.IcaBinding{ControllerID: controllerID, TokenID: tokenID}
	return r.db.WithContext(ctx).Create(&binding).Error
}

func (r *bindingRepository) Lookup(ctx context.Context, key string) (string, error) {
	var binding models.IcaBinding
	err := r.db.WithContext(ctx).
		Where("controller_id = ? OR token_id = ?", key, key).
		First(&binding).Error
	if err != nil {
		return "", err
	}
	if binding.ControllerID == key {
		return binding.TokenID, nil
	}
	return binding.ControllerID, nil
}

func (r *bindingRepository) TokenForController(ctx context.Context, controllerID string) (string, error) {
	var binding models.IcaBinding
	err := r.db.WithContext(ctx).Where("controller_id = ?", controllerID).First(&binding).Error
	if err != nil {
		return "", err
	}
	return binding.TokenID, nil
}

func (r *bindingRepository) ControllerForToken(ctx context.Context, tokenID string) (string, error) {
	var binding models.IcaBinding
	err := r.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&binding).Error
	if err != nil {
		return "", err
	}
	return binding.ControllerID, nil
}

func (r *bindingRepository) Remove(ctx context.Context, key string) error {
	err := r.db.WithContext(ctx).
		Where("controller_id = ? OR token_id = ?", key, key).
		Delete(&models.IcaBinding{}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
