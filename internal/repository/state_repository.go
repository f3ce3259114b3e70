package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/srdtrk/nft-ica/internal/models"
)

// StateRepository defines access to the singleton contract state and the
// mint counter partitions.
type StateRepository interface {
	Get(ctx context.Context) (*models.ContractState, error)
	Create(ctx context.Context, state *models.ContractState) error
	Update(ctx context.Context, state *models.ContractState) error

	// NextTokenSeq returns the current counter value and increments it.
	NextTokenSeq(ctx context.Context) (uint64, error)
}

type stateRepository struct {
	db *gorm.DB
}

// NewStateRepository creates a new StateRepository instance.
func NewStateRepository(db *gorm.DB) StateRepository {
	return &stateRepository{db: db}
}

func (r *stateRepository) Get(ctx context.Context) (*models.ContractState, error) {
	var state models.ContractState
	if err := r.db.WithContext(ctx).First(&state).Error; err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *stateRepository) Create(ctx context.Context, state *models.ContractState) error {
	return r.db.WithContext(ctx).Create(state).Error
}

func (r *stateRepository) Update(ctx context.Context, state *models.ContractState) error {
	return r.db.WithContext(ctx).Save(state).Error
}

func (r *stateRepository) NextTokenSeq(ctx context.Context) (uint64, error) {
	// The counter row is locked for the rest of the transaction so two
	// concurrent mint requests cannot allocate the same sequence.
	var counter models.TokenCounter
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		counter = models.TokenCounter{Value: 0}
		if err := r.db.WithContext(ctx).Create(&counter).Error; err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	current := counter.Value
	counter.Value++
	if err := r.db.WithContext(ctx).Save(&counter).Error; err != nil {
		return 0, err
	}
	return current, nil
}
