// Package repository provides data access interfaces and implementations
// for the coordinator's storage partitions.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles one repository per storage partition behind a single
// storage handle. Transact runs a function against a transaction-scoped
// Store so that every invocation's writes commit atomically or not at all.
type Store interface {
	State() StateRepository
	Queue() MintQueueRepository
	Bindings() BindingRepository
	Controllers() ControllerRepository
	Channels() ChannelRepository
	History() HistoryRepository
	RemoteAccounts() RemoteAccountRepository
	Replies() ReplyRepository

	Transact(ctx context.Context, fn func(Store) error) error
}

type gormStore struct {
	db          *gorm.DB
	state       StateRepository
	queue       MintQueueRepository
	bindings    BindingRepository
	controllers ControllerRepository
	channels    ChannelRepository
	history     HistoryRepository
	accounts    RemoteAccountRepository
	replies     ReplyRepository
}

// NewStore creates a Store backed by the given database handle.
func NewStore(db *gorm.DB) Store {
	return &gormStore{
		db:          db,
		state:       NewStateRepository(db),
		queue:       NewMintQueueRepository(db),
		bindings:    NewBindingRepository(db),
		controllers: NewControllerRepository(db),
		channels:    NewChannelRepository(db),
		history:     NewHistoryRepository(db),
		accounts:    NewRemoteAccountRepository(db),
		replies:     NewReplyRepository(db),
	}
}

func (s *gormStore) State() StateRepository { return s.state }
func (s *gormStore) Queue() MintQueueRepository { return s.queue }
func (s *gormStore) Bindings() BindingRepository { return s.bindings }
func (s *gormStore) Controllers() ControllerRepository { return s.controllers }
func (s *gormStore) Channels() ChannelRepository { return s.channels }
func (s *gormStore) History() HistoryRepository { return s.history }
func (s *gormStore) RemoteAccounts() RemoteAccountRepository { return s.accounts }
func (s *gormStore) Replies() ReplyRepository { return s.replies }

func (s *gormStore) Transact(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
