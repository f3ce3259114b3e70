// Package models defines the persisted state of the coordinator. Each model
// maps to one named storage partition.
package models

import (
	"time"
)

// ChannelStatus is the per-token channel lifecycle status.
type ChannelStatus string

const (
	ChannelStatusPending ChannelStatus = "pending" // open requested, handshake not finished
	ChannelStatusOpen    ChannelStatus = "open"
	ChannelStatusClosed  ChannelStatus = "closed"
)

// TxStatus is the resolution status of a dispatched command.
type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusCompleted TxStatus = "completed"
	TxStatusFailed    TxStatus = "failed"
	TxStatusTimeout   TxStatus = "timeout"
)

// ReplyKind tags a pending continuation with the intent of its creation
// request.
type ReplyKind int

const (
	ReplyKindLedgerCreated     ReplyKind = 1
	ReplyKindControllerCreated ReplyKind = 2
)

// ContractState is the singleton coordinator configuration. The ledger
// address starts empty and is written exactly once by the ledger-created
// reply continuation.
type ContractState struct {
	ID                 uint      `gorm:"primaryKey" json:"-"`
	Owner              string    `gorm:"type:varchar(128);not null" json:"owner"`
	ControllerCodeRef  string    `gorm:"type:varchar(128);not null" json:"controller_code_ref"`
	LedgerCodeRef      string    `gorm:"type:varchar(128);not null" json:"ledger_code_ref"`
	LedgerAddress      string    `gorm:"type:varchar(128)" json:"ledger_address"`
	DefaultChanOptions string    `gorm:"type:text;not null" json:"default_chan_options"` // JSON ChannelOpenInitOptions
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (ContractState) TableName() string { return "contract_state" }

// TokenCounter is the monotonic mint sequence. Incremented once per mint
// request, never decremented.
type TokenCounter struct {
	ID    uint   `gorm:"primaryKey"`
	Value uint64 `gorm:"not null;default:0"`
}

func (TokenCounter) TableName() string { return "token_counter" }

// MintQueueItem is one mint request awaiting its provisioning callback.
// Items are pushed at the front (highest Seq) and consumed from the back
// (lowest Seq), so the queue is strictly FIFO.
type MintQueueItem struct {
	Seq       int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	TokenID   string    `gorm:"type:varchar(64);not null;index" json:"token_id"`
	Owner     string    `gorm:"type:varchar(128);not null" json:"owner"`
	CreatedAt time.Time `json:"created_at"`
}

func (MintQueueItem) TableName() string { return "mint_queue" }

// IcaBinding is one entry of the controller/token identity bimap. A single
// row carries both directions, and the unique indexes on both columns keep
// the mapping a true bijection.
type IcaBinding struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	ControllerID string    `gorm:"type:varchar(128);not null;uniqueIndex" json:"controller_id"`
	TokenID      string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"token_id"`
	CreatedAt    time.Time `json:"created_at"`
}

func (IcaBinding) TableName() string { return "ica_bindings" }

// RegisteredController is an allow-list entry for callback delivery. Added
// when a controller creation receipt arrives; never removed.
type RegisteredController struct {
	ControllerID string    `gorm:"type:varchar(128);primaryKey" json:"controller_id"`
	CreatedAt    time.Time `json:"created_at"`
}

func (RegisteredController) TableName() string { return "registered_controllers" }

// ChannelState tracks per-token channel connectivity.
type ChannelState struct {
	TokenID   string        `gorm:"type:varchar(64);primaryKey" json:"token_id"`
	Status    ChannelStatus `gorm:"type:varchar(16);not null" json:"status"`
	ChannelID string        `gorm:"type:varchar(128)" json:"channel_id,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (ChannelState) TableName() string { return "channel_states" }

// TransactionRecord is one dispatched command and its resolved outcome.
// Records are appended at the head of a per-token log (descending ID order
// reads newest-first); resolution mutates Status in place and the record
// keeps its head position. Records are never deleted.
type TransactionRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	TokenID   string    `gorm:"type:varchar(64);not null;index:idx_tx_token" json:"token_id"`
	Owner     string    `gorm:"type:varchar(128);not null" json:"owner"`
	Status    TxStatus  `gorm:"type:varchar(16);not null;index" json:"status"`
	Category  string    `gorm:"type:varchar(32);not null" json:"category"`
	Height    uint64    `json:"height"`
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
	Payload   string    `gorm:"type:text" json:"payload,omitempty"` // command JSON, stored verbatim
}

func (TransactionRecord) TableName() string { return "transaction_records" }

// RemoteAccount maps a token to the address of the remote account it
// controls. Written when a channel-open callback reports the account.
type RemoteAccount struct {
	TokenID   string    `gorm:"type:varchar(64);primaryKey" json:"token_id"`
	Address   string    `gorm:"type:varchar(128);not null" json:"address"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (RemoteAccount) TableName() string { return "remote_accounts" }

// PendingReply associates an issued continuation id with the intent of its
// asynchronous creation request. Consumed exactly once by the follow-up
// receipt.
type PendingReply struct {
	ReplyID   string    `gorm:"type:varchar(64);primaryKey" json:"reply_id"`
	Kind      ReplyKind `gorm:"not null" json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

func (PendingReply) TableName() string { return "pending_replies" }
