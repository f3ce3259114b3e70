package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/srdtrk/nft-ica/internal/icatypes"
	"github.com/srdtrk/nft-ica/internal/models"
)

// Pagination defaults for history queries.
const (
	DefaultPageSize = 30
	MaxPageSize     = 100
)

// ConfigResponse is the GetConfig answer.
type ConfigResponse struct {
	Name               string                          `json:"name"`
	Version            string                          `json:"version"`
	Owner              string                          `json:"owner"`
	ControllerCodeRef  string                          `json:"controller_code_ref"`
	LedgerCodeRef      string                          `json:"ledger_code_ref"`
	LedgerAddress      string                          `json:"ledger_address,omitempty"`
	DefaultChanOptions icatypes.ChannelOpenInitOptions `json:"default_chan_options"`
}

// HistoryResponse is one newest-first page of a token's transaction log.
type HistoryResponse struct {
	Records []*models.TransactionRecord `json:"records"`
	Total   int64                       `json:"total"`
}

// GetConfig returns the coordinator configuration. Queries never mutate
// state.
func (s *CoordinatorService) GetConfig(ctx context.Context) (*ConfigResponse, error) {
	state, err := s.store.State().Get(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: not instantiated", ErrNotFound)
	} else if err != nil {
		return nil, err
	}

	var options icatypes.ChannelOpenInitOptions
	if err := json.Unmarshal([]byte(state.DefaultChanOptions), &options); err != nil {
		return nil, fmt.Errorf("decode stored channel options: %w", err)
	}

	return &ConfigResponse{
		Name:               ContractName,
		Version:            ContractVersion,
		Owner:              state.Owner,
		ControllerCodeRef:  state.ControllerCodeRef,
		LedgerCodeRef:      state.LedgerCodeRef,
		LedgerAddress:      state.LedgerAddress,
		DefaultChanOptions: options,
	}, nil
}

// GetOwner returns the coordinator owner.
func (s *CoordinatorService) GetOwner(ctx context.Context) (string, error) {
	state, err := s.store.State().Get(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: not instantiated", ErrNotFound)
	} else if err != nil {
		return "", err
	}
	return state.Owner, nil
}

// LookupBimap returns the counterpart of either bimap key: the token bound
// to a controller id, or the controller bound to a token id.
func (s *CoordinatorService) LookupBimap(ctx context.Context, key string) (string, error) {
	value, err := s.store.Bindings().Lookup(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: no binding for %s", ErrNotFound, key)
	} else if err != nil {
		return "", err
	}
	return value, nil
}

// GetRemoteAddress returns the remote account address controlled by a
// token. A missing mapping is ErrNotFound.
func (s *CoordinatorService) GetRemoteAddress(ctx context.Context, tokenID string) (string, error) {
	addr, err := s.store.RemoteAccounts().Get(ctx, tokenID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: no remote account for token %s", ErrNotFound, tokenID)
	} else if err != nil {
		return "", err
	}
	return addr, nil
}

// GetRemoteAddresses is the batch form of GetRemoteAddress. Unlike the
// single read, missing tokens yield empty strings; the result always has
// one slot per requested id.
func (s *CoordinatorService) GetRemoteAddresses(ctx context.Context, tokenIDs []string) ([]string, error) {
	out := make([]string, len(tokenIDs))
	for i, id := range tokenIDs {
		addr, err := s.store.RemoteAccounts().Get(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		} else if err != nil {
			return nil, err
		}
		out[i] = addr
	}
	return out, nil
}

// GetChannelStatus returns the channel state of a token.
func (s *CoordinatorService) GetChannelStatus(ctx context.Context, tokenID string) (*models.ChannelState, error) {
	ch, err := s.store.Channels().Get(ctx, tokenID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no channel for token %s", ErrNotFound, tokenID)
	} else if err != nil {
		return nil, err
	}
	return ch, nil
}

// GetHistory returns one newest-first page of a token's transaction log
// plus the total record count. Pages are zero-based; pageSize defaults to
// DefaultPageSize and is capped at MaxPageSize.
func (s *CoordinatorService) GetHistory(ctx context.Context, tokenID string, page, pageSize int) (*HistoryResponse, error) {
	if page < 0 || pageSize < 0 {
		return nil, fmt.Errorf("%w: negative pagination parameters", ErrValidation)
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	records, total, err := s.store.History().Page(ctx, tokenID, page, pageSize)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*models.TransactionRecord{}
	}
	return &HistoryResponse{Records: records, Total: total}, nil
}

// GetMintQueue returns the whole mint queue front-first. Diagnostic read;
// an empty queue is an empty listing, not an error.
func (s *CoordinatorService) GetMintQueue(ctx context.Context) ([]*models.MintQueueItem, error) {
	items, err := s.store.Queue().List(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.MintQueueItem{}
	}
	return items, nil
}
