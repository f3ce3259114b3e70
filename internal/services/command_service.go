package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/srdtrk/nft-ica/internal/icatypes"
	"github.com/srdtrk/nft-ica/internal/models"
	"github.com/srdtrk/nft-ica/internal/repository"
)

// SendCommand dispatches a command to the remote account bound to tokenID.
// The caller must own the token on the ledger. The command is logged as
// pending and forwarded verbatim to the bound controller; resolution
// arrives later as an ack or timeout callback.
func (s *CoordinatorService) SendCommand(ctx context.Context, caller, tokenID string, payload json.RawMessage) error {
	var cmd icatypes.CommandMsg
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("%w: decode command: %v", ErrValidation, err)
	}
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var out outbox

	err := s.store.Transact(ctx, func(st repository.Store) error {
		state, err := s.initializedState(ctx, st)
		if err != nil {
			return err
		}

		controllerID, height, err := s.authorizeCommand(ctx, st, state, caller, tokenID)
		if err != nil {
			return err
		}

		if cmd.RequestsChannelOpen() {
			if err := s.markChannelPending(ctx, st, tokenID); err != nil {
				return err
			}
		}

		record := &models.TransactionRecord{
			TokenID:   tokenID,
			Owner:     caller,
			Status:    models.TxStatusPending,
			Category:  string(cmd.Classify()),
			Height:    height,
			Timestamp: time.Now().UTC(),
			Payload:   string(payload),
		}
		if err := st.History().Append(ctx, record); err != nil {
			return err
		}

		out = append(out, func(ctx context.Context) error {
			return s.controller.ForwardCommand(ctx, controllerID, payload)
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"token_id": tokenID,
		"caller":   caller,
		"category": cmd.Classify(),
	}).Info("command dispatched")

	out.flush(ctx, s.logger)
	return nil
}

// authorizeCommand runs the three-step authorization gate: ledger ownership,
// bimap binding, and allow-list membership. It returns the bound controller
// id and the ledger height the ownership answer was read at. All checks
// must pass before any state mutation.
func (s *CoordinatorService) authorizeCommand(
	ctx context.Context,
	st repository.Store,
	state *models.ContractState,
	caller, tokenID string,
) (string, uint64, error) {
	owner, height, err := s.ledger.OwnerOf(ctx, state.LedgerAddress, tokenID)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrRemoteQueryFailed, err)
	}
	if owner != caller {
		return "", 0, fmt.Errorf("%w: %s does not own %s", ErrUnauthorized, caller, tokenID)
	}

	controllerID, err := st.Bindings().ControllerForToken(ctx, tokenID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", 0, fmt.Errorf("%w: token %s is not bound to a controller", ErrNotFound, tokenID)
	} else if err != nil {
		return "", 0, err
	}

	registered, err := st.Controllers().Contains(ctx, controllerID)
	if err != nil {
		return "", 0, err
	}
	if !registered {
		return "", 0, fmt.Errorf("%w: controller %s is not registered", ErrUnauthorized, controllerID)
	}

	return controllerID, height, nil
}

// markChannelPending moves a closed (or never opened) channel to pending.
// An already pending or open channel is left alone.
func (s *CoordinatorService) markChannelPending(ctx context.Context, st repository.Store, tokenID string) error {
	ch, err := st.Channels().Get(ctx, tokenID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err == nil && ch.Status != models.ChannelStatusClosed {
		return nil
	}
	return st.Channels().Set(ctx, tokenID, models.ChannelStatusPending, "")
}
