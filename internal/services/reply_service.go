package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/srdtrk/nft-ica/internal/icatypes"
	"github.com/srdtrk/nft-ica/internal/models"
	"github.com/srdtrk/nft-ica/internal/repository"
	"github.com/srdtrk/nft-ica/internal/utils"
)

// HandleReceipt consumes the creation receipt for a previously issued
// asynchronous creation request and routes it by the recorded intent. The
// pending continuation is consumed exactly once; an unknown or already
// consumed reply id fails with ErrNotFound.
//
// A failure receipt is a successful invocation: the continuation is
// consumed and the failure recorded, leaving the intent unfulfilled.
func (s *CoordinatorService) HandleReceipt(ctx context.Context, receipt icatypes.CreationReceipt) error {
	if receipt.ReplyID == "" {
		return fmt.Errorf("%w: receipt carries no reply id", ErrValidation)
	}

	return s.store.Transact(ctx, func(st repository.Store) error {
		reply, err := st.Replies().Consume(ctx, receipt.ReplyID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: unknown reply id %s", ErrNotFound, receipt.ReplyID)
		} else if err != nil {
			return err
		}

		if receipt.Error != "" {
			s.logger.WithFields(logrus.Fields{
				"reply_id": receipt.ReplyID,
				"kind":     reply.Kind,
				"error":    receipt.Error,
			}).Error("creation request failed")
			return nil
		}

		handler, ok := s.replyHandlers()[reply.Kind]
		if !ok {
			return fmt.Errorf("%w: unknown reply kind %d", ErrValidation, reply.Kind)
		}

		// Hosts wrap receipt values inconsistently; sanitize before
		// validating.
		addr := utils.SanitizeAddress(receipt.Address)
		if err := utils.ValidateAddress(addr); err != nil {
			return fmt.Errorf("%w: receipt address: %v", ErrValidation, err)
		}

		return handler(ctx, st, addr)
	})
}

type replyHandler func(ctx context.Context, st repository.Store, addr string) error

// replyHandlers is the handler table routing creation receipts by intent.
func (s *CoordinatorService) replyHandlers() map[models.ReplyKind]replyHandler {
	return map[models.ReplyKind]replyHandler{
		models.ReplyKindLedgerCreated:     s.onLedgerCreated,
		models.ReplyKindControllerCreated: s.onControllerCreated,
	}
}

// onLedgerCreated binds the ledger contract address. The address field is
// written exactly once; a second binding attempt is a validation fault.
func (s *CoordinatorService) onLedgerCreated(ctx context.Context, st repository.Store, addr string) error {
	state, err := st.State().Get(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: not instantiated", ErrValidation)
	} else if err != nil {
		return err
	}
	if state.LedgerAddress != "" {
		return fmt.Errorf("%w: ledger address already bound", ErrValidation)
	}

	state.LedgerAddress = addr
	if err := st.State().Update(ctx, state); err != nil {
		return err
	}

	s.logger.WithField("ledger_address", addr).Info("ledger address bound")
	return nil
}

// onControllerCreated adds the new controller to the callback allow-list.
func (s *CoordinatorService) onControllerCreated(ctx context.Context, st repository.Store, addr string) error {
	if err := st.Controllers().Add(ctx, addr); err != nil {
		return err
	}
	s.logger.WithField("controller_id", addr).Info("controller registered")
	return nil
}
