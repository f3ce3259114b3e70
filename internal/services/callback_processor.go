package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/srdtrk/nft-ica/internal/icatypes"
	"github.com/srdtrk/nft-ica/internal/metrics"
	"github.com/srdtrk/nft-ica/internal/models"
	"github.com/srdtrk/nft-ica/internal/repository"
)

// ProcessCallback routes a controller callback to its handler. A failed
// callback invocation aborts with a typed error and commits nothing, the
// same as any other execute failure.
func (s *CoordinatorService) ProcessCallback(ctx context.Context, msg icatypes.CallbackMsg) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	switch {
	case msg.ChannelOpened != nil:
		metrics.CallbacksReceived.WithLabelValues("channel_opened").Inc()
		return s.onChannelOpened(ctx, *msg.ChannelOpened)
	case msg.AckReceived != nil:
		metrics.CallbacksReceived.WithLabelValues("ack_received").Inc()
		return s.onAckReceived(ctx, *msg.AckReceived)
	default:
		metrics.CallbacksReceived.WithLabelValues("timed_out").Inc()
		return s.onTimedOut(ctx, *msg.TimedOut)
	}
}

// onChannelOpened handles a channel-open callback. One callback shape
// serves both paths, disambiguated only by bimap membership: an unknown
// controller is a first open that consumes the oldest mint request and
// mints the token; a known controller is a channel re-open.
func (s *CoordinatorService) onChannelOpened(ctx context.Context, cb icatypes.ChannelOpenedCallback) error {
	controllerID, err := s.resolveControllerID(cb.ControllerID, cb.PortID)
	if err != nil {
		return err
	}

	var out outbox
	var boundToken string

	err = s.store.Transact(ctx, func(st repository.Store) error {
		if err := s.requireRegistered(ctx, st, controllerID); err != nil {
			return err
		}

		tokenID, err := st.Bindings().TokenForController(ctx, controllerID)
		switch {
		case err == nil:
			// Reconnect path: the token is already bound, this is a
			// re-open of its channel.
			ch, chErr := st.Channels().Get(ctx, tokenID)
			if chErr != nil && !errors.Is(chErr, gorm.ErrRecordNotFound) {
				return chErr
			}
			if chErr == nil && ch.Status == models.ChannelStatusOpen {
				return fmt.Errorf("%w: token %s", ErrChannelAlreadyOpen, tokenID)
			}
			boundToken = tokenID
			if cb.RemoteAccountID != "" {
				if err := st.RemoteAccounts().Set(ctx, tokenID, cb.RemoteAccountID); err != nil {
					return err
				}
			}
			return st.Channels().Set(ctx, tokenID, models.ChannelStatusOpen, cb.ChannelID)

		case errors.Is(err, gorm.ErrRecordNotFound):
			// First open: consume the oldest mint request and bind.
			item, qErr := st.Queue().PopBack(ctx)
			if errors.Is(qErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: channel opened with no pending mint request", ErrQueueEmpty)
			} else if qErr != nil {
				return qErr
			}

			if err := st.Bindings().Insert(ctx, controllerID, item.TokenID); err != nil {
				return err
			}
			if err := st.RemoteAccounts().Set(ctx, item.TokenID, cb.RemoteAccountID); err != nil {
				return err
			}
			if err := st.Channels().Set(ctx, item.TokenID, models.ChannelStatusOpen, cb.ChannelID); err != nil {
				return err
			}

			state, err := s.initializedState(ctx, st)
			if err != nil {
				return err
			}

			boundToken = item.TokenID
			owner := item.Owner
			out = append(out, func(ctx context.Context) error {
				return s.ledger.Mint(ctx, state.LedgerAddress, item.TokenID, owner, cb.RemoteAccountID)
			})
			return nil

		default:
			return err
		}
	})
	if err != nil {
		return err
	}

	if len(out) > 0 {
		metrics.TokensBound.Inc()
		metrics.MintQueueDepth.Dec()
	}
	if s.notifier != nil {
		s.notifier.NotifyChannel(boundToken, models.ChannelStatusOpen, cb.ChannelID)
	}

	s.logger.WithFields(logrus.Fields{
		"controller_id": controllerID,
		"token_id":      boundToken,
		"channel_id":    cb.ChannelID,
	}).Info("channel opened")

	out.flush(ctx, s.logger)
	return nil
}

// onAckReceived resolves the most recently dispatched pending command of
// the controller's token as completed or failed per the outcome
// discriminant. The record keeps its head position in the log.
func (s *CoordinatorService) onAckReceived(ctx context.Context, cb icatypes.AckReceivedCallback) error {
	status := models.TxStatusCompleted
	if !cb.Outcome.Success() {
		status = models.TxStatusFailed
	}

	record, tokenID, err := s.resolveHeadPending(ctx, cb.ControllerID, "", status, nil)
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"token_id": tokenID,
		"status":   status,
	}).Info("command acknowledged")

	if s.notifier != nil {
		s.notifier.NotifyCommandResolved(tokenID, record.Owner, record)
	}
	return nil
}

// onTimedOut resolves the head pending command as timed out and forces the
// channel closed regardless of its prior status.
func (s *CoordinatorService) onTimedOut(ctx context.Context, cb icatypes.TimedOutCallback) error {
	closeChannel := func(st repository.Store, tokenID string) error {
		return st.Channels().Set(ctx, tokenID, models.ChannelStatusClosed, "")
	}

	record, tokenID, err := s.resolveHeadPending(ctx, cb.ControllerID, "", models.TxStatusTimeout, closeChannel)
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"token_id": tokenID,
	}).Warn("command timed out, channel closed")

	if s.notifier != nil {
		s.notifier.NotifyChannel(tokenID, models.ChannelStatusClosed, "")
		s.notifier.NotifyCommandResolved(tokenID, record.Owner, record)
	}
	return nil
}

// resolveHeadPending correlates a packet callback back to a token via the
// bimap, resolves that token's head pending record to status, and runs an
// optional extra mutation in the same transaction.
func (s *CoordinatorService) resolveHeadPending(
	ctx context.Context,
	controllerID, portID string,
	status models.TxStatus,
	extra func(st repository.Store, tokenID string) error,
) (*models.TransactionRecord, string, error) {
	id, err := s.resolveControllerID(controllerID, portID)
	if err != nil {
		return nil, "", err
	}

	var record *models.TransactionRecord
	var tokenID string

	err = s.store.Transact(ctx, func(st repository.Store) error {
		if err := s.requireRegistered(ctx, st, id); err != nil {
			return err
		}

		tokenID, err = st.Bindings().TokenForController(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: controller %s is not bound", ErrNotFound, id)
		} else if err != nil {
			return err
		}

		record, err = st.History().HeadPending(ctx, tokenID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: no pending command for token %s", ErrNotFound, tokenID)
		} else if err != nil {
			return err
		}

		if err := st.History().Resolve(ctx, record.ID, status); err != nil {
			return err
		}
		record.Status = status

		if extra != nil {
			return extra(st, tokenID)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return record, tokenID, nil
}

// requireRegistered rejects callbacks from controllers outside the
// allow-list.
func (s *CoordinatorService) requireRegistered(ctx context.Context, st repository.Store, controllerID string) error {
	registered, err := st.Controllers().Contains(ctx, controllerID)
	if err != nil {
		return err
	}
	if !registered {
		return fmt.Errorf("%w: controller %s is not registered", ErrUnauthorized, controllerID)
	}
	return nil
}

// resolveControllerID prefers an explicit controller id and falls back to
// the port naming convention.
func (s *CoordinatorService) resolveControllerID(controllerID, portID string) (string, error) {
	if controllerID != "" {
		return controllerID, nil
	}
	if portID == "" {
		return "", fmt.Errorf("%w: callback carries neither controller id nor port id", ErrValidation)
	}
	id, err := icatypes.ControllerIDFromPort(portID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return id, nil
}
