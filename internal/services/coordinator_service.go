package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/srdtrk/nft-ica/internal/clients"
	"github.com/srdtrk/nft-ica/internal/icatypes"
	"github.com/srdtrk/nft-ica/internal/metrics"
	"github.com/srdtrk/nft-ica/internal/models"
	"github.com/srdtrk/nft-ica/internal/repository"
)

// Coordinator identity reported by GetConfig.
const (
	ContractName    = "nft-ica-coordinator"
	ContractVersion = "0.1.0"

	// TokenPrefix is the deterministic prefix of minted token ids.
	TokenPrefix = "ica-token"
)

// Notifier pushes state changes to subscribed token owners. Implementations
// must not block; a nil Notifier disables push.
type Notifier interface {
	NotifyChannel(tokenID string, status models.ChannelStatus, channelID string)
	NotifyCommandResolved(tokenID, owner string, record *models.TransactionRecord)
}

// CoordinatorService orchestrates the coordinator's execute surface. Every
// execute invocation runs inside one store transaction; outbound messages
// are published only after the transaction commits.
type CoordinatorService struct {
	store      repository.Store
	ledger     clients.LedgerClient
	controller clients.ControllerClient
	notifier   Notifier
	logger     *logrus.Logger
}

// NewCoordinatorService creates a new CoordinatorService.
func NewCoordinatorService(
	store repository.Store,
	ledger clients.LedgerClient,
	controller clients.ControllerClient,
	logger *logrus.Logger,
) *CoordinatorService {
	return &CoordinatorService{
		store:      store,
		ledger:     ledger,
		controller: controller,
		logger:     logger,
	}
}

// SetNotifier attaches the owner push notifier.
func (s *CoordinatorService) SetNotifier(n Notifier) {
	s.notifier = n
}

// RestoreQueueDepth resets the queue depth gauge from storage. Called once
// at startup; the gauge is otherwise maintained incrementally and would
// read zero after a restart while the queue table is not empty.
func (s *CoordinatorService) RestoreQueueDepth(ctx context.Context) error {
	items, err := s.store.Queue().List(ctx)
	if err != nil {
		return err
	}
	metrics.MintQueueDepth.Set(float64(len(items)))
	return nil
}

// outbox collects outbound messages produced by an invocation. They are
// sent only after the invocation's transaction commits.
//
// A send failure here is not an invocation failure: the state change is
// already durable, and reporting an error would tell the caller nothing
// happened when it did (a retried mint would allocate a second token).
// Failures are logged and counted instead; the operator re-dispatches.
type outbox []func(ctx context.Context) error

func (o outbox) flush(ctx context.Context, logger *logrus.Logger) {
	for _, send := range o {
		if err := send(ctx); err != nil {
			metrics.OutboundSendFailures.Inc()
			logger.WithError(err).Error("outbound message failed after commit, state is durable but undispatched")
		}
	}
}

// InstantiateRequest configures the coordinator.
type InstantiateRequest struct {
	Owner              string                          `json:"owner,omitempty"`
	ControllerCodeRef  string                          `json:"controller_code_ref"`
	LedgerCodeRef      string                          `json:"ledger_code_ref"`
	DefaultChanOptions icatypes.ChannelOpenInitOptions `json:"default_chan_options"`
	Salt               string                          `json:"salt,omitempty"`
}

// Instantiate persists the coordinator configuration and issues one
// deferred creation request for the ledger contract. The ledger address is
// bound later by the matching creation receipt. Instantiate may run only
// once.
func (s *CoordinatorService) Instantiate(ctx context.Context, caller string, req InstantiateRequest) error {
	if req.ControllerCodeRef == "" || req.LedgerCodeRef == "" {
		return fmt.Errorf("%w: controller and ledger code refs are required", ErrValidation)
	}
	if req.DefaultChanOptions.ConnectionID == "" {
		return fmt.Errorf("%w: connection_id is required", ErrValidation)
	}

	owner := req.Owner
	if owner == "" {
		owner = caller
	}
	if owner == "" {
		return fmt.Errorf("%w: owner is required", ErrValidation)
	}

	optionsJSON, err := json.Marshal(req.DefaultChanOptions)
	if err != nil {
		return fmt.Errorf("%w: encode channel options: %v", ErrValidation, err)
	}

	replyID := uuid.NewString()
	var out outbox

	err = s.store.Transact(ctx, func(st repository.Store) error {
		if _, err := st.State().Get(ctx); err == nil {
			return fmt.Errorf("%w: already instantiated", ErrValidation)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		state := &models.ContractState{
			Owner:              owner,
			ControllerCodeRef:  req.ControllerCodeRef,
			LedgerCodeRef:      req.LedgerCodeRef,
			DefaultChanOptions: string(optionsJSON),
		}
		if err := st.State().Create(ctx, state); err != nil {
			return err
		}

		if err := st.Replies().Create(ctx, &models.PendingReply{
			ReplyID: replyID,
			Kind:    models.ReplyKindLedgerCreated,
		}); err != nil {
			return err
		}

		out = append(out, func(ctx context.Context) error {
			return s.controller.RequestContractCreation(ctx, icatypes.CreateContractRequest{
				ReplyID: replyID,
				CodeRef: req.LedgerCodeRef,
				Salt:    req.Salt,
				Label:   ContractName,
			})
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"owner":    owner,
		"reply_id": replyID,
	}).Info("coordinator instantiated, ledger creation requested")

	out.flush(ctx, s.logger)
	return nil
}

// RequestMint queues a mint request for caller and issues an asynchronous
// provisioning request. No token is minted here; minting happens when the
// matching provisioning callback arrives. Fails if the coordinator is not
// fully initialized, i.e. the ledger address is not bound yet.
func (s *CoordinatorService) RequestMint(ctx context.Context, caller, salt string) (string, error) {
	if caller == "" {
		return "", fmt.Errorf("%w: caller is required", ErrValidation)
	}

	replyID := uuid.NewString()
	var tokenID string
	var out outbox

	err := s.store.Transact(ctx, func(st repository.Store) error {
		state, err := s.initializedState(ctx, st)
		if err != nil {
			return err
		}

		seq, err := st.State().NextTokenSeq(ctx)
		if err != nil {
			return err
		}
		tokenID = fmt.Sprintf("%s-%d", TokenPrefix, seq)

		if err := st.Queue().PushFront(ctx, &models.MintQueueItem{
			TokenID: tokenID,
			Owner:   caller,
		}); err != nil {
			return err
		}

		if err := st.Replies().Create(ctx, &models.PendingReply{
			ReplyID: replyID,
			Kind:    models.ReplyKindControllerCreated,
		}); err != nil {
			return err
		}

		var options icatypes.ChannelOpenInitOptions
		if err := json.Unmarshal([]byte(state.DefaultChanOptions), &options); err != nil {
			return fmt.Errorf("decode stored channel options: %w", err)
		}

		out = append(out, func(ctx context.Context) error {
			return s.controller.RequestProvision(ctx, icatypes.ProvisionRequest{
				ReplyID:            replyID,
				ChannelOpenOptions: options,
				Salt:               salt,
			})
		})
		return nil
	})
	if err != nil {
		return "", err
	}

	metrics.MintQueueDepth.Inc()
	s.logger.WithFields(logrus.Fields{
		"token_id": tokenID,
		"owner":    caller,
	}).Info("mint request queued")

	out.flush(ctx, s.logger)
	return tokenID, nil
}

// UpdateOwner transfers coordinator ownership. Only the current owner may
// call it; renounce gives up ownership permanently.
func (s *CoordinatorService) UpdateOwner(ctx context.Context, caller, newOwner string, renounce bool) error {
	if !renounce && newOwner == "" {
		return fmt.Errorf("%w: new_owner is required", ErrValidation)
	}

	return s.store.Transact(ctx, func(st repository.Store) error {
		state, err := st.State().Get(ctx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: not instantiated", ErrValidation)
		} else if err != nil {
			return err
		}

		if caller != state.Owner {
			return fmt.Errorf("%w: caller %s is not the owner", ErrUnauthorized, caller)
		}

		if renounce {
			state.Owner = ""
		} else {
			state.Owner = newOwner
		}
		return st.State().Update(ctx, state)
	})
}

// initializedState loads the contract state and requires the ledger address
// to be bound.
func (s *CoordinatorService) initializedState(ctx context.Context, st repository.Store) (*models.ContractState, error) {
	state, err := st.State().Get(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: not instantiated", ErrValidation)
	} else if err != nil {
		return nil, err
	}
	if state.LedgerAddress == "" {
		return nil, fmt.Errorf("%w: ledger address not bound yet", ErrValidation)
	}
	return state, nil
}
