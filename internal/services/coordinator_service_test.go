package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/srdtrk/nft-ica/internal/icatypes"
	"github.com/srdtrk/nft-ica/internal/metrics"
	"github.com/srdtrk/nft-ica/internal/models"
)

func newTestService(t *testing.T) (*CoordinatorService, *memStore, *fakeLedger, *fakeController) {
	t.Helper()
	store := newMemStore()
	ledger := newFakeLedger()
	controller := &fakeController{}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	svc := NewCoordinatorService(store, ledger, controller, logger)
	return svc, store, ledger, controller
}

func instantiateReq() InstantiateRequest {
	return InstantiateRequest{
		ControllerCodeRef: "code-7",
		LedgerCodeRef:     "code-8",
		DefaultChanOptions: icatypes.ChannelOpenInitOptions{
			ConnectionID:             "connection-0",
			CounterpartyConnectionID: "connection-1",
		},
	}
}

// instantiated brings a fresh service to the fully initialized state: config
// persisted and ledger address bound via its creation receipt.
func instantiated(t *testing.T, svc *CoordinatorService, controller *fakeController) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, svc.Instantiate(ctx, "cosmos1owner", instantiateReq()))
	require.Len(t, controller.creations, 1)

	receipt := icatypes.CreationReceipt{
		ReplyID: controller.creations[0].ReplyID,
		Address: "cosmos1ledgercontract",
	}
	require.NoError(t, svc.HandleReceipt(ctx, receipt))
}

func TestInstantiateOnce(t *testing.T) {
	svc, store, _, controller := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Instantiate(ctx, "cosmos1owner", instantiateReq()))
	require.NotNil(t, store.state)
	require.Equal(t, "cosmos1owner", store.state.Owner)
	require.Len(t, controller.creations, 1)

	err := svc.Instantiate(ctx, "cosmos1owner", instantiateReq())
	require.ErrorIs(t, err, ErrValidation)
	require.Len(t, controller.creations, 1)
}

func TestLedgerReceiptSanitizesAddress(t *testing.T) {
	svc, store, _, controller := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Instantiate(ctx, "cosmos1owner", instantiateReq()))

	// Hosts sometimes deliver the address with stray quoting.
	receipt := icatypes.CreationReceipt{
		ReplyID: controller.creations[0].ReplyID,
		Address: "\"cosmos1ledgercontract\"\n",
	}
	require.NoError(t, svc.HandleReceipt(ctx, receipt))
	require.Equal(t, "cosmos1ledgercontract", store.state.LedgerAddress)

	// A continuation is consumed exactly once.
	err := svc.HandleReceipt(ctx, receipt)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRequestMintRequiresInitialization(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RequestMint(ctx, "alice", "")
	require.ErrorIs(t, err, ErrValidation)

	// Instantiated but ledger address not bound yet: still not ready.
	require.NoError(t, svc.Instantiate(ctx, "cosmos1owner", instantiateReq()))
	_, err = svc.RequestMint(ctx, "alice", "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestMintScenario(t *testing.T) {
	svc, store, ledger, controller := newTestService(t)
	ctx := context.Background()
	instantiated(t, svc, controller)

	tokenID, err := svc.RequestMint(ctx, "alice", "")
	require.NoError(t, err)
	require.Equal(t, "ica-token-0", tokenID)
	require.Len(t, controller.provisions, 1)

	queue, err := svc.GetMintQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	require.Equal(t, "ica-token-0", queue[0].TokenID)
	require.Equal(t, "alice", queue[0].Owner)

	// Register the controller the provisioning subsystem created.
	store.controllers["ctrl1"] = true

	err = svc.ProcessCallback(ctx, icatypes.CallbackMsg{
		ChannelOpened: &icatypes.ChannelOpenedCallback{
			ControllerID:    "ctrl1",
			RemoteAccountID: "addr1",
			ChannelID:       "channel-3",
		},
	})
	require.NoError(t, err)

	// Queue consumed, identity bound both ways, token minted to alice.
	queue, err = svc.GetMintQueue(ctx)
	require.NoError(t, err)
	require.Empty(t, queue)

	token, err := svc.LookupBimap(ctx, "ctrl1")
	require.NoError(t, err)
	require.Equal(t, "ica-token-0", token)
	ctrl, err := svc.LookupBimap(ctx, "ica-token-0")
	require.NoError(t, err)
	require.Equal(t, "ctrl1", ctrl)

	require.Len(t, ledger.mints, 1)
	require.Equal(t, "ica-token-0", ledger.mints[0].TokenID)
	require.Equal(t, "alice", ledger.mints[0].Owner)
	require.Equal(t, "addr1", ledger.mints[0].RemoteAccountID)

	remote, err := svc.GetRemoteAddress(ctx, "ica-token-0")
	require.NoError(t, err)
	require.Equal(t, "addr1", remote)

	ch, err := svc.GetChannelStatus(ctx, "ica-token-0")
	require.NoError(t, err)
	require.Equal(t, models.ChannelStatusOpen, ch.Status)
	require.Equal(t, "channel-3", ch.ChannelID)
}

func TestMintFIFOOrdering(t *testing.T) {
	svc, store, ledger, controller := newTestService(t)
	ctx := context.Background()
	instantiated(t, svc, controller)

	const n = 4
	owners := make([]string, n)
	for i := 0; i < n; i++ {
		owners[i] = fmt.Sprintf("owner-%d", i)
		tokenID, err := svc.RequestMint(ctx, owners[i], "")
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("ica-token-%d", i), tokenID)
	}

	// Callbacks arrive in request order; each first-open consumes the
	// oldest pending request.
	for i := 0; i < n; i++ {
		controllerID := fmt.Sprintf("controller-%d", i)
		store.controllers[controllerID] = true
		err := svc.ProcessCallback(ctx, icatypes.CallbackMsg{
			ChannelOpened: &icatypes.ChannelOpenedCallback{
				ControllerID:    controllerID,
				RemoteAccountID: fmt.Sprintf("remote-%d", i),
				ChannelID:       fmt.Sprintf("channel-%d", i),
			},
		})
		require.NoError(t, err)
	}

	queue, err := svc.GetMintQueue(ctx)
	require.NoError(t, err)
	require.Empty(t, queue)
	require.Len(t, ledger.mints, n)

	for i := 0; i < n; i++ {
		tokenID := fmt.Sprintf("ica-token-%d", i)
		require.Equal(t, owners[i], ledger.mints[i].Owner)
		require.Equal(t, tokenID, ledger.mints[i].TokenID)

		bound, err := svc.LookupBimap(ctx, fmt.Sprintf("controller-%d", i))
		require.NoError(t, err)
		require.Equal(t, tokenID, bound)
	}
}

func TestChannelOpenedRejections(t *testing.T) {
	svc, store, _, controller := newTestService(t)
	ctx := context.Background()
	instantiated(t, svc, controller)

	opened := icatypes.CallbackMsg{
		ChannelOpened: &icatypes.ChannelOpenedCallback{
			ControllerID:    "ctrl1",
			RemoteAccountID: "addr1",
			ChannelID:       "channel-0",
		},
	}

	// Unregistered controller.
	require.ErrorIs(t, svc.ProcessCallback(ctx, opened), ErrUnauthorized)

	// Registered but no pending mint request: consistency fault.
	store.controllers["ctrl1"] = true
	require.ErrorIs(t, svc.ProcessCallback(ctx, opened), ErrQueueEmpty)

	// Bind it properly, then a duplicate open is rejected.
	_, err := svc.RequestMint(ctx, "alice", "")
	require.NoError(t, err)
	require.NoError(t, svc.ProcessCallback(ctx, opened))
	require.ErrorIs(t, svc.ProcessCallback(ctx, opened), ErrChannelAlreadyOpen)
}

func TestReconnectReopensChannel(t *testing.T) {
	svc, store, _, controller := newTestService(t)
	ctx := context.Background()
	instantiated(t, svc, controller)

	store.controllers["ctrl1"] = true
	_, err := svc.RequestMint(ctx, "alice", "")
	require.NoError(t, err)

	require.NoError(t, svc.ProcessCallback(ctx, icatypes.CallbackMsg{
		ChannelOpened: &icatypes.ChannelOpenedCallback{
			ControllerID:    "ctrl1",
			RemoteAccountID: "addr1",
			ChannelID:       "channel-0",
		},
	}))

	// Simulate the channel closing, then a reconnect open. The bimap is
	// already bound, so no second mint happens and the queue is untouched.
	require.NoError(t, store.Channels().Set(ctx, "ica-token-0", models.ChannelStatusClosed, ""))

	require.NoError(t, svc.ProcessCallback(ctx, icatypes.CallbackMsg{
		ChannelOpened: &icatypes.ChannelOpenedCallback{
			ControllerID:    "ctrl1",
			RemoteAccountID: "addr1",
			ChannelID:       "channel-1",
		},
	}))

	ch, err := svc.GetChannelStatus(ctx, "ica-token-0")
	require.NoError(t, err)
	require.Equal(t, models.ChannelStatusOpen, ch.Status)
	require.Equal(t, "channel-1", ch.ChannelID)
}

// The provisioning continuation is what puts a controller on the
// allow-list: consuming the receipt must make its callbacks acceptable.
func TestProvisionReceiptRegistersController(t *testing.T) {
	svc, store, ledger, controller := newTestService(t)
	ctx := context.Background()
	instantiated(t, svc, controller)

	_, err := svc.RequestMint(ctx, "alice", "")
	require.NoError(t, err)
	require.Len(t, controller.provisions, 1)

	opened := icatypes.CallbackMsg{
		ChannelOpened: &icatypes.ChannelOpenedCallback{
			ControllerID:    "wasm1controller",
			RemoteAccountID: "addr1",
			ChannelID:       "channel-0",
		},
	}

	// Before the receipt lands the controller is unknown.
	require.ErrorIs(t, svc.ProcessCallback(ctx, opened), ErrUnauthorized)

	require.NoError(t, svc.HandleReceipt(ctx, icatypes.CreationReceipt{
		ReplyID: controller.provisions[0].ReplyID,
		Address: "wasm1controller",
	}))
	require.True(t, store.controllers["wasm1controller"])

	require.NoError(t, svc.ProcessCallback(ctx, opened))
	require.Len(t, ledger.mints, 1)
	require.Equal(t, "ica-token-0", ledger.mints[0].TokenID)
}

func TestMintCommitsWhenDispatchFails(t *testing.T) {
	svc, _, _, controller := newTestService(t)
	ctx := context.Background()
	instantiated(t, svc, controller)

	// The provisioning publish fails after the transaction committed. The
	// caller must still get the allocated token; a reported failure would
	// invite a retry that allocates a second one.
	controller.provisionErr = fmt.Errorf("nats: connection closed")
	tokenID, err := svc.RequestMint(ctx, "alice", "")
	require.NoError(t, err)
	require.Equal(t, "ica-token-0", tokenID)

	queue, err := svc.GetMintQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	require.Equal(t, "ica-token-0", queue[0].TokenID)

	// The next mint continues the sequence; nothing was rolled back.
	controller.provisionErr = nil
	tokenID, err = svc.RequestMint(ctx, "bob", "")
	require.NoError(t, err)
	require.Equal(t, "ica-token-1", tokenID)
}

func TestBindingRemoveIsPaired(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	require.NoError(t, store.Bindings().Insert(ctx, "ctrl1", "ica-token-0"))

	token, err := store.Bindings().Lookup(ctx, "ctrl1")
	require.NoError(t, err)
	require.Equal(t, "ica-token-0", token)
	ctrl, err := store.Bindings().Lookup(ctx, "ica-token-0")
	require.NoError(t, err)
	require.Equal(t, "ctrl1", ctrl)

	// Removing by either key drops both directions at once.
	require.NoError(t, store.Bindings().Remove(ctx, "ctrl1"))
	_, err = store.Bindings().Lookup(ctx, "ctrl1")
	require.Error(t, err)
	_, err = store.Bindings().Lookup(ctx, "ica-token-0")
	require.Error(t, err)

	require.NoError(t, store.Bindings().Insert(ctx, "ctrl2", "ica-token-1"))
	require.NoError(t, store.Bindings().Remove(ctx, "ica-token-1"))
	_, err = store.Bindings().Lookup(ctx, "ctrl2")
	require.Error(t, err)

	// Absent key is a no-op.
	require.NoError(t, store.Bindings().Remove(ctx, "never-bound"))
}

func TestRestoreQueueDepth(t *testing.T) {
	svc, _, _, controller := newTestService(t)
	ctx := context.Background()
	instantiated(t, svc, controller)

	for _, owner := range []string{"alice", "bob", "carol"} {
		_, err := svc.RequestMint(ctx, owner, "")
		require.NoError(t, err)
	}

	// A restart loses the in-memory gauge; restoring reads the table.
	metrics.MintQueueDepth.Set(0)
	require.NoError(t, svc.RestoreQueueDepth(ctx))
	require.Equal(t, 3.0, testutil.ToFloat64(metrics.MintQueueDepth))
}

func TestUpdateOwner(t *testing.T) {
	svc, _, _, controller := newTestService(t)
	ctx := context.Background()
	instantiated(t, svc, controller)

	require.ErrorIs(t, svc.UpdateOwner(ctx, "mallory", "mallory", false), ErrUnauthorized)
	require.NoError(t, svc.UpdateOwner(ctx, "cosmos1owner", "cosmos1newowner", false))

	owner, err := svc.GetOwner(ctx)
	require.NoError(t, err)
	require.Equal(t, "cosmos1newowner", owner)

	require.NoError(t, svc.UpdateOwner(ctx, "cosmos1newowner", "", true))
	owner, err = svc.GetOwner(ctx)
	require.NoError(t, err)
	require.Empty(t, owner)
}
