package services

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/srdtrk/nft-ica/internal/icatypes"
	"github.com/srdtrk/nft-ica/internal/models"
	"github.com/srdtrk/nft-ica/internal/repository"
)

// memStore is an in-memory repository.Store for coordinator tests. It
// mirrors the partition semantics of the gorm store without a database.
// Transact applies the function directly; the tested invocation paths fail
// before mutating, so rollback is not simulated.
type memStore struct {
	state       *models.ContractState
	counter     uint64
	queue       []*models.MintQueueItem // oldest first
	bindings    map[string]string       // controller -> token
	reverse     map[string]string       // token -> controller
	controllers map[string]bool
	channels    map[string]*models.ChannelState
	history     []*models.TransactionRecord
	accounts    map[string]string
	replies     map[string]*models.PendingReply
	nextSeq     int64
	nextRecID   int64
}

func newMemStore() *memStore {
	return &memStore{
		bindings:    make(map[string]string),
		reverse:     make(map[string]string),
		controllers: make(map[string]bool),
		channels:    make(map[string]*models.ChannelState),
		accounts:    make(map[string]string),
		replies:     make(map[string]*models.PendingReply),
	}
}

func (m *memStore) State() repository.StateRepository { return memState{m} }
func (m *memStore) Queue() repository.MintQueueRepository { return memQueue{m} }
func (m *memStore) Bindings() repository.BindingRepository { return memBindings{m} }
func (m *memStore) Controllers() repository.ControllerRepository { return memControllers{m} }
func (m *memStore) Channels() repository.ChannelRepository { return memChannels{m} }
func (m *memStore) History() repository.HistoryRepository { return memHistory{m} }
func (m *memStore) RemoteAccounts() repository.RemoteAccountRepository { return memAccounts{m} }
func (m *memStore) Replies() repository.ReplyRepository { return memReplies{m} }

func (m *memStore) Transact(ctx context.Context, fn func(repository.Store) error) error {
	return fn(m)
}

type memState struct{ m *memStore }

func (r memState) Get(ctx context.Context) (*models.ContractState, error) {
	if r.m.state == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *r.m.state
	return &copied, nil
}

func (r memState) Create(ctx context.Context, state *models.ContractState) error {
	copied := *state
	r.m.state = &copied
	return nil
}

func (r memState) Update(ctx context.Context, state *models.ContractState) error {
	copied := *state
	r.m.state = &copied
	return nil
}

func (r memState) NextTokenSeq(ctx context.Context) (uint64, error) {
	v := r.m.counter
	r.m.counter++
	return v, nil
}

type memQueue struct{ m *memStore }

func (r memQueue) PushFront(ctx context.Context, item *models.MintQueueItem) error {
	r.m.nextSeq++
	item.Seq = r.m.nextSeq
	r.m.queue = append(r.m.queue, item)
	return nil
}

func (r memQueue) PopBack(ctx context.Context) (*models.MintQueueItem, error) {
	if len(r.m.queue) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	item := r.m.queue[0]
	r.m.queue = r.m.queue[1:]
	return item, nil
}

func (r memQueue) List(ctx context.Context) ([]*models.MintQueueItem, error) {
	out := make([]*models.MintQueueItem, len(r.m.queue))
	for i, item := range r.m.queue {
		out[len(r.m.queue)-1-i] = item
	}
	return out, nil
}

type memBindings struct{ m *memStore }

func (r memBindings) Insert(ctx context.Context, controllerID, tokenID string) error {
	if _, ok := r.m.bindings[controllerID]; ok {
		return gorm.ErrDuplicatedKey
	}
	if _, ok := r.m.reverse[tokenID]; ok {
		return gorm.ErrDuplicatedKey
	}
	r.m.bindings[controllerID] = tokenID
	r.m.reverse[tokenID] = controllerID
	return nil
}

func (r memBindings) Lookup(ctx context.Context, key string) (string, error) {
	if token, ok := r.m.bindings[key]; ok {
		return token, nil
	}
	if controller, ok := r.m.reverse[key]; ok {
		return controller, nil
	}
	return "", gorm.ErrRecordNotFound
}

func (r memBindings) TokenForController(ctx context.Context, controllerID string) (string, error) {
	if token, ok := r.m.bindings[controllerID]; ok {
		return token, nil
	}
	return "", gorm.ErrRecordNotFound
}

func (r memBindings) ControllerForToken(ctx context.Context, tokenID string) (string, error) {
	if controller, ok := r.m.reverse[tokenID]; ok {
		return controller, nil
	}
	return "", gorm.ErrRecordNotFound
}

func (r memBindings) Remove(ctx context.Context, key string) error {
	if token, ok := r.m.bindings[key]; ok {
		delete(r.m.bindings, key)
		delete(r.m.reverse, token)
		return nil
	}
	if controller, ok := r.m.reverse[key]; ok {
		delete(r.m.reverse, key)
		delete(r.m.bindings, controller)
	}
	return nil
}

type memControllers struct{ m *memStore }

func (r memControllers) Add(ctx context.Context, controllerID string) error {
	r.m.controllers[controllerID] = true
	return nil
}

func (r memControllers) Contains(ctx context.Context, controllerID string) (bool, error) {
	return r.m.controllers[controllerID], nil
}

type memChannels struct{ m *memStore }

func (r memChannels) Get(ctx context.Context, tokenID string) (*models.ChannelState, error) {
	ch, ok := r.m.channels[tokenID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *ch
	return &copied, nil
}

func (r memChannels) Set(ctx context.Context, tokenID string, status models.ChannelStatus, channelID string) error {
	prev := r.m.channels[tokenID]
	ch := &models.ChannelState{TokenID: tokenID, Status: status, ChannelID: channelID, UpdatedAt: time.Now().UTC()}
	if channelID == "" && prev != nil {
		ch.ChannelID = prev.ChannelID
	}
	r.m.channels[tokenID] = ch
	return nil
}

type memHistory struct{ m *memStore }

func (r memHistory) Append(ctx context.Context, record *models.TransactionRecord) error {
	r.m.nextRecID++
	record.ID = r.m.nextRecID
	r.m.history = append(r.m.history, record)
	return nil
}

func (r memHistory) HeadPending(ctx context.Context, tokenID string) (*models.TransactionRecord, error) {
	for i := len(r.m.history) - 1; i >= 0; i-- {
		rec := r.m.history[i]
		if rec.TokenID == tokenID && rec.Status == models.TxStatusPending {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memHistory) Resolve(ctx context.Context, id int64, status models.TxStatus) error {
	for _, rec := range r.m.history {
		if rec.ID == id {
			rec.Status = status
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r memHistory) Page(ctx context.Context, tokenID string, page, pageSize int) ([]*models.TransactionRecord, int64, error) {
	var all []*models.TransactionRecord
	for _, rec := range r.m.history {
		if rec.TokenID == tokenID {
			copied := *rec
			all = append(all, &copied)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	total := int64(len(all))
	start := page * pageSize
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

type memAccounts struct{ m *memStore }

func (r memAccounts) Set(ctx context.Context, tokenID, address string) error {
	r.m.accounts[tokenID] = address
	return nil
}

func (r memAccounts) Get(ctx context.Context, tokenID string) (string, error) {
	addr, ok := r.m.accounts[tokenID]
	if !ok {
		return "", gorm.ErrRecordNotFound
	}
	return addr, nil
}

type memReplies struct{ m *memStore }

func (r memReplies) Create(ctx context.Context, reply *models.PendingReply) error {
	r.m.replies[reply.ReplyID] = reply
	return nil
}

func (r memReplies) Consume(ctx context.Context, replyID string) (*models.PendingReply, error) {
	reply, ok := r.m.replies[replyID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	delete(r.m.replies, replyID)
	return reply, nil
}

// fakeLedger is a LedgerClient test double.
type fakeLedger struct {
	owners   map[string]string
	height   uint64
	mints    []mintCall
	ownerErr error
}

type mintCall struct {
	LedgerAddr      string
	TokenID         string
	Owner           string
	RemoteAccountID string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{owners: make(map[string]string), height: 42}
}

func (f *fakeLedger) Mint(ctx context.Context, ledgerAddr, tokenID, owner, remoteAccountID string) error {
	f.mints = append(f.mints, mintCall{ledgerAddr, tokenID, owner, remoteAccountID})
	f.owners[tokenID] = owner
	return nil
}

func (f *fakeLedger) OwnerOf(ctx context.Context, ledgerAddr, tokenID string) (string, uint64, error) {
	if f.ownerErr != nil {
		return "", 0, f.ownerErr
	}
	owner, ok := f.owners[tokenID]
	if !ok {
		return "", 0, gorm.ErrRecordNotFound
	}
	return owner, f.height, nil
}

// fakeController is a ControllerClient test double.
type fakeController struct {
	provisions   []icatypes.ProvisionRequest
	creations    []icatypes.CreateContractRequest
	commands     []commandCall
	provisionErr error
}

type commandCall struct {
	ControllerID string
	Payload      json.RawMessage
}

func (f *fakeController) RequestProvision(ctx context.Context, req icatypes.ProvisionRequest) error {
	if f.provisionErr != nil {
		return f.provisionErr
	}
	f.provisions = append(f.provisions, req)
	return nil
}

func (f *fakeController) RequestContractCreation(ctx context.Context, req icatypes.CreateContractRequest) error {
	f.creations = append(f.creations, req)
	return nil
}

func (f *fakeController) ForwardCommand(ctx context.Context, controllerID string, payload json.RawMessage) error {
	f.commands = append(f.commands, commandCall{controllerID, payload})
	return nil
}
