package icatypes

import (
	"encoding/json"
	"fmt"
)

// CommandCategory labels a dispatched command for the transaction history.
// The payload itself stays opaque; only its shape is inspected.
type CommandCategory string

const (
	CategoryTransfer     CommandCategory = "transfer"
	CategoryDelegate     CommandCategory = "delegate"
	CategoryUndelegate   CommandCategory = "undelegate"
	CategoryRedelegate   CommandCategory = "redelegate"
	CategoryVote         CommandCategory = "vote"
	CategoryWasmCall     CommandCategory = "wasm_call"
	CategoryProtocolCall CommandCategory = "protocol_call"
	CategoryCustom       CommandCategory = "custom"
	CategoryChannelOpen  CommandCategory = "channel_open"
	CategoryEmpty        CommandCategory = "empty"
	CategoryMulti        CommandCategory = "multi"
	CategoryUnknown      CommandCategory = "unknown"
)

// CommandMsg is the command envelope forwarded verbatim to a controller.
// Exactly one variant must be set; the inner message vocabulary is the
// remote system's, not the coordinator's.
type CommandMsg struct {
	CreateChannel  *CreateChannelMsg  `json:"create_channel,omitempty"`
	SendMessages   *SendMessagesMsg   `json:"send_cosmos_msgs,omitempty"`
	SendCustomData *SendCustomDataMsg `json:"send_custom_ica_messages,omitempty"`
}

// Validate checks that exactly one command variant is populated.
func (m *CommandMsg) Validate() error {
	n := 0
	if m.CreateChannel != nil {
		n++
	}
	if m.SendMessages != nil {
		n++
	}
	if m.SendCustomData != nil {
		n++
	}
	if n != 1 {
		return fmt.Errorf("command must carry exactly one variant, got %d", n)
	}
	return nil
}

// RequestsChannelOpen reports whether the command asks the controller to
// (re)open its channel.
func (m *CommandMsg) RequestsChannelOpen() bool {
	return m.CreateChannel != nil
}

// CreateChannelMsg asks the bound controller to open a new channel,
// optionally overriding the configured open options.
type CreateChannelMsg struct {
	ChannelOpenOptions *ChannelOpenInitOptions `json:"channel_open_options,omitempty"`
}

// SendMessagesMsg carries protocol messages to execute on the remote account.
type SendMessagesMsg struct {
	Messages    []RemoteMsg `json:"messages"`
	PacketMemo  *string     `json:"packet_memo,omitempty"`
	TimeoutSecs *uint64     `json:"timeout_seconds,omitempty"`
}

// SendCustomDataMsg carries pre-encoded messages in the remote encoding.
type SendCustomDataMsg struct {
	Messages    string  `json:"messages"`
	PacketMemo  *string `json:"packet_memo,omitempty"`
	TimeoutSecs *uint64 `json:"timeout_seconds,omitempty"`
}

// RemoteMsg is one message addressed to the remote system. The arms mirror
// the remote vocabulary loosely; unrecognized content falls through to
// CategoryUnknown rather than failing.
type RemoteMsg struct {
	Bank     *BankArm        `json:"bank,omitempty"`
	Staking  *StakingArm     `json:"staking,omitempty"`
	Gov      *GovArm         `json:"gov,omitempty"`
	Wasm     *WasmArm        `json:"wasm,omitempty"`
	Stargate json.RawMessage `json:"stargate,omitempty"`
	Custom   json.RawMessage `json:"custom,omitempty"`
}

// BankArm holds bank-module messages; only the send shape is recognized.
type BankArm struct {
	Send json.RawMessage `json:"send,omitempty"`
}

// StakingArm holds staking-module messages.
type StakingArm struct {
	Delegate   json.RawMessage `json:"delegate,omitempty"`
	Undelegate json.RawMessage `json:"undelegate,omitempty"`
	Redelegate json.RawMessage `json:"redelegate,omitempty"`
}

// GovArm holds governance messages.
type GovArm struct {
	Vote json.RawMessage `json:"vote,omitempty"`
}

// WasmArm holds contract-call messages.
type WasmArm struct {
	Execute json.RawMessage `json:"execute,omitempty"`
}

// Classify maps a command to its history category. Multi-message batches are
// CategoryMulti, empty batches CategoryEmpty, and anything unrecognized
// CategoryUnknown; classification never fails.
func (m *CommandMsg) Classify() CommandCategory {
	switch {
	case m.CreateChannel != nil:
		return CategoryChannelOpen
	case m.SendCustomData != nil:
		return CategoryCustom
	case m.SendMessages != nil:
		msgs := m.SendMessages.Messages
		if len(msgs) == 0 {
			return CategoryEmpty
		}
		if len(msgs) > 1 {
			return CategoryMulti
		}
		return classifyOne(msgs[0])
	default:
		return CategoryUnknown
	}
}

func classifyOne(msg RemoteMsg) CommandCategory {
	switch {
	case msg.Bank != nil && msg.Bank.Send != nil:
		return CategoryTransfer
	case msg.Staking != nil && msg.Staking.Delegate != nil:
		return CategoryDelegate
	case msg.Staking != nil && msg.Staking.Undelegate != nil:
		return CategoryUndelegate
	case msg.Staking != nil && msg.Staking.Redelegate != nil:
		return CategoryRedelegate
	case msg.Gov != nil && msg.Gov.Vote != nil:
		return CategoryVote
	case msg.Wasm != nil && msg.Wasm.Execute != nil:
		return CategoryWasmCall
	case len(msg.Stargate) > 0:
		return CategoryProtocolCall
	case len(msg.Custom) > 0:
		return CategoryCustom
	default:
		return CategoryUnknown
	}
}
