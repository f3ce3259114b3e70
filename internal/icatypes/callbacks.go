package icatypes

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CallbackMsg is the message a controller sends the coordinator on packet and
// channel lifecycle events. Exactly one variant must be set.
type CallbackMsg struct {
	ChannelOpened *ChannelOpenedCallback `json:"channel_opened,omitempty"`
	AckReceived   *AckReceivedCallback   `json:"ack_received,omitempty"`
	TimedOut      *TimedOutCallback      `json:"timed_out,omitempty"`
}

// Validate checks that exactly one callback variant is populated.
func (m *CallbackMsg) Validate() error {
	n := 0
	if m.ChannelOpened != nil {
		n++
	}
	if m.AckReceived != nil {
		n++
	}
	if m.TimedOut != nil {
		n++
	}
	if n != 1 {
		return fmt.Errorf("callback must carry exactly one variant, got %d", n)
	}
	return nil
}

// ChannelOpenedCallback reports a successful channel open handshake. It is
// sent both on the first open after provisioning and on channel re-opens.
type ChannelOpenedCallback struct {
	ControllerID    string `json:"controller_id"`
	RemoteAccountID string `json:"remote_account_id"`
	ChannelID       string `json:"channel_id"`
	PortID          string `json:"port_id,omitempty"`
}

// AckReceivedCallback reports the acknowledgement of a previously dispatched
// command. The outcome discriminant carries either a result or an error.
type AckReceivedCallback struct {
	ControllerID string     `json:"controller_id"`
	PacketRef    string     `json:"packet_ref,omitempty"`
	Outcome      AckOutcome `json:"outcome"`
}

// TimedOutCallback reports that a dispatched command timed out. The channel
// is closed by the host as part of timeout handling.
type TimedOutCallback struct {
	ControllerID string `json:"controller_id"`
	PacketRef    string `json:"packet_ref,omitempty"`
}

// AckOutcome is the acknowledgement discriminant: a base64 result on success
// or an error string on failure. Exactly one field is set.
type AckOutcome struct {
	Result *string `json:"result,omitempty"`
	Error  *string `json:"error,omitempty"`
}

// Success reports whether the acknowledgement carries a result.
func (o AckOutcome) Success() bool {
	return o.Result != nil && o.Error == nil
}

// ControllerIDFromPort recovers a controller identifier from an ICA port id
// of the form "wasm.<controller_id>". Controllers that omit an explicit
// controller_id in callbacks are correlated this way.
func ControllerIDFromPort(portID string) (string, error) {
	const prefix = "wasm."
	if !strings.HasPrefix(portID, prefix) {
		return "", fmt.Errorf("unexpected port id format: %s", portID)
	}
	id := strings.TrimPrefix(portID, prefix)
	if id == "" {
		return "", fmt.Errorf("empty controller id in port: %s", portID)
	}
	return id, nil
}

// CreationReceipt is the host-delivered result of an asynchronous creation
// request, correlated back to its issuer by reply id. The address may carry
// host formatting artifacts and must be sanitized before validation.
type CreationReceipt struct {
	ReplyID string `json:"reply_id"`
	Address string `json:"address,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ProvisionRequest asks the provisioning subsystem to create one controller
// for a new token and open its channel with the given options.
type ProvisionRequest struct {
	ReplyID            string                 `json:"reply_id"`
	ChannelOpenOptions ChannelOpenInitOptions `json:"channel_open_options"`
	Salt               string                 `json:"salt,omitempty"`
}

// CreateContractRequest asks the host to create a contract from a code
// reference; used for the deferred ledger creation at instantiation.
type CreateContractRequest struct {
	ReplyID string          `json:"reply_id"`
	CodeRef string          `json:"code_ref"`
	Salt    string          `json:"salt,omitempty"`
	Label   string          `json:"label,omitempty"`
	InitMsg json.RawMessage `json:"init_msg,omitempty"`
}
