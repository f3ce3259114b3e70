// Package icatypes defines the wire types exchanged with ICA controllers:
// channel-open options, controller callbacks, creation receipts, and the
// opaque command payloads forwarded to a remote interchain account.
package icatypes

// ChannelOpenInitOptions are the options used when a controller opens a new
// ICA channel on behalf of a token.
type ChannelOpenInitOptions struct {
	ConnectionID             string  `json:"connection_id" yaml:"connection_id"`
	CounterpartyConnectionID string  `json:"counterparty_connection_id" yaml:"counterparty_connection_id"`
	CounterpartyPortID       *string `json:"counterparty_port_id,omitempty" yaml:"counterparty_port_id,omitempty"`
	TxEncoding               *string `json:"tx_encoding,omitempty" yaml:"tx_encoding,omitempty"`
}
