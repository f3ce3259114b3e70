package icatypes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeCommand(t *testing.T, raw string) CommandMsg {
	t.Helper()
	var cmd CommandMsg
	require.NoError(t, json.Unmarshal([]byte(raw), &cmd))
	return cmd
}

func TestCommandValidate(t *testing.T) {
	cmd := decodeCommand(t, `{"create_channel":{}}`)
	require.NoError(t, cmd.Validate())
	require.True(t, cmd.RequestsChannelOpen())

	cmd = decodeCommand(t, `{}`)
	require.Error(t, cmd.Validate())

	cmd = decodeCommand(t, `{"create_channel":{},"send_cosmos_msgs":{"messages":[]}}`)
	require.Error(t, cmd.Validate())
}

func TestCommandClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want CommandCategory
	}{
		{
			name: "bank send",
			raw:  `{"send_cosmos_msgs":{"messages":[{"bank":{"send":{"to_address":"bob"}}}]}}`,
			want: CategoryTransfer,
		},
		{
			name: "delegate",
			raw:  `{"send_cosmos_msgs":{"messages":[{"staking":{"delegate":{"validator":"v1"}}}]}}`,
			want: CategoryDelegate,
		},
		{
			name: "undelegate",
			raw:  `{"send_cosmos_msgs":{"messages":[{"staking":{"undelegate":{"validator":"v1"}}}]}}`,
			want: CategoryUndelegate,
		},
		{
			name: "redelegate",
			raw:  `{"send_cosmos_msgs":{"messages":[{"staking":{"redelegate":{"src":"v1","dst":"v2"}}}]}}`,
			want: CategoryRedelegate,
		},
		{
			name: "vote",
			raw:  `{"send_cosmos_msgs":{"messages":[{"gov":{"vote":{"proposal_id":7}}}]}}`,
			want: CategoryVote,
		},
		{
			name: "wasm execute",
			raw:  `{"send_cosmos_msgs":{"messages":[{"wasm":{"execute":{"contract_addr":"c"}}}]}}`,
			want: CategoryWasmCall,
		},
		{
			name: "stargate",
			raw:  `{"send_cosmos_msgs":{"messages":[{"stargate":{"type_url":"/x"}}]}}`,
			want: CategoryProtocolCall,
		},
		{
			name: "custom msg",
			raw:  `{"send_cosmos_msgs":{"messages":[{"custom":{"anything":1}}]}}`,
			want: CategoryCustom,
		},
		{
			name: "unrecognized arm",
			raw:  `{"send_cosmos_msgs":{"messages":[{"distribution":{"withdraw":{}}}]}}`,
			want: CategoryUnknown,
		},
		{
			name: "empty batch",
			raw:  `{"send_cosmos_msgs":{"messages":[]}}`,
			want: CategoryEmpty,
		},
		{
			name: "multi batch",
			raw:  `{"send_cosmos_msgs":{"messages":[{"bank":{"send":{}}},{"gov":{"vote":{}}}]}}`,
			want: CategoryMulti,
		},
		{
			name: "custom data",
			raw:  `{"send_custom_ica_messages":{"messages":"base64data"}}`,
			want: CategoryCustom,
		},
		{
			name: "create channel",
			raw:  `{"create_channel":{}}`,
			want: CategoryChannelOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := decodeCommand(t, tt.raw)
			require.Equal(t, tt.want, cmd.Classify())
		})
	}
}
