package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cosmos1abcdef", "cosmos1abcdef"},
		{"\"cosmos1abcdef\"", "cosmos1abcdef"},
		{"'cosmos1abcdef'", "cosmos1abcdef"},
		{"  cosmos1abcdef\n", "cosmos1abcdef"},
		{"\" cosmos1abcdef \"\n", "cosmos1abcdef"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, SanitizeAddress(tt.in))
	}
}

func TestValidateAddress(t *testing.T) {
	require.NoError(t, ValidateAddress("cosmos1abcdefghjklmn"))
	require.NoError(t, ValidateAddress("wasm1qqqqqqqq"))

	require.Error(t, ValidateAddress("short"), "too short")
	require.Error(t, ValidateAddress("Cosmos1Abcdef"), "uppercase")
	require.Error(t, ValidateAddress("cosmosabcdefgh"), "no separator")
	require.Error(t, ValidateAddress("1cosmosabcdef"), "separator at start")
	require.Error(t, ValidateAddress("cosmos1abc-def"), "bad character")
}
