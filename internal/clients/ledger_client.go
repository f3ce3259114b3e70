// Package clients provides clients for the coordinator's external
// collaborators: the token-ownership ledger and the controller provisioning
// subsystem.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/srdtrk/nft-ica/internal/config"
)

// LedgerClient is the token-ownership ledger. It mints tokens and answers
// ownership queries; token transfer semantics live entirely on the ledger
// side.
type LedgerClient interface {
	// Mint mints tokenID for owner on the ledger contract at ledgerAddr,
	// attaching the remote account id as token metadata.
	Mint(ctx context.Context, ledgerAddr, tokenID, owner, remoteAccountID string) error

	// OwnerOf returns the current owner of tokenID and the ledger height
	// the answer was read at.
	OwnerOf(ctx context.Context, ledgerAddr, tokenID string) (string, uint64, error)
}

// HTTPLedgerClient talks to the ledger service over HTTP.
type HTTPLedgerClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPLedgerClient creates a ledger client from configuration.
func NewHTTPLedgerClient(cfg config.LedgerConfig) *HTTPLedgerClient {
	return &HTTPLedgerClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.RequestTimeout()},
	}
}

type mintRequest struct {
	TokenID         string `json:"token_id"`
	Owner           string `json:"owner"`
	RemoteAccountID string `json:"remote_account_id"`
}

type ownerOfResponse struct {
	Owner  string `json:"owner"`
	Height uint64 `json:"height"`
}

func (c *HTTPLedgerClient) Mint(ctx context.Context, ledgerAddr, tokenID, owner, remoteAccountID string) error {
	body, err := json.Marshal(mintRequest{
		TokenID:         tokenID,
		Owner:           owner,
		RemoteAccountID: remoteAccountID,
	})
	if err != nil {
		return fmt.Errorf("marshal mint request: %w", err)
	}

	url := fmt.Sprintf("%s/contracts/%s/mint", c.baseURL, ledgerAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mint request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ledger mint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("ledger mint returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}

func (c *HTTPLedgerClient) OwnerOf(ctx context.Context, ledgerAddr, tokenID string) (string, uint64, error) {
	url := fmt.Sprintf("%s/contracts/%s/tokens/%s/owner", c.baseURL, ledgerAddr, tokenID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("build owner query: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("ledger owner query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", 0, fmt.Errorf("ledger owner query returned %d: %s", resp.StatusCode, msg)
	}

	var out ownerOfResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("decode owner response: %w", err)
	}
	return out.Owner, out.Height, nil
}
