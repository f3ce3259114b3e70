// Package handlers exposes the coordinator's execute and query surface over
// HTTP.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/srdtrk/nft-ica/internal/icatypes"
	"github.com/srdtrk/nft-ica/internal/metrics"
	"github.com/srdtrk/nft-ica/internal/middleware"
	"github.com/srdtrk/nft-ica/internal/services"
)

// ExecuteHandler handles state-mutating invocations.
type ExecuteHandler struct {
	svc    *services.CoordinatorService
	logger *logrus.Logger
}

// NewExecuteHandler creates a new ExecuteHandler instance.
func NewExecuteHandler(svc *services.CoordinatorService, logger *logrus.Logger) *ExecuteHandler {
	return &ExecuteHandler{svc: svc, logger: logger}
}

// InstantiateHandler configures the coordinator.
// POST /api/v1/instantiate
func (h *ExecuteHandler) InstantiateHandler(c *gin.Context) {
	var req services.InstantiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	h.invoke(c, "instantiate", func() error {
		return h.svc.Instantiate(c.Request.Context(), middleware.CallerAddress(c), req)
	}, gin.H{"success": true})
}

type mintRequest struct {
	Salt string `json:"salt,omitempty"`
}

// RequestMintHandler queues a mint request for the authenticated caller.
// The response carries the queued token id; the token itself is minted
// later by the provisioning callback.
// POST /api/v1/execute/mint
func (h *ExecuteHandler) RequestMintHandler(c *gin.Context) {
	// The body is optional; an absent body means no salt.
	var req mintRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	caller := middleware.CallerAddress(c)

	start := time.Now()
	tokenID, err := h.svc.RequestMint(c.Request.Context(), caller, req.Salt)
	metrics.InvocationDuration.WithLabelValues("request_mint").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.Invocations.WithLabelValues("request_mint", "error").Inc()
		writeError(c, err)
		return
	}

	metrics.Invocations.WithLabelValues("request_mint", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"success": true, "token_id": tokenID, "queued": true})
}

type sendCommandRequest struct {
	TokenID string          `json:"token_id" binding:"required"`
	Command json.RawMessage `json:"command" binding:"required"`
}

// SendCommandHandler dispatches a command to a token's remote account.
// POST /api/v1/execute/command
func (h *ExecuteHandler) SendCommandHandler(c *gin.Context) {
	var req sendCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	h.invoke(c, "send_command", func() error {
		return h.svc.SendCommand(c.Request.Context(), middleware.CallerAddress(c), req.TokenID, req.Command)
	}, gin.H{"success": true, "token_id": req.TokenID})
}

type updateOwnerRequest struct {
	NewOwner string `json:"new_owner,omitempty"`
	Renounce bool   `json:"renounce,omitempty"`
}

// UpdateOwnerHandler transfers or renounces coordinator ownership.
// POST /api/v1/execute/owner
func (h *ExecuteHandler) UpdateOwnerHandler(c *gin.Context) {
	var req updateOwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	h.invoke(c, "update_owner", func() error {
		return h.svc.UpdateOwner(c.Request.Context(), middleware.CallerAddress(c), req.NewOwner, req.Renounce)
	}, gin.H{"success": true})
}

// CallbackHandler receives controller callbacks for hosts that deliver
// them over HTTP instead of the messaging channel. Same invocation path as
// the NATS consumer.
// POST /api/v1/callbacks
func (h *ExecuteHandler) CallbackHandler(c *gin.Context) {
	var msg icatypes.CallbackMsg
	if err := c.ShouldBindJSON(&msg); err != nil {
		badRequest(c, err)
		return
	}

	h.invoke(c, "receive_callback", func() error {
		return h.svc.ProcessCallback(c.Request.Context(), msg)
	}, gin.H{"success": true})
}

// invoke runs one execute invocation, records metrics, and writes the
// response or the mapped error.
func (h *ExecuteHandler) invoke(c *gin.Context, kind string, fn func() error, ok gin.H) {
	start := time.Now()
	err := fn()
	metrics.InvocationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.Invocations.WithLabelValues(kind, "error").Inc()
		writeError(c, err)
		return
	}

	metrics.Invocations.WithLabelValues(kind, "ok").Inc()
	if ok == nil {
		ok = gin.H{"success": true}
	}
	c.JSON(http.StatusOK, ok)
}
