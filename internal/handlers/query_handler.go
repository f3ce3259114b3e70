package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/srdtrk/nft-ica/internal/services"
)

// QueryHandler handles the pure-read surface. Queries never mutate state.
type QueryHandler struct {
	svc    *services.CoordinatorService
	logger *logrus.Logger
}

// NewQueryHandler creates a new QueryHandler instance.
func NewQueryHandler(svc *services.CoordinatorService, logger *logrus.Logger) *QueryHandler {
	return &QueryHandler{svc: svc, logger: logger}
}

// GetConfigHandler returns the coordinator configuration.
// GET /api/v1/config
func (h *QueryHandler) GetConfigHandler(c *gin.Context) {
	cfg, err := h.svc.GetConfig(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// GetOwnerHandler returns the coordinator owner.
// GET /api/v1/owner
func (h *QueryHandler) GetOwnerHandler(c *gin.Context) {
	owner, err := h.svc.GetOwner(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner": owner})
}

// LookupBimapHandler returns the counterpart of either bimap key.
// GET /api/v1/bimap/:key
func (h *QueryHandler) LookupBimapHandler(c *gin.Context) {
	value, err := h.svc.LookupBimap(c.Request.Context(), c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": c.Param("key"), "value": value})
}

// GetRemoteAddressHandler returns the remote account address of a token.
// GET /api/v1/tokens/:token_id/remote-address
func (h *QueryHandler) GetRemoteAddressHandler(c *gin.Context) {
	addr, err := h.svc.GetRemoteAddress(c.Request.Context(), c.Param("token_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token_id": c.Param("token_id"), "remote_address": addr})
}

type remoteAddressesRequest struct {
	TokenIDs []string `json:"token_ids" binding:"required"`
}

// GetRemoteAddressesHandler is the batch remote account lookup. Missing
// tokens yield empty strings; the answer always has one slot per id.
// POST /api/v1/tokens/remote-addresses
func (h *QueryHandler) GetRemoteAddressesHandler(c *gin.Context) {
	var req remoteAddressesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	addrs, err := h.svc.GetRemoteAddresses(c.Request.Context(), req.TokenIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"remote_addresses": addrs})
}

// GetHistoryHandler returns one newest-first page of a token's
// transaction log.
// GET /api/v1/tokens/:token_id/history?page=0&page_size=30
func (h *QueryHandler) GetHistoryHandler(c *gin.Context) {
	page, err := queryInt(c, "page", 0)
	if err != nil {
		badRequest(c, err)
		return
	}
	pageSize, err := queryInt(c, "page_size", 0)
	if err != nil {
		badRequest(c, err)
		return
	}

	history, err := h.svc.GetHistory(c.Request.Context(), c.Param("token_id"), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// GetChannelStatusHandler returns the channel state of a token.
// GET /api/v1/tokens/:token_id/channel
func (h *QueryHandler) GetChannelStatusHandler(c *gin.Context) {
	ch, err := h.svc.GetChannelStatus(c.Request.Context(), c.Param("token_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

// GetMintQueueHandler lists the mint queue front-first (diagnostic).
// GET /api/v1/mint-queue
func (h *QueryHandler) GetMintQueueHandler(c *gin.Context) {
	items, err := h.svc.GetMintQueue(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
