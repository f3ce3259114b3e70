package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/srdtrk/nft-ica/internal/services"
)

// writeError maps the coordinator error taxonomy onto HTTP statuses. Every
// failed invocation surfaces here; nothing is swallowed.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrChannelAlreadyOpen):
		status = http.StatusConflict
	case errors.Is(err, services.ErrRemoteQueryFailed):
		status = http.StatusBadGateway
	case errors.Is(err, services.ErrQueueEmpty):
		// Consistency fault, not a user error.
		status = http.StatusInternalServerError
	}

	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
}
