package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListTranscripts handles GET /transcripts.
func (h *Handler) ListTranscripts(c *gin.Context) {
	userID := currentUserID(c)
	offset, limit := pagination(c)

	items, total, err := h.store.ListTranscripts(c.Request.Context(), userID, offset, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "total": total, "offset": offset, "limit": limit})
}
