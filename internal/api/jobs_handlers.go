package api

import (
	"net/http"

	"voicecore/internal/models"

	"github.com/gin-gonic/gin"
)

// ListJobs handles GET /jobs: transcription jobs only (the spec keeps
// daily_summary jobs internal — they have no per-job client-facing
// surface of their own, only their resulting DailySummary does).
func (h *Handler) ListJobs(c *gin.Context) {
	userID := currentUserID(c)
	offset, limit := pagination(c)

	jobs, total, err := h.jobs.ListByUser(c.Request.Context(), userID, models.KindTranscription, offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": jobs, "total": total, "offset": offset, "limit": limit})
}
