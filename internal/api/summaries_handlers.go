package api

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"

	"voicecore/internal/models"

	"github.com/gin-gonic/gin"
)

// ListSummaries handles GET /summaries.
func (h *Handler) ListSummaries(c *gin.Context) {
	userID := currentUserID(c)
	offset, limit := pagination(c)

	rows, bodies, total, err := h.store.ListSummaries(c.Request.Context(), userID, offset, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]gin.H, 0, len(rows))
	for i, row := range rows {
		items = append(items, gin.H{
			"summary_id":   row.SummaryID,
			"summary_date": row.SummaryDate,
			"created_at":   row.CreatedAt,
			"body":         bodies[i],
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "total": total, "offset": offset, "limit": limit})
}

// GetSummaryByDate handles GET /summaries/{date}.
func (h *Handler) GetSummaryByDate(c *gin.Context) {
	userID := currentUserID(c)
	date := c.Param("date")

	row, body, err := h.store.GetSummary(c.Request.Context(), userID, date)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary_id":   row.SummaryID,
		"summary_date": row.SummaryDate,
		"created_at":   row.CreatedAt,
		"body":         body,
	})
}

// DeleteSummary handles DELETE /summaries/{id}, enforcing ownership
// before deleting.
func (h *Handler) DeleteSummary(c *gin.Context) {
	userID := currentUserID(c)
	id := c.Param("id")

	row, _, err := h.store.GetSummaryByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if row.UserID != userID {
		respondForbidden(c)
		return
	}

	if err := h.store.DeleteSummary(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportSummaries handles GET /summaries/export?format=json|csv&limit=N:
// every summary for the caller, decrypted, streamed as a single bulk
// document rather than paginated — a user's lifetime summary count
// stays small (one per day).
func (h *Handler) ExportSummaries(c *gin.Context) {
	userID := currentUserID(c)

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10000"))
	if err != nil || limit <= 0 {
		limit = 10000
	}

	rows, bodies, _, err := h.store.ListSummaries(c.Request.Context(), userID, 0, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", "json"))
	if format == "csv" {
		writeSummariesCSV(c, rows, bodies)
		return
	}

	items := make([]gin.H, 0, len(rows))
	for i, row := range rows {
		items = append(items, gin.H{
			"summary_date": row.SummaryDate,
			"created_at":   row.CreatedAt,
			"body":         bodies[i],
		})
	}

	c.Header("Content-Disposition", "attachment; filename=summaries.json")
	c.JSON(http.StatusOK, items)
}

// writeSummariesCSV renders one row per summary, each bullet category
// flattened into a single "; "-joined cell so the file stays one row
// per day regardless of how many bullets a category has.
func writeSummariesCSV(c *gin.Context, rows []models.DailySummary, bodies []models.SummaryBody) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=summaries.csv")

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"summary_date", "created_at", "family", "business", "misc"})
	for i, row := range rows {
		body := bodies[i]
		_ = w.Write([]string{
			row.SummaryDate,
			row.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			strings.Join(body.Family, "; "),
			strings.Join(body.Business, "; "),
			strings.Join(body.Misc, "; "),
		})
	}
	w.Flush()
}
