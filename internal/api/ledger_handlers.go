package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GetCredit handles GET /credit.
func (h *Handler) GetCredit(c *gin.Context) {
	userID := currentUserID(c)
	acct, err := h.ledger.Summary(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, acct)
}

// GetCosts handles GET /costs?month=YYYY-MM, defaulting to the
// current month.
func (h *Handler) GetCosts(c *gin.Context) {
	userID := currentUserID(c)
	month := c.DefaultQuery("month", time.Now().UTC().Format("2006-01"))

	total, err := h.ledger.MonthlyCost(c.Request.Context(), userID, month)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"month": month, "total_cost_usd": total})
}
