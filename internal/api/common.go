package api

import (
	"net/http"
	"strconv"

	"voicecore/internal/apperr"

	"github.com/gin-gonic/gin"
)

// currentUserID reads the user ID AuthMiddleware set on the context.
// Every handler in this package calls this first; there is no
// anonymous access to any route registered under SetupRoutes' authed
// groups.
func currentUserID(c *gin.Context) string {
	uid, _ := c.Get("user_id")
	s, _ := uid.(string)
	return s
}

// pagination reads offset/limit query params with the teacher's usual
// defaults, capping limit so a caller can't force an unbounded scan.
func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return offset, limit
}

// writeError maps an apperr-categorized error to the right HTTP status
// and a JSON body carrying only its redacted reason — never the wrapped
// cause, which may hold a raw downstream payload or transport detail
// spec §7 says must never reach a client.
func writeError(c *gin.Context, err error) {
	status := apperr.StatusFor(err)
	c.JSON(status, gin.H{"error": apperr.ReasonFor(err)})
}

func respondNotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, gin.H{"error": msg})
}

func respondForbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{"error": "you do not own this resource"})
}
