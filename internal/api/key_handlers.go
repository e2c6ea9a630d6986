package api

import (
	"encoding/base64"
	"errors"
	"net/http"

	"voicecore/internal/apperr"

	"github.com/gin-gonic/gin"
)

// GetKey handles GET /key: returns the caller's 32-byte envelope key,
// base64-encoded (spec §6), provisioning one on first use. Only
// clients that must encrypt audio before upload need this; it is
// never logged and never returned for any user but the caller.
func (h *Handler) GetKey(c *gin.Context) {
	userID := currentUserID(c)

	key, err := h.vault.GetKey(c.Request.Context(), userID)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"key": base64.StdEncoding.EncodeToString(key)})
		return
	}

	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Category == apperr.NotFound {
		if createErr := h.vault.CreateKey(c.Request.Context(), userID); createErr != nil {
			writeError(c, createErr)
			return
		}
		key, err = h.vault.GetKey(c.Request.Context(), userID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"key": base64.StdEncoding.EncodeToString(key)})
		return
	}

	writeError(c, err)
}
