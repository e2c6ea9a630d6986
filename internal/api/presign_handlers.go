package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const presignTTL = 15 * time.Minute

// Presign handles GET /presign?key=K: the caller picks its own blob key
// (typically audio/{user_id}/{file_id}.enc) and gets back a time-limited,
// signed upload URL from blobstore.SignForUpload. The router mounts no
// handler for that URL's /presign/upload path. The same key is later
// passed to POST /audio so RegisterAudio can reference the blob.
func (h *Handler) Presign(c *gin.Context) {
	userID := currentUserID(c)
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}

	url, expiresAt, err := h.blobs.SignForUpload(userID, key, presignTTL)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"upload_url": url,
		"expires_at": expiresAt,
	})
}
