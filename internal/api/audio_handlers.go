package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"voicecore/internal/blobstore"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type registerAudioRequest struct {
	BlobKey    string    `json:"blob_key" binding:"required"`
	SizeBytes  int64     `json:"size_bytes" binding:"required"`
	RecordedAt time.Time `json:"recorded_at" binding:"required"`
}

// RegisterAudio handles POST /audio: the caller has already PUT the
// encrypted bytes to blobstore under blob_key (directly, or via a
// presigned URL from GET /presign) and now registers the resulting
// object with IngestAPI. Idempotent by (user_id, blob_key): calling it
// twice for the same blob yields two AudioObjects but at most one
// Transcription job, enforced by JobRepository.Insert.
//
// @Summary Register an audio object
// @Tags audio
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body registerAudioRequest true "Blob location and size"
// @Success 201 {object} map[string]string
// @Router /api/v1/audio [post]
func (h *Handler) RegisterAudio(c *gin.Context) {
	userID := currentUserID(c)

	var req registerAudioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	registeredID, err := h.ingest.RegisterAudio(c.Request.Context(), userID, req.BlobKey, req.SizeBytes, req.RecordedAt)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"file_id": registeredID})
}

// UploadAudio handles POST /audio/upload with a multipart body: an
// alternative direct-upload path for clients that don't use the
// presigned flow. Accepts the raw file, stores it, then registers it
// the same way RegisterAudio does.
func (h *Handler) UploadAudio(c *gin.Context) {
	userID := currentUserID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > h.config.MaxFileSizeBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file exceeds maximum allowed size"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open upload"})
		return
	}
	defer src.Close()

	fileID := uuid.New().String()
	blobKey := blobstore.KeyFor(userID, fileID)

	written, err := h.blobs.Put(c.Request.Context(), blobKey, src)
	if err != nil {
		writeError(c, err)
		return
	}

	recordedAt := time.Now().UTC()
	if v := c.PostForm("recorded_at"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			recordedAt = t
		}
	}

	registeredID, err := h.ingest.RegisterAudio(c.Request.Context(), userID, blobKey, written, recordedAt)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"file_id": registeredID})
}

// GetAudio streams the raw bytes for an owned audio file.
func (h *Handler) GetAudio(c *gin.Context) {
	userID := currentUserID(c)
	fileID := c.Param("file_id")

	audioObj, err := h.audio.FindByID(c.Request.Context(), fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "audio not found")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if audioObj.UserID != userID {
		respondForbidden(c)
		return
	}

	reader, err := h.blobs.Get(c.Request.Context(), audioObj.BlobKey)
	if err != nil {
		writeError(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Type", "application/octet-stream")
	io.Copy(c.Writer, reader)
}

// DeleteAudio deletes an owned audio file's blob and metadata row.
func (h *Handler) DeleteAudio(c *gin.Context) {
	userID := currentUserID(c)
	fileID := c.Param("file_id")

	audioObj, err := h.audio.FindByID(c.Request.Context(), fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "audio not found")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if audioObj.UserID != userID {
		respondForbidden(c)
		return
	}

	if err := h.blobs.Delete(c.Request.Context(), audioObj.BlobKey); err != nil {
		writeError(c, err)
		return
	}
	if err := h.audio.Delete(c.Request.Context(), fileID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete audio record"})
		return
	}

	c.Status(http.StatusNoContent)
}

// ListAudio lists the caller's own audio objects.
func (h *Handler) ListAudio(c *gin.Context) {
	userID := currentUserID(c)
	offset, limit := pagination(c)

	objs, total, err := h.audio.ListByUser(c.Request.Context(), userID, offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": objs, "total": total, "offset": offset, "limit": limit})
}
