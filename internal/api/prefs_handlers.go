package api

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
)

var hhmmPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// validatePrefs enforces the bounds spec §3 puts on Preferences:
// timezone offset -12..+14, recording cap 15..180 minutes, and
// summary_time_local as strict 24h HH:MM.
func validatePrefs(p *updatePrefsRequest) string {
	if p.SummaryTimeLocal != nil && !hhmmPattern.MatchString(*p.SummaryTimeLocal) {
		return "summary_time_local must be HH:MM in 24h format"
	}
	if p.TimezoneOffsetHours != nil && (*p.TimezoneOffsetHours < -12 || *p.TimezoneOffsetHours > 14) {
		return "timezone_offset_hours must be between -12 and 14"
	}
	if p.RecordingMaxDurationMinute != nil && (*p.RecordingMaxDurationMinute < 15 || *p.RecordingMaxDurationMinute > 180) {
		return "recording_max_duration_minutes must be between 15 and 180"
	}
	return ""
}

// GetPrefs handles GET /prefs.
func (h *Handler) GetPrefs(c *gin.Context) {
	userID := currentUserID(c)
	prefs, err := h.prefs.FindByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load preferences"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}

type updatePrefsRequest struct {
	NotificationEmail          *string `json:"notification_email"`
	EnableDailySummary         *bool   `json:"enable_daily_summary"`
	EnableTranscription        *bool   `json:"enable_transcription"`
	SummaryTimeLocal           *string `json:"summary_time_local"`
	TimezoneOffsetHours        *int    `json:"timezone_offset_hours"`
	RecordingMaxDurationMinute *int    `json:"recording_max_duration_minutes"`
}

// UpdatePrefs handles PUT /prefs, applying only the fields the caller
// supplied and leaving the rest untouched.
func (h *Handler) UpdatePrefs(c *gin.Context) {
	userID := currentUserID(c)

	var req updatePrefsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := validatePrefs(&req); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	prefs, err := h.prefs.FindByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load preferences"})
		return
	}

	if req.NotificationEmail != nil {
		prefs.NotificationEmail = *req.NotificationEmail
	}
	if req.EnableDailySummary != nil {
		prefs.EnableDailySummary = *req.EnableDailySummary
	}
	if req.EnableTranscription != nil {
		prefs.EnableTranscription = *req.EnableTranscription
	}
	if req.SummaryTimeLocal != nil {
		prefs.SummaryTimeLocal = *req.SummaryTimeLocal
	}
	if req.TimezoneOffsetHours != nil {
		prefs.TimezoneOffsetHours = *req.TimezoneOffsetHours
	}
	if req.RecordingMaxDurationMinute != nil {
		prefs.RecordingMaxDurationMinute = *req.RecordingMaxDurationMinute
	}

	if err := h.prefs.Update(c.Request.Context(), prefs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save preferences"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}
