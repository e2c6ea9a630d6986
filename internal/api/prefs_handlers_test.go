package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestValidatePrefsAcceptsInBoundsValues(t *testing.T) {
	req := &updatePrefsRequest{
		SummaryTimeLocal:           ptr("09:00"),
		TimezoneOffsetHours:        ptr(-6),
		RecordingMaxDurationMinute: ptr(60),
	}
	assert.Empty(t, validatePrefs(req))
}

func TestValidatePrefsRejectsMalformedTime(t *testing.T) {
	req := &updatePrefsRequest{SummaryTimeLocal: ptr("9:00")}
	assert.NotEmpty(t, validatePrefs(req))

	req = &updatePrefsRequest{SummaryTimeLocal: ptr("24:00")}
	assert.NotEmpty(t, validatePrefs(req))
}

func TestValidatePrefsRejectsOutOfRangeTimezone(t *testing.T) {
	req := &updatePrefsRequest{TimezoneOffsetHours: ptr(-13)}
	assert.NotEmpty(t, validatePrefs(req))

	req = &updatePrefsRequest{TimezoneOffsetHours: ptr(15)}
	assert.NotEmpty(t, validatePrefs(req))
}

func TestValidatePrefsRejectsOutOfRangeDuration(t *testing.T) {
	req := &updatePrefsRequest{RecordingMaxDurationMinute: ptr(14)}
	assert.NotEmpty(t, validatePrefs(req))

	req = &updatePrefsRequest{RecordingMaxDurationMinute: ptr(181)}
	assert.NotEmpty(t, validatePrefs(req))
}
