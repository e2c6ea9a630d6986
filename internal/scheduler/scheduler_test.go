package scheduler

import (
	"context"
	"testing"
	"time"

	"voicecore/internal/config"
	"voicecore/internal/models"
	"voicecore/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Job{}))

	cfg := &config.Config{SchedMatchWindow: 5 * time.Minute}
	s := New(cfg, nil, repository.NewJobRepository(db))
	s.ctx = context.Background()
	return s
}

func TestParseHHMM(t *testing.T) {
	h, m, err := parseHHMM("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, h)
	assert.Equal(t, 30, m)
}

func TestParseHHMMRejectsMalformed(t *testing.T) {
	_, _, err := parseHHMM("9:30")
	assert.Error(t, err)

	_, _, err = parseHHMM("25:00")
	assert.Error(t, err)
}

func TestMaybeScheduleInsidesWindowEnqueuesJob(t *testing.T) {
	s := newTestScheduler(t)

	// User is UTC+2, summary time 09:00 local. Pick a UTC "now" that maps
	// to 09:02 local, inside the 5-minute match window.
	now := time.Date(2026, 3, 1, 7, 2, 0, 0, time.UTC)
	pref := models.Preferences{UserID: "user-1", SummaryTimeLocal: "09:00", TimezoneOffsetHours: 2}

	s.maybeSchedule(pref, now)

	jobs, total, err := s.jobs.ListByUser(context.Background(), "user-1", models.KindDailySummary, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.NotNil(t, jobs[0].SummaryDate)
	assert.Equal(t, "2026-03-01", *jobs[0].SummaryDate)
}

func TestMaybeScheduleOutsideWindowDoesNothing(t *testing.T) {
	s := newTestScheduler(t)

	// Local time is 09:20, well past the 5-minute window after 09:00.
	now := time.Date(2026, 3, 1, 7, 20, 0, 0, time.UTC)
	pref := models.Preferences{UserID: "user-1", SummaryTimeLocal: "09:00", TimezoneOffsetHours: 2}

	s.maybeSchedule(pref, now)

	_, total, err := s.jobs.ListByUser(context.Background(), "user-1", models.KindDailySummary, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}

func TestMaybeScheduleDedupesWithinSameCall(t *testing.T) {
	s := newTestScheduler(t)

	now := time.Date(2026, 3, 1, 7, 2, 0, 0, time.UTC)
	pref := models.Preferences{UserID: "user-1", SummaryTimeLocal: "09:00", TimezoneOffsetHours: 2}

	s.maybeSchedule(pref, now)
	s.maybeSchedule(pref, now)

	_, total, err := s.jobs.ListByUser(context.Background(), "user-1", models.KindDailySummary, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}
