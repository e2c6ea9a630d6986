// Package scheduler implements SummaryScheduler (spec §4.M): an
// independent ticker that, once a day, generates a daily_summary Job
// for each user whose local time has just crossed their configured
// summary time. Grounded on the same ticker-driven-loop shape as
// internal/processor's scanner, with an outer cheap tick and an inner
// gated expensive scan, matching the teacher's jobScanner/autoScaler
// two-cadence pattern.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"voicecore/internal/config"
	"voicecore/internal/models"
	"voicecore/internal/repository"
	"voicecore/pkg/logger"
)

type Scheduler struct {
	cfg   *config.Config
	prefs *repository.PrefRepository
	jobs  *repository.JobRepository

	mu             sync.Mutex
	scheduledToday map[string]bool // "userID|date" dedupe within one UTC day
	lastCheck      time.Time
	lastResetDate  string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg *config.Config, prefs *repository.PrefRepository, jobs *repository.JobRepository) *Scheduler {
	return &Scheduler{
		cfg:            cfg,
		prefs:          prefs,
		jobs:           jobs,
		scheduledToday: make(map[string]bool),
		done:           make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	go s.loop()
	logger.Info("Summary scheduler started", "tick", s.cfg.SchedTick.String(), "check_interval", s.cfg.SchedCheckInterval.String())
}

func (s *Scheduler) Stop() {
	s.cancel()
	<-s.done
	logger.Info("Summary scheduler stopped")
}

func (s *Scheduler) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.SchedTick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.ctx.Done():
			return
		}
	}
}

// tick is the cheap per-SCHED_TICK check; it only does the expensive
// per-user scan once SCHED_CHECK_INTERVAL has elapsed since the last
// one, so a 30s tick doesn't mean a 30s full-table scan.
func (s *Scheduler) tick() {
	now := time.Now().UTC()

	s.mu.Lock()
	today := now.Format("2006-01-02")
	if s.lastResetDate != today {
		s.scheduledToday = make(map[string]bool)
		s.lastResetDate = today
	}
	dueForScan := now.Sub(s.lastCheck) >= s.cfg.SchedCheckInterval
	if dueForScan {
		s.lastCheck = now
	}
	s.mu.Unlock()

	if !dueForScan {
		return
	}

	s.scan(now)
}

// scan matches every daily-summary-enabled user's local summary time
// against now, within SCHED_MATCH_WINDOW, and generates a job for each
// match, dated with the UTC calendar date of now (see maybeSchedule).
func (s *Scheduler) scan(now time.Time) {
	prefs, err := s.prefs.ListEnabledForDailySummary(s.ctx)
	if err != nil {
		logger.Error("Failed to list daily-summary users", "error", err.Error())
		return
	}

	for _, pref := range prefs {
		s.maybeSchedule(pref, now)
	}
}

func (s *Scheduler) maybeSchedule(pref models.Preferences, now time.Time) {
	localNow := now.Add(time.Duration(pref.TimezoneOffsetHours) * time.Hour)

	targetHour, targetMinute, err := parseHHMM(pref.SummaryTimeLocal)
	if err != nil {
		return
	}

	target := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), targetHour, targetMinute, 0, 0, time.UTC)
	diff := localNow.Sub(target)
	if diff < 0 || diff > s.cfg.SchedMatchWindow {
		return
	}

	// summary_date is today's UTC calendar date at match time (spec
	// §4.M step 4 and §9 Open Question #3) — not a date derived from
	// the user's local clock, which the source conflated with this.
	summaryDate := now.Format("2006-01-02")
	dedupeKey := fmt.Sprintf("%s|%s", pref.UserID, summaryDate)

	s.mu.Lock()
	alreadyScheduled := s.scheduledToday[dedupeKey]
	if !alreadyScheduled {
		s.scheduledToday[dedupeKey] = true
	}
	s.mu.Unlock()
	if alreadyScheduled {
		return
	}

	exists, err := s.jobs.ExistsActiveDailySummary(s.ctx, pref.UserID, summaryDate)
	if err != nil {
		logger.Error("Failed to check existing daily summary job", "user_id", pref.UserID, "error", err.Error())
		return
	}
	if exists {
		return
	}

	job := &models.Job{
		UserID:      pref.UserID,
		Kind:        models.KindDailySummary,
		SummaryDate: &summaryDate,
		Status:      models.StatusPending,
		CreatedAt:   now,
	}
	if err := s.jobs.Insert(s.ctx, job); err != nil {
		logger.Error("Failed to insert daily summary job", "user_id", pref.UserID, "error", err.Error())
		return
	}
	logger.Info("Scheduled daily summary job", "user_id", pref.UserID, "summary_date", summaryDate)
}

func parseHHMM(s string) (hour, minute int, err error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, fmt.Errorf("invalid HH:MM value: %s", s)
	}
	_, err = fmt.Sscanf(s, "%02d:%02d", &hour, &minute)
	if err != nil {
		return 0, 0, err
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid HH:MM value: %s", s)
	}
	return hour, minute, nil
}
