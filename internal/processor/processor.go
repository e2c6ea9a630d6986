// Package processor implements JobProcessor (spec §4.L): the bounded
// worker pool that drains pending Jobs, dispatches them by kind, and
// reaps any that die mid-flight. Grounded on the teacher's
// internal/queue.TaskQueue — same channel-fed worker pool and
// ticker-driven scanner — fixed to a constant worker count (the spec
// has no auto-scaler) and generalized to the two job kinds this core
// dispatches instead of one.
package processor

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"voicecore/internal/apperr"
	"voicecore/internal/blobstore"
	"voicecore/internal/config"
	"voicecore/internal/crypto"
	"voicecore/internal/keyvault"
	"voicecore/internal/ledger"
	"voicecore/internal/mailer"
	"voicecore/internal/models"
	"voicecore/internal/repository"
	"voicecore/internal/speechclient"
	"voicecore/internal/summaryclient"
	"voicecore/internal/transcoder"
	"voicecore/internal/transcriptstore"
	"voicecore/pkg/logger"

	"golang.org/x/sync/errgroup"
)

type Processor struct {
	cfg *config.Config

	jobs       *repository.JobRepository
	audio      *repository.AudioRepository
	prefs      *repository.PrefRepository
	store      *transcriptstore.Store
	blobs      *blobstore.Service
	vault      *keyvault.Service
	transcoder *transcoder.Service
	speech     *speechclient.Service
	summary    *summaryclient.Service
	ledger     *ledger.Service
	mailer     *mailer.Service

	jobChannel chan string
	ctx        context.Context
	cancel     context.CancelFunc
	group      *errgroup.Group
}

func New(
	cfg *config.Config,
	jobs *repository.JobRepository,
	audio *repository.AudioRepository,
	prefs *repository.PrefRepository,
	store *transcriptstore.Store,
	blobs *blobstore.Service,
	vault *keyvault.Service,
	tc *transcoder.Service,
	speech *speechclient.Service,
	summary *summaryclient.Service,
	ledgerSvc *ledger.Service,
	mailerSvc *mailer.Service,
) *Processor {
	return &Processor{
		cfg:        cfg,
		jobs:       jobs,
		audio:      audio,
		prefs:      prefs,
		store:      store,
		blobs:      blobs,
		vault:      vault,
		transcoder: tc,
		speech:     speech,
		summary:    summary,
		ledger:     ledgerSvc,
		mailer:     mailerSvc,
		jobChannel: make(chan string, 200),
	}
}

// Start launches the worker pool, the poll-driven scanner, and the
// reaper sweep. Safe to call once; call Stop to shut everything down.
func (p *Processor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.ctx = ctx
	p.cancel = cancel

	g, gctx := errgroup.WithContext(ctx)
	p.group = g
	_ = gctx

	for i := 0; i < p.cfg.MaxConcurrentJobs; i++ {
		workerID := i
		g.Go(func() error {
			p.worker(workerID)
			return nil
		})
	}

	g.Go(func() error {
		p.scanLoop()
		return nil
	})

	g.Go(func() error {
		p.reapLoop()
		return nil
	})

	logger.Info("Job processor started", "workers", p.cfg.MaxConcurrentJobs, "poll_interval", p.cfg.PollInterval.String())
}

// Stop cancels the processor's context and waits for every worker,
// scanner, and reaper goroutine to return.
func (p *Processor) Stop() {
	p.cancel()
	close(p.jobChannel)
	_ = p.group.Wait()
	logger.Info("Job processor stopped")
}

func (p *Processor) scanLoop() {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.scanPending()
		case <-p.ctx.Done():
			return
		}
	}
}

// scanPending applies the eligibility filter from spec §4.L. Rules 1
// (status) and 4 (backoff) are already enforced by FindEligible's SQL;
// rules 2 (max attempts) and 3 (max age) are checked here because a job
// that violates either must still be transitioned to Failed, not just
// skipped — so a violating job is failed directly, in place, without
// ever entering Processing or touching an external service.
func (p *Processor) scanPending() {
	jobs, err := p.jobs.FindEligible(p.ctx, p.cfg.RetryBackoff, p.cfg.MaxConcurrentJobs*4)
	if err != nil {
		logger.Error("Failed to scan eligible jobs", "error", err.Error())
		return
	}

	now := time.Now().UTC()
	for _, job := range jobs {
		if job.Attempts >= p.cfg.MaxAttempts {
			p.failPending(job, "exceeded max retries")
			continue
		}
		if now.Sub(job.CreatedAt.UTC()) >= p.cfg.JobMaxAge {
			p.failPending(job, "job aged out")
			continue
		}
		select {
		case p.jobChannel <- job.ID:
		case <-p.ctx.Done():
			return
		default:
			// Channel full; this job is picked up on the next tick.
		}
	}
}

// failPending fails a job that never leaves Pending — it was never
// claimed, so no worker is racing this transition and no attempt is
// incremented.
func (p *Processor) failPending(job models.Job, reason string) {
	completedAt := time.Now()
	ok, err := p.jobs.Update(p.ctx, job.ID, models.StatusPending, models.JobPatch{
		Status:       models.StatusFailed,
		CompletedAt:  &completedAt,
		ErrorMessage: &reason,
	})
	if err != nil {
		logger.Error("Failed to fail pending job", "job_id", job.ID, "error", err.Error())
		return
	}
	if ok {
		logger.JobTransition(job.ID, job.UserID, string(job.Kind), "pending", "failed", job.Attempts, "", reason)
	}
}

func (p *Processor) reapLoop() {
	ticker := time.NewTicker(p.cfg.ProcessingTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.reapStale()
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Processor) reapStale() {
	deadline := time.Now().Add(-p.cfg.ProcessingTimeout)
	ids, err := p.jobs.ReapStale(p.ctx, deadline)
	if err != nil {
		logger.Error("Failed to reap stale jobs", "error", err.Error())
		return
	}
	for _, id := range ids {
		logger.JobTransition(id, "", "", "processing", "pending", 0, "", "reaped after processing deadline")
	}
}

func (p *Processor) worker(id int) {
	for {
		select {
		case jobID, ok := <-p.jobChannel:
			if !ok {
				return
			}
			p.runJob(id, jobID)
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Processor) runJob(workerID int, jobID string) {
	now := time.Now()
	claimed, err := p.jobs.Claim(p.ctx, jobID, now)
	if err != nil {
		logger.Error("Failed to claim job", "job_id", jobID, "error", err.Error())
		return
	}
	if !claimed {
		return // another worker got it first
	}

	job, err := p.jobs.FindByID(p.ctx, jobID)
	if err != nil {
		return
	}

	jobCtx, cancel := context.WithTimeout(p.ctx, p.cfg.ProcessingTimeout)
	defer cancel()

	var procErr error
	switch job.Kind {
	case models.KindTranscription:
		procErr = p.processTranscription(jobCtx, job)
	case models.KindDailySummary:
		procErr = p.processDailySummary(jobCtx, job)
	default:
		procErr = apperr.New(apperr.InvalidInput, "unknown job kind", nil)
	}

	p.finish(job, procErr)
}

// finish applies the error-policy partition from spec §4.L: a
// permanent error fails the job outright, a transient one leaves it
// pending for the next backoff window, and shutdown-triggered
// cancellation leaves status untouched (Claim already counted the
// attempt, so a retry after restart doesn't double count).
func (p *Processor) finish(job *models.Job, procErr error) {
	completedAt := time.Now()

	if procErr == nil {
		ok, err := p.jobs.Update(p.ctx, job.ID, models.StatusProcessing, models.JobPatch{
			Status:      models.StatusCompleted,
			CompletedAt: &completedAt,
		})
		if err != nil || !ok {
			logger.Error("Failed to mark job completed", "job_id", job.ID)
			return
		}
		logger.JobTransition(job.ID, job.UserID, string(job.Kind), "processing", "completed", job.Attempts, "", "")
		return
	}

	if p.ctx.Err() == context.Canceled {
		// Shutdown in progress; leave the row in processing for the
		// reaper to revert on the next start, without logging a failure.
		return
	}

	category := apperr.CategoryOf(procErr)
	reason := apperr.ReasonFor(procErr)

	if apperr.IsTransient(procErr) && job.Attempts < p.cfg.MaxAttempts {
		_, err := p.jobs.Update(p.ctx, job.ID, models.StatusProcessing, models.JobPatch{
			Status:       models.StatusPending,
			ErrorMessage: &reason,
		})
		if err != nil {
			logger.Error("Failed to revert job to pending", "job_id", job.ID, "error", err.Error())
		}
		logger.JobTransition(job.ID, job.UserID, string(job.Kind), "processing", "pending", job.Attempts, string(category), reason)
		return
	}

	_, err := p.jobs.Update(p.ctx, job.ID, models.StatusProcessing, models.JobPatch{
		Status:       models.StatusFailed,
		CompletedAt:  &completedAt,
		ErrorMessage: &reason,
	})
	if err != nil {
		logger.Error("Failed to mark job failed", "job_id", job.ID, "error", err.Error())
	}
	logger.JobTransition(job.ID, job.UserID, string(job.Kind), "processing", "failed", job.Attempts, string(category), reason)
}

// processTranscription implements the transcription dispatch steps of
// spec §4.L in order: missing-source and oversized checks, the user's
// opt-out and credit gates, fetch-decrypt-normalize, the duration
// bounds check, and finally the billed transcription call itself.
func (p *Processor) processTranscription(ctx context.Context, job *models.Job) error {
	if job.AudioFileID == nil {
		return apperr.New(apperr.InvalidInput, "transcription job missing audio_file_id", nil)
	}

	audioObj, err := p.audio.FindByID(ctx, *job.AudioFileID)
	if err != nil {
		return apperr.New(apperr.NotFound, "source audio missing", err)
	}

	if audioObj.SizeBytes > p.cfg.MaxFileSizeBytes {
		return apperr.New(apperr.InvalidInput, "audio too large", nil)
	}

	pref, err := p.prefs.FindByUser(ctx, job.UserID)
	if err != nil {
		return apperr.New(apperr.Unavailable, "failed to load preferences", err)
	}
	if !pref.EnableTranscription {
		return nil // user opted out; Completed with no transcript, not a failure.
	}

	hasCredit, err := p.ledger.HasCredit(ctx, job.UserID)
	if err != nil {
		return err
	}
	if !hasCredit {
		return apperr.New(apperr.InsufficientCredit, "insufficient credit", nil)
	}

	reader, err := p.blobs.Get(ctx, audioObj.BlobKey)
	if err != nil {
		return err
	}
	encrypted, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		return apperr.New(apperr.Unavailable, "failed to read encrypted blob", err)
	}

	key, err := p.vault.GetKey(ctx, job.UserID)
	if err != nil {
		return err
	}
	if _, err := p.ledger.Charge(ctx, job.UserID, ledger.RateKeyVaultRetrieve, 1); err != nil {
		return err
	}

	plaintext, err := crypto.Decrypt(key, encrypted)
	if err != nil {
		return apperr.New(apperr.IntegrityFailure, "decryption failed", err)
	}

	srcFile, err := os.CreateTemp("", "voicecore-src-*")
	if err != nil {
		return apperr.New(apperr.Unavailable, "failed to create temp file", err)
	}
	defer os.Remove(srcFile.Name())
	if _, err := srcFile.Write(plaintext); err != nil {
		srcFile.Close()
		return apperr.New(apperr.Unavailable, "failed to stage audio for transcoding", err)
	}
	srcFile.Close()

	dstPath := srcFile.Name() + ".norm.wav"
	defer os.Remove(dstPath)

	if err := p.transcoder.Normalize(ctx, srcFile.Name(), dstPath); err != nil {
		return err
	}

	durationSeconds, err := p.transcoder.DurationSeconds(ctx, dstPath, audioObj.SizeBytes)
	if err != nil {
		return err
	}

	maxDuration := p.cfg.MaxDurationSeconds
	if userCap := float64(pref.RecordingMaxDurationMinute) * 60.0; userCap > 0 && userCap < maxDuration {
		maxDuration = userCap
	}
	if durationSeconds < p.cfg.MinDurationSeconds || durationSeconds > maxDuration {
		return nil // silent or oversized audio; Completed with no transcript.
	}

	text, err := p.speech.Transcribe(ctx, dstPath)
	if err != nil {
		return err
	}
	if _, err := p.ledger.Charge(ctx, job.UserID, ledger.RateTranscribe, durationSeconds/60.0); err != nil {
		return err
	}

	transcript := &models.Transcript{
		UserID:          job.UserID,
		AudioFileID:     *job.AudioFileID,
		Text:            text,
		DurationSeconds: durationSeconds,
		BlobKey:         audioObj.BlobKey,
		CreatedAt:       audioObj.RecordedAt,
	}
	return p.store.SaveTranscript(ctx, transcript)
}

// processDailySummary implements the daily-summary dispatch steps of
// spec §4.L: the user's opt-out and missing-email gates, gathering the
// target day's transcripts, summarizing (or substituting a "no
// activity" body for a quiet day), billing, emailing, and persisting
// the encrypted result.
func (p *Processor) processDailySummary(ctx context.Context, job *models.Job) error {
	pref, err := p.prefs.FindByUser(ctx, job.UserID)
	if err != nil {
		return apperr.New(apperr.Unavailable, "failed to load preferences", err)
	}
	if !pref.EnableDailySummary {
		return nil // opted out; Completed silently, no email.
	}
	if pref.NotificationEmail == "" {
		return apperr.New(apperr.InvalidInput, "notification email required", nil)
	}

	var targetDate string
	if job.SummaryDate != nil {
		targetDate = *job.SummaryDate
	}
	if targetDate == "" {
		// Legacy fallback for jobs predating summary_date: infer
		// yesterday from created_at in the user's local calendar.
		localCreated := job.CreatedAt.UTC().Add(time.Duration(pref.TimezoneOffsetHours) * time.Hour)
		targetDate = localCreated.Add(-24 * time.Hour).Format("2006-01-02")
	}

	localMidnight, err := transcriptstore.ParseDate(targetDate)
	if err != nil {
		return apperr.New(apperr.InvalidInput, "invalid summary_date", err)
	}
	// The target date names a day on the user's local calendar; convert
	// its [00:00, 24:00) bounds to UTC before querying, since
	// Transcript.CreatedAt is always stored and compared in UTC.
	offset := time.Duration(pref.TimezoneOffsetHours) * time.Hour
	from := localMidnight.Add(-offset)
	to := from.Add(24 * time.Hour)

	transcripts, err := p.store.ListTranscriptsInRange(ctx, job.UserID, from, to)
	if err != nil {
		return err
	}

	texts := make([]string, 0, len(transcripts))
	for _, t := range transcripts {
		texts = append(texts, t.Text)
	}

	var body models.SummaryBody
	if len(texts) > 0 {
		result, err := p.summary.Summarize(ctx, texts)
		if err != nil {
			return err
		}
		if _, err := p.ledger.Charge(ctx, job.UserID, ledger.RateSummarizeInput, float64(result.TokensIn)/1000.0); err != nil {
			return err
		}
		if _, err := p.ledger.Charge(ctx, job.UserID, ledger.RateSummarizeOutput, float64(result.TokensOut)/1000.0); err != nil {
			return err
		}
		body = result.Body
	}

	if err := p.sendSummaryEmail(ctx, job.UserID, pref.NotificationEmail, targetDate, body); err != nil {
		return err
	}

	if _, err := p.store.SaveSummary(ctx, job.UserID, targetDate, body); err != nil {
		return err
	}
	return nil
}

// sendSummaryEmail renders and sends the daily-summary notification,
// charging the Email rate on success. Unlike a mail failure on an
// already-completed job, a failure here is part of the job's own
// dispatch chain and is classified by the processor's normal error
// policy rather than swallowed.
func (p *Processor) sendSummaryEmail(ctx context.Context, userID, to, date string, body models.SummaryBody) error {
	html := renderSummaryEmail(date, body)
	msg := mailer.Message{
		To:      to,
		Subject: "Your daily summary for " + date,
		Body:    html,
	}
	if err := p.mailer.Send(ctx, msg); err != nil {
		return err
	}
	_, err := p.ledger.Charge(ctx, userID, ledger.RateMail, 0.001)
	return err
}

// renderSummaryEmail builds the HTML body for a daily-summary
// notification. A day with no activity gets a short placeholder
// instead of three empty bullet sections.
func renderSummaryEmail(date string, body models.SummaryBody) string {
	if len(body.Family) == 0 && len(body.Business) == 0 && len(body.Misc) == 0 {
		return "<h2>Daily summary for " + date + "</h2><p>No recordings today.</p>"
	}
	var b strings.Builder
	b.WriteString("<h2>Daily summary for " + date + "</h2>")
	writeSection(&b, "Family", body.Family)
	writeSection(&b, "Business", body.Business)
	writeSection(&b, "Misc", body.Misc)
	return b.String()
}

func writeSection(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("<h3>" + title + "</h3><ul>")
	for _, item := range items {
		b.WriteString("<li>" + item + "</li>")
	}
	b.WriteString("</ul>")
}
