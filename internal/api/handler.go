// Package api wires the core's components to an HTTP surface, one
// handler file per resource group, the way the teacher's api package
// kept a Handler struct holding every collaborator and split handler
// functions by concern across files.
package api

import (
	"voicecore/internal/auth"
	"voicecore/internal/blobstore"
	"voicecore/internal/config"
	"voicecore/internal/database"
	"voicecore/internal/ingest"
	"voicecore/internal/keyvault"
	"voicecore/internal/ledger"
	"voicecore/internal/processor"
	"voicecore/internal/repository"
	"voicecore/internal/transcriptstore"
)

// Handler holds every collaborator an HTTP endpoint might need. All
// fields are constructed once at startup in internal/cli/serve.go.
type Handler struct {
	config *config.Config
	auth   *auth.Service

	audio *repository.AudioRepository
	jobs  *repository.JobRepository
	prefs *repository.PrefRepository

	store     *transcriptstore.Store
	blobs     *blobstore.Service
	vault     *keyvault.Service
	ledger    *ledger.Service
	ingest    *ingest.Service
	processor *processor.Processor
}

func NewHandler(
	cfg *config.Config,
	authService *auth.Service,
	audio *repository.AudioRepository,
	jobs *repository.JobRepository,
	prefs *repository.PrefRepository,
	store *transcriptstore.Store,
	blobs *blobstore.Service,
	vault *keyvault.Service,
	ledgerSvc *ledger.Service,
	ingestSvc *ingest.Service,
	proc *processor.Processor,
) *Handler {
	return &Handler{
		config:    cfg,
		auth:      authService,
		audio:     audio,
		jobs:      jobs,
		prefs:     prefs,
		store:     store,
		blobs:     blobs,
		vault:     vault,
		ledger:    ledgerSvc,
		ingest:    ingestSvc,
		processor: proc,
	}
}

// dbHealthy is the database ping health_handlers.go reports from both
// GET /health and GET /metrics.
func dbHealthy() bool {
	return database.HealthCheck() == nil
}
