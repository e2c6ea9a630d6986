package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicecore/internal/api"
	"voicecore/internal/auth"
	"voicecore/internal/blobstore"
	"voicecore/internal/config"
	"voicecore/internal/database"
	"voicecore/internal/ingest"
	"voicecore/internal/keyvault"
	"voicecore/internal/ledger"
	"voicecore/internal/llm"
	"voicecore/internal/mailer"
	"voicecore/internal/processor"
	"voicecore/internal/repository"
	"voicecore/internal/scheduler"
	"voicecore/internal/speechclient"
	"voicecore/internal/summaryclient"
	"voicecore/internal/transcoder"
	"voicecore/internal/transcriptstore"
	"voicecore/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// @title voicecore API
// @version 1.0
// @description Audio ingestion, transcription, and daily-summary core.

// @license.name MIT

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token with Bearer prefix

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, job processor, and summary scheduler",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

// runServe boots every component and blocks until a shutdown signal
// arrives. It is the cobra-wrapped successor to the pre-cobra
// cmd/server/main.go entry point — identical wiring, now reachable as
// "voicecore serve" alongside "voicecore version".
func runServe() {
	log.Println("voicecore starting up...")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting voicecore", "version", version, "commit", commit)

	if err := database.Initialize(cfg.DatabasePath); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close()

	authService := auth.NewAuthService(cfg.JWTSecret)

	audioRepo := repository.NewAudioRepository(database.DB)
	jobRepo := repository.NewJobRepository(database.DB)
	prefRepo := repository.NewPrefRepository(database.DB)
	transcriptRepo := repository.NewTranscriptRepository(database.DB)
	summaryRepo := repository.NewSummaryRepository(database.DB)
	keyRepo := repository.NewKeyRepository(database.DB)
	ledgerRepo := repository.NewLedgerRepository(database.DB)

	vault := keyvault.New(keyRepo)
	store := transcriptstore.New(transcriptRepo, summaryRepo, vault)
	blobs := blobstore.New(cfg.BlobRoot, []byte(cfg.JWTSecret), "http://"+cfg.Host+":"+cfg.Port)
	ledgerSvc := ledger.New(ledgerRepo)
	ingestSvc := ingest.New(audioRepo, jobRepo, ledgerSvc)

	tc := transcoder.New(cfg.FFmpegPath, cfg.FFprobePath)
	speech := speechclient.New(cfg.SpeechAPIKey, cfg.SpeechBaseURL)

	promptTemplate, err := os.ReadFile(cfg.DailySummaryPromptPath)
	if err != nil {
		log.Fatal("Failed to read daily summary prompt template:", err)
	}
	chatService := llm.NewOpenAIService(cfg.SummaryAPIKey, nil)
	summaryClient := summaryclient.New(chatService, cfg.SummaryModel, string(promptTemplate))

	mailSvc := mailer.New(cfg.MailProvider, cfg.MailAPIKey, cfg.MailSender)

	proc := processor.New(cfg, jobRepo, audioRepo, prefRepo, store, blobs, vault, tc, speech, summaryClient, ledgerSvc, mailSvc)
	proc.Start()
	defer proc.Stop()

	sched := scheduler.New(cfg, prefRepo, jobRepo)
	sched.Start()
	defer sched.Stop()

	handler := api.NewHandler(cfg, authService, audioRepo, jobRepo, prefRepo, store, blobs, vault, ledgerSvc, ingestSvc, proc)

	if cfg.Host != "localhost" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.SetupRoutes(handler, authService)

	srv := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on %s:%s", cfg.Host, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
