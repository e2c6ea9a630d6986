package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MailProvider selects how the Mailer component sends email.
type MailProvider string

const (
	MailProviderTransactionalAPI MailProvider = "transactional_api"
	MailProviderSMTP             MailProvider = "smtp"
)

// Config holds every tunable the core needs, read once at startup and
// injected into each component at construction. No component reads the
// environment directly once Load has run.
type Config struct {
	// Server configuration
	Port        string
	Host        string
	Environment string
	AllowedOrigins []string

	// Database configuration
	DatabasePath string

	// JWT configuration
	JWTSecret string

	// Blob storage
	BlobRoot string

	// External collaborator credentials
	SpeechAPIKey  string
	SpeechBaseURL string
	SummaryAPIKey string
	SummaryModel  string
	MailSender    string
	MailProvider  MailProvider
	MailAPIKey    string

	// Transcoder
	FFmpegPath  string
	FFprobePath string

	DailySummaryPromptPath string

	// §5 timeouts and bounds (all overridable; defaults match the spec)
	PollInterval        time.Duration
	MaxConcurrentJobs   int
	MaxAttempts         int
	RetryBackoff        time.Duration
	ProcessingTimeout   time.Duration
	JobMaxAge           time.Duration
	MaxFileSizeBytes    int64
	MinDurationSeconds  float64
	MaxDurationSeconds  float64
	SchedTick           time.Duration
	SchedCheckInterval  time.Duration
	SchedMatchWindow    time.Duration
	RateLimitPerMinute  int
}

// Load loads configuration from environment variables (via viper's
// automatic env binding) layered over a .env file, the same two-stage
// bootstrap the teacher's CLI config uses — godotenv populates the
// process environment first, then viper reads from it so every
// setting, including ones this flat struct never exercises, is
// queryable by key.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("host", "localhost")
	v.SetDefault("environment", "development")
	v.SetDefault("database_path", "data/voicecore.db")
	v.SetDefault("blob_root", "data/blobs")
	v.SetDefault("speech_base_url", "https://api.openai.com/v1")
	v.SetDefault("summary_model", "gpt-4o-mini")
	v.SetDefault("mail_provider", string(MailProviderTransactionalAPI))
	v.SetDefault("daily_summary_prompt_path", "data/prompts/daily_summary.txt")
	v.SetDefault("poll_interval", 30*time.Second)
	v.SetDefault("max_concurrent_jobs", 4)
	v.SetDefault("max_attempts", 3)
	v.SetDefault("retry_backoff", 10*time.Minute)
	v.SetDefault("processing_timeout", 5*time.Minute)
	v.SetDefault("job_max_age", 24*time.Hour)
	v.SetDefault("max_file_size_bytes", int64(5*1024*1024))
	v.SetDefault("min_duration_seconds", 1.0)
	v.SetDefault("max_duration_seconds", 60.0)
	v.SetDefault("sched_tick", 30*time.Second)
	v.SetDefault("sched_check_interval", 5*time.Minute)
	v.SetDefault("sched_match_window", 5*time.Minute)
	v.SetDefault("rate_limit_transcribe", 5)

	return &Config{
		Port:           v.GetString("port"),
		Host:           v.GetString("host"),
		Environment:    v.GetString("environment"),
		AllowedOrigins: splitCSV(v.GetString("allowed_origins")),
		DatabasePath:   v.GetString("database_path"),
		JWTSecret:      getJWTSecret(v),
		BlobRoot:       v.GetString("blob_root"),

		SpeechAPIKey:  v.GetString("speech_api_key"),
		SpeechBaseURL: v.GetString("speech_base_url"),
		SummaryAPIKey: v.GetString("summary_api_key"),
		SummaryModel:  v.GetString("summary_model"),
		MailSender:    v.GetString("mail_sender"),
		MailProvider:  MailProvider(v.GetString("mail_provider")),
		MailAPIKey:    v.GetString("mail_api_key"),

		FFmpegPath:  findOnPath(v, "ffmpeg_path", "ffmpeg"),
		FFprobePath: findOnPath(v, "ffprobe_path", "ffprobe"),

		DailySummaryPromptPath: v.GetString("daily_summary_prompt_path"),

		PollInterval:       v.GetDuration("poll_interval"),
		MaxConcurrentJobs:  v.GetInt("max_concurrent_jobs"),
		MaxAttempts:        v.GetInt("max_attempts"),
		RetryBackoff:       v.GetDuration("retry_backoff"),
		ProcessingTimeout:  v.GetDuration("processing_timeout"),
		JobMaxAge:          v.GetDuration("job_max_age"),
		MaxFileSizeBytes:   v.GetInt64("max_file_size_bytes"),
		MinDurationSeconds: v.GetFloat64("min_duration_seconds"),
		MaxDurationSeconds: v.GetFloat64("max_duration_seconds"),
		SchedTick:          v.GetDuration("sched_tick"),
		SchedCheckInterval: v.GetDuration("sched_check_interval"),
		SchedMatchWindow:   v.GetDuration("sched_match_window"),
		RateLimitPerMinute: v.GetInt("rate_limit_transcribe"),
	}
}

// IsProduction reports whether the configured environment is production,
// the signal the CORS middleware uses to switch from echoing the
// request origin to validating against AllowedOrigins.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Validate performs the bootstrap health check §6 demands: missing
// credentials or a missing prompt template are fatal init failures.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT secret is empty")
	}
	if c.SpeechAPIKey == "" {
		return fmt.Errorf("SPEECH_API_KEY is not set")
	}
	if c.SummaryAPIKey == "" {
		return fmt.Errorf("SUMMARY_API_KEY is not set")
	}
	if c.MailAPIKey == "" {
		return fmt.Errorf("MAIL_API_KEY is not set")
	}
	if _, err := os.Stat(c.DailySummaryPromptPath); err != nil {
		return fmt.Errorf("daily summary prompt template unreadable at %s: %w", c.DailySummaryPromptPath, err)
	}
	return nil
}

// getJWTSecret reads JWT_SECRET through viper or generates a secure
// random one, persisting it so restarts don't invalidate outstanding
// tokens.
func getJWTSecret(v *viper.Viper) string {
	if secret := v.GetString("jwt_secret"); secret != "" {
		return secret
	}
	v.SetDefault("jwt_secret_file", "data/jwt_secret")
	secretFile := v.GetString("jwt_secret_file")
	if data, err := os.ReadFile(secretFile); err == nil && len(data) > 0 {
		return strings.TrimSpace(string(data))
	}
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		log.Printf("Warning: Could not generate secure JWT secret, using fallback: %v", err)
		return "fallback-jwt-secret-please-set-JWT_SECRET-env-var"
	}
	secret := hex.EncodeToString(bytes)
	_ = os.MkdirAll(filepath.Dir(secretFile), 0755)
	_ = os.WriteFile(secretFile, []byte(secret), 0600)
	log.Println("Generated persistent JWT secret at", secretFile)
	return secret
}

// findOnPath resolves a configurable external-tool path, falling back to
// the bare command name for PATH lookup at call time.
func findOnPath(v *viper.Viper, key, fallback string) string {
	if p := v.GetString(key); p != "" {
		return p
	}
	if path, err := exec.LookPath(fallback); err == nil {
		return path
	}
	return fallback
}
