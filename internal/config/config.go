package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgallion1/lawgest/internal/law"
	"github.com/dgallion1/lawgest/internal/publish"
	"github.com/dgallion1/lawgest/internal/validate"
)

type Config struct {
	Port string

	// Pathstore connection
	PathstoreURL    string
	PathstoreAPIKey string

	// Auth
	LawgestAPIKey string

	// Worker pool
	WorkerCount        int
	MaxQueueSize       int
	MaxConcurrentStore int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool

	// Conversion
	RulesFile         string // optional, hot reloaded by the server
	GapTolerance      int
	MinArticleChars   int
	LargeLawThreshold int
	DefaultLawType    law.DocType
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		PathstoreURL:    envOr("PATHSTORE_URL", "http://localhost:8080"),
		PathstoreAPIKey: os.Getenv("PATHSTORE_API_KEY"),

		LawgestAPIKey: os.Getenv("LAWGEST_API_KEY"),

		WorkerCount:        envInt("WORKER_COUNT", 4),
		MaxQueueSize:       envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrentStore: envInt("MAX_CONCURRENT_STORE", 10),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		RulesFile:         os.Getenv("RULES_FILE"),
		GapTolerance:      envInt("GAP_TOLERANCE", validate.DefaultGapTolerance),
		MinArticleChars:   envInt("MIN_ARTICLE_CHARS", validate.DefaultMinChars),
		LargeLawThreshold: envInt("LARGE_LAW_THRESHOLD", publish.DefaultLargeLawThreshold),
		DefaultLawType:    law.DocType(envOr("DEFAULT_LAW_TYPE", string(law.TypeLeyOrganica))),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentStore <= 0 {
		cfg.MaxConcurrentStore = 10
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.GapTolerance <= 0 {
		cfg.GapTolerance = validate.DefaultGapTolerance
	}
	if cfg.MinArticleChars < 0 {
		cfg.MinArticleChars = validate.DefaultMinChars
	}
	if cfg.LargeLawThreshold <= 0 {
		cfg.LargeLawThreshold = publish.DefaultLargeLawThreshold
	}

	return cfg
}

// Validate checks the keys the server cannot start without.
func (c Config) Validate() error {
	if c.PathstoreAPIKey == "" {
		return fmt.Errorf("PATHSTORE_API_KEY is required")
	}
	if c.LawgestAPIKey == "" {
		return fmt.Errorf("LAWGEST_API_KEY is required")
	}
	if _, err := law.ParseDocType(string(c.DefaultLawType)); err != nil {
		return fmt.Errorf("DEFAULT_LAW_TYPE: %w", err)
	}
	return nil
}

// ValidateConfig returns the validator settings.
func (c Config) ValidateConfig() validate.Config {
	return validate.Config{GapTolerance: c.GapTolerance, MinChars: c.MinArticleChars}
}

// PublishConfig returns the publisher settings.
func (c Config) PublishConfig() publish.Config {
	return publish.Config{
		MaxConcurrent:     c.MaxConcurrentStore,
		LargeLawThreshold: c.LargeLawThreshold,
		Source:            "lawgest",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
