package genjob

import (
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/campaignforge/orchestrator/internal/platform/logger"
)

// RetryPolicy configures the exponential-backoff retry loop shared by every
// stage adapter's upstream capability call.
type RetryPolicy struct {
	MaxAttempts      int
	InitialBackoff   time.Duration
	Multiplier       float64
	MaxBackoff       time.Duration
}

// StageTimeouts configures the per-call timeout composed with the parent
// job's cancellation context at each stage.
type StageTimeouts struct {
	Analysis         time.Duration
	PackagePerImage  time.Duration
	AdPerImage       time.Duration
	Texts            time.Duration
}

// Config bundles every tunable knob the orchestrator needs. Zero-value
// fields are filled from DefaultConfig by normalize.
type Config struct {
	MaxConcurrentJobs      int
	IntraBranchConcurrency int
	IntraBranchPause       time.Duration // pause between generation chunks within a branch; negative disables
	CleanupInterval        time.Duration // TTL Reaper sweep period; negative disables
	JobTTL                 time.Duration
	Timeouts               StageTimeouts
	Retry                  RetryPolicy
	DefaultAdPlatforms     []string
	MaxImageBytes          int64

	Logger *logger.Logger
	Tracer trace.Tracer
	Meter  metric.Meter
}

// DefaultConfig returns the documented default for every knob.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentJobs:      5,
		IntraBranchConcurrency: 2,
		IntraBranchPause:       time.Second,
		CleanupInterval:        10 * time.Minute,
		JobTTL:                 time.Hour,
		Timeouts: StageTimeouts{
			Analysis:        30 * time.Second,
			PackagePerImage: 60 * time.Second,
			AdPerImage:      60 * time.Second,
			Texts:           30 * time.Second,
		},
		Retry: RetryPolicy{
			MaxAttempts:    3,
			InitialBackoff: 1 * time.Second,
			Multiplier:     2,
			MaxBackoff:     20 * time.Second,
		},
		DefaultAdPlatforms: append([]string(nil), DefaultAdPlatforms...),
		MaxImageBytes:      10 << 20,
		Tracer:             tracenoop.NewTracerProvider().Tracer("genjob"),
		Meter:              metricnoop.NewMeterProvider().Meter("genjob"),
	}
}

// normalize fills any zero-valued field with its DefaultConfig counterpart.
// Called once by New so partially-specified Configs behave.
func (c *Config) normalize() {
	d := DefaultConfig()
	if c.MaxConcurrentJobs <= 0 {
		c.MaxConcurrentJobs = d.MaxConcurrentJobs
	}
	if c.IntraBranchConcurrency <= 0 {
		c.IntraBranchConcurrency = d.IntraBranchConcurrency
	}
	if c.IntraBranchPause == 0 {
		c.IntraBranchPause = d.IntraBranchPause
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
	if c.Timeouts.Analysis <= 0 {
		c.Timeouts.Analysis = d.Timeouts.Analysis
	}
	if c.Timeouts.PackagePerImage <= 0 {
		c.Timeouts.PackagePerImage = d.Timeouts.PackagePerImage
	}
	if c.Timeouts.AdPerImage <= 0 {
		c.Timeouts.AdPerImage = d.Timeouts.AdPerImage
	}
	if c.Timeouts.Texts <= 0 {
		c.Timeouts.Texts = d.Timeouts.Texts
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = d.Retry.MaxAttempts
	}
	if c.Retry.InitialBackoff <= 0 {
		c.Retry.InitialBackoff = d.Retry.InitialBackoff
	}
	if c.Retry.Multiplier <= 0 {
		c.Retry.Multiplier = d.Retry.Multiplier
	}
	if c.Retry.MaxBackoff <= 0 {
		c.Retry.MaxBackoff = d.Retry.MaxBackoff
	}
	if len(c.DefaultAdPlatforms) == 0 {
		c.DefaultAdPlatforms = append([]string(nil), d.DefaultAdPlatforms...)
	}
	if c.MaxImageBytes <= 0 {
		c.MaxImageBytes = d.MaxImageBytes
	}
	if c.Tracer == nil {
		c.Tracer = d.Tracer
	}
	if c.Meter == nil {
		c.Meter = d.Meter
	}
}

// ConfigFromEnv builds a Config from environment variables. Unset or
// unparseable values fall back to DefaultConfig.
func ConfigFromEnv() Config {
	c := DefaultConfig()
	if v := getEnvInt("GENJOB_MAX_CONCURRENT_JOBS", 0); v > 0 {
		c.MaxConcurrentJobs = v
	}
	if v := getEnvInt("GENJOB_INTRA_BRANCH_CONCURRENCY", 0); v > 0 {
		c.IntraBranchConcurrency = v
	}
	if v := getEnvDuration("GENJOB_INTRA_BRANCH_PAUSE", 0); v > 0 {
		c.IntraBranchPause = v
	}
	if v := getEnvDuration("GENJOB_CLEANUP_INTERVAL", 0); v > 0 {
		c.CleanupInterval = v
	}
	if v := getEnvDuration("GENJOB_JOB_TTL", 0); v > 0 {
		c.JobTTL = v
	}
	if v := getEnvDuration("GENJOB_ANALYSIS_TIMEOUT", 0); v > 0 {
		c.Timeouts.Analysis = v
	}
	if v := getEnvDuration("GENJOB_PACKAGE_TIMEOUT", 0); v > 0 {
		c.Timeouts.PackagePerImage = v
	}
	if v := getEnvDuration("GENJOB_AD_TIMEOUT", 0); v > 0 {
		c.Timeouts.AdPerImage = v
	}
	if v := getEnvDuration("GENJOB_TEXTS_TIMEOUT", 0); v > 0 {
		c.Timeouts.Texts = v
	}
	if v := getEnvInt("GENJOB_RETRY_MAX_ATTEMPTS", 0); v > 0 {
		c.Retry.MaxAttempts = v
	}
	if v := getEnvDuration("GENJOB_RETRY_INITIAL_BACKOFF", 0); v > 0 {
		c.Retry.InitialBackoff = v
	}
	if platforms := strings.TrimSpace(os.Getenv("GENJOB_DEFAULT_AD_PLATFORMS")); platforms != "" {
		c.DefaultAdPlatforms = strings.Split(platforms, ",")
	}
	return c
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
