package genjob

import (
	"testing"
	"time"
)

func TestDefaultConfigKnobs(t *testing.T) {
	d := DefaultConfig()
	if d.MaxConcurrentJobs != 5 {
		t.Fatalf("expected default cap of 5 concurrent jobs, got %d", d.MaxConcurrentJobs)
	}
	if d.JobTTL != time.Hour {
		t.Fatalf("expected default job TTL of 1h, got %s", d.JobTTL)
	}
	if d.CleanupInterval != 10*time.Minute {
		t.Fatalf("expected default cleanup interval of 10m, got %s", d.CleanupInterval)
	}
	if d.Timeouts.Analysis != 30*time.Second || d.Timeouts.Texts != 30*time.Second {
		t.Fatalf("expected 30s analysis/texts timeouts, got %s/%s", d.Timeouts.Analysis, d.Timeouts.Texts)
	}
	if d.Timeouts.PackagePerImage != 60*time.Second || d.Timeouts.AdPerImage != 60*time.Second {
		t.Fatalf("expected 60s per-image timeouts, got %s/%s", d.Timeouts.PackagePerImage, d.Timeouts.AdPerImage)
	}
	if d.Retry.MaxAttempts != 3 || d.Retry.InitialBackoff != time.Second || d.Retry.Multiplier != 2 {
		t.Fatalf("unexpected retry defaults: %+v", d.Retry)
	}
	if d.IntraBranchConcurrency != 2 || d.IntraBranchPause != time.Second {
		t.Fatalf("unexpected intra-branch defaults: conc=%d pause=%s", d.IntraBranchConcurrency, d.IntraBranchPause)
	}
	if len(d.DefaultAdPlatforms) != 4 {
		t.Fatalf("expected 4 default ad platforms, got %v", d.DefaultAdPlatforms)
	}
}

func TestNormalizeFillsZeroFields(t *testing.T) {
	var c Config
	c.normalize()
	d := DefaultConfig()
	if c.MaxConcurrentJobs != d.MaxConcurrentJobs {
		t.Fatalf("expected zero cap to be defaulted, got %d", c.MaxConcurrentJobs)
	}
	if c.Tracer == nil || c.Meter == nil {
		t.Fatalf("expected no-op tracer/meter to be wired for zero values")
	}
	if c.IntraBranchPause != d.IntraBranchPause {
		t.Fatalf("expected zero pause to be defaulted, got %s", c.IntraBranchPause)
	}
	if c.CleanupInterval != d.CleanupInterval {
		t.Fatalf("expected zero cleanup interval to be defaulted, got %s", c.CleanupInterval)
	}
}

func TestNormalizePreservesExplicitValues(t *testing.T) {
	c := Config{MaxConcurrentJobs: 9, IntraBranchPause: -1, CleanupInterval: -1}
	c.normalize()
	if c.MaxConcurrentJobs != 9 {
		t.Fatalf("expected explicit cap to be preserved, got %d", c.MaxConcurrentJobs)
	}
	if c.IntraBranchPause != -1 {
		t.Fatalf("expected negative pause (pacing disabled) to be preserved, got %s", c.IntraBranchPause)
	}
	if c.CleanupInterval != -1 {
		t.Fatalf("expected negative cleanup interval (reaper disabled) to be preserved, got %s", c.CleanupInterval)
	}
}
