package config

import (
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero total frames",
			mutate:  func(c *Config) { c.TotalFrames = 0 },
			wantErr: true,
		},
		{
			name:    "negative frames per sample",
			mutate:  func(c *Config) { c.FramesPerSample = -1 },
			wantErr: true,
		},
		{
			name:    "min age above max age",
			mutate:  func(c *Config) { c.MinAgeDays = 30; c.MaxAgeDays = 7 },
			wantErr: true,
		},
		{
			name:    "unknown bias mode",
			mutate:  func(c *Config) { c.Bias = "beta_hard" },
			wantErr: true,
		},
		{
			name:    "unknown match type",
			mutate:  func(c *Config) { c.MatchType = "mixed" },
			wantErr: true,
		},
		{
			name:    "unknown image format",
			mutate:  func(c *Config) { c.ImageFormat = "webp" },
			wantErr: true,
		},
		{
			name:    "negative slack",
			mutate:  func(c *Config) { c.CatalogSlack = -1 },
			wantErr: true,
		},
		{
			name:    "court min score out of range",
			mutate:  func(c *Config) { c.Court.MinScore = 1.5 },
			wantErr: true,
		},
		{
			name:   "ttl disabled",
			mutate: func(c *Config) { c.CacheTTL = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FRAMESAMPLER_TOTAL_FRAMES", "30")
	t.Setenv("FRAMESAMPLER_SEED", "42")
	t.Setenv("FRAMESAMPLER_BIAS_MODE", "hard_margin")
	t.Setenv("FRAMESAMPLER_CACHE_TTL", "1h")
	t.Setenv("FRAMESAMPLER_KEEP_TMP", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TotalFrames != 30 {
		t.Errorf("TotalFrames = %d, want 30", cfg.TotalFrames)
	}
	if !cfg.SeedSet || cfg.Seed != 42 {
		t.Errorf("Seed = %d (set=%v), want 42 (set)", cfg.Seed, cfg.SeedSet)
	}
	if cfg.Bias != BiasHardMargin {
		t.Errorf("Bias = %q, want %q", cfg.Bias, BiasHardMargin)
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("CacheTTL = %v, want 1h", cfg.CacheTTL)
	}
	if !cfg.KeepTmp {
		t.Error("KeepTmp = false, want true")
	}
}

func TestAttemptCeiling(t *testing.T) {
	cfg := Default()
	cfg.TotalFrames = 30
	cfg.FramesPerSample = 10
	if got := cfg.AttemptCeiling(); got != 150 {
		t.Errorf("AttemptCeiling() = %d, want 150", got)
	}

	cfg.MaxTotalAttempts = 7
	if got := cfg.AttemptCeiling(); got != 7 {
		t.Errorf("AttemptCeiling() with explicit cap = %d, want 7", got)
	}
}
