package main

import (
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"port zero", func(c *Config) { c.port = 0 }, "invalid port"},
		{"port too high", func(c *Config) { c.port = 70000 }, "invalid port"},
		{"relative origin", func(c *Config) { c.origin = "/site" }, "absolute"},
		{"ftp origin", func(c *Config) { c.origin = "ftp://bee.example.com/" }, "absolute"},
		{"unknown backend", func(c *Config) { c.cacheBackend = "redis" }, "unknown cache backend"},
		{"same versions", func(c *Config) { c.corpusVersion = c.staticVersion }, "must differ"},
		{"relative corpus path", func(c *Config) { c.corpusPath = "words/en" }, "corpus path"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.originURL = nil
			tc.mutate(cfg)
			err := cfg.validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("validate() = %v, want nil", err)
				}
				if cfg.originURL == nil || cfg.originURL.Host != "bee.example.com" {
					t.Errorf("originURL = %v", cfg.originURL)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("validate() = %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestConfigValidateClampsRateLimits(t *testing.T) {
	cfg := testConfig(t)
	cfg.rateLimitRPS = 0
	cfg.rateLimitBurst = -1
	if err := cfg.validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.rateLimitRPS != 1 || cfg.rateLimitBurst != 1 {
		t.Errorf("rate limits = %d/%d, want 1/1", cfg.rateLimitRPS, cfg.rateLimitBurst)
	}
}

func TestProductionFromEnv(t *testing.T) {
	t.Setenv("ENV", "production")
	cfg := testConfig(t)
	if err := cfg.validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.env() != "production" {
		t.Errorf("env() = %q, want production", cfg.env())
	}
}

func TestCmdReadsEnvironment(t *testing.T) {
	t.Setenv("OPENBEE_PORT", "9191")
	t.Setenv("OPENBEE_CACHE_BACKEND", "memory")
	t.Setenv("OPENBEE_MANIFEST", "https://a.example/x.js,https://b.example/y.js")

	cfg := &Config{}
	cmd := newCmd(cfg)
	if err := cmd.ParseFlags([]string{"--origin", "https://bee.example.com/"}); err != nil {
		t.Fatal(err)
	}
	if cfg.port != 9191 {
		t.Errorf("port = %d, want 9191", cfg.port)
	}
	if cfg.cacheBackend != BackendMemory {
		t.Errorf("cache backend = %q, want memory", cfg.cacheBackend)
	}
	if len(cfg.manifest) != 2 {
		t.Errorf("manifest = %v, want two entries", cfg.manifest)
	}
	if cfg.origin != "https://bee.example.com/" {
		t.Errorf("origin = %q", cfg.origin)
	}
	if cfg.staticVersion != DefaultStaticVersion {
		t.Errorf("static version = %q, want default", cfg.staticVersion)
	}
}
