package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode != "status" {
		t.Errorf("Expected default mode to be 'status', got '%s'", cfg.Mode)
	}

	if cfg.Workers != 4 {
		t.Errorf("Expected default workers to be 4, got %d", cfg.Workers)
	}

	if cfg.Timeout != 2*time.Minute {
		t.Errorf("Expected default timeout to be 2m, got %s", cfg.Timeout)
	}

	if cfg.Hash != "sha256" {
		t.Errorf("Expected default hash to be 'sha256', got '%s'", cfg.Hash)
	}

	if cfg.ServerName != "pdf-entry-mapper" {
		t.Errorf("Expected default server name to be 'pdf-entry-mapper', got '%s'", cfg.ServerName)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level to be 'info', got '%s'", cfg.LogLevel)
	}

	if cfg.MaxFileSize != 100*1024*1024 {
		t.Errorf("Expected default max file size to be 100MB, got %d", cfg.MaxFileSize)
	}

	// Test that the source directory is the current working directory by default
	currentDir, _ := os.Getwd()
	if cfg.SourceDir != currentDir {
		t.Errorf("Expected default source directory to be '%s', got '%s'", currentDir, cfg.SourceDir)
	}

	if cfg.ManifestDir != "" {
		t.Errorf("Expected manifest directory to be resolved later, got '%s'", cfg.ManifestDir)
	}
}

func TestResolveDirs(t *testing.T) {
	cfg := &Config{SourceDir: "/data/CAR Contract Packages"}
	cfg.resolveDirs()

	if cfg.ManifestDir != "/data/doc_manifests" {
		t.Errorf("ManifestDir = %s, want /data/doc_manifests", cfg.ManifestDir)
	}
	if cfg.OverlayDir != "/data/annotated" {
		t.Errorf("OverlayDir = %s, want /data/annotated", cfg.OverlayDir)
	}
	if cfg.BrokerageFile != "/data/brokerages/douglas_elliman.yaml" {
		t.Errorf("BrokerageFile = %s, want /data/brokerages/douglas_elliman.yaml", cfg.BrokerageFile)
	}

	explicit := &Config{SourceDir: "/data/src", ManifestDir: "/elsewhere/m", OverlayDir: "/elsewhere/o", BrokerageFile: "/b.yaml"}
	explicit.resolveDirs()
	if explicit.ManifestDir != "/elsewhere/m" || explicit.OverlayDir != "/elsewhere/o" {
		t.Errorf("explicit directories were overwritten: %s, %s", explicit.ManifestDir, explicit.OverlayDir)
	}
	if explicit.BrokerageFile != "/b.yaml" {
		t.Errorf("explicit brokerage file was overwritten: %s", explicit.BrokerageFile)
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	base := t.TempDir()
	src := filepath.Join(base, "src")
	if err := os.Mkdir(src, 0o755); err != nil {
		t.Fatalf("failed to create source dir: %v", err)
	}
	cfg := DefaultConfig()
	cfg.SourceDir = src
	cfg.ManifestDir = filepath.Join(base, "manifests")
	cfg.OverlayDir = filepath.Join(base, "annotated")
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid default", mutate: func(c *Config) {}},
		{name: "valid analyze with blake3", mutate: func(c *Config) { c.Mode = ModeAnalyze; c.Hash = "blake3" }},
		{name: "valid fields query", mutate: func(c *Config) {
			c.Mode = ModeFields
			c.Folder = "Buyer"
			c.File = "RPA.pdf"
			c.Page = 3
		}},
		{name: "invalid mode", mutate: func(c *Config) { c.Mode = "server" }, wantErr: "invalid mode"},
		{name: "empty source", mutate: func(c *Config) { c.SourceDir = "" }, wantErr: "source directory cannot be empty"},
		{name: "missing source", mutate: func(c *Config) { c.SourceDir = filepath.Join(c.SourceDir, "nope") },
			wantErr: "cannot access source directory"},
		{name: "empty manifests", mutate: func(c *Config) { c.ManifestDir = "" }, wantErr: "manifest directory cannot be empty"},
		{name: "fields without file", mutate: func(c *Config) { c.Mode = ModeFields; c.Folder = "Buyer" },
			wantErr: "requires --folder and --file"},
		{name: "negative page", mutate: func(c *Config) { c.Page = -1 }, wantErr: "page must not be negative"},
		{name: "zero workers", mutate: func(c *Config) { c.Workers = 0 }, wantErr: "workers must be positive"},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: "timeout must be positive"},
		{name: "zero debounce", mutate: func(c *Config) { c.Debounce = 0 }, wantErr: "debounce must be positive"},
		{name: "zero cache", mutate: func(c *Config) { c.CacheSize = 0 }, wantErr: "cache size must be positive"},
		{name: "bad hash", mutate: func(c *Config) { c.Hash = "md5" }, wantErr: "invalid hash"},
		{name: "zero max file size", mutate: func(c *Config) { c.MaxFileSize = 0 }, wantErr: "maximum file size must be positive"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidate_CreatesManifestDir(t *testing.T) {
	cfg := validConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	info, err := os.Stat(cfg.ManifestDir)
	if err != nil {
		t.Fatalf("manifest directory was not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("manifest path is not a directory")
	}
}

func TestConfigValidate_SourceIsFile(t *testing.T) {
	cfg := validConfig(t)
	file := filepath.Join(cfg.SourceDir, "a.pdf")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.SourceDir = file
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "is not a directory") {
		t.Errorf("Validate() error = %v, want 'is not a directory'", err)
	}
}

func TestConfigHelpers(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.IsDebug() {
		t.Error("default config should not be debug")
	}
	cfg.LogLevel = "debug"
	if !cfg.IsDebug() {
		t.Error("IsDebug() should be true for debug level")
	}

	if cfg.IsServeMode() {
		t.Error("default mode is not serve")
	}
	cfg.Mode = ModeServe
	if !cfg.IsServeMode() {
		t.Error("IsServeMode() should be true in serve mode")
	}

	s := cfg.String()
	for _, want := range []string{"Mode: serve", "Workers: 4", "Hash: sha256", "LogLevel: debug"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %s, missing %q", s, want)
		}
	}
}
