package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/pdf-entry-mapper/internal/versions"
)

const (
	// Mode constants
	ModeAnalyze = "analyze"
	ModeUpdate  = "update"
	ModeStatus  = "status"
	ModeHistory = "history"
	ModeFields  = "fields"
	ModeWatch   = "watch"
	ModeServe   = "serve"
	ModeOverlay = "overlay"

	// Default values
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultWorkers     = 4
	DefaultTimeout     = 2 * time.Minute
	DefaultHash        = versions.HashSHA256
	DefaultCacheSize   = 64
	DefaultDebounce    = 2 * time.Second

	DefaultManifestDirName  = "doc_manifests"
	DefaultOverlayDirName   = "annotated"
	DefaultBrokerageDirName = "brokerages"
	DefaultBrokerageFile    = "douglas_elliman.yaml"

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "ENTRY_MAPPER"
)

var validModes = map[string]bool{
	ModeAnalyze: true,
	ModeUpdate:  true,
	ModeStatus:  true,
	ModeHistory: true,
	ModeFields:  true,
	ModeWatch:   true,
	ModeServe:   true,
	ModeOverlay: true,
}

// Config holds all configuration for the entry mapper
type Config struct {
	Mode string

	// Directories
	SourceDir   string // each immediate subfolder is one contract package
	ManifestDir string
	OverlayDir  string

	// BrokerageFile lists the documents the brokerage requires
	BrokerageFile string

	// Analysis
	Workers     int
	Timeout     time.Duration // per document
	Hash        string
	CacheSize   int
	Debounce    time.Duration
	MaxFileSize int64 // Maximum PDF file size in bytes

	// Field query (fields mode)
	Folder   string
	File     string
	Category string
	Page     int

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:        ModeStatus,
		SourceDir:   currentDir,
		Workers:     DefaultWorkers,
		Timeout:     DefaultTimeout,
		Hash:        DefaultHash,
		CacheSize:   DefaultCacheSize,
		Debounce:    DefaultDebounce,
		MaxFileSize: DefaultMaxFileSize,
		Version:     "1.0.0",
		ServerName:  "pdf-entry-mapper",
		LogLevel:    DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	for _, p := range []*string{&cfg.SourceDir, &cfg.ManifestDir, &cfg.OverlayDir, &cfg.BrokerageFile} {
		if *p == "" {
			continue
		}
		if expandedPath, err := filepath.Abs(*p); err == nil {
			*p = expandedPath
		}
	}
	cfg.resolveDirs()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// resolveDirs places the manifest and overlay directories and the
// brokerage file next to the source tree unless they were set explicitly
func (c *Config) resolveDirs() {
	parent := filepath.Dir(c.SourceDir)
	if c.ManifestDir == "" {
		c.ManifestDir = filepath.Join(parent, DefaultManifestDirName)
	}
	if c.OverlayDir == "" {
		c.OverlayDir = filepath.Join(parent, DefaultOverlayDirName)
	}
	if c.BrokerageFile == "" {
		c.BrokerageFile = filepath.Join(parent, DefaultBrokerageDirName, DefaultBrokerageFile)
	}
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("dir", cfg.SourceDir)
	viper.SetDefault("manifests", cfg.ManifestDir)
	viper.SetDefault("overlay-dir", cfg.OverlayDir)
	viper.SetDefault("workers", cfg.Workers)
	viper.SetDefault("timeout", cfg.Timeout)
	viper.SetDefault("hash", cfg.Hash)
	viper.SetDefault("cache-size", cfg.CacheSize)
	viper.SetDefault("debounce", cfg.Debounce)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: analyze, update, status, history, fields, watch, serve or overlay")
	pflag.String("dir", cfg.SourceDir, "Source directory; each subfolder is a contract package")
	pflag.String("manifests", cfg.ManifestDir, "Directory for manifests, the version database and the run summary (default: doc_manifests next to --dir)")
	pflag.String("overlay-dir", cfg.OverlayDir, "Output directory for annotated PDFs (default: annotated next to --dir)")
	pflag.String("brokerage", cfg.BrokerageFile, "Brokerage requirements YAML to cross-reference (default: brokerages/douglas_elliman.yaml next to --dir)")
	pflag.Int("workers", cfg.Workers, "Number of documents analyzed in parallel")
	pflag.Duration("timeout", cfg.Timeout, "Analysis time limit per document")
	pflag.String("hash", cfg.Hash, "Content hash for change detection (sha256, blake3)")
	pflag.Int("cache-size", cfg.CacheSize, "Number of manifests kept in memory for queries")
	pflag.Duration("debounce", cfg.Debounce, "Quiet period before watch mode re-runs the update")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.String("folder", "", "Package folder (fields mode)")
	pflag.String("file", "", "PDF file name (fields mode)")
	pflag.String("category", "", "Category filter (fields mode)")
	pflag.Int("page", 0, "Page filter, 0 for all pages (fields mode)")
}

var boundFlags = []string{
	"mode", "dir", "manifests", "overlay-dir", "brokerage", "workers", "timeout", "hash", "cache-size",
	"debounce", "loglevel", "maxfilesize", "folder", "file", "category", "page",
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range boundFlags {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nPDF Entry Mapper - finds the fillable entry spaces of contract PDFs\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --mode=analyze --dir=/contracts          # analyze every package\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=update --dir=/contracts           # re-analyze changed PDFs\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=fields --folder=Buyer --file=RPA.pdf --category=signature\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=serve                             # MCP over stdio\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  ENTRY_MAPPER_MODE        Run mode\n")
		fmt.Fprintf(os.Stderr, "  ENTRY_MAPPER_DIR         Source directory\n")
		fmt.Fprintf(os.Stderr, "  ENTRY_MAPPER_MANIFESTS   Manifest directory\n")
		fmt.Fprintf(os.Stderr, "  ENTRY_MAPPER_WORKERS     Parallel documents\n")
		fmt.Fprintf(os.Stderr, "  ENTRY_MAPPER_TIMEOUT     Per-document time limit\n")
		fmt.Fprintf(os.Stderr, "  ENTRY_MAPPER_LOGLEVEL    Log level\n")
		fmt.Fprintf(os.Stderr, "  ENTRY_MAPPER_MAXFILESIZE Maximum file size\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.SourceDir = viper.GetString("dir")
	cfg.ManifestDir = viper.GetString("manifests")
	cfg.OverlayDir = viper.GetString("overlay-dir")
	cfg.BrokerageFile = viper.GetString("brokerage")
	cfg.Workers = viper.GetInt("workers")
	cfg.Timeout = viper.GetDuration("timeout")
	cfg.Hash = viper.GetString("hash")
	cfg.CacheSize = viper.GetInt("cache-size")
	cfg.Debounce = viper.GetDuration("debounce")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.Folder = viper.GetString("folder")
	cfg.File = viper.GetString("file")
	cfg.Category = viper.GetString("category")
	cfg.Page = viper.GetInt("page")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if !validModes[c.Mode] {
		return fmt.Errorf("invalid mode: %s (must be one of: analyze, update, status, history, fields, watch, serve, overlay)", c.Mode)
	}

	// The source tree must already exist
	if c.SourceDir == "" {
		return errors.New("source directory cannot be empty")
	}
	if info, err := os.Stat(c.SourceDir); err != nil {
		return fmt.Errorf("cannot access source directory %s: %w", c.SourceDir, err)
	} else if !info.IsDir() {
		return fmt.Errorf("source path %s is not a directory", c.SourceDir)
	}

	// Check if manifest directory exists, create if it doesn't
	if c.ManifestDir == "" {
		return errors.New("manifest directory cannot be empty")
	}
	if _, err := os.Stat(c.ManifestDir); os.IsNotExist(err) {
		if err := os.MkdirAll(c.ManifestDir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create manifest directory %s: %w", c.ManifestDir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access manifest directory %s: %w", c.ManifestDir, err)
	}

	if c.Mode == ModeOverlay && c.OverlayDir == "" {
		return errors.New("overlay directory cannot be empty")
	}
	if c.Mode == ModeFields && (c.Folder == "" || c.File == "") {
		return errors.New("fields mode requires --folder and --file")
	}
	if c.Page < 0 {
		return errors.New("page must not be negative")
	}

	if c.Workers <= 0 {
		return errors.New("workers must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.Debounce <= 0 {
		return errors.New("debounce must be positive")
	}
	if c.CacheSize <= 0 {
		return errors.New("cache size must be positive")
	}
	if !versions.ValidHash(c.Hash) {
		return fmt.Errorf("invalid hash: %s (must be one of: sha256, blake3)", c.Hash)
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// IsServeMode returns true when running as an MCP stdio server
func (c *Config) IsServeMode() bool {
	return c.Mode == ModeServe
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, SourceDir: %s, ManifestDir: %s, Workers: %d, Timeout: %s, Hash: %s, "+
		"LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.SourceDir, c.ManifestDir, c.Workers, c.Timeout, c.Hash, c.LogLevel, c.MaxFileSize)
}
