package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Rankings contains configuration for the division ranking source.
type Rankings struct {
	BaseURL        string `toml:"base_url"`
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Members contains configuration for the member history source.
type Members struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	PageSize       int    `toml:"page_size"`
}

// Resolver contains tolerances and retry behavior for identity resolution.
type Resolver struct {
	DateWindowDays               int     `toml:"date_window_days"`
	MinWindowDays                int     `toml:"min_window_days"`
	BodyweightToleranceKg        float64 `toml:"bodyweight_tolerance_kg"`
	TotalToleranceKg             float64 `toml:"total_tolerance_kg"`
	ExtremeBodyweightDeltaKg     float64 `toml:"extreme_bodyweight_delta_kg"`
	ExtremeBodyweightDeltaHardKg float64 `toml:"extreme_bodyweight_delta_hard_kg"`
	RetryAttempts                int     `toml:"retry_attempts"`
	RetryBackoffSeconds          int     `toml:"retry_backoff_seconds"`
	TierTimeoutSeconds           int     `toml:"tier_timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Batch          bool   `toml:"batch"`
	Conflicts      bool   `toml:"conflicts"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for liftdb.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Rankings      Rankings      `toml:"rankings"`
	Members       Members       `toml:"members"`
	Resolver      Resolver      `toml:"resolver"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/liftdb/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file was actually found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("liftdb.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	c.Rankings.BaseURL = strings.TrimSpace(c.Rankings.BaseURL)
	if c.Rankings.BaseURL == "" {
		c.Rankings.BaseURL = defaultRankingsBaseURL
	}
	c.Rankings.UserAgent = strings.TrimSpace(c.Rankings.UserAgent)
	if c.Rankings.UserAgent == "" {
		c.Rankings.UserAgent = defaultUserAgent
	}
	if c.Rankings.TimeoutSeconds <= 0 {
		c.Rankings.TimeoutSeconds = defaultSourceTimeoutSeconds
	}

	c.Members.BaseURL = strings.TrimSpace(c.Members.BaseURL)
	if c.Members.BaseURL == "" {
		c.Members.BaseURL = defaultMembersBaseURL
	}
	if c.Members.TimeoutSeconds <= 0 {
		c.Members.TimeoutSeconds = defaultSourceTimeoutSeconds
	}
	if c.Members.PageSize <= 0 {
		c.Members.PageSize = defaultMembersPageSize
	}

	if c.Resolver.DateWindowDays <= 0 {
		c.Resolver.DateWindowDays = defaultDateWindowDays
	}
	if c.Resolver.MinWindowDays <= 0 {
		c.Resolver.MinWindowDays = defaultMinWindowDays
	}
	if c.Resolver.BodyweightToleranceKg <= 0 {
		c.Resolver.BodyweightToleranceKg = defaultBodyweightToleranceKg
	}
	if c.Resolver.TotalToleranceKg <= 0 {
		c.Resolver.TotalToleranceKg = defaultTotalToleranceKg
	}
	if c.Resolver.ExtremeBodyweightDeltaKg <= 0 {
		c.Resolver.ExtremeBodyweightDeltaKg = defaultExtremeBodyweightDeltaKg
	}
	if c.Resolver.ExtremeBodyweightDeltaHardKg <= 0 {
		c.Resolver.ExtremeBodyweightDeltaHardKg = defaultExtremeBodyweightDeltaHardKg
	}
	if c.Resolver.RetryAttempts <= 0 {
		c.Resolver.RetryAttempts = defaultRetryAttempts
	}
	if c.Resolver.RetryBackoffSeconds <= 0 {
		c.Resolver.RetryBackoffSeconds = defaultRetryBackoffSeconds
	}
	if c.Resolver.TierTimeoutSeconds <= 0 {
		c.Resolver.TierTimeoutSeconds = defaultTierTimeoutSeconds
	}

	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeoutSeconds
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

// EnsureDirectories creates the directories liftdb needs to operate.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the SQLite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "liftdb.db")
}

// LockPath returns the location of the import process lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "import.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
