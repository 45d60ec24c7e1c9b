package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Guard modes for session lifecycle operations.
const (
	GuardQueue  = "queue"  // wait for the in-flight operation
	GuardReject = "reject" // fail fast with BUSY
)

// Snapshot backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Environment overrides, applied after every config file.
const (
	EnvBaseURL  = "LCSYNC_BASE_URL"
	EnvUsername = "LCSYNC_USERNAME"
)

// Config holds application configuration.
type Config struct {
	// BaseURL is the remote service root; endpoints are resolved against it.
	BaseURL string `json:"base_url"`

	// Username is the active user when no username file is configured.
	// Empty means "no user", which is a valid state.
	Username string `json:"username,omitempty"`

	// UsernameFile is a file the host page bridge writes the active username to.
	// It takes precedence over Username when set.
	UsernameFile string `json:"username_file,omitempty"`

	// MaxChallengeAttempts bounds how many challenges one call will answer.
	// Negative means unbounded (retry as long as the server keeps issuing challenges).
	MaxChallengeAttempts int `json:"max_challenge_attempts"`

	// ChallengeBudgetSeconds bounds the wall-clock time one call may spend
	// answering challenges. Negative means unbounded.
	ChallengeBudgetSeconds int `json:"challenge_budget_seconds"`

	// RequestTimeoutSeconds is the per-request HTTP timeout. Must be positive;
	// zero in a config file keeps the default.
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`

	// GuardMode is "queue" or "reject".
	GuardMode string `json:"guard_mode"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`

	// SnapshotBackend is "sqlite", "redis" or "memory".
	SnapshotBackend string `json:"snapshot_backend"`

	// RedisAddr, RedisPassword, RedisDB and RedisKeyPrefix configure the redis backend.
	RedisAddr      string `json:"redis_addr,omitempty"`
	RedisPassword  string `json:"redis_password,omitempty"`
	RedisDB        int    `json:"redis_db,omitempty"`
	RedisKeyPrefix string `json:"redis_key_prefix,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:                "http://localhost:8080/",
		MaxChallengeAttempts:   64,
		ChallengeBudgetSeconds: 60,
		RequestTimeoutSeconds:  15,
		GuardMode:              GuardQueue,
		LogLevel:               "info",
		SnapshotBackend:        BackendSQLite,
	}
}

// ChallengeAttempts returns the attempt bound, 0 meaning unbounded.
func (c *Config) ChallengeAttempts() int {
	if c.MaxChallengeAttempts < 0 {
		return 0
	}
	return c.MaxChallengeAttempts
}

// ChallengeBudget returns the wall-clock bound, 0 meaning unbounded.
func (c *Config) ChallengeBudget() time.Duration {
	if c.ChallengeBudgetSeconds < 0 {
		return 0
	}
	return time.Duration(c.ChallengeBudgetSeconds) * time.Second
}

// RequestTimeout returns RequestTimeoutSeconds as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// SlogLevel maps LogLevel onto a slog level; unknown values are info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Validate checks enumerated and numeric fields.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base_url must not be empty")
	}
	if c.GuardMode != GuardQueue && c.GuardMode != GuardReject {
		return fmt.Errorf("guard_mode must be one of: queue, reject")
	}
	switch c.SnapshotBackend {
	case BackendSQLite, BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required for the redis snapshot backend")
		}
	default:
		return fmt.Errorf("snapshot_backend must be one of: sqlite, redis, memory")
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("request_timeout_seconds must be positive")
	}
	return nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.lcsync.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.lcsync) and repo (.lcsync) directories,
// then applies environment overrides.
// Repo config is found by walking upward from startDir to find the nearest .lcsync/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	ApplyEnv(cfg)
	return cfg, nil
}

// ApplyEnv overrides BaseURL and Username from the environment when set.
// An env username also clears UsernameFile so it is the one consulted.
func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvUsername)); v != "" {
		cfg.Username = v
		cfg.UsernameFile = ""
	}
}

// FindRepoConfig walks upward from startDir to find the nearest .lcsync/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".lcsync", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	return &Config{
		BaseURL:                firstString(overlay.BaseURL, base.BaseURL),
		Username:               firstString(overlay.Username, base.Username),
		UsernameFile:           firstString(overlay.UsernameFile, base.UsernameFile),
		MaxChallengeAttempts:   firstInt(overlay.MaxChallengeAttempts, base.MaxChallengeAttempts),
		ChallengeBudgetSeconds: firstInt(overlay.ChallengeBudgetSeconds, base.ChallengeBudgetSeconds),
		RequestTimeoutSeconds:  firstInt(overlay.RequestTimeoutSeconds, base.RequestTimeoutSeconds),
		GuardMode:              firstString(overlay.GuardMode, base.GuardMode),
		LogLevel:               firstString(overlay.LogLevel, base.LogLevel),
		SnapshotBackend:        firstString(overlay.SnapshotBackend, base.SnapshotBackend),
		RedisAddr:              firstString(overlay.RedisAddr, base.RedisAddr),
		RedisPassword:          firstString(overlay.RedisPassword, base.RedisPassword),
		RedisDB:                firstInt(overlay.RedisDB, base.RedisDB),
		RedisKeyPrefix:         firstString(overlay.RedisKeyPrefix, base.RedisKeyPrefix),
		DBMaxOpenConns:         firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:         firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		DisabledTools:          mergeStringSlice(base.DisabledTools, overlay.DisabledTools),
	}
}

// firstString returns overlay when non-blank, else base.
func firstString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// firstInt returns overlay when non-zero, else base.
func firstInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
