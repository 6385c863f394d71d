package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SourceType identifies the data source backend
type SourceType string

const (
	SourceTypeHTTPJSON SourceType = "httpjson"
	SourceTypeFixture  SourceType = "fixture"
)

// Config holds all application configuration
type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	List    ListConfig    `mapstructure:"list"`
	Cache   CacheConfig   `mapstructure:"cache"`
	UI      UIConfig      `mapstructure:"ui"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SourceConfig selects and configures the data source
type SourceConfig struct {
	Type  SourceType `mapstructure:"type"`  // "httpjson" or "fixture"
	URL   string     `mapstructure:"url"`   // httpjson endpoint
	Token string     `mapstructure:"token"` // Optional bearer token
	Path  string     `mapstructure:"path"`  // fixture file (.json, .yaml, .toml)

	// Dotted path to the record array inside a JSON response, e.g. "result.items".
	// Empty means the body is the array or a {"data": [...]} envelope.
	DataPath    string        `mapstructure:"data_path"`
	OffsetParam string        `mapstructure:"offset_param"`
	LimitParam  string        `mapstructure:"limit_param"`
	Timeout     time.Duration `mapstructure:"timeout"`

	// fixture only
	Latency   time.Duration `mapstructure:"latency"`
	FailFirst int           `mapstructure:"fail_first"`
}

// ListConfig holds list engine tuning
type ListConfig struct {
	ChunkSize              int           `mapstructure:"chunk_size"`
	PreloadAmount          int           `mapstructure:"preload_amount"`
	BatchSize              int           `mapstructure:"batch_size"`
	FrameInterval          time.Duration `mapstructure:"frame_interval"`
	DisableObserver        bool          `mapstructure:"disable_observer"`
	VisibilityThreshold    float64       `mapstructure:"visibility_threshold"`
	Separators             bool          `mapstructure:"separators"` // Group headers between entries
	SeparatorsAdvanceItems bool          `mapstructure:"separators_advance_items"`
}

// CacheConfig holds page cache configuration
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Dir     string        `mapstructure:"dir"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// UIConfig holds UI configuration
type UIConfig struct {
	Theme            string `mapstructure:"theme"`
	ShowDescriptions bool   `mapstructure:"show_descriptions"`
	Tombstones       int    `mapstructure:"tombstones"` // Placeholder rows shown while loading
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Type:        SourceTypeHTTPJSON,
			OffsetParam: "offset",
			LimitParam:  "limit",
			Timeout:     30 * time.Second,
		},
		List: ListConfig{
			ChunkSize:     10,
			PreloadAmount: 0,
			BatchSize:     10,
			FrameInterval: 16 * time.Millisecond,
		},
		Cache: CacheConfig{
			Enabled: false,
			Dir:     defaultCachePath(),
			TTL:     10 * time.Minute,
		},
		UI: UIConfig{
			Theme:            "default",
			ShowDescriptions: true,
			Tombstones:       3,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

var envKeyReplacer = strings.NewReplacer(".", "_")

// envKeys are bound explicitly so Unmarshal sees them without a config file
var envKeys = []string{
	"source.type", "source.url", "source.token", "source.path", "source.data_path",
	"source.timeout", "source.latency", "source.fail_first",
	"list.chunk_size", "list.preload_amount", "list.batch_size", "list.frame_interval",
	"list.disable_observer", "list.separators",
	"cache.enabled", "cache.dir", "cache.ttl",
	"logging.file", "logging.level",
}

func bindEnv(v *viper.Viper) {
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "vscroll", "vscroll.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "vscroll", "vscroll.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "vscroll")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "vscroll")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "vscroll", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "vscroll", "cache")
	}
}

// LoadConfig loads configuration from file and environment. An empty path
// searches the default config directory and the working directory.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Environment variable overrides, e.g. VSCROLL_SOURCE_URL
	v.SetEnvPrefix("VSCROLL")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes cfg as YAML to path, or to the default location when
// path is empty. It returns the file written.
func SaveConfig(cfg *Config, path string) (string, error) {
	if path == "" {
		path = filepath.Join(defaultConfigPath(), "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()

	// Set fields individually to ensure correct key names (snake_case)
	v.Set("source.type", string(cfg.Source.Type))
	v.Set("source.url", cfg.Source.URL)
	v.Set("source.token", cfg.Source.Token)
	v.Set("source.path", cfg.Source.Path)
	v.Set("source.data_path", cfg.Source.DataPath)
	v.Set("source.offset_param", cfg.Source.OffsetParam)
	v.Set("source.limit_param", cfg.Source.LimitParam)
	v.Set("source.timeout", cfg.Source.Timeout.String())
	v.Set("source.latency", cfg.Source.Latency.String())
	v.Set("source.fail_first", cfg.Source.FailFirst)

	v.Set("list.chunk_size", cfg.List.ChunkSize)
	v.Set("list.preload_amount", cfg.List.PreloadAmount)
	v.Set("list.batch_size", cfg.List.BatchSize)
	v.Set("list.frame_interval", cfg.List.FrameInterval.String())
	v.Set("list.disable_observer", cfg.List.DisableObserver)
	v.Set("list.visibility_threshold", cfg.List.VisibilityThreshold)
	v.Set("list.separators", cfg.List.Separators)
	v.Set("list.separators_advance_items", cfg.List.SeparatorsAdvanceItems)

	v.Set("cache.enabled", cfg.Cache.Enabled)
	v.Set("cache.dir", cfg.Cache.Dir)
	v.Set("cache.ttl", cfg.Cache.TTL.String())

	v.Set("ui.theme", cfg.UI.Theme)
	v.Set("ui.show_descriptions", cfg.UI.ShowDescriptions)
	v.Set("ui.tombstones", cfg.UI.Tombstones)

	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}

// IsConfigured returns true if the selected source has what it needs
func (c *Config) IsConfigured() bool {
	switch c.Source.Type {
	case SourceTypeHTTPJSON:
		return c.Source.URL != ""
	case SourceTypeFixture:
		return c.Source.Path != ""
	default:
		return false
	}
}

// ClearCache removes all cached pages
func ClearCache(dir string) error {
	if dir == "" {
		dir = defaultCachePath()
	}
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
