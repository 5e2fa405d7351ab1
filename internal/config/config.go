package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds every apodesk setting after defaults and overrides are applied.
type Config struct {
	APIURL           string
	APIKey           string
	HD               bool
	CachePath        string
	StageDir         string
	LogDir           string
	LogLevel         string
	RequestTimeout   time.Duration
	RefreshAt        string
	AutoApply        bool
	Caption          bool
	WallpaperCommand string
	MetricsAddr      string
}

const (
	defaultConfigPath     = "~/.config/apodesk/config.toml"
	defaultAPIURL         = "https://api.nasa.gov/planetary/apod"
	defaultCachePath      = "~/.local/share/apodesk/apod.bin"
	defaultStageDir       = "~/.local/share/apodesk/wallpaper"
	defaultLogDir         = "~/.local/share/apodesk/logs"
	defaultLogLevel       = "info"
	defaultRequestTimeout = 30 * time.Second
	defaultRefreshAt      = "09:00"
	envFileName           = ".env"
)

// API key environment variables, highest priority first.
var apiKeyEnv = []string{"APOD_API_KEY", "NASA_API_KEY"}

type rawConfig struct {
	APIURL           string `toml:"api_url"`
	APIKey           string `toml:"api_key"`
	HD               bool   `toml:"hd"`
	CachePath        string `toml:"cache_path"`
	StageDir         string `toml:"stage_dir"`
	LogDir           string `toml:"log_dir"`
	LogLevel         string `toml:"log_level"`
	RequestTimeout   string `toml:"request_timeout"`
	RefreshAt        string `toml:"refresh_at"`
	AutoApply        bool   `toml:"auto_apply"`
	Caption          bool   `toml:"caption"`
	WallpaperCommand string `toml:"wallpaper_command"`
	MetricsAddr      string `toml:"metrics_addr"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIURL:         defaultAPIURL,
		CachePath:      mustExpand(defaultCachePath),
		StageDir:       mustExpand(defaultStageDir),
		LogDir:         mustExpand(defaultLogDir),
		LogLevel:       defaultLogLevel,
		RequestTimeout: defaultRequestTimeout,
		RefreshAt:      defaultRefreshAt,
	}
}

// Load reads the config file at path (the default location when empty),
// falling back to defaults when it is missing. Environment variables, also
// read from .env files in the working directory and next to the config file,
// override the API key.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}
	loadEnvFiles(envFileName, filepath.Join(filepath.Dir(resolved), envFileName))

	raw, err := readRaw(resolved)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	cfg.APIKey = strings.TrimSpace(raw.APIKey)
	cfg.HD = raw.HD
	cfg.CachePath = pathOrDefault(raw.CachePath, defaultCachePath)
	cfg.StageDir = pathOrDefault(raw.StageDir, defaultStageDir)
	cfg.LogDir = pathOrDefault(raw.LogDir, defaultLogDir)
	if err := checkStageDir(cfg.StageDir, cfg.CachePath); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.RequestTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("parse config: request_timeout %q is not a positive duration", v)
		}
		cfg.RequestTimeout = d
	}
	if v := strings.TrimSpace(raw.RefreshAt); v != "" {
		if _, _, err := ParseClock(v); err != nil {
			return Config{}, fmt.Errorf("parse config: refresh_at: %w", err)
		}
		cfg.RefreshAt = v
	}
	cfg.AutoApply = raw.AutoApply
	cfg.Caption = raw.Caption
	cfg.WallpaperCommand = strings.TrimSpace(raw.WallpaperCommand)
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)

	for _, name := range apiKeyEnv {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			cfg.APIKey = v
			break
		}
	}
	return cfg, nil
}

// checkStageDir rejects a staging directory that holds the cache slot, since
// every apply empties it.
func checkStageDir(stageDir, cachePath string) error {
	rel, err := filepath.Rel(filepath.Clean(stageDir), filepath.Dir(filepath.Clean(cachePath)))
	if err != nil {
		return nil
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	return fmt.Errorf("stage_dir %q must not contain cache_path %q", stageDir, cachePath)
}

// LogPath returns the TUI's JSON log file.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogDir) == "" {
		return mustExpand(defaultLogDir + "/apodesk.log")
	}
	return filepath.Join(c.LogDir, "apodesk.log")
}

// ParseClock splits an "HH:MM" time of day.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("%q is not HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return mustExpand(defaultConfigPath)
}

func readRaw(path string) (rawConfig, error) {
	var raw rawConfig
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return raw, nil
		}
		return raw, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return raw, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return raw, fmt.Errorf("parse config: %w", err)
	}
	return raw, nil
}

// loadEnvFiles applies any existing .env files without overriding variables
// already set in the environment.
func loadEnvFiles(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

func pathOrDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return mustExpand(v)
	}
	return mustExpand(fallback)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
