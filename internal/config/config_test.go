package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, name := range apiKeyEnv {
		t.Setenv(name, "")
	}
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearKeyEnv(t)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	wantCache, err := expandPath(defaultCachePath)
	if err != nil {
		t.Fatalf("expandPath(defaultCachePath) returned error: %v", err)
	}
	if cfg.CachePath != wantCache {
		t.Fatalf("CachePath = %q, want %q", cfg.CachePath, wantCache)
	}
	if !strings.HasPrefix(cfg.StageDir, home) || !strings.HasPrefix(cfg.LogDir, home) {
		t.Fatalf("StageDir = %q, LogDir = %q, want both under HOME %q", cfg.StageDir, cfg.LogDir, home)
	}
	if cfg.RequestTimeout != defaultRequestTimeout || cfg.RefreshAt != defaultRefreshAt || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.APIKey != "" || cfg.AutoApply || cfg.Caption || cfg.HD {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearKeyEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_url = "  http://localhost:8080/apod  "
api_key = " abc123 "
hd = true
cache_path = "  ~/pics/apod.bin  "
stage_dir = "~/pics/stage"
log_level = "DEBUG"
request_timeout = "45s"
refresh_at = "07:15"
auto_apply = true
caption = true
wallpaper_command = "  swww img {path}  "
metrics_addr = "127.0.0.1:9464"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "http://localhost:8080/apod" || cfg.APIKey != "abc123" {
		t.Fatalf("APIURL = %q, APIKey = %q", cfg.APIURL, cfg.APIKey)
	}
	if cfg.CachePath != filepath.Join(home, "pics", "apod.bin") {
		t.Fatalf("CachePath = %q", cfg.CachePath)
	}
	if cfg.StageDir != filepath.Join(home, "pics", "stage") {
		t.Fatalf("StageDir = %q", cfg.StageDir)
	}
	if cfg.LogLevel != "debug" || cfg.RequestTimeout != 45*time.Second || cfg.RefreshAt != "07:15" {
		t.Fatalf("LogLevel = %q, RequestTimeout = %v, RefreshAt = %q", cfg.LogLevel, cfg.RequestTimeout, cfg.RefreshAt)
	}
	if !cfg.HD || !cfg.AutoApply || !cfg.Caption {
		t.Fatalf("booleans not parsed: %+v", cfg)
	}
	if cfg.WallpaperCommand != "swww img {path}" || cfg.MetricsAddr != "127.0.0.1:9464" {
		t.Fatalf("WallpaperCommand = %q, MetricsAddr = %q", cfg.WallpaperCommand, cfg.MetricsAddr)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearKeyEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_url = "   "
cache_path = ""
log_level = " "
refresh_at = ""
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	def := Default()
	if cfg.APIURL != def.APIURL || cfg.CachePath != def.CachePath || cfg.LogLevel != def.LogLevel || cfg.RefreshAt != def.RefreshAt {
		t.Fatalf("cfg = %+v, want defaults %+v", cfg, def)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`api_url = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestLoad_InvalidValuesFail(t *testing.T) {
	for name, body := range map[string]string{
		"timeout":    `request_timeout = "soon"`,
		"negative":   `request_timeout = "-5s"`,
		"refresh_at": `refresh_at = "25:00"`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
				t.Fatalf("Load error = %v, want parse config error", err)
			}
		})
	}
}

func TestLoad_RejectsStageDirHoldingCache(t *testing.T) {
	root := t.TempDir()
	data := filepath.Join(root, "data")
	cases := map[string]string{
		"same dir":   data,
		"parent dir": root,
	}
	for name, stage := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			body := "cache_path = \"" + filepath.Join(data, "apod.bin") + "\"\nstage_dir = \"" + stage + "\"\n"
			if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), "stage_dir") {
				t.Fatalf("Load error = %v, want stage_dir error", err)
			}
		})
	}
}

func TestLoad_AllowsSiblingStageDir(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "cache_path = \"" + filepath.Join(root, "apod.bin") + "\"\nstage_dir = \"" + filepath.Join(root, "wallpaper") + "\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StageDir != filepath.Join(root, "wallpaper") {
		t.Fatalf("StageDir = %q", cfg.StageDir)
	}
}

func TestLoad_EnvironmentOverridesAPIKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearKeyEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`api_key = "from-file"`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("NASA_API_KEY", "nasa")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIKey != "nasa" {
		t.Fatalf("APIKey = %q, want nasa", cfg.APIKey)
	}

	t.Setenv("APOD_API_KEY", "apod")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIKey != "apod" {
		t.Fatalf("APIKey = %q, want apod (APOD_API_KEY wins)", cfg.APIKey)
	}
}

func TestLoad_DotEnvNextToConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearKeyEnv(t)
	// Unset so godotenv may populate it; t.Setenv restores the original on cleanup.
	if err := os.Unsetenv("APOD_API_KEY"); err != nil {
		t.Fatalf("Unsetenv: %v", err)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("APOD_API_KEY=dotenv-key\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIKey != "dotenv-key" {
		t.Fatalf("APIKey = %q, want dotenv-key", cfg.APIKey)
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock(" 07:05 ")
	if err != nil || h != 7 || m != 5 {
		t.Fatalf("ParseClock = %d, %d, %v", h, m, err)
	}
	for _, bad := range []string{"7", "24:00", "12:60", "noon"} {
		if _, _, err := ParseClock(bad); err == nil {
			t.Errorf("ParseClock(%q) returned nil error", bad)
		}
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

func TestLogPath_DefaultsWhenLogDirEmpty(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	var cfg Config
	got := cfg.LogPath()
	if !strings.HasPrefix(got, home) {
		t.Fatalf("LogPath = %q, want it under HOME %q", got, home)
	}
	if !strings.HasSuffix(got, filepath.FromSlash("/apodesk.log")) {
		t.Fatalf("LogPath = %q, want it to end with /apodesk.log", got)
	}
}
