// Package config loads apodesk's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/apodesk/config.toml
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing or blank, use defaults
//
// Before reading the file, .env files in the working directory and next to
// the config file are loaded with godotenv. Variables already present in the
// environment win. APOD_API_KEY, then NASA_API_KEY, override api_key.
//
// # Default Values
//
//   - api_url: https://api.nasa.gov/planetary/apod
//   - api_key: empty (the client falls back to DEMO_KEY)
//   - cache_path: ~/.local/share/apodesk/apod.bin
//   - stage_dir: ~/.local/share/apodesk/wallpaper
//   - log_dir: ~/.local/share/apodesk/logs
//   - log_level: info
//   - request_timeout: 30s
//   - refresh_at: 09:00 (daemon, local time)
//
// # TOML Format
//
//	api_key = "..."
//	hd = true
//	refresh_at = "07:30"
//	auto_apply = true
//	caption = false
//	wallpaper_command = "swww img {path}"
//	metrics_addr = "127.0.0.1:9464"
//
// Tilde expansion is performed for cache_path, stage_dir and log_dir.
// A malformed duration or clock value is a parse error, like invalid TOML.
package config
