package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config captures the runtime configuration for the CotoVideo client core.
type Config struct {
	AuthURL    string
	VideosURL  string
	UploadURL  string
	StreamsURL string

	HTTPTimeout    time.Duration
	MaxUploadBytes int64
	VideoCacheSize int
	ViewThrottle   time.Duration
	SessionPath    string
	LogLevel       string
}

// Load reads configuration from environment variables, applying sensible defaults
// for the hosted deployment while allowing overrides through environment variables.
func Load() (Config, error) {
	cfg := Config{
		AuthURL:        getString("COTOVIDEO_AUTH_URL", "https://api.cotovideo.ru/auth"),
		VideosURL:      getString("COTOVIDEO_VIDEOS_URL", "https://api.cotovideo.ru/videos"),
		UploadURL:      getString("COTOVIDEO_UPLOAD_URL", "https://api.cotovideo.ru/upload"),
		StreamsURL:     getString("COTOVIDEO_STREAMS_URL", "https://api.cotovideo.ru/streams"),
		HTTPTimeout:    getDuration("COTOVIDEO_HTTP_TIMEOUT", 30*time.Second),
		MaxUploadBytes: getInt64("COTOVIDEO_MAX_UPLOAD_BYTES", 64<<20),
		VideoCacheSize: getInt("COTOVIDEO_VIDEO_CACHE_SIZE", 128),
		ViewThrottle:   getDuration("COTOVIDEO_VIEW_THROTTLE", 30*time.Second),
		SessionPath:    getString("COTOVIDEO_SESSION_PATH", defaultSessionPath()),
		LogLevel:       getString("COTOVIDEO_LOG_LEVEL", "info"),
	}

	return cfg, nil
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "cotovideo", "session.json")
	}
	return filepath.Join(dir, "cotovideo", "session.json")
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
