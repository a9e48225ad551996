package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.AuthURL == "" || cfg.VideosURL == "" || cfg.UploadURL == "" || cfg.StreamsURL == "" {
		t.Fatalf("expected endpoint defaults, got %+v", cfg)
	}
	if cfg.HTTPTimeout <= 0 || cfg.MaxUploadBytes <= 0 || cfg.VideoCacheSize <= 0 {
		t.Fatalf("expected positive policy defaults, got %+v", cfg)
	}
	if cfg.SessionPath == "" {
		t.Fatal("expected a session path default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("COTOVIDEO_VIDEOS_URL", "http://localhost:9000/videos")
	t.Setenv("COTOVIDEO_HTTP_TIMEOUT", "5s")
	t.Setenv("COTOVIDEO_MAX_UPLOAD_BYTES", "1024")
	t.Setenv("COTOVIDEO_VIDEO_CACHE_SIZE", "16")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.VideosURL != "http://localhost:9000/videos" {
		t.Fatalf("unexpected videos url %q", cfg.VideosURL)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.HTTPTimeout)
	}
	if cfg.MaxUploadBytes != 1024 {
		t.Fatalf("unexpected upload limit %d", cfg.MaxUploadBytes)
	}
	if cfg.VideoCacheSize != 16 {
		t.Fatalf("unexpected cache size %d", cfg.VideoCacheSize)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("COTOVIDEO_HTTP_TIMEOUT", "soon")
	t.Setenv("COTOVIDEO_MAX_UPLOAD_BYTES", "lots")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Fatalf("malformed duration should fall back, got %v", cfg.HTTPTimeout)
	}
	if cfg.MaxUploadBytes != 64<<20 {
		t.Fatalf("malformed int should fall back, got %d", cfg.MaxUploadBytes)
	}
}
