package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"clippilot/internal/mediaclient"
)

// Config is the process configuration, read from environment variables with
// an optional YAML file for subtitle styling overrides.
type Config struct {
	Port string

	MediaGateway mediaclient.Config
	Subtitles    mediaclient.SubtitleCustomization

	// Bucket holding rendered exports, used to sign download URLs.
	ExportBucket string

	Workers     int
	QueueSize   int
	MaxAttempts int
	BaseBackoff time.Duration
}

// Load reads the configuration. Endpoint URLs may legitimately be empty: a
// missing URL only fails the pipeline step that needs that backend.
func Load() (*Config, error) {
	cfg := &Config{
		Port: envOr("PORT", "8080"),
		MediaGateway: mediaclient.Config{
			Transcription: mediaclient.Endpoint{
				URL:   os.Getenv("TRANSCRIPTION_API_URL"),
				Token: os.Getenv("TRANSCRIPTION_API_TOKEN"),
			},
			ClipIdentification: mediaclient.Endpoint{
				URL:   os.Getenv("CLIPS_API_URL"),
				Token: os.Getenv("CLIPS_API_TOKEN"),
			},
			ClipRendering: mediaclient.Endpoint{
				URL:   os.Getenv("PROCESS_CLIPS_API_URL"),
				Token: os.Getenv("PROCESS_CLIPS_API_TOKEN"),
			},
		},
		Subtitles:    mediaclient.DefaultSubtitleCustomization(),
		ExportBucket: envOr("EXPORT_BUCKET", "exported-clips"),
		Workers:      envIntOr("PIPELINE_WORKERS", 5),
		QueueSize:    envIntOr("PIPELINE_QUEUE_SIZE", 100),
		MaxAttempts:  envIntOr("PIPELINE_MAX_ATTEMPTS", 4),
		BaseBackoff:  time.Duration(envIntOr("PIPELINE_BASE_BACKOFF_SECONDS", 2)) * time.Second,
	}

	if stylePath := os.Getenv("SUBTITLE_STYLE_FILE"); stylePath != "" {
		raw, err := os.ReadFile(stylePath)
		if err != nil {
			return nil, fmt.Errorf("read subtitle style file %s: %w", stylePath, err)
		}
		if err := yaml.Unmarshal(raw, &cfg.Subtitles); err != nil {
			return nil, fmt.Errorf("parse subtitle style file %s: %w", stylePath, err)
		}
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
