package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultStaticURL   = "http://web.mta.info/developers/data/mnr/google_transit.zip"
	defaultRealtimeURL = "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/mnr%2Fgtfs-mnr"
)

type Config struct {
	StaticURL   string
	RealtimeURL string // empty disables the live-delay overlay

	ListenAddr  string
	MetricsAddr string // empty disables the metrics server

	Location        *time.Location
	RefreshInterval time.Duration

	Storage string // "sqlite" or "memory"
	DataDir string
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{
		StaticURL:   getenvDefault("TF_STATIC_URL", defaultStaticURL),
		RealtimeURL: getenvDefault("TF_REALTIME_URL", defaultRealtimeURL),
		ListenAddr:  getenvDefault("TF_LISTEN_ADDR", ":8080"),
		MetricsAddr: os.Getenv("TF_METRICS_ADDR"),
		Storage:     getenvDefault("TF_STORAGE", "sqlite"),
		DataDir:     getenvDefault("TF_DATA_DIR", "."),
	}

	if cfg.Storage != "sqlite" && cfg.Storage != "memory" {
		return nil, fmt.Errorf("invalid TF_STORAGE: %q", cfg.Storage)
	}

	if v := os.Getenv("TF_REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid TF_REFRESH_INTERVAL: %q", v)
		}
		cfg.RefreshInterval = d
	} else {
		cfg.RefreshInterval = 7 * 24 * time.Hour
	}

	tzName := getenvDefault("TF_TZ", "America/New_York")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TF_TZ: %v", err)
	}
	cfg.Location = loc

	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
