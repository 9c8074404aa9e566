package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server runtime settings.
type Config struct {
	Port                int
	LogLevel            string
	LogFormat           string
	TLSCertFile         string
	TLSKeyFile          string
	MaxLocationAge      time.Duration
	RoomMaxIdle         time.Duration
	RoomCleanupInterval time.Duration
	DisconnectGrace     time.Duration
	DispatchInterval    time.Duration
	SweepInterval       time.Duration
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:                9001,
		LogLevel:            "info",
		LogFormat:           "json",
		MaxLocationAge:      20 * time.Second,
		RoomMaxIdle:         10 * time.Minute,
		RoomCleanupInterval: time.Minute,
		DisconnectGrace:     time.Minute,
		DispatchInterval:    20 * time.Millisecond,
		SweepInterval:       time.Second,
	}
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, applying defaults for unset keys.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()

	var err error
	if cfg.Port, err = intEnv(getenv, "PORT", cfg.Port); err != nil {
		return Config{}, err
	}
	cfg.LogLevel = stringEnv(getenv, "LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = stringEnv(getenv, "LOG_FORMAT", cfg.LogFormat)
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return Config{}, fmt.Errorf("LOG_FORMAT must be json or console, got %q", cfg.LogFormat)
	}
	cfg.TLSCertFile = getenv("TLS_CERT_FILE")
	cfg.TLSKeyFile = getenv("TLS_KEY_FILE")
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return Config{}, fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"MAX_LOCATION_AGE_MS", &cfg.MaxLocationAge},
		{"ROOM_MAX_IDLE_MS", &cfg.RoomMaxIdle},
		{"ROOM_CLEANUP_INTERVAL_MS", &cfg.RoomCleanupInterval},
		{"DISCONNECT_GRACE_MS", &cfg.DisconnectGrace},
		{"DISPATCH_INTERVAL_MS", &cfg.DispatchInterval},
		{"SWEEP_INTERVAL_MS", &cfg.SweepInterval},
	}
	for _, d := range durations {
		if *d.dst, err = millisEnv(getenv, d.key, *d.dst); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func stringEnv(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

func millisEnv(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("%s must be a positive number of milliseconds, got %q", key, v)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
