// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits with an error.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Storage backend names.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all runtime configuration for the tracker service.
type Config struct {
	Port               string
	StorageBackend     string // "postgres" or "memory"
	DatabaseURL        string // required for the postgres backend
	RedisURL           string // optional; notifications disabled when empty
	SweepIntervalHours int    // how often the follow-up sweeper fires
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	backend := os.Getenv("STORAGE_BACKEND")
	if backend == "" {
		backend = BackendPostgres
	}
	if backend != BackendPostgres && backend != BackendMemory {
		return nil, fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, backend)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if backend == BackendPostgres && dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=%s", BackendPostgres)
	}

	interval := 1
	if s := os.Getenv("FOLLOWUP_SWEEP_INTERVAL_HOURS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("FOLLOWUP_SWEEP_INTERVAL_HOURS must be a positive integer, got %q", s)
		}
		interval = v
	}

	port := os.Getenv("TRACKER_PORT")
	if port == "" {
		port = "8082"
	}

	return &Config{
		Port:               port,
		StorageBackend:     backend,
		DatabaseURL:        dbURL,
		RedisURL:           os.Getenv("REDIS_URL"),
		SweepIntervalHours: interval,
	}, nil
}
