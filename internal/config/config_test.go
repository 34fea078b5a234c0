package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TECHBLOK_STATE_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:8000" {
		t.Fatalf("api base url: %q", cfg.APIBaseURL)
	}
	if cfg.Timeout != 15*time.Second {
		t.Fatalf("timeout: %v", cfg.Timeout)
	}
	if cfg.UsersPageSize != 8 || cfg.TasksPageSize != 5 {
		t.Fatalf("page sizes: %d/%d", cfg.UsersPageSize, cfg.TasksPageSize)
	}
	if cfg.Environment != "development" {
		t.Fatalf("environment: %q", cfg.Environment)
	}
}

func TestLoad_EnvOverridesAndTrailingSlash(t *testing.T) {
	t.Setenv("TECHBLOK_STATE_DIR", t.TempDir())
	t.Setenv("TECHBLOK_API_BASE_URL", "https://api.example.com/")
	t.Setenv("TECHBLOK_TIMEOUT", "30s")
	t.Setenv("TECHBLOK_USERS_PAGE_SIZE", "12")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != "https://api.example.com" {
		t.Fatalf("api base url: %q", cfg.APIBaseURL)
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("timeout: %v", cfg.Timeout)
	}
	if cfg.UsersPageSize != 12 {
		t.Fatalf("users page size: %d", cfg.UsersPageSize)
	}
}

func TestLoad_FloorsInvalidValues(t *testing.T) {
	t.Setenv("TECHBLOK_STATE_DIR", t.TempDir())
	t.Setenv("TECHBLOK_USERS_PAGE_SIZE", "0")
	t.Setenv("TECHBLOK_TIMEOUT", "-5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UsersPageSize != 8 {
		t.Fatalf("users page size: %d", cfg.UsersPageSize)
	}
	if cfg.Timeout != 15*time.Second {
		t.Fatalf("timeout: %v", cfg.Timeout)
	}
}
