package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"techblok-cli/internal/store"
)

type Config struct {
	Environment   string
	APIBaseURL    string
	Timeout       time.Duration
	UsersPageSize int
	TasksPageSize int
	StateDir      string
}

// Load reads configuration in order: .env (if present), config.yaml from the
// state dir or the working directory, then TECHBLOK_* environment variables
// on top.
func Load() (*Config, error) {
	// Missing .env is the normal case.
	_ = godotenv.Load()

	stateDir, err := store.DefaultDir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(stateDir)
	v.AddConfigPath(".")

	v.SetEnvPrefix("TECHBLOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("environment", "development")
	v.SetDefault("api_base_url", "http://localhost:8000")
	v.SetDefault("timeout", "15s")
	v.SetDefault("users_page_size", 8)
	v.SetDefault("tasks_page_size", 5)
	v.SetDefault("state_dir", stateDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{
		Environment:   v.GetString("environment"),
		APIBaseURL:    strings.TrimRight(v.GetString("api_base_url"), "/"),
		Timeout:       v.GetDuration("timeout"),
		UsersPageSize: v.GetInt("users_page_size"),
		TasksPageSize: v.GetInt("tasks_page_size"),
		StateDir:      v.GetString("state_dir"),
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UsersPageSize < 1 {
		cfg.UsersPageSize = 8
	}
	if cfg.TasksPageSize < 1 {
		cfg.TasksPageSize = 5
	}
	return cfg, nil
}
