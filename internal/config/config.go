package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "TRIAGE_CONFIG"
	databaseURLEnv    = "DATABASE_URL"
	oracleAPIKeyEnv   = "ORACLE_API_KEY"
	oracleURLEnv      = "ORACLE_URL"
	oracleModelEnv    = "ORACLE_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	portEnv           = "PORT"
)

// Config holds the settings required across the application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Oracle   OracleConfig   `yaml:"oracle"`
	Alerts   AlertConfig    `yaml:"alerts"`
	LogMode  string         `yaml:"logMode"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	URL            string `yaml:"url"`
	MigrationsPath string `yaml:"migrationsPath"`
}

// OracleConfig describes the external inference endpoint.
type OracleConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"apiKey"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// AlertConfig holds the optional Telegram alert channel for doctors.
// Both fields empty disables the channel entirely.
type AlertConfig struct {
	TelegramToken  string `yaml:"telegramToken"`
	TelegramChatID int64  `yaml:"telegramChatId"`
}

// Load reads the YAML config (path from TRIAGE_CONFIG or the given
// fallback) and applies environment overrides on top.
func Load(fallbackPath string) (*Config, error) {
	path := os.Getenv(configPathEnv)
	if path == "" {
		path = fallbackPath
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(databaseURLEnv); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv(oracleAPIKeyEnv); v != "" {
		c.Oracle.APIKey = v
	}
	if v := os.Getenv(oracleURLEnv); v != "" {
		c.Oracle.URL = v
	}
	if v := os.Getenv(oracleModelEnv); v != "" {
		c.Oracle.Model = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Alerts.TelegramToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Alerts.TelegramChatID = id
		}
	}
	if v := os.Getenv(portEnv); v != "" {
		c.Server.Port = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Database.MigrationsPath == "" {
		c.Database.MigrationsPath = "file://migrations"
	}
	if c.Oracle.Timeout == 0 {
		c.Oracle.Timeout = 30 * time.Second
	}
	if c.LogMode == "" {
		c.LogMode = "dev"
	}
}
