package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Mail        MailConfig                `json:"mail"`
}

type BasicConfig struct {
	ServerAddress     string `json:"server_address"`
	DefaultProvider   string `json:"default_provider"`
	GenerationTimeout int    `json:"generation_timeout_seconds"`
	TTSModel          string `json:"tts_model"`
	TTSVoice          string `json:"tts_voice"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// MailConfig drives OTP delivery. Without a SendGrid key, codes fall back to
// the process log for local development.
type MailConfig struct {
	SendGridAPIKey   string `json:"sendgrid_api_key"`
	FromEmail        string `json:"from_email"`
	FromName         string `json:"from_name"`
	OTPExpireMinutes int    `json:"otp_expire_minutes"`
}

// ProviderConfig describes one AI provider endpoint. APIKey is the
// server-level fallback used when a user has not stored their own key.
type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if len(cfg.Databases) == 0 {
		return nil, fmt.Errorf("at least one database must be configured")
	}
	if cfg.BasicConfig.DefaultProvider != "" {
		if _, ok := cfg.Providers[cfg.BasicConfig.DefaultProvider]; !ok {
			return nil, fmt.Errorf("default provider %q not configured", cfg.BasicConfig.DefaultProvider)
		}
	}

	// Relative sqlite paths resolve against the config file directory.
	for name, db := range cfg.Databases {
		if db.DSN != "" && db.DSN != ":memory:" && !filepath.IsAbs(db.DSN) {
			db.DSN = filepath.Join(filepath.Dir(absPath), db.DSN)
			cfg.Databases[name] = db
		}
	}

	return &cfg, nil
}
