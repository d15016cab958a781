package conf

import (
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config represents application configuration
type Config struct {
	// Lark app credentials (the platform access token)
	AppID     string `env:"FEISHU_APP_ID"`
	AppSecret string `env:"FEISHU_APP_SECRET"`

	// Optional pre-seeded owner identity (open_id). When set and no
	// permission document exists yet, the record is initialized with
	// this owner instead of starting claimable.
	OwnerID string `env:"OWNER_ID"`

	// Durable document paths
	AdminFile    string `env:"ADMIN_FILE"`
	CommandsFile string `env:"COMMANDS_FILE"`
	AuditDBPath  string `env:"AUDIT_DB_PATH"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Debug    bool   `env:"DEBUG"`
}

// LoadFromEnv loads configuration from environment variables and fills
// in default document paths under the user config directory.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	configDir := defaultConfigDir()
	if cfg.AdminFile == "" {
		cfg.AdminFile = filepath.Join(configDir, "admins.json")
	}
	if cfg.CommandsFile == "" {
		cfg.CommandsFile = filepath.Join(configDir, "commands.json")
	}
	if cfg.AuditDBPath == "" {
		cfg.AuditDBPath = filepath.Join(configDir, "audit.db")
	}

	return cfg, nil
}

func defaultConfigDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".feishu-reply-bot")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.AppID == "" || c.AppSecret == "" {
		return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
