package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables override the file-based configuration. The
// legacy ADMIN_PASSWORD name is honored for the seeded admin password.
const (
	EnvAdminPassword       = "AUTHGATE_ADMIN_PASSWORD"
	EnvAdminPasswordLegacy = "ADMIN_PASSWORD"
	EnvJWTSecret           = "AUTHGATE_JWT_SECRET"
)

// Config holds the global service configuration
type Config struct {
	// General configuration
	General struct {
		// DataDir is the data storage directory
		DataDir string `yaml:"dataDir"`

		// LogLevel is the logging level
		LogLevel string `yaml:"logLevel"`

		// Development enables development mode
		Development bool `yaml:"development"`
	} `yaml:"general"`

	// HTTP server configuration
	HTTP struct {
		// Address to bind the HTTP server
		Address string `yaml:"address"`

		// Port to bind the HTTP server
		Port int `yaml:"port"`

		// TLS enables TLS
		TLS bool `yaml:"tls"`

		// CertFile is the TLS certificate path
		CertFile string `yaml:"certFile"`

		// KeyFile is the TLS private key path
		KeyFile string `yaml:"keyFile"`

		// JWT configuration
		JWT struct {
			// Secret is the signing key for session tokens
			Secret string `yaml:"secret"`

			// ExpirationMinutes is the token validity duration
			ExpirationMinutes int `yaml:"expirationMinutes"`
		} `yaml:"jwt"`
	} `yaml:"http"`

	// Auth configuration
	Auth struct {
		// DefaultAdminPassword seeds the admin account when the user
		// store is empty or unreadable
		DefaultAdminPassword string `yaml:"defaultAdminPassword"`

		// MaxFailedAttempts before a temporary lockout
		MaxFailedAttempts int `yaml:"maxFailedAttempts"`

		// LockoutWindowMinutes measured from the last recorded failure
		LockoutWindowMinutes int `yaml:"lockoutWindowMinutes"`

		// Argon2 cost parameters for password hashing
		Argon2 struct {
			Time        int `yaml:"time"`
			MemoryKB    int `yaml:"memoryKB"`
			Parallelism int `yaml:"parallelism"`
		} `yaml:"argon2"`
	} `yaml:"auth"`

	// Storage configuration
	Storage struct {
		// LockoutBackend selects the lockout tracker: "csv", "sqlite"
		// or "memory"
		LockoutBackend string `yaml:"lockoutBackend"`

		// UsersFile is the user store path, relative to DataDir
		UsersFile string `yaml:"usersFile"`

		// LockoutFile is the lockout store path, relative to DataDir
		LockoutFile string `yaml:"lockoutFile"`

		// AuditFile is the audit log path, relative to DataDir
		AuditFile string `yaml:"auditFile"`
	} `yaml:"storage"`

	Logging struct {
		Level       string `yaml:"level"` // "error", "warn", "info", "debug"
		ChannelSize int    `yaml:"channelSize"`
		Format      string `yaml:"format"` // "json" or "text"
		Output      string `yaml:"output"` // "stdout" or "file"
		FilePath    string `yaml:"filePath"`
	} `yaml:"logging"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	c := &Config{}

	c.General.DataDir = "./data"
	c.General.LogLevel = "info"
	c.General.Development = false

	c.HTTP.Address = "0.0.0.0"
	c.HTTP.Port = 8080
	c.HTTP.TLS = false
	c.HTTP.JWT.Secret = "changeme"
	c.HTTP.JWT.ExpirationMinutes = 60

	c.Auth.DefaultAdminPassword = "admin123"
	c.Auth.MaxFailedAttempts = 3
	c.Auth.LockoutWindowMinutes = 5
	c.Auth.Argon2.Time = 1
	c.Auth.Argon2.MemoryKB = 64 * 1024
	c.Auth.Argon2.Parallelism = 4

	c.Storage.LockoutBackend = "csv"
	c.Storage.UsersFile = "users.json"
	c.Storage.LockoutFile = "login_lockouts.csv"
	c.Storage.AuditFile = "audit_log.csv"

	c.Logging.Level = "info"
	c.Logging.ChannelSize = 1000
	c.Logging.Format = "json"
	c.Logging.Output = "stdout"
	c.Logging.FilePath = ""

	return c
}

// LoadConfig loads the configuration from a file, applying environment
// overrides on top.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if !filepath.IsAbs(config.General.DataDir) {
		dir, err := filepath.Abs(filepath.Dir(path))
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
		config.General.DataDir = filepath.Join(dir, config.General.DataDir)
	}

	ApplyEnvOverrides(config)

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnvOverrides replaces secrets with environment values when set.
func ApplyEnvOverrides(config *Config) {
	if v := os.Getenv(EnvAdminPassword); v != "" {
		config.Auth.DefaultAdminPassword = v
	} else if v := os.Getenv(EnvAdminPasswordLegacy); v != "" {
		config.Auth.DefaultAdminPassword = v
	}
	if v := os.Getenv(EnvJWTSecret); v != "" {
		config.HTTP.JWT.Secret = v
	}
}

// UsersPath returns the absolute user store path.
func (c *Config) UsersPath() string {
	return filepath.Join(c.General.DataDir, c.Storage.UsersFile)
}

// LockoutPath returns the absolute lockout store path.
func (c *Config) LockoutPath() string {
	return filepath.Join(c.General.DataDir, c.Storage.LockoutFile)
}

// AuditPath returns the absolute audit log path.
func (c *Config) AuditPath() string {
	return filepath.Join(c.General.DataDir, c.Storage.AuditFile)
}

// SaveConfig saves the configuration to a file
func SaveConfig(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	logLevel := strings.ToLower(config.General.LogLevel)
	if logLevel != "debug" && logLevel != "info" && logLevel != "warn" && logLevel != "error" {
		return fmt.Errorf("invalid log level: %s", config.General.LogLevel)
	}

	backend := strings.ToLower(config.Storage.LockoutBackend)
	if backend != "csv" && backend != "sqlite" && backend != "memory" {
		return fmt.Errorf("invalid lockout backend: %s", config.Storage.LockoutBackend)
	}

	if config.Auth.MaxFailedAttempts <= 0 {
		return fmt.Errorf("maxFailedAttempts must be positive")
	}
	if config.Auth.LockoutWindowMinutes <= 0 {
		return fmt.Errorf("lockoutWindowMinutes must be positive")
	}

	if config.HTTP.Port <= 0 || config.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", config.HTTP.Port)
	}

	return nil
}
