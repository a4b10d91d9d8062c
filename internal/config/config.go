package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	API            APIConfig            `yaml:"api"`
	Database       DatabaseConfig       `yaml:"database"`
	NATS           NATSConfig           `yaml:"nats"`
	JWT            JWTConfig            `yaml:"jwt"`
	Log            LogConfig            `yaml:"log"`
	SMTP           SMTPConfig           `yaml:"smtp"`
	DevicePlatform DevicePlatformConfig `yaml:"device_platform"`
	Billing        BillingConfig        `yaml:"billing"`
	Provisioning   ProvisioningConfig   `yaml:"provisioning"`
}

// ServerConfig represents server identity configuration
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// APIConfig represents REST API configuration
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// NATSConfig represents NATS configuration
type NATSConfig struct {
	URL               string        `yaml:"url"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// JWTConfig represents JWT configuration
type JWTConfig struct {
	Secret          string        `yaml:"secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SMTPConfig represents outbound mail configuration
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Sender   string `yaml:"sender"`
	FromName string `yaml:"from_name"`
}

// DevicePlatformConfig represents the external device-management platform
type DevicePlatformConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
}

// BillingConfig represents the external billing platform
type BillingConfig struct {
	AccountsURL      string        `yaml:"accounts_url"`
	APIURL           string        `yaml:"api_url"`
	ClientID         string        `yaml:"client_id"`
	ClientSecret     string        `yaml:"client_secret"`
	OrganizationID   string        `yaml:"organization_id"`
	RefreshTokenFile string        `yaml:"refresh_token_file"`
	TokenCacheFile   string        `yaml:"token_cache_file"`
	Timeout          time.Duration `yaml:"timeout"`
	SyncInterval     time.Duration `yaml:"sync_interval"`
}

// ProvisioningConfig represents tenant provisioning defaults
type ProvisioningConfig struct {
	DashboardURL   string `yaml:"dashboard_url"`
	AdminFirstName string `yaml:"admin_first_name"`
}

// Load loads configuration from a YAML file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}

	if url := os.Getenv("DEVICE_PLATFORM_URL"); url != "" {
		c.DevicePlatform.BaseURL = url
	}

	if user := os.Getenv("DEVICE_PLATFORM_USERNAME"); user != "" {
		c.DevicePlatform.Username = user
	}

	if pass := os.Getenv("DEVICE_PLATFORM_PASSWORD"); pass != "" {
		c.DevicePlatform.Password = pass
	}

	if id := os.Getenv("BILLING_CLIENT_ID"); id != "" {
		c.Billing.ClientID = id
	}

	if secret := os.Getenv("BILLING_CLIENT_SECRET"); secret != "" {
		c.Billing.ClientSecret = secret
	}

	if org := os.Getenv("BILLING_ORG_ID"); org != "" {
		c.Billing.OrganizationID = org
	}

	if pass := os.Getenv("SMTP_PASSWORD"); pass != "" {
		c.SMTP.Password = pass
	}
}

// applyDefaults fills in defaults for optional settings
func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.DevicePlatform.Timeout == 0 {
		c.DevicePlatform.Timeout = 15 * time.Second
	}

	if c.Billing.Timeout == 0 {
		c.Billing.Timeout = 30 * time.Second
	}

	if c.Billing.SyncInterval == 0 {
		c.Billing.SyncInterval = 30 * time.Minute
	}

	if c.Billing.RefreshTokenFile == "" {
		c.Billing.RefreshTokenFile = "billing_refresh_token.txt"
	}

	if c.Billing.TokenCacheFile == "" {
		c.Billing.TokenCacheFile = "billing_access_token.json"
	}

	if c.JWT.AccessTokenTTL == 0 {
		c.JWT.AccessTokenTTL = 15 * time.Minute
	}

	if c.JWT.RefreshTokenTTL == 0 {
		c.JWT.RefreshTokenTTL = 7 * 24 * time.Hour
	}

	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}

	if c.Provisioning.AdminFirstName == "" {
		c.Provisioning.AdminFirstName = "Technical Admin"
	}
}
