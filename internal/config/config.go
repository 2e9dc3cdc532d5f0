package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/mail-threat-scanner/")
	v.AddConfigPath("$HOME/.mail-threat-scanner")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("THREAT_SCANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.filter_type", "postfix")
	v.SetDefault("server.listen_address", "0.0.0.0:10025")
	v.SetDefault("server.block_threats", false)
	v.SetDefault("server.headers.threat", "X-Threat-Status")
	v.SetDefault("server.headers.score", "X-Threat-Score")
	v.SetDefault("server.headers.type", "X-Threat-Type")
	v.SetDefault("server.headers.factors", "X-Threat-Factors")
	v.SetDefault("server.modify_subject", false)
	v.SetDefault("server.subject_prefix", "")
	v.SetDefault("server.postfix.address", "127.0.0.1")
	v.SetDefault("server.postfix.port", 10026)
	v.SetDefault("server.postfix.enabled", true)

	// Scanner defaults
	v.SetDefault("scanner.whitelisted_domains", []string{})
	v.SetDefault("scanner.batch_workers", 4)
	v.SetDefault("scanner.top_contributions", 15)
	v.SetDefault("scanner.max_body_size", 65536)

	// Classifier defaults
	v.SetDefault("classifier.enabled", false)
	v.SetDefault("classifier.bundle_path", "/data/threat_model.json")

	// Embedding defaults
	v.SetDefault("embedding.provider", "none")
	v.SetDefault("embedding.openai.api_key", "")
	v.SetDefault("embedding.openai.model_name", "text-embedding-3-small")
	v.SetDefault("embedding.gemini.api_key", "")
	v.SetDefault("embedding.gemini.model_name", "text-embedding-004")
	v.SetDefault("embedding.bedrock.region", "us-east-1")
	v.SetDefault("embedding.bedrock.model_id", "amazon.titan-embed-text-v2:0")

	// Domain age defaults
	v.SetDefault("domain_age.enabled", false)
	v.SetDefault("domain_age.rdap_endpoint", "")
	v.SetDefault("domain_age.timeout", "3s")
	v.SetDefault("domain_age.cache_ttl", "24h")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.sqlite_path", "/data/domain_age_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/threat_scanner?parseTime=true")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
