package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port" env:"SERVER_PORT"`
		Mode string `yaml:"mode" env:"SERVER_MODE"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	Cache struct {
		// When enabled, presence state is kept in Valkey so multiple
		// processes agree on who is online. Off by default: presence is
		// ephemeral and rebuilds empty on restart either way.
		Enabled  bool   `yaml:"enabled" env:"CACHE_ENABLED"`
		Address  string `yaml:"address" env:"CACHE_ADDRESS"`
		Password string `yaml:"password" env:"CACHE_PASSWORD"`
	} `yaml:"cache"`

	JWT struct {
		Secret                 string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration  string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		RefreshTokenExpiration string `yaml:"refresh_token_expiration" env:"JWT_REFRESH_TOKEN_EXPIRATION"`
		SocketTokenExpiration  string `yaml:"socket_token_expiration" env:"JWT_SOCKET_TOKEN_EXPIRATION"`
		Issuer                 string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Chat struct {
		// Maximum rune length accepted for a community message
		MaxMessageLength int `yaml:"max_message_length" env:"CHAT_MAX_MESSAGE_LENGTH"`
		// Page size cap for community history fetches
		MaxHistoryPageSize int `yaml:"max_history_page_size" env:"CHAT_MAX_HISTORY_PAGE_SIZE"`
	} `yaml:"chat"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a file and environment variables.
// A .env file in the working directory is loaded first when present.
func LoadConfig(configPath string) (*Config, error) {
	// Best effort: absence of a .env file is not an error
	_ = godotenv.Load()

	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Override with environment variables
	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "campusmind"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"

	config.Cache.Address = "localhost:6379"

	config.JWT.AccessTokenExpiration = "1h"
	config.JWT.RefreshTokenExpiration = "720h"
	config.JWT.SocketTokenExpiration = "60s"
	config.JWT.Issuer = "campusmind.app"

	config.Chat.MaxMessageLength = 2000
	config.Chat.MaxHistoryPageSize = 100

	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	for name, value := range map[string]string{
		"access token":  config.JWT.AccessTokenExpiration,
		"refresh token": config.JWT.RefreshTokenExpiration,
		"socket token":  config.JWT.SocketTokenExpiration,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid JWT %s expiration format: %w", name, err)
		}
	}

	if config.Chat.MaxMessageLength <= 0 {
		return fmt.Errorf("chat max message length must be positive")
	}

	if config.Cache.Enabled && config.Cache.Address == "" {
		return fmt.Errorf("cache address is required when cache is enabled")
	}

	return nil
}

// GetPostgresConnectionString returns the postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}
