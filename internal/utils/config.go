package utils

import (
	"fmt"

	"github.com/spf13/viper"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	DSN      string
}

// SessionConfig holds cookie session configuration
type SessionConfig struct {
	Secret string `mapstructure:"secret"`
	Name   string `mapstructure:"name"`
	MaxAge int    `mapstructure:"max_age"`
	Secure bool   `mapstructure:"secure"`
}

// MarketDataConfig holds price refresh configuration
type MarketDataConfig struct {
	QuoteURL        string `mapstructure:"quote_url"`
	RefreshSchedule string `mapstructure:"refresh_schedule"`
	Timeout         int    `mapstructure:"timeout"`
	LookbackDays    int    `mapstructure:"lookback_days"`
}

// Config holds all configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Session    SessionConfig    `mapstructure:"session"`
	MarketData MarketDataConfig `mapstructure:"marketdata"`
}

// BuildDSN builds the database connection string
func (c *Config) BuildDSN() {
	c.Database.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AddConfigPath(".")

	viper.SetDefault("server.port", "5000")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("session.name", "portfoliolab_session")
	viper.SetDefault("session.max_age", 86400)
	viper.SetDefault("marketdata.quote_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	viper.SetDefault("marketdata.refresh_schedule", "0 * * * *")
	viper.SetDefault("marketdata.timeout", 30)
	viper.SetDefault("marketdata.lookback_days", 365)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Build the DSN string
	config.BuildDSN()

	return &config, nil
}
