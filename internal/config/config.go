package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `env:",prefix=SERVER_"`
	Database  DatabaseConfig  `env:",prefix=DB_"`
	App       AppConfig       `env:",prefix=APP_"`
	Email     EmailConfig     `env:",prefix=EMAIL_"`
	ImageGen  ImageGenConfig  `env:",prefix=IMAGEGEN_"`
	Sentiment SentimentConfig `env:",prefix=SENTIMENT_"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string `env:"PORT,default=8080"`
	Host         string `env:"HOST,default=0.0.0.0"`
	ReadTimeout  int    `env:"READ_TIMEOUT,default=30"`  // seconds
	WriteTimeout int    `env:"WRITE_TIMEOUT,default=30"` // seconds
}

// DatabaseConfig holds SQLite configuration.
type DatabaseConfig struct {
	Path string `env:"PATH,default=petitiond.db"`
}

// AppConfig holds application-specific configuration.
type AppConfig struct {
	Environment   string `env:"ENVIRONMENT,default=development"`
	LogLevel      string `env:"LOG_LEVEL,default=info"`
	BaseURL       string `env:"BASE_URL,default=http://localhost:8080"`
	PetitionGoal  int    `env:"PETITION_GOAL,default=5000"`
	RatePerMinute int    `env:"RATE_PER_MINUTE,default=30"`
}

// EmailConfig holds Postmark delivery configuration.
type EmailConfig struct {
	ServerToken string `env:"SERVER_TOKEN"`
	FromAddress string `env:"FROM_ADDRESS,default=petition@chapelleverte.fr"`
}

// ImageGenConfig holds diffusion API configuration.
type ImageGenConfig struct {
	APIKey  string `env:"API_KEY"`
	BaseURL string `env:"BASE_URL"`
	Engine  string `env:"ENGINE"`
}

// SentimentConfig holds the optional toxicity classifier endpoint. When
// unset, comment analysis runs on keyword rules alone.
type SentimentConfig struct {
	ClassifierURL string `env:"CLASSIFIER_URL"`
}

// Load loads configuration from environment variables.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	return &cfg, nil
}

// Addr returns the server listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if running in development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}
