package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Redis        RedisConfig        `yaml:"redis"`
	Generation   GenerationConfig   `yaml:"generation"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	SES          SESConfig          `yaml:"ses"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// RedisConfig holds Redis connection settings for recipient persistence
// and the generation quota counters.
type RedisConfig struct {
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// GenerationConfig holds draft generation provider configuration
type GenerationConfig struct {
	Provider          string `yaml:"provider"` // anthropic, openai, bedrock
	AnthropicAPIKey   string `yaml:"anthropic_api_key"`
	OpenAIAPIKey      string `yaml:"openai_api_key"`
	Model             string `yaml:"model"`
	BedrockModelID    string `yaml:"bedrock_model_id"`
	AWSRegion         string `yaml:"aws_region"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

// Timeout returns the configured timeout as a duration
func (c GenerationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// OrchestratorConfig holds batch pacing settings. ChunkSize groups are
// generated concurrently, then the orchestrator pauses ChunkDelayMS before
// the next chunk so chunk_size/delay stays under the provider quota.
type OrchestratorConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkDelayMS int `yaml:"chunk_delay_ms"`
}

// Delay returns the inter-chunk pause as a duration
func (c OrchestratorConfig) Delay() time.Duration {
	return time.Duration(c.ChunkDelayMS) * time.Millisecond
}

// SESConfig holds AWS SES dispatch configuration
type SESConfig struct {
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled"`
}

// Timeout returns the configured timeout as a duration
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "anthropic"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "claude-sonnet-4-20250514"
	}
	if cfg.Generation.BedrockModelID == "" {
		cfg.Generation.BedrockModelID = "anthropic.claude-3-sonnet-20240229-v1:0"
	}
	if cfg.Generation.AWSRegion == "" {
		cfg.Generation.AWSRegion = "us-east-1"
	}
	if cfg.Generation.TimeoutSeconds == 0 {
		cfg.Generation.TimeoutSeconds = 60
	}
	if cfg.Generation.RequestsPerMinute == 0 {
		cfg.Generation.RequestsPerMinute = 15
	}
	if cfg.Orchestrator.ChunkSize == 0 {
		cfg.Orchestrator.ChunkSize = 5
	}
	if cfg.Orchestrator.ChunkDelayMS == 0 {
		cfg.Orchestrator.ChunkDelayMS = 20000
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-west-2"
	}
	if cfg.SES.TimeoutSeconds == 0 {
		cfg.SES.TimeoutSeconds = 30
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Generation.AnthropicAPIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Generation.OpenAIAPIKey = v
	}
	if v := os.Getenv("GENERATION_PROVIDER"); v != "" {
		cfg.Generation.Provider = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("OUTREACH_FROM_EMAIL"); v != "" {
		cfg.SES.FromEmail = v
		cfg.SES.Enabled = true
	}
	if v := os.Getenv("DRAFT_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Orchestrator.ChunkSize = n
		}
	}
	if v := os.Getenv("DRAFT_CHUNK_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Orchestrator.ChunkDelayMS = n
		}
	}

	return cfg, nil
}
